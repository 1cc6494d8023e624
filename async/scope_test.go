package async

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maikeln/wlcoro/taskrt"
)

func TestScope_CloseWaitsForSpawnedWork(t *testing.T) {
	s := NewScope()
	var ran atomic.Bool
	done := make(chan struct{})
	err := s.Spawn(taskrt.SenderFunc[struct{}](func(context.Context) taskrt.Outcome[struct{}] {
		time.Sleep(20 * time.Millisecond)
		ran.Store(true)
		close(done)
		return taskrt.Outcome[struct{}]{Value: struct{}{}}
	}))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	out := taskrt.SyncWait(context.Background(), s.Close())
	if !out.Ok() {
		t.Fatalf("Close outcome = %+v", out)
	}
	if !ran.Load() {
		t.Fatal("Close returned before spawned task ran")
	}
	<-done
}

func TestScope_SpawnAfterCloseFails(t *testing.T) {
	s := NewScope()
	taskrt.SyncWait(context.Background(), s.Close())
	if err := s.Spawn(taskrt.Just(struct{}{})); err != ErrScopeClosed {
		t.Fatalf("Spawn after Close = %v, want ErrScopeClosed", err)
	}
}

func TestScope_NestDeliversOutcomeToCaller(t *testing.T) {
	s := NewScope()
	out := s.Nest(taskrt.SenderFunc[struct{}](func(context.Context) taskrt.Outcome[struct{}] {
		return taskrt.Outcome[struct{}]{Value: struct{}{}}
	})).Run(context.Background())
	if !out.Ok() {
		t.Fatalf("Nest outcome = %+v", out)
	}
	if s.ActiveTasks() != 0 {
		t.Fatalf("ActiveTasks() after Nest completed = %d, want 0", s.ActiveTasks())
	}
}

func TestScope_NestAfterCloseFails(t *testing.T) {
	s := NewScope()
	taskrt.SyncWait(context.Background(), s.Close())
	out := s.Nest(taskrt.Just(struct{}{})).Run(context.Background())
	if out.Err != ErrScopeClosed {
		t.Fatalf("Nest after Close outcome = %+v, want Err=ErrScopeClosed", out)
	}
}

func TestScope_CloseWaitsForNestedWork(t *testing.T) {
	s := NewScope()
	release := make(chan struct{})
	nestedDone := make(chan struct{})
	go func() {
		s.Nest(taskrt.SenderFunc[struct{}](func(context.Context) taskrt.Outcome[struct{}] {
			<-release
			return taskrt.Outcome[struct{}]{Value: struct{}{}}
		})).Run(context.Background())
		close(nestedDone)
	}()
	time.Sleep(10 * time.Millisecond)

	closeDone := make(chan struct{})
	go func() {
		taskrt.SyncWait(context.Background(), s.Close())
		close(closeDone)
	}()

	select {
	case <-closeDone:
		t.Fatal("Close returned before nested work released")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-nestedDone
	<-closeDone
}

func TestScope_ActiveTasks(t *testing.T) {
	s := NewScope()
	release := make(chan struct{})
	_ = s.Spawn(taskrt.SenderFunc[struct{}](func(context.Context) taskrt.Outcome[struct{}] {
		<-release
		return taskrt.Outcome[struct{}]{Value: struct{}{}}
	}))
	time.Sleep(10 * time.Millisecond)
	if s.ActiveTasks() != 1 {
		t.Fatalf("ActiveTasks() = %d, want 1", s.ActiveTasks())
	}
	close(release)
}
