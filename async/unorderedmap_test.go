package async

import (
	"context"
	"testing"
	"time"
)

func TestAsyncUnorderedMap_WaitForBeforeEmplace(t *testing.T) {
	m := NewAsyncUnorderedMap[string, int]()
	result := make(chan int, 1)
	go func() {
		out := m.WaitFor("k").Run(context.Background())
		result <- out.Value
	}()
	time.Sleep(10 * time.Millisecond)
	if inserted, err := m.Emplace("k", 42); err != nil || !inserted {
		t.Fatalf("Emplace: inserted=%v err=%v", inserted, err)
	}
	select {
	case v := <-result:
		if v != 42 {
			t.Fatalf("WaitFor = %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitFor never returned after Emplace")
	}
}

func TestAsyncUnorderedMap_WaitForAfterEmplace(t *testing.T) {
	m := NewAsyncUnorderedMap[string, int]()
	if inserted, err := m.Emplace("k", 1); err != nil || !inserted {
		t.Fatalf("Emplace: inserted=%v err=%v", inserted, err)
	}
	out := m.WaitFor("k").Run(context.Background())
	if !out.Ok() || out.Value != 1 {
		t.Fatalf("WaitFor = %+v, want 1", out)
	}
}

func TestAsyncUnorderedMap_EmplaceDuplicateKeyIsNoOp(t *testing.T) {
	m := NewAsyncUnorderedMap[string, int]()
	if inserted, err := m.Emplace("k", 1); err != nil || !inserted {
		t.Fatalf("first Emplace: inserted=%v err=%v", inserted, err)
	}

	waiterResult := make(chan int, 1)
	go func() {
		// The key already exists, so WaitFor resolves immediately with the
		// existing value without registering a waiter; it completes before
		// the duplicate Emplace below runs.
		out := m.WaitFor("k").Run(context.Background())
		waiterResult <- out.Value
	}()
	<-waiterResult

	inserted, err := m.Emplace("k", 2)
	if err != nil {
		t.Fatalf("duplicate Emplace returned an error: %v", err)
	}
	if inserted {
		t.Fatal("duplicate Emplace reported inserted=true")
	}
	v, ok := m.Get("k")
	if !ok || v != 1 {
		t.Fatalf("Get after duplicate Emplace = %d, %v, want 1, true", v, ok)
	}
}

func TestAsyncUnorderedMap_WaitForStoppedOnCancel(t *testing.T) {
	m := NewAsyncUnorderedMap[string, int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := m.WaitFor("missing").Run(ctx)
	if !out.Stopped {
		t.Fatalf("WaitFor outcome = %+v, want Stopped=true", out)
	}
}

func TestAsyncUnorderedMap_CloseFailsPendingWaiters(t *testing.T) {
	m := NewAsyncUnorderedMap[string, int]()
	result := make(chan error, 1)
	go func() {
		out := m.WaitFor("k").Run(context.Background())
		result <- out.Err
	}()
	time.Sleep(10 * time.Millisecond)
	m.Close()
	select {
	case err := <-result:
		if err != ErrMapClosed {
			t.Fatalf("WaitFor error = %v, want ErrMapClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitFor never returned after Close")
	}
}
