package combinator

import (
	"context"
	"testing"
	"time"

	"github.com/maikeln/wlcoro/taskrt"
)

func TestWhenAnySlice_FirstNonStoppedWins(t *testing.T) {
	slow := taskrt.SenderFunc[int](func(ctx context.Context) taskrt.Outcome[int] {
		select {
		case <-time.After(2 * time.Second):
			return taskrt.Outcome[int]{Value: 1}
		case <-ctx.Done():
			return taskrt.Outcome[int]{Stopped: true}
		}
	})
	fast := taskrt.Just(42)

	out := taskrt.SyncWait(context.Background(), WhenAnySlice([]taskrt.Sender[int]{slow, fast}))
	if !out.Ok() {
		t.Fatalf("WhenAnySlice outcome = %+v", out)
	}
	if out.Value.Index != 1 || out.Value.Value != 42 {
		t.Fatalf("WhenAnySlice value = %+v, want index 1 value 42", out.Value)
	}
}

func TestWhenAnySlice_AllStoppedIsStopped(t *testing.T) {
	a := taskrt.Stopped[int]()
	b := taskrt.Stopped[int]()
	out := taskrt.SyncWait(context.Background(), WhenAnySlice([]taskrt.Sender[int]{a, b}))
	if !out.Stopped {
		t.Fatalf("WhenAnySlice outcome = %+v, want Stopped=true", out)
	}
}

func TestWhenAny2_SecondWins(t *testing.T) {
	a := taskrt.SenderFunc[int](func(ctx context.Context) taskrt.Outcome[int] {
		<-ctx.Done()
		return taskrt.Outcome[int]{Stopped: true}
	})
	b := taskrt.Just("done")
	out := taskrt.SyncWait(context.Background(), WhenAny2(a, b))
	if !out.Ok() || out.Value.IsFirst || out.Value.Second != "done" {
		t.Fatalf("WhenAny2 outcome = %+v", out)
	}
}
