package combinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maikeln/wlcoro/taskrt"
)

func TestWhenAll2_BothSucceed(t *testing.T) {
	a := taskrt.Just(1)
	b := taskrt.Just("two")
	out := taskrt.SyncWait(context.Background(), WhenAll2(a, b))
	if !out.Ok() {
		t.Fatalf("WhenAll2 outcome = %+v", out)
	}
	if out.Value.First != 1 || out.Value.Second != "two" {
		t.Fatalf("WhenAll2 value = %+v", out.Value)
	}
}

func TestWhenAll2_FirstErrorCancelsSecond(t *testing.T) {
	wantErr := errors.New("boom")
	cancelled := make(chan struct{}, 1)
	a := taskrt.Fail[int](wantErr)
	b := taskrt.SenderFunc[int](func(ctx context.Context) taskrt.Outcome[int] {
		select {
		case <-ctx.Done():
			cancelled <- struct{}{}
			return taskrt.Outcome[int]{Stopped: true}
		case <-time.After(2 * time.Second):
			return taskrt.Outcome[int]{Value: 1}
		}
	})
	out := taskrt.SyncWait(context.Background(), WhenAll2(a, b))
	if out.Err != wantErr {
		t.Fatalf("WhenAll2 outcome = %+v, want err %v", out, wantErr)
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("sibling was never cancelled after a peer's error")
	}
}

func TestWhenAllSlice_Empty(t *testing.T) {
	out := taskrt.SyncWait(context.Background(), WhenAllSlice[int](nil))
	if !out.Ok() || len(out.Value) != 0 {
		t.Fatalf("WhenAllSlice(nil) = %+v", out)
	}
}

func TestWhenAllSlice_PreservesOrder(t *testing.T) {
	senders := []taskrt.Sender[int]{taskrt.Just(1), taskrt.Just(2), taskrt.Just(3)}
	out := taskrt.SyncWait(context.Background(), WhenAllSlice(senders))
	if !out.Ok() {
		t.Fatalf("WhenAllSlice outcome = %+v", out)
	}
	want := []int{1, 2, 3}
	for i, v := range want {
		if out.Value[i] != v {
			t.Fatalf("WhenAllSlice value = %v, want %v", out.Value, want)
		}
	}
}
