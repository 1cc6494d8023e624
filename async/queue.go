package async

import (
	"context"
	"sync"

	"github.com/maikeln/wlcoro/taskrt"
)

// AsyncQueue is an unbounded FIFO queue with asynchronous consumers: Push
// never blocks, and Pop suspends (cooperatively) until an item is available.
type AsyncQueue[T any] struct {
	mu      sync.Mutex
	items   []T
	waiters []chan T
}

// NewAsyncQueue creates an empty AsyncQueue.
func NewAsyncQueue[T any]() *AsyncQueue[T] {
	return &AsyncQueue[T]{}
}

// Push enqueues value, waking the longest-waiting Pop if one is blocked.
func (q *AsyncQueue[T]) Push(value T) {
	q.mu.Lock()
	if len(q.waiters) > 0 {
		w := q.waiters[0]
		q.waiters = q.waiters[1:]
		q.mu.Unlock()
		w <- value
		return
	}
	q.items = append(q.items, value)
	q.mu.Unlock()
}

// Pop returns a Sender that completes with the next available value, in FIFO
// order, or is stopped if ctx ends before one arrives.
func (q *AsyncQueue[T]) Pop() taskrt.Sender[T] {
	return taskrt.SenderFunc[T](func(ctx context.Context) taskrt.Outcome[T] {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return taskrt.Outcome[T]{Value: v}
		}
		w := make(chan T, 1)
		q.waiters = append(q.waiters, w)
		q.mu.Unlock()

		select {
		case v := <-w:
			return taskrt.Outcome[T]{Value: v}
		case <-ctx.Done():
			if !q.removeWaiter(w) {
				// A Push already claimed this waiter and is about to (or
				// just did) deliver to w concurrently with us giving up;
				// take that value back rather than drop it, so it is not
				// lost to whichever Pop eventually runs next.
				v := <-w
				q.mu.Lock()
				q.items = append([]T{v}, q.items...)
				q.mu.Unlock()
			}
			var zero T
			return taskrt.Outcome[T]{Value: zero, Stopped: true}
		}
	})
}

// removeWaiter deregisters target before any Push has claimed it, returning
// true. It returns false if target is no longer in the waiter list, meaning
// a Push has already claimed it and is (or will shortly be) sending a value
// on it.
func (q *AsyncQueue[T]) removeWaiter(target chan T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiters {
		if w == target {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of items currently buffered (not counting blocked
// consumers). Intended for diagnostics.
func (q *AsyncQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
