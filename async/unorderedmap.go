package async

import (
	"context"
	"errors"
	"sync"

	"github.com/maikeln/wlcoro/taskrt"
)

// ErrMapClosed is returned by WaitFor and Emplace once the map has been
// closed.
var ErrMapClosed = errors.New("async: unordered map is closed")

// AsyncUnorderedMap is a map where readers can asynchronously wait for a key
// that does not exist yet: Emplace both inserts and wakes every goroutine
// currently waiting on that key, and WaitFor checks-then-registers under the
// same lock so no insert between the check and the registration is missed.
type AsyncUnorderedMap[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]V
	waiters  map[K][]chan V
	closed   bool
	closedCh chan struct{}
}

// NewAsyncUnorderedMap creates an empty AsyncUnorderedMap.
func NewAsyncUnorderedMap[K comparable, V any]() *AsyncUnorderedMap[K, V] {
	return &AsyncUnorderedMap[K, V]{
		items:    make(map[K]V),
		waiters:  make(map[K][]chan V),
		closedCh: make(chan struct{}),
	}
}

// Emplace inserts the value for key and wakes every pending WaitFor(key)
// call with it, returning true. If key is already present, Emplace leaves
// the existing value and waiters untouched and returns false.
func (m *AsyncUnorderedMap[K, V]) Emplace(key K, value V) (inserted bool, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false, ErrMapClosed
	}
	if _, exists := m.items[key]; exists {
		m.mu.Unlock()
		return false, nil
	}
	m.items[key] = value
	waiters := m.waiters[key]
	delete(m.waiters, key)
	m.mu.Unlock()

	for _, w := range waiters {
		w <- value
	}
	return true, nil
}

// Get returns the current value for key, if present, without waiting.
func (m *AsyncUnorderedMap[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

// WaitFor returns a Sender that completes with the value for key as soon as
// it exists, immediately if it already does. If ctx ends first, the waiter
// is deregistered and the Sender is stopped; a concurrent Emplace racing the
// deregistration still delivers correctly, because the waiter channel is
// buffered and the registration is removed under the same lock used to
// publish new values.
func (m *AsyncUnorderedMap[K, V]) WaitFor(key K) taskrt.Sender[V] {
	return taskrt.SenderFunc[V](func(ctx context.Context) taskrt.Outcome[V] {
		m.mu.Lock()
		if v, ok := m.items[key]; ok {
			m.mu.Unlock()
			return taskrt.Outcome[V]{Value: v}
		}
		if m.closed {
			m.mu.Unlock()
			var zero V
			return taskrt.Outcome[V]{Value: zero, Err: ErrMapClosed}
		}
		w := make(chan V, 1)
		m.waiters[key] = append(m.waiters[key], w)
		m.mu.Unlock()

		select {
		case v := <-w:
			return taskrt.Outcome[V]{Value: v}
		case <-m.closedCh:
			m.removeWaiter(key, w)
			var zero V
			return taskrt.Outcome[V]{Value: zero, Err: ErrMapClosed}
		case <-ctx.Done():
			m.removeWaiter(key, w)
			var zero V
			return taskrt.Outcome[V]{Value: zero, Stopped: true}
		}
	})
}

func (m *AsyncUnorderedMap[K, V]) removeWaiter(key K, target chan V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.waiters[key]
	for i, w := range list {
		if w == target {
			m.waiters[key] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Close marks the map closed: future Emplace calls fail, and any WaitFor
// still pending for a key that never arrived returns ErrMapClosed.
func (m *AsyncUnorderedMap[K, V]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.waiters = make(map[K][]chan V)
	m.mu.Unlock()
	close(m.closedCh)
}
