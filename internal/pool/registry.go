package pool

import "sync"

// registry maps a running worker goroutine's id to its workerState, giving
// Enqueue a way to recognize "am I being called from inside a pool worker"
// without access to goroutine-local storage.
var registry sync.Map // map[uint64]*workerState

func registerWorker(w *workerState) {
	registry.Store(currentGoroutineID(), w)
}

func unregisterWorker() {
	registry.Delete(currentGoroutineID())
}

func currentWorker() *workerState {
	v, ok := registry.Load(currentGoroutineID())
	if !ok {
		return nil
	}
	return v.(*workerState)
}
