// Package pool implements a fixed-size work-stealing goroutine pool backed
// by the BWoS deque in internal/bwos. It is the scheduling backend used
// wherever the runtime needs bounded, cache-friendly concurrency instead of
// an unbounded goroutine-per-task fan-out.
//
// A submitted unit of work is an ordinary func(). Work queued by a function
// currently running on a worker is pushed to that worker's own deque (the
// self-posting fast path); work submitted from outside the pool goes to a
// shared overflow slice guarded by a mutex. Idle workers try, in order: pop
// their own deque, pull a proportional share of the overflow, steal from a
// shuffled list of sibling deques, then park until woken.
package pool

import (
	"context"
	"math/rand"
	"sync"

	"github.com/maikeln/wlcoro/internal/bwos"
	"github.com/maikeln/wlcoro/internal/obslog"
	"github.com/maikeln/wlcoro/taskrt"
)

// BwosParams sizes each worker's private deque.
type BwosParams struct {
	NumBlocks int
	BlockSize int
}

// DefaultBwosParams mirrors the block sizing used throughout the reference
// worker pool: a handful of medium blocks, enough to absorb a burst of
// self-posted continuations without round-tripping through the shared
// overflow slice.
var DefaultBwosParams = BwosParams{NumBlocks: 4, BlockSize: 256}

type workerState struct {
	id      int
	queue   *bwos.Deque[func()]
	victims []*bwos.Deque[func()]
	pool    *StaticThreadPool
	rng     *rand.Rand
}

func (w *workerState) tryPopRemote() bool {
	p := w.pool
	n := len(p.tasks)
	if n == 0 {
		return false
	}
	n /= len(p.workers)
	if n < 1 {
		n = 1
	}
	if max := w.queue.BlockSize() * w.queue.NumBlocks(); n > max {
		n = max
	}
	start := len(p.tasks) - n
	batch := append([]func(){}, p.tasks[start:]...)
	leftover := w.queue.PushBackBulk(batch)
	p.tasks = append(p.tasks[:start], leftover...)
	return true
}

func (w *workerState) tryStealTask() func() {
	w.rng.Shuffle(len(w.victims), func(i, j int) {
		w.victims[i], w.victims[j] = w.victims[j], w.victims[i]
	})
	for _, victim := range w.victims {
		if task, ok := victim.StealFront(); ok {
			return task
		}
	}
	return nil
}

func (w *workerState) run() {
	registerWorker(w)
	defer unregisterWorker()

	p := w.pool
	for {
		if task, ok := w.queue.PopBack(); ok {
			p.safeExecute(task)
			continue
		}

		p.mu.Lock()
		if w.tryPopRemote() {
			p.mu.Unlock()
			continue
		}
		p.thiefs++
		p.mu.Unlock()

		task := w.tryStealTask()
		if task != nil {
			p.mu.Lock()
			p.thiefs--
			p.mu.Unlock()
			p.safeExecute(task)
			continue
		}

		p.mu.Lock()
		p.thiefs--
		if w.tryPopRemote() {
			p.mu.Unlock()
			continue
		}
		p.sleeping++
		if p.stopping {
			p.mu.Unlock()
			return
		}
		if p.thiefs == 0 && p.sleeping < len(p.workers) {
			p.cond.Signal()
		}
		p.cond.Wait()
		p.sleeping--
		p.mu.Unlock()
	}
}

// StaticThreadPool is a fixed-size pool of worker goroutines, each backed by
// its own BWoS deque, that steal from one another when idle.
type StaticThreadPool struct {
	workers []*workerState

	mu       sync.Mutex
	cond     *sync.Cond
	tasks    []func()
	thiefs   int
	sleeping int
	stopping bool

	wg  sync.WaitGroup
	log *obslog.Logger
}

// New starts numThreads worker goroutines, each owning a BWoS deque sized by
// params, and wires every worker's victim list to every sibling's deque.
func New(numThreads int, params BwosParams) *StaticThreadPool {
	if numThreads < 1 {
		numThreads = 1
	}
	p := &StaticThreadPool{
		log: obslog.Default(),
	}
	p.cond = sync.NewCond(&p.mu)
	p.workers = make([]*workerState, numThreads)
	for i := range p.workers {
		p.workers[i] = &workerState{
			id:    i,
			queue: bwos.New[func()](params.NumBlocks, params.BlockSize),
			pool:  p,
			rng:   rand.New(rand.NewSource(int64(i) + 1)),
		}
	}
	queues := make([]*bwos.Deque[func()], numThreads)
	for i, w := range p.workers {
		queues[i] = w.queue
	}
	for _, w := range p.workers {
		for _, q := range queues {
			if q != w.queue {
				w.victims = append(w.victims, q)
			}
		}
	}
	p.wg.Add(numThreads)
	for _, w := range p.workers {
		go func(w *workerState) {
			defer p.wg.Done()
			w.run()
		}(w)
	}
	return p
}

// safeExecute runs fn with panic recovery so a single misbehaving task
// cannot take down a worker goroutine.
func (p *StaticThreadPool) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Err().Any("panic", r).Log("pool: task panicked")
		}
	}()
	fn()
}

// Stop requests every worker to exit once it next finds no work, and blocks
// until all worker goroutines have returned.
func (p *StaticThreadPool) Stop() {
	p.mu.Lock()
	p.stopping = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

// Enqueue submits fn for execution. If called from within a task currently
// running on one of this pool's workers, fn is pushed onto that worker's own
// deque; otherwise it is appended to the shared overflow slice and a sleeping
// worker, if any, is woken.
func (p *StaticThreadPool) Enqueue(fn func()) {
	if w := currentWorker(); w != nil && w.pool == p {
		if w.queue.PushBack(fn) {
			return
		}
	}
	p.mu.Lock()
	p.tasks = append(p.tasks, fn)
	p.mu.Unlock()
	p.cond.Signal()
}

// Schedule implements taskrt.Scheduler: the returned Sender completes once a
// worker has run it to completion.
func (p *StaticThreadPool) Schedule() taskrt.Sender[struct{}] {
	return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
		done := make(chan struct{})
		p.Enqueue(func() { close(done) })
		select {
		case <-done:
			return taskrt.Outcome[struct{}]{Value: struct{}{}}
		case <-ctx.Done():
			return taskrt.Outcome[struct{}]{Stopped: true}
		}
	})
}

// NumWorkers reports how many worker goroutines this pool started.
func (p *StaticThreadPool) NumWorkers() int {
	return len(p.workers)
}

// ScheduleBulk submits count independent invocations of fn, one per index in
// [0,count), to the pool and returns a Sender that completes once every
// invocation has run. It mirrors schedule_bulk: work fans out across
// whichever workers happen to steal it rather than being pinned to a single
// worker, and a caller that abandons the wait (ctx cancelled) is handed back
// a stopped outcome without blocking the in-flight invocations.
func (p *StaticThreadPool) ScheduleBulk(count int, fn func(index int)) taskrt.Sender[struct{}] {
	return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
		if count <= 0 {
			return taskrt.Outcome[struct{}]{Value: struct{}{}}
		}
		var wg sync.WaitGroup
		wg.Add(count)
		for i := 0; i < count; i++ {
			i := i
			p.Enqueue(func() {
				defer wg.Done()
				fn(i)
			})
		}
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return taskrt.Outcome[struct{}]{Value: struct{}{}}
		case <-ctx.Done():
			return taskrt.Outcome[struct{}]{Stopped: true}
		}
	})
}
