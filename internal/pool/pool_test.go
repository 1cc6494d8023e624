package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStaticThreadPool_EnqueueRunsOnWorker(t *testing.T) {
	p := New(2, DefaultBwosParams)
	defer p.Stop()

	done := make(chan struct{})
	p.Enqueue(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueued task never ran")
	}
}

func TestStaticThreadPool_SelfPostingFastPath(t *testing.T) {
	p := New(1, DefaultBwosParams)
	defer p.Stop()

	var order []int
	var mu sync.Mutex
	done := make(chan struct{})

	p.Enqueue(func() {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		p.Enqueue(func() {
			mu.Lock()
			order = append(order, 2)
			mu.Unlock()
			close(done)
		})
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chained self-posted task never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
}

func TestStaticThreadPool_WorkStealingUnderContention(t *testing.T) {
	p := New(4, DefaultBwosParams)
	defer p.Stop()

	const n = 500
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		p.Enqueue(func() {
			count.Add(1)
			wg.Done()
		})
	}

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("not all tasks completed")
	}
	if got := count.Load(); got != n {
		t.Fatalf("count = %d, want %d", got, n)
	}
}

func TestStaticThreadPool_Schedule(t *testing.T) {
	p := New(2, DefaultBwosParams)
	defer p.Stop()

	out := p.Schedule().Run(context.Background())
	if !out.Ok() {
		t.Fatalf("Schedule outcome = %+v", out)
	}
}

func TestStaticThreadPool_ScheduleBulk(t *testing.T) {
	p := New(4, DefaultBwosParams)
	defer p.Stop()

	const n = 64
	var seen [n]atomic.Bool
	out := p.ScheduleBulk(n, func(i int) {
		seen[i].Store(true)
	}).Run(context.Background())
	if !out.Ok() {
		t.Fatalf("ScheduleBulk outcome = %+v", out)
	}
	for i := range seen {
		if !seen[i].Load() {
			t.Fatalf("index %d never ran", i)
		}
	}
}

func TestStaticThreadPool_ScheduleBulkStoppedByContext(t *testing.T) {
	p := New(1, DefaultBwosParams)
	defer p.Stop()

	block := make(chan struct{})
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan struct{})
	var out struct{ stopped bool }
	go func() {
		o := p.ScheduleBulk(2, func(int) { <-block }).Run(ctx)
		out.stopped = o.Stopped
		close(doneCh)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("ScheduleBulk never returned after ctx cancellation")
	}
	if !out.stopped {
		t.Fatal("expected Stopped=true once ctx was cancelled")
	}
}

func TestStaticThreadPool_StopDrainsWorkers(t *testing.T) {
	p := New(3, DefaultBwosParams)
	p.Stop()
	if p.NumWorkers() != 3 {
		t.Fatalf("NumWorkers() = %d, want 3", p.NumWorkers())
	}
}
