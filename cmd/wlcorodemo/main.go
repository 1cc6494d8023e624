// Command wlcorodemo exercises the asynchronous execution core end to end:
// an IoContext reactor alongside a StaticThreadPool, an AsyncScope nursery
// supervising spawned work, and an AsyncChannel carrying results back to a
// sync_wait root. It has no UI of its own; it is the standalone harness for
// the runtime the rest of a compositor toolkit would embed.
//
// Run with: go run ./cmd/wlcorodemo
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/maikeln/wlcoro/async"
	"github.com/maikeln/wlcoro/combinator"
	"github.com/maikeln/wlcoro/internal/ioscheduler"
	"github.com/maikeln/wlcoro/internal/pool"
	"github.com/maikeln/wlcoro/taskrt"
)

func main() {
	reactor, err := ioscheduler.New()
	if err != nil {
		fmt.Println("failed to start reactor:", err)
		return
	}
	runCtx, stopReactor := context.WithCancel(context.Background())
	defer stopReactor()
	go reactor.Run(runCtx)

	workers := pool.New(4, pool.DefaultBwosParams)
	defer workers.Stop()

	fmt.Println("=== schedule_after ===")
	scheduleAfterExample(reactor)

	fmt.Println("\n=== when_all across the reactor and the pool ===")
	whenAllExample(reactor, workers)

	fmt.Println("\n=== AsyncScope + AsyncChannel pipeline ===")
	scopeChannelExample(workers)

	fmt.Println("\n=== ScheduleBulk fan-out ===")
	bulkExample(workers)
}

func scheduleAfterExample(reactor *ioscheduler.IoContext) {
	start := time.Now()
	out := taskrt.SyncWait(context.Background(), reactor.Scheduler().ScheduleAfter(50*time.Millisecond))
	fmt.Printf("woke after %v, ok=%v\n", time.Since(start).Round(time.Millisecond), out.Ok())
}

func whenAllExample(reactor *ioscheduler.IoContext, workers *pool.StaticThreadPool) {
	onReactor := taskrt.Map(reactor.Scheduler().Schedule(), func(struct{}) int { return 1 })
	onPool := taskrt.Map(workers.Schedule(), func(struct{}) int { return 2 })

	out := taskrt.SyncWait(context.Background(), combinator.WhenAll2(onReactor, onPool))
	if out.Ok() {
		fmt.Printf("reactor result=%d pool result=%d\n", out.Value.First, out.Value.Second)
	}
}

func scopeChannelExample(workers *pool.StaticThreadPool) {
	scope := async.NewScope()
	ch := async.NewAsyncChannel[int]()

	for i := 1; i <= 3; i++ {
		i := i
		_ = scope.Spawn(taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
			workers.Schedule().Run(ctx) // hop onto the pool before producing
			return ch.Send(i * 10).Run(ctx)
		}))
	}

	var received []int
	for i := 0; i < 3; i++ {
		out := taskrt.SyncWait(context.Background(), ch.Receive())
		if out.Ok() {
			received = append(received, out.Value)
		}
	}
	fmt.Println("received:", received)

	taskrt.SyncWait(context.Background(), scope.Close())
}

func bulkExample(workers *pool.StaticThreadPool) {
	const n = 8
	results := make([]int, n)
	out := taskrt.SyncWait(context.Background(), workers.ScheduleBulk(n, func(i int) {
		results[i] = i * i
	}))
	fmt.Println("bulk ok:", out.Ok(), "results:", results)
}
