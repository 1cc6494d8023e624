// Package combinator provides the structured fan-in/fan-out operators that
// compose taskrt.Sender values: when_all, when_any, and the resource-scoped
// bridge between an observable.Observable and a single taskrt.Sender.
//
// The fan-in operators mirror StaticThreadPool's schedule_bulk join
// semantics: each child runs on its own goroutine, a shared mutex-guarded
// flag records whether any child has already failed so only the first
// error cancels the rest, and a sync.WaitGroup resolves the operator once
// every child has reported in.
package combinator

import (
	"context"
	"sync"

	"github.com/maikeln/wlcoro/taskrt"
)

// Pair is the result of a two-way WhenAll.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is the result of a three-way WhenAll.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func runChild[T any](ctx context.Context, cancel context.CancelFunc, s taskrt.Sender[T], out *taskrt.Outcome[T], wg *sync.WaitGroup, failed *bool, mu *sync.Mutex) {
	defer wg.Done()
	o := s.Run(ctx)
	*out = o
	if !o.Ok() {
		mu.Lock()
		already := *failed
		*failed = true
		mu.Unlock()
		if !already {
			cancel()
		}
	}
}

// WhenAll2 runs a and b concurrently. If either errors, the other is
// requested to stop (via context cancellation) and WhenAll2 reports that
// error; if both error, a's error is reported whichever failed first. If
// neither errors but either is stopped, the whole operation is reported
// stopped. Only if both succeed is a Pair returned.
func WhenAll2[A, B any](a taskrt.Sender[A], b taskrt.Sender[B]) taskrt.Sender[Pair[A, B]] {
	return taskrt.SenderFunc[Pair[A, B]](func(ctx context.Context) taskrt.Outcome[Pair[A, B]] {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var wg sync.WaitGroup
		var mu sync.Mutex
		var failed bool
		var oa taskrt.Outcome[A]
		var ob taskrt.Outcome[B]

		wg.Add(2)
		go runChild(cctx, cancel, a, &oa, &wg, &failed, &mu)
		go runChild(cctx, cancel, b, &ob, &wg, &failed, &mu)
		wg.Wait()

		return joinOutcomes2(oa, ob)
	})
}

func joinOutcomes2[A, B any](oa taskrt.Outcome[A], ob taskrt.Outcome[B]) taskrt.Outcome[Pair[A, B]] {
	if oa.Err != nil {
		return taskrt.Outcome[Pair[A, B]]{Err: oa.Err}
	}
	if ob.Err != nil {
		return taskrt.Outcome[Pair[A, B]]{Err: ob.Err}
	}
	if oa.Stopped || ob.Stopped {
		return taskrt.Outcome[Pair[A, B]]{Stopped: true}
	}
	return taskrt.Outcome[Pair[A, B]]{Value: Pair[A, B]{First: oa.Value, Second: ob.Value}}
}

// WhenAll3 is WhenAll2 generalized to three children.
func WhenAll3[A, B, C any](a taskrt.Sender[A], b taskrt.Sender[B], c taskrt.Sender[C]) taskrt.Sender[Triple[A, B, C]] {
	return taskrt.SenderFunc[Triple[A, B, C]](func(ctx context.Context) taskrt.Outcome[Triple[A, B, C]] {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var wg sync.WaitGroup
		var mu sync.Mutex
		var failed bool
		var oa taskrt.Outcome[A]
		var ob taskrt.Outcome[B]
		var oc taskrt.Outcome[C]

		wg.Add(3)
		go runChild(cctx, cancel, a, &oa, &wg, &failed, &mu)
		go runChild(cctx, cancel, b, &ob, &wg, &failed, &mu)
		go runChild(cctx, cancel, c, &oc, &wg, &failed, &mu)
		wg.Wait()

		if oa.Err != nil {
			return taskrt.Outcome[Triple[A, B, C]]{Err: oa.Err}
		}
		if ob.Err != nil {
			return taskrt.Outcome[Triple[A, B, C]]{Err: ob.Err}
		}
		if oc.Err != nil {
			return taskrt.Outcome[Triple[A, B, C]]{Err: oc.Err}
		}
		if oa.Stopped || ob.Stopped || oc.Stopped {
			return taskrt.Outcome[Triple[A, B, C]]{Stopped: true}
		}
		return taskrt.Outcome[Triple[A, B, C]]{Value: Triple[A, B, C]{First: oa.Value, Second: ob.Value, Third: oc.Value}}
	})
}

// WhenAllSlice runs every sender in senders concurrently and, if all
// succeed, returns their values in the same order. If any errors, the error
// of the lowest-index failed sender is reported. It is the homogeneous
// n-ary form of WhenAll2/WhenAll3, for the common case of fanning out a
// dynamically sized batch of same-typed work (e.g. StaticThreadPool bulk
// scheduling).
func WhenAllSlice[T any](senders []taskrt.Sender[T]) taskrt.Sender[[]T] {
	return taskrt.SenderFunc[[]T](func(ctx context.Context) taskrt.Outcome[[]T] {
		if len(senders) == 0 {
			return taskrt.Outcome[[]T]{Value: nil}
		}
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		outcomes := make([]taskrt.Outcome[T], len(senders))
		var wg sync.WaitGroup
		var mu sync.Mutex
		var failed bool
		wg.Add(len(senders))
		for i, s := range senders {
			i, s := i, s
			go func() {
				defer wg.Done()
				o := s.Run(cctx)
				outcomes[i] = o
				if !o.Ok() {
					mu.Lock()
					already := failed
					failed = true
					mu.Unlock()
					if !already {
						cancel()
					}
				}
			}()
		}
		wg.Wait()

		anyStopped := false
		for _, o := range outcomes {
			if o.Err != nil {
				return taskrt.Outcome[[]T]{Err: o.Err}
			}
			if o.Stopped {
				anyStopped = true
			}
		}
		if anyStopped {
			return taskrt.Outcome[[]T]{Stopped: true}
		}
		values := make([]T, len(outcomes))
		for i, o := range outcomes {
			values[i] = o.Value
		}
		return taskrt.Outcome[[]T]{Value: values}
	})
}
