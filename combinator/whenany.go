package combinator

import (
	"context"
	"sync"

	"github.com/maikeln/wlcoro/taskrt"
)

// Indexed tags a WhenAnySlice result with which sender produced it.
type Indexed[T any] struct {
	Index int
	Value T
}

// WhenAnySlice runs every sender concurrently and resolves as soon as the
// first non-stopped completion arrives, cancelling (via context) every
// sender still running. If every sender's race is won by a stopped
// completion, WhenAnySlice itself reports stopped. This mirrors
// "first-to-finish wins, but a cooperative cancellation racing ahead of real
// work doesn't count as a result" from the original completion-signalling
// semantics: a sibling that merely observed the shared stop request first
// shouldn't suppress a sibling that produced a real answer microseconds
// later, so stopped completions are only decisive when nothing else is.
func WhenAnySlice[T any](senders []taskrt.Sender[T]) taskrt.Sender[Indexed[T]] {
	return taskrt.SenderFunc[Indexed[T]](func(ctx context.Context) taskrt.Outcome[Indexed[T]] {
		if len(senders) == 0 {
			return taskrt.Outcome[Indexed[T]]{Stopped: true}
		}
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		type result struct {
			idx int
			out taskrt.Outcome[T]
		}
		results := make(chan result, len(senders))

		var wg sync.WaitGroup
		wg.Add(len(senders))
		for i, s := range senders {
			i, s := i, s
			go func() {
				defer wg.Done()
				results <- result{idx: i, out: s.Run(cctx)}
			}()
		}
		go func() {
			wg.Wait()
			close(results)
		}()

		var winner *result
		var firstStopped *result
		for r := range results {
			if !r.out.Stopped {
				winner = &r
				cancel()
				break
			}
			if firstStopped == nil {
				firstStopped = &r
			}
		}
		// Drain remaining children so their goroutines don't leak past Run.
		for range results {
		}

		if winner != nil {
			if winner.out.Err != nil {
				return taskrt.Outcome[Indexed[T]]{Err: winner.out.Err}
			}
			return taskrt.Outcome[Indexed[T]]{Value: Indexed[T]{Index: winner.idx, Value: winner.out.Value}}
		}
		return taskrt.Outcome[Indexed[T]]{Stopped: true}
	})
}

// Either is the result of WhenAny2, the two-argument, heterogeneous-type
// form of WhenAnySlice: both senders must share a result type for the slice
// form, whereas WhenAny2 lets Second differ from First.
type Either[A, B any] struct {
	// IsFirst reports whether First (true) or Second (false) is populated.
	IsFirst bool
	First   A
	Second  B
}

func WhenAny2[A, B any](a taskrt.Sender[A], b taskrt.Sender[B]) taskrt.Sender[Either[A, B]] {
	return taskrt.SenderFunc[Either[A, B]](func(ctx context.Context) taskrt.Outcome[Either[A, B]] {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		type result struct {
			first bool
			oa    taskrt.Outcome[A]
			ob    taskrt.Outcome[B]
		}
		results := make(chan result, 2)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			results <- result{first: true, oa: a.Run(cctx)}
		}()
		go func() {
			defer wg.Done()
			results <- result{first: false, ob: b.Run(cctx)}
		}()
		go func() {
			wg.Wait()
			close(results)
		}()

		var winner *result
		for r := range results {
			stopped := r.oa.Stopped || r.ob.Stopped
			if !stopped {
				winner = &r
				cancel()
				break
			}
		}
		for range results {
		}

		if winner == nil {
			return taskrt.Outcome[Either[A, B]]{Stopped: true}
		}
		if winner.first {
			if winner.oa.Err != nil {
				return taskrt.Outcome[Either[A, B]]{Err: winner.oa.Err}
			}
			return taskrt.Outcome[Either[A, B]]{Value: Either[A, B]{IsFirst: true, First: winner.oa.Value}}
		}
		if winner.ob.Err != nil {
			return taskrt.Outcome[Either[A, B]]{Err: winner.ob.Err}
		}
		return taskrt.Outcome[Either[A, B]]{Value: Either[A, B]{IsFirst: false, Second: winner.ob.Value}}
	})
}
