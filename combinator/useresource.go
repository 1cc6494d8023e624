package combinator

import (
	"context"
	"errors"
	"sync"

	"github.com/maikeln/wlcoro/observable"
	"github.com/maikeln/wlcoro/taskrt"
)

// ErrNoEmission is reported when a resource Observable completes without
// ever emitting a value.
var ErrNoEmission = errors.New("combinator: resource observable completed without emitting")

// Resource is a value borrowed from an Observable for the lifetime between
// acquiring it and calling Release. Release must be called at least once;
// calls after the first do nothing.
type Resource[T any] struct {
	Value   T
	Release func()
}

// UseResource bridges a (typically side-effecting) Observable into a plain
// resource-acquisition Sender: it subscribes to obs, captures its first
// emission, and keeps the subscription alive (so whatever cleanup the
// Observable performs after being told to stop still runs) until Release is
// called. Release blocks until that cleanup has actually completed, so every
// exit path out of the caller - success, panic recovery higher up, or a
// cancelled context - is guaranteed to run the Observable's teardown exactly
// once before the caller can be considered done with the resource.
func UseResource[T any](obs observable.Observable[T]) taskrt.Sender[Resource[T]] {
	return taskrt.SenderFunc[Resource[T]](func(ctx context.Context) taskrt.Outcome[Resource[T]] {
		subCtx, cancel := context.WithCancel(ctx)

		var (
			once     sync.Once
			acquired = make(chan struct{})
			finished = make(chan struct{})
			value    T
			gotValue bool
			acqErr   error
		)

		receiver := func(emission taskrt.Sender[T]) taskrt.Sender[struct{}] {
			return taskrt.SenderFunc[struct{}](func(rctx context.Context) taskrt.Outcome[struct{}] {
				out := emission.Run(rctx)
				if out.Err != nil {
					acqErr = out.Err
				} else if out.Ok() {
					value = out.Value
					gotValue = true
				}
				close(acquired)
				// Hold this emission "open" until the caller releases the
				// resource or the parent context ends; only then do we let
				// the Observable proceed (and, typically, tear down).
				select {
				case <-finished:
				case <-rctx.Done():
				}
				return taskrt.Outcome[struct{}]{Stopped: true}
			})
		}

		subDone := make(chan taskrt.Outcome[struct{}], 1)
		go func() {
			subDone <- obs.Subscribe(receiver).Run(subCtx)
		}()

		select {
		case <-acquired:
		case subOut := <-subDone:
			// The subscription ended without handing the receiver an
			// emission; its teardown has already run.
			cancel()
			if subOut.Err != nil {
				return taskrt.Outcome[Resource[T]]{Err: subOut.Err}
			}
			if subOut.Stopped {
				return taskrt.Outcome[Resource[T]]{Stopped: true}
			}
			return taskrt.Outcome[Resource[T]]{Err: ErrNoEmission}
		case <-ctx.Done():
			cancel()
			<-subDone
			return taskrt.Outcome[Resource[T]]{Stopped: true}
		}

		if acqErr != nil {
			cancel()
			<-subDone
			return taskrt.Outcome[Resource[T]]{Err: acqErr}
		}
		if !gotValue {
			cancel()
			<-subDone
			return taskrt.Outcome[Resource[T]]{Err: ErrNoEmission}
		}

		release := func() {
			once.Do(func() {
				close(finished)
				cancel()
				<-subDone
			})
		}

		return taskrt.Outcome[Resource[T]]{Value: Resource[T]{Value: value, Release: release}}
	})
}
