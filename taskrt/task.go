package taskrt

import (
	"context"
	"errors"
)

// ErrStopped is what Outcome.AsError returns when a Task completed via the
// stopped channel instead of a value or an error; everywhere else (SyncWait
// included) that completion is reported as Outcome.Stopped, not as an error.
// Cooperative cancellation is not failure: callers that want to treat it as
// a plain error use AsError.
var ErrStopped = errors.New("taskrt: stopped")

// Outcome is the result of running a Sender to completion: exactly one of
// Value, Err or Stopped is populated, mirroring the value/error/stopped
// three-channel completion model. A Sender never panics an error into its
// caller; everything it can produce is represented in this struct.
type Outcome[T any] struct {
	Value   T
	Err     error
	Stopped bool
}

// Ok reports whether the outcome carries a usable Value.
func (o Outcome[T]) Ok() bool { return o.Err == nil && !o.Stopped }

// AsError collapses the outcome to a single error value: nil on success,
// ErrStopped if stopped, or Err otherwise. Useful at boundaries (HTTP
// handlers, CLI commands) that only understand "did it fail".
func (o Outcome[T]) AsError() error {
	if o.Stopped {
		return ErrStopped
	}
	return o.Err
}

// Sender is a cold, reusable description of an asynchronous computation.
// Run starts it on the calling goroutine and blocks until the single
// terminal result (value, error or stopped) is available. A Sender that
// spawns helper goroutines internally must ensure every one of them has
// exited, or been detached into a scope, before Run returns.
type Sender[T any] interface {
	Run(ctx context.Context) Outcome[T]
}

// Task is an alias for Sender, used at call sites that emphasize the
// "one-shot unit of work" reading over the "composable producer" reading;
// the two names denote the same type.
type Task[T any] = Sender[T]

// SenderFunc adapts a plain function to the Sender interface.
type SenderFunc[T any] func(ctx context.Context) Outcome[T]

// Run implements Sender.
func (f SenderFunc[T]) Run(ctx context.Context) Outcome[T] { return f(ctx) }

// Just returns a Sender that completes immediately with value.
func Just[T any](value T) Sender[T] {
	return SenderFunc[T](func(context.Context) Outcome[T] {
		return Outcome[T]{Value: value}
	})
}

// Fail returns a Sender that completes immediately with err.
func Fail[T any](err error) Sender[T] {
	return SenderFunc[T](func(context.Context) Outcome[T] {
		return Outcome[T]{Err: err}
	})
}

// Stopped returns a Sender that completes immediately via the stopped
// channel.
func Stopped[T any]() Sender[T] {
	return SenderFunc[T](func(context.Context) Outcome[T] {
		return Outcome[T]{Stopped: true}
	})
}

// FromFunc lifts a plain, possibly blocking, function that respects ctx
// cancellation into a Sender. If ctx is already done when fn returns a nil
// error, the result is reported as stopped rather than a value, matching the
// convention that an observed cancellation always takes priority.
func FromFunc[T any](fn func(ctx context.Context) (T, error)) Sender[T] {
	return SenderFunc[T](func(ctx context.Context) Outcome[T] {
		v, err := fn(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return Outcome[T]{Stopped: true}
			}
			return Outcome[T]{Err: err}
		}
		if ctx.Err() != nil {
			return Outcome[T]{Stopped: true}
		}
		return Outcome[T]{Value: v}
	})
}

// Then runs src, and on success passes its value through fn to produce the
// next Sender to run. Errors and stopped outcomes from src propagate without
// invoking fn.
func Then[T, U any](src Sender[T], fn func(T) Sender[U]) Sender[U] {
	return SenderFunc[U](func(ctx context.Context) Outcome[U] {
		out := src.Run(ctx)
		if !out.Ok() {
			return Outcome[U]{Err: out.Err, Stopped: out.Stopped}
		}
		return fn(out.Value).Run(ctx)
	})
}

// Map runs src and transforms a successful value with fn.
func Map[T, U any](src Sender[T], fn func(T) U) Sender[U] {
	return Then(src, func(v T) Sender[U] { return Just(fn(v)) })
}

// Optional is the result of StoppedAsOptional, which converts a stopped
// completion of src into a successful Optional value (Valid false) instead of propagating the cooperative-cancellation signal,
// so a parent that wants to treat "my child was stopped" as plain data
// (rather than as its own stop condition) can.
type Optional[T any] struct {
	Value T
	Valid bool
}

func StoppedAsOptional[T any](src Sender[T]) Sender[Optional[T]] {
	return SenderFunc[Optional[T]](func(ctx context.Context) Outcome[Optional[T]] {
		out := src.Run(ctx)
		if out.Stopped {
			return Outcome[Optional[T]]{Value: Optional[T]{}}
		}
		if out.Err != nil {
			return Outcome[Optional[T]]{Err: out.Err}
		}
		return Outcome[Optional[T]]{Value: Optional[T]{Value: out.Value, Valid: true}}
	})
}

// ReadEnv returns a Sender that completes with the current value of q in
// ctx.
func ReadEnv[T any](q *Query[T]) Sender[T] {
	return SenderFunc[T](func(ctx context.Context) Outcome[T] {
		return Outcome[T]{Value: q.ReadEnv(ctx)}
	})
}

// WriteEnv runs child with q bound to value for the duration of that run
// only; bindings made by WriteEnv never leak back out to the caller's
// context.
func WriteEnv[T, R any](q *Query[T], value T, child Sender[R]) Sender[R] {
	return SenderFunc[R](func(ctx context.Context) Outcome[R] {
		return child.Run(q.WriteEnv(ctx, value))
	})
}

// SyncWait blocks the calling goroutine until s completes and returns its
// outcome. It is the bridge between synchronous code (main, tests, a cmd
// entrypoint) and the asynchronous graph.
func SyncWait[T any](ctx context.Context, s Sender[T]) Outcome[T] {
	return s.Run(ctx)
}
