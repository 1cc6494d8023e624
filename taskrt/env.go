// Package taskrt is the asynchronous execution core of wlcoro: it defines
// Sender/Task, the Environment a task runs under, and the single-result
// three-channel completion model (value, error, or stopped) that every other
// package in this module builds on.
//
// There is no hand-rolled coroutine state machine here. Go's goroutines are
// themselves stackful, suspendable execution contexts, so a Sender is simply
// a function that blocks the calling goroutine until it has a result;
// "awaiting" a child Sender is an ordinary blocking call. Cancellation and
// environment propagation ride on context.Context, exactly as the rest of
// the Go ecosystem this module borrows from (eventloop.Run, workers.Start)
// already does.
package taskrt

import "context"

// Scheduler is the scheduling capability an Environment may carry (see
// WithScheduler): the ability to schedule continuations. IoScheduler and
// StaticThreadPool both implement it.
type Scheduler interface {
	// Schedule returns a Sender that completes, on the scheduler, once the
	// caller's turn arrives.
	Schedule() Sender[struct{}]
}

type schedulerKey struct{}

// WithScheduler returns a context carrying sched as the ambient scheduler,
// retrievable with SchedulerFromContext.
func WithScheduler(ctx context.Context, sched Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, sched)
}

// SchedulerFromContext returns the ambient scheduler, if one was attached
// with WithScheduler.
func SchedulerFromContext(ctx context.Context) (Scheduler, bool) {
	sched, ok := ctx.Value(schedulerKey{}).(Scheduler)
	return sched, ok
}

// Query identifies a typed, defaulted slot in the environment. Construct one
// with NewQuery and keep the result around as a package-level var; its
// identity, not its name, is what read_env/write_env key on.
type Query[T any] struct {
	def T
}

// NewQuery creates a Query with the given fallback value, returned by
// ReadEnv when no ancestor has written to it.
func NewQuery[T any](def T) *Query[T] {
	return &Query[T]{def: def}
}

// WriteEnv returns a context with value bound under q, shadowing any
// ancestor binding for the remainder of the subtree rooted at the returned
// context.
func (q *Query[T]) WriteEnv(ctx context.Context, value T) context.Context {
	return context.WithValue(ctx, q, value)
}

// ReadEnv returns the value bound to q in ctx, or q's default if unbound.
func (q *Query[T]) ReadEnv(ctx context.Context) T {
	if v, ok := ctx.Value(q).(T); ok {
		return v
	}
	return q.def
}
