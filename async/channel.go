package async

import (
	"context"

	"github.com/maikeln/wlcoro/taskrt"
)

// AsyncChannel is a single-slot rendezvous: Send blocks (cooperatively, via
// its Sender) until a waiting Receive takes the value, and vice versa. This
// is exactly the semantics of an unbuffered Go channel, which is what it is
// built on; the wrapper's job is to express that rendezvous in terms of
// taskrt.Sender so it composes with the rest of the runtime.
type AsyncChannel[T any] struct {
	ch chan T
}

// NewAsyncChannel creates an unbuffered AsyncChannel.
func NewAsyncChannel[T any]() *AsyncChannel[T] {
	return &AsyncChannel[T]{ch: make(chan T)}
}

// Send returns a Sender that completes once value has been handed to a
// matching Receive, or is stopped if ctx ends first.
func (c *AsyncChannel[T]) Send(value T) taskrt.Sender[struct{}] {
	return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
		select {
		case c.ch <- value:
			return taskrt.Outcome[struct{}]{Value: struct{}{}}
		case <-ctx.Done():
			return taskrt.Outcome[struct{}]{Stopped: true}
		}
	})
}

// Receive returns a Sender that completes with the next value sent, or is
// stopped if ctx ends first.
func (c *AsyncChannel[T]) Receive() taskrt.Sender[T] {
	return taskrt.SenderFunc[T](func(ctx context.Context) taskrt.Outcome[T] {
		select {
		case v := <-c.ch:
			return taskrt.Outcome[T]{Value: v}
		case <-ctx.Done():
			var zero T
			return taskrt.Outcome[T]{Value: zero, Stopped: true}
		}
	})
}
