// Package observable implements the cold, multi-shot, back-pressured
// producer abstraction that sits above taskrt.Sender: an Observable emits
// zero or more values one at a time, each wrapped in its own lazy Sender, and
// never emits the next value until the Receiver's Sender for the current one
// has completed. This is the asynchronous analogue of an iterator: nothing
// runs until Subscribe is called, and nothing runs ahead of the consumer.
package observable

import (
	"context"

	"github.com/maikeln/wlcoro/taskrt"
)

// Receiver consumes one emission at a time. It is handed a lazy Sender
// producing the emitted value; invoking that Sender (by returning a
// composed Sender that runs it) is what actually runs the producer's side
// effects for this emission. Receiver returns a Sender that completes once
// the receiver is ready for (or has declined) the next emission.
type Receiver[T any] func(emission taskrt.Sender[T]) taskrt.Sender[struct{}]

// Observable is a cold producer of a sequence of T. Subscribing is itself
// asynchronous: Subscribe returns a Sender that completes once the sequence
// has ended (normally, by error, or because the receiver or an ancestor
// requested a stop).
type Observable[T any] interface {
	Subscribe(receiver Receiver[T]) taskrt.Sender[struct{}]
}

// Func adapts a plain function to the Observable interface.
type Func[T any] func(receiver Receiver[T]) taskrt.Sender[struct{}]

// Subscribe implements Observable.
func (f Func[T]) Subscribe(receiver Receiver[T]) taskrt.Sender[struct{}] {
	return f(receiver)
}

// Empty returns an Observable that emits nothing and completes immediately.
func Empty[T any]() Observable[T] {
	return Func[T](func(Receiver[T]) taskrt.Sender[struct{}] {
		return taskrt.Just(struct{}{})
	})
}

// Single returns an Observable that emits exactly one value, produced by
// running src, then completes. If src errors or is stopped, that outcome is
// reported instead of an emission.
func Single[T any](src taskrt.Sender[T]) Observable[T] {
	return Func[T](func(receiver Receiver[T]) taskrt.Sender[struct{}] {
		return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
			out := src.Run(ctx)
			if !out.Ok() {
				return taskrt.Outcome[struct{}]{Err: out.Err, Stopped: out.Stopped}
			}
			emission := taskrt.Just(out.Value)
			return receiver(emission).Run(ctx)
		})
	})
}

// FromSlice emits each element of values in order, awaiting the receiver's
// ack Sender between each one.
func FromSlice[T any](values []T) Observable[T] {
	return Func[T](func(receiver Receiver[T]) taskrt.Sender[struct{}] {
		return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
			for _, v := range values {
				if ctx.Err() != nil {
					return taskrt.Outcome[struct{}]{Stopped: true}
				}
				ack := receiver(taskrt.Just(v)).Run(ctx)
				if !ack.Ok() {
					return taskrt.Outcome[struct{}]{Err: ack.Err, Stopped: ack.Stopped}
				}
			}
			return taskrt.Outcome[struct{}]{Value: struct{}{}}
		})
	})
}

// Then maps each emission of src through fn before it reaches the
// downstream receiver.
func Then[T, U any](src Observable[T], fn func(T) U) Observable[U] {
	return Func[U](func(receiver Receiver[U]) taskrt.Sender[struct{}] {
		upstream := func(emission taskrt.Sender[T]) taskrt.Sender[struct{}] {
			mapped := taskrt.Map(emission, fn)
			return receiver(mapped)
		}
		return src.Subscribe(upstream)
	})
}

// First returns a Sender that subscribes to src and resolves with its first
// emission, then requests src stop producing further values. If src
// completes without ever emitting, First reports stopped.
func First[T any](src Observable[T]) taskrt.Sender[T] {
	return taskrt.SenderFunc[T](func(ctx context.Context) taskrt.Outcome[T] {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var (
			got   bool
			value T
			ferr  error
		)
		receiver := func(emission taskrt.Sender[T]) taskrt.Sender[struct{}] {
			return taskrt.SenderFunc[struct{}](func(rctx context.Context) taskrt.Outcome[struct{}] {
				out := emission.Run(rctx)
				if out.Err != nil {
					ferr = out.Err
				} else if out.Ok() {
					got = true
					value = out.Value
				}
				cancel()
				return taskrt.Outcome[struct{}]{Stopped: true}
			})
		}

		subOut := src.Subscribe(receiver).Run(cctx)
		if ferr != nil {
			return taskrt.Outcome[T]{Err: ferr}
		}
		if got {
			return taskrt.Outcome[T]{Value: value}
		}
		if subOut.Err != nil {
			return taskrt.Outcome[T]{Err: subOut.Err}
		}
		return taskrt.Outcome[T]{Stopped: true}
	})
}

// Pair is an element of the sequence produced by Zip2.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Zip2 pairs up emissions of a and b index for index, completing as soon as
// either source is exhausted, errors, or is stopped.
func Zip2[A, B any](a Observable[A], b Observable[B]) Observable[Pair[A, B]] {
	return Func[Pair[A, B]](func(receiver Receiver[Pair[A, B]]) taskrt.Sender[struct{}] {
		return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
			type slot struct {
				ready bool
				a     A
				b     B
			}
			pending := make(chan slot, 1)
			pending <- slot{}

			emit := func(s slot) taskrt.Outcome[struct{}] {
				return receiver(taskrt.Just(Pair[A, B]{First: s.a, Second: s.b})).Run(ctx)
			}

			var finalOut taskrt.Outcome[struct{}]
			recvA := func(emission taskrt.Sender[A]) taskrt.Sender[struct{}] {
				return taskrt.SenderFunc[struct{}](func(rctx context.Context) taskrt.Outcome[struct{}] {
					out := emission.Run(rctx)
					if !out.Ok() {
						return taskrt.Outcome[struct{}]{Err: out.Err, Stopped: out.Stopped}
					}
					s := <-pending
					s.a = out.Value
					if s.ready {
						ackOut := emit(slot{a: s.a, b: s.b})
						pending <- slot{}
						return ackOut
					}
					s.ready = true
					pending <- s
					return taskrt.Outcome[struct{}]{Value: struct{}{}}
				})
			}
			recvB := func(emission taskrt.Sender[B]) taskrt.Sender[struct{}] {
				return taskrt.SenderFunc[struct{}](func(rctx context.Context) taskrt.Outcome[struct{}] {
					out := emission.Run(rctx)
					if !out.Ok() {
						return taskrt.Outcome[struct{}]{Err: out.Err, Stopped: out.Stopped}
					}
					s := <-pending
					s.b = out.Value
					if s.ready {
						ackOut := emit(slot{a: s.a, b: s.b})
						pending <- slot{}
						return ackOut
					}
					s.ready = true
					pending <- s
					return taskrt.Outcome[struct{}]{Value: struct{}{}}
				})
			}

			doneA := make(chan taskrt.Outcome[struct{}], 1)
			doneB := make(chan taskrt.Outcome[struct{}], 1)
			go func() { doneA <- a.Subscribe(recvA).Run(ctx) }()
			go func() { doneB <- b.Subscribe(recvB).Run(ctx) }()
			outA := <-doneA
			outB := <-doneB

			if outA.Err != nil {
				return taskrt.Outcome[struct{}]{Err: outA.Err}
			}
			if outB.Err != nil {
				return taskrt.Outcome[struct{}]{Err: outB.Err}
			}
			if outA.Stopped || outB.Stopped {
				return taskrt.Outcome[struct{}]{Stopped: true}
			}
			return finalOut
		})
	})
}
