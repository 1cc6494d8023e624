// Package async provides the scoped concurrency primitives built on top of
// taskrt.Sender: a structured-concurrency nursery (Scope), a FIFO async
// mutex (Strand), and three cooperating-goroutine data structures
// (AsyncChannel, AsyncQueue, AsyncUnorderedMap).
package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/maikeln/wlcoro/internal/obslog"
	"github.com/maikeln/wlcoro/taskrt"
)

// ErrScopeClosed is returned by Spawn once the owning Scope has begun
// closing.
var ErrScopeClosed = errors.New("async: scope is closed")

// Scope is a structured-concurrency nursery: every Sender spawned into it is
// guaranteed to have completed before Close returns. Its state is a single
// atomic word packing the live task count into the high bits and a closed
// flag into bit 0, mirroring the original AsyncScope's active_tasks<<1|closed
// encoding, so Spawn and the task-completion decrement can race against
// Close without a separate lock.
type Scope struct {
	state  atomic.Uint64 // (activeTasks << 1) | closedBit
	closed chan struct{}
	once   sync.Once
	log    *obslog.Logger
}

const scopeClosedBit = 1

// NewScope creates an open Scope ready to accept spawned work.
func NewScope() *Scope {
	s := &Scope{closed: make(chan struct{})}
	s.state.Store(0)
	s.log = obslog.Default()
	return s
}

// Spawn runs s on a new goroutine, detached from the caller. Any error it
// returns is logged; spawned work that needs to report failure back to its
// parent should do so through a channel, AsyncScope's own stopped signal, or
// a shared error slot, not its return value. Spawn returns ErrScopeClosed
// without starting a goroutine if the scope has begun closing.
func (s *Scope) Spawn(sender taskrt.Sender[struct{}]) error {
	for {
		old := s.state.Load()
		if old&scopeClosedBit != 0 {
			return ErrScopeClosed
		}
		next := old + 2 // increment active task count, leave closed bit clear
		if s.state.CompareAndSwap(old, next) {
			break
		}
	}
	go func() {
		defer s.release()
		out := sender.Run(context.Background())
		if out.Err != nil {
			s.log.Err().Err(out.Err).Log("async scope task failed")
		}
	}()
	return nil
}

// SpawnCtx is Spawn for work that should observe ctx's cancellation, for
// callers that want to bound spawned work to something other than
// context.Background.
func (s *Scope) SpawnCtx(ctx context.Context, sender taskrt.Sender[struct{}]) error {
	for {
		old := s.state.Load()
		if old&scopeClosedBit != 0 {
			return ErrScopeClosed
		}
		next := old + 2
		if s.state.CompareAndSwap(old, next) {
			break
		}
	}
	go func() {
		defer s.release()
		out := sender.Run(ctx)
		if out.Err != nil {
			s.log.Err().Err(out.Err).Log("async scope task failed")
		}
	}()
	return nil
}

// Nest ties sender's completion to the caller's own frame instead of
// running it fire-and-forget: the returned Sender still counts against the
// scope's active-task total (so Close waits for it), but its Outcome is
// delivered straight back to whoever awaits the Sender Nest returns, rather
// than being swallowed and merely logged the way Spawn's is.
func (s *Scope) Nest(sender taskrt.Sender[struct{}]) taskrt.Sender[struct{}] {
	return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
		for {
			old := s.state.Load()
			if old&scopeClosedBit != 0 {
				return taskrt.Outcome[struct{}]{Err: ErrScopeClosed}
			}
			next := old + 2
			if s.state.CompareAndSwap(old, next) {
				break
			}
		}
		defer s.release()
		return sender.Run(ctx)
	})
}

func (s *Scope) release() {
	for {
		old := s.state.Load()
		next := old - 2
		if s.state.CompareAndSwap(old, next) {
			if next>>1 == 0 && next&scopeClosedBit != 0 {
				s.once.Do(func() { close(s.closed) })
			}
			return
		}
	}
}

// Close marks the scope as no longer accepting new work and returns a
// Sender that completes once every already-spawned task has finished.
// Calling Close more than once is safe; every call's Sender resolves at the
// same point.
func (s *Scope) Close() taskrt.Sender[struct{}] {
	for {
		old := s.state.Load()
		next := old | scopeClosedBit
		if old&scopeClosedBit != 0 {
			break
		}
		if s.state.CompareAndSwap(old, next) {
			if next>>1 == 0 {
				s.once.Do(func() { close(s.closed) })
			}
			break
		}
	}
	return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
		select {
		case <-s.closed:
			return taskrt.Outcome[struct{}]{Value: struct{}{}}
		case <-ctx.Done():
			return taskrt.Outcome[struct{}]{Stopped: true}
		}
	})
}

// ActiveTasks returns the number of tasks currently spawned and not yet
// completed. Intended for diagnostics, not for synchronization.
func (s *Scope) ActiveTasks() int {
	return int(s.state.Load() >> 1)
}
