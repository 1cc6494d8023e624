package ioscheduler

import (
	"context"
	"time"

	"github.com/maikeln/wlcoro/taskrt"
)

// IoScheduler is the taskrt.Scheduler backed by an IoContext's reactor: its
// four factories mirror IoScheduler::schedule/schedule_after/schedule_at/poll
// from the reference implementation.
type IoScheduler struct {
	ctx *IoContext
}

var _ taskrt.Scheduler = (*IoScheduler)(nil)

// Schedule returns a Sender that completes on the reactor's next loop
// iteration, with no delay.
func (s *IoScheduler) Schedule() taskrt.Sender[struct{}] {
	return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
		done := make(chan struct{})
		s.ctx.enqueue(command{kind: cmdImmediate, immediateDone: done})
		select {
		case <-done:
			return taskrt.Outcome[struct{}]{Value: struct{}{}}
		case <-ctx.Done():
			// The immediate task will still fire and close done; nothing to
			// cancel, so just stop waiting on it here.
			return taskrt.Outcome[struct{}]{Stopped: true}
		}
	})
}

// ScheduleAfter returns a Sender that completes delay after it is run.
func (s *IoScheduler) ScheduleAfter(delay time.Duration) taskrt.Sender[struct{}] {
	return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
		return s.ScheduleAt(time.Now().Add(delay)).Run(ctx)
	})
}

// ScheduleAt returns a Sender that completes once the reactor's clock
// reaches t, or sooner is stopped if ctx ends first.
func (s *IoScheduler) ScheduleAt(t time.Time) taskrt.Sender[struct{}] {
	return taskrt.SenderFunc[struct{}](func(ctx context.Context) taskrt.Outcome[struct{}] {
		op := &timedOp{scheduledTime: t, done: make(chan struct{})}
		s.ctx.enqueue(command{kind: cmdTimed, timed: op})

		stop := context.AfterFunc(ctx, func() {
			s.ctx.enqueue(command{kind: cmdStopTimed, timed: op})
		})
		<-op.done
		stop()

		if op.cancelled.Load() {
			return taskrt.Outcome[struct{}]{Stopped: true}
		}
		return taskrt.Outcome[struct{}]{Value: struct{}{}}
	})
}

// Poll returns a Sender that completes with the epoll event mask once fd
// becomes ready for the requested events, or is stopped if ctx ends first.
// A registration can also come back stopped, indistinguishable from ctx
// cancellation to the caller, if it trips the reactor's per-fd rearm
// throttle (maxPollRearmsPerSecond); that only fires for a fd re-registered
// thousands of times per second, which a legitimate caller should not do.
func (s *IoScheduler) Poll(fd int, events IOEvents) taskrt.Sender[IOEvents] {
	return taskrt.SenderFunc[IOEvents](func(ctx context.Context) taskrt.Outcome[IOEvents] {
		op := &pollOp{fd: fd, events: uint32(events), done: make(chan struct{})}
		s.ctx.enqueue(command{kind: cmdPoll, poll: op})

		stop := context.AfterFunc(ctx, func() {
			s.ctx.enqueue(command{kind: cmdStopPoll, poll: op})
		})
		<-op.done
		stop()

		if op.cancelled.Load() {
			return taskrt.Outcome[IOEvents]{Stopped: true}
		}
		return taskrt.Outcome[IOEvents]{Value: IOEvents(op.resultEvents)}
	})
}
