// Package ioscheduler implements the single-threaded reactor at the bottom
// of the runtime: one goroutine owns a min-heap of pending timers and an
// epoll instance, and every other goroutine talks to it only by enqueuing
// commands and waiting on a per-operation completion channel. This mirrors
// IoContext's command-queue-swap-then-apply design: callers never touch the
// timer heap or the poll set directly, so the reactor's internal state needs
// no locking beyond the single mutex guarding the inbound command queue.
package ioscheduler

import (
	"sync/atomic"
	"time"
)

type commandKind int

const (
	cmdImmediate commandKind = iota
	cmdTimed
	cmdStopTimed
	cmdPoll
	cmdStopPoll
)

// timedOp is the record behind ScheduleAfter/ScheduleAt. It is owned by the
// reactor goroutine once enqueued; the awaiting goroutine only reads done and
// cancelled after done is closed.
type timedOp struct {
	scheduledTime time.Time
	heapIndex     int
	done          chan struct{}
	cancelled     atomic.Bool
}

// pollOp is the record behind Poll. resultEvents is only valid after done is
// closed and cancelled is false.
type pollOp struct {
	fd           int
	events       uint32
	resultEvents uint32
	done         chan struct{}
	cancelled    atomic.Bool
}

type command struct {
	kind          commandKind
	immediateDone chan struct{}
	timed         *timedOp
	poll          *pollOp
}
