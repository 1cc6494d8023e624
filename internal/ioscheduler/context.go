package ioscheduler

import (
	"context"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/maikeln/wlcoro/internal/obslog"
)

// maxPollRearmsPerSecond bounds how often a single fd may be re-registered
// for polling. A caller that keeps re-arming a fd which is immediately
// ready again (a busy pipe, a misbehaving edge case upstream) would
// otherwise spin the reactor's command queue as fast as it can drain it;
// past this rate, further registrations for that fd are rejected as
// cancelled instead of handed to epoll.
const maxPollRearmsPerSecond = 2000

// IoContext is the reactor: a single-threaded event loop combining a timer
// heap and FD readiness polling, driven by one call to Run. Every other
// method is safe to call from any goroutine; they only ever touch the
// command queue, never the loop's internal state directly.
type IoContext struct {
	mu            sync.Mutex
	tasks         []command
	stopRequested bool

	poller       *epollPoller
	rearmLimiter *catrate.Limiter
	log          *obslog.Logger
}

// New creates an IoContext. The returned context must be driven by exactly
// one call to Run.
func New() (*IoContext, error) {
	poller, err := newEpollPoller()
	if err != nil {
		return nil, err
	}
	return &IoContext{
		poller:       poller,
		rearmLimiter: catrate.NewLimiter(map[time.Duration]int{time.Second: maxPollRearmsPerSecond}),
		log:          obslog.Default(),
	}, nil
}

func (c *IoContext) enqueue(cmd command) {
	c.mu.Lock()
	c.tasks = append(c.tasks, cmd)
	c.mu.Unlock()
	c.poller.wake()
}

// RequestStop asks the reactor to exit once its current command queue has
// drained. Any operations still pending at that point complete as stopped.
func (c *IoContext) RequestStop() {
	c.mu.Lock()
	c.stopRequested = true
	c.mu.Unlock()
	c.poller.wake()
}

// Scheduler returns the taskrt.Scheduler view of this reactor.
func (c *IoContext) Scheduler() *IoScheduler {
	return &IoScheduler{ctx: c}
}

// Run drives the reactor until RequestStop is called, ctx is cancelled, or
// both the command queue and the set of pending timers/polls are empty and a
// stop was requested. It processes, each iteration: newly enqueued commands,
// expired timers, then blocks in the poller for at most the time until the
// next timer expiration.
func (c *IoContext) Run(ctx context.Context) error {
	timers := newTimerQueue()
	pending := make(map[*pollOp]struct{})
	defer c.poller.close()

	// Wake the poller when ctx ends so an idle reactor notices the
	// cancellation; the wakeup has finished before the poller is closed.
	wakeDone := make(chan struct{})
	stopWake := context.AfterFunc(ctx, func() {
		defer close(wakeDone)
		c.poller.wake()
	})
	defer func() {
		if !stopWake() {
			<-wakeDone
		}
	}()

	for {
		c.mu.Lock()
		stop := c.stopRequested
		batch := c.tasks
		c.tasks = nil
		c.mu.Unlock()

		ctxDone := ctx.Err() != nil
		if (stop || ctxDone) && len(batch) == 0 && timers.items.Len() == 0 && len(pending) == 0 {
			return ctx.Err()
		}

		for _, cmd := range batch {
			c.applyCommand(cmd, timers, pending)
		}

		now := time.Now()
		for {
			op := timers.popExpired(now)
			if op == nil {
				break
			}
			close(op.done)
			now = time.Now()
		}

		if ctxDone || stop {
			// Draining: fail everything still outstanding instead of
			// blocking in the poller again.
			c.drainAsStopped(timers, pending)
			continue
		}

		timeoutMs := -1
		if next, ok := timers.nextExpiration(); ok {
			d := time.Until(next)
			if d < 0 {
				d = 0
			}
			timeoutMs = int(d / time.Millisecond)
		}

		ready, _, err := c.poller.wait(timeoutMs)
		if err != nil {
			// poller.wait reports EINTR as an empty, error-free return, so
			// the loop simply runs another pass; anything that reaches here
			// is a genuine syscall failure, which is fatal.
			c.log.Err().Err(err).Log("reactor poll failed")
			c.drainAsStopped(timers, pending)
			return err
		}
		for _, op := range ready {
			delete(pending, op)
			close(op.done)
		}
	}
}

func (c *IoContext) applyCommand(cmd command, timers *timerQueue, pending map[*pollOp]struct{}) {
	switch cmd.kind {
	case cmdImmediate:
		close(cmd.immediateDone)
	case cmdTimed:
		timers.add(cmd.timed)
	case cmdStopTimed:
		if timers.remove(cmd.timed) {
			cmd.timed.cancelled.Store(true)
			close(cmd.timed.done)
		}
	case cmdPoll:
		if _, ok := c.rearmLimiter.Allow(cmd.poll.fd); !ok {
			c.log.Warn().Int("fd", cmd.poll.fd).Log("reactor: poll registration rate limited")
			cmd.poll.cancelled.Store(true)
			close(cmd.poll.done)
			return
		}
		if err := c.poller.add(cmd.poll); err != nil {
			cmd.poll.cancelled.Store(true)
			close(cmd.poll.done)
			return
		}
		pending[cmd.poll] = struct{}{}
	case cmdStopPoll:
		if _, ok := pending[cmd.poll]; ok {
			delete(pending, cmd.poll)
			c.poller.remove(cmd.poll)
			cmd.poll.cancelled.Store(true)
			close(cmd.poll.done)
		}
	}
}

func (c *IoContext) drainAsStopped(timers *timerQueue, pending map[*pollOp]struct{}) {
	for {
		op := timers.popExpired(time.Unix(1<<62, 0))
		if op == nil {
			break
		}
		op.cancelled.Store(true)
		close(op.done)
	}
	for op := range pending {
		delete(pending, op)
		c.poller.remove(op)
		op.cancelled.Store(true)
		close(op.done)
	}
}
