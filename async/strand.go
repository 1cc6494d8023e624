package async

import (
	"context"
	"sync"

	"github.com/maikeln/wlcoro/taskrt"
)

// Strand serializes access to a critical section across any number of
// concurrent callers, FIFO. Unlike a plain sync.Mutex, releasing a Strand
// hands off to the next waiter by scheduling it rather than resuming it
// inline on the releasing goroutine, bounding stack depth under a long chain
// of contended acquisitions exactly as the original lock()/release() pair
// does by posting the next waiter's resumption back through the scheduler
// instead of calling it directly.
type Strand struct {
	sched taskrt.Scheduler

	mu      sync.Mutex
	locked  bool
	waiters []chan struct{}
}

// NewStrand creates a Strand whose hand-off between waiters is scheduled via
// sched.
func NewStrand(sched taskrt.Scheduler) *Strand {
	return &Strand{sched: sched}
}

// Lock returns a Sender that completes, with an unlock function, once this
// caller has exclusive access to the strand. The caller must invoke the
// returned function exactly once to release it.
func (s *Strand) Lock() taskrt.Sender[func()] {
	return taskrt.SenderFunc[func()](func(ctx context.Context) taskrt.Outcome[func()] {
		s.mu.Lock()
		if !s.locked {
			s.locked = true
			s.mu.Unlock()
			return taskrt.Outcome[func()]{Value: s.unlockOnce()}
		}
		wait := make(chan struct{})
		s.waiters = append(s.waiters, wait)
		s.mu.Unlock()

		select {
		case <-wait:
			return taskrt.Outcome[func()]{Value: s.unlockOnce()}
		case <-ctx.Done():
			go func() {
				<-wait
				s.release(context.Background())
			}()
			return taskrt.Outcome[func()]{Stopped: true}
		}
	})
}

func (s *Strand) unlockOnce() func() {
	var once sync.Once
	return func() {
		once.Do(func() { s.release(context.Background()) })
	}
}

func (s *Strand) release(ctx context.Context) {
	s.mu.Lock()
	if len(s.waiters) == 0 {
		s.locked = false
		s.mu.Unlock()
		return
	}
	next := s.waiters[0]
	s.waiters = s.waiters[1:]
	s.mu.Unlock()

	go func() {
		s.sched.Schedule().Run(ctx)
		close(next)
	}()
}
