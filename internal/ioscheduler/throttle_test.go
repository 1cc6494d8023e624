//go:build linux

package ioscheduler

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// TestIoContext_PollRearmThrottle drives far more poll registrations for a
// single fd than maxPollRearmsPerSecond permits and asserts that once the
// limiter trips, the excess registrations come back cancelled instead of
// being handed to epoll.
func TestIoContext_PollRearmThrottle(t *testing.T) {
	fds, err := unixPipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	ctx, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctx.Run(runCtx)

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	var rejected bool
	for i := 0; i < maxPollRearmsPerSecond+500; i++ {
		opCtx, opCancel := context.WithTimeout(context.Background(), time.Second)
		out := ctx.Scheduler().Poll(fds[0], EventRead).Run(opCtx)
		opCancel()
		if out.Stopped {
			rejected = true
			break
		}
	}
	if !rejected {
		t.Fatal("expected at least one poll registration to be rate limited")
	}
}
