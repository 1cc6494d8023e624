//go:build !linux

package ioscheduler

import (
	"errors"
	"time"
)

// ErrUnsupportedPlatform is returned by the poller's registration on
// platforms without the epoll-backed reactor, so Poll on those platforms
// completes stopped. Wayland compositors are a Linux (and BSD) affair;
// this module does not attempt to grow a kqueue or IOCP backend for
// platforms Wayland itself does not target.
var ErrUnsupportedPlatform = errors.New("ioscheduler: fd polling is only implemented on linux")

type epollPoller struct{}

func newEpollPoller() (*epollPoller, error) { return &epollPoller{}, nil }

func (p *epollPoller) close() {}

func (p *epollPoller) wake() {}

func (p *epollPoller) add(op *pollOp) error {
	op.cancelled.Store(true)
	return ErrUnsupportedPlatform
}

func (p *epollPoller) remove(*pollOp) {}

func (p *epollPoller) wait(timeoutMs int) (ready []*pollOp, wokenUp bool, err error) {
	if timeoutMs < 0 {
		time.Sleep(50 * time.Millisecond)
		return nil, false, nil
	}
	time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
	return nil, false, nil
}
