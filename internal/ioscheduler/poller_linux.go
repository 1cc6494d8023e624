//go:build linux

package ioscheduler

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// epollPoller wraps a single epoll instance plus the eventfd used to wake
// the reactor goroutine out of EpollWait when a new command has been
// enqueued from another goroutine. It deliberately does not keep a
// direct-indexed fds array the way a long-lived, many-registration poller
// would (see the teacher's FastPoller): a reactor's poll set here is exactly
// the set of in-flight Poll senders, which is small, so registrations are
// looked up in a plain map keyed by fd.
type epollPoller struct {
	epfd     int
	wakeupFd int
	eventBuf [128]unix.EpollEvent
	byFD     map[int32]*pollOp
}

func newEpollPoller() (*epollPoller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakeupFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, err
	}
	p := &epollPoller{epfd: epfd, wakeupFd: wakeupFd, byFD: make(map[int32]*pollOp)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeupFd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakeupFd),
	}); err != nil {
		_ = unix.Close(wakeupFd)
		_ = unix.Close(epfd)
		return nil, err
	}
	return p, nil
}

func (p *epollPoller) close() {
	_ = unix.Close(p.wakeupFd)
	_ = unix.Close(p.epfd)
}

// wake interrupts a blocked EpollWait from any goroutine.
func (p *epollPoller) wake() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(p.wakeupFd, buf[:])
		if err == unix.EINTR {
			continue
		}
		return
	}
}

func (p *epollPoller) drainWakeup() {
	var buf [8]byte
	for {
		_, err := unix.Read(p.wakeupFd, buf[:])
		if err == unix.EAGAIN || err == nil {
			return
		}
		if err != unix.EINTR {
			return
		}
	}
}

func (p *epollPoller) add(op *pollOp) error {
	ev := &unix.EpollEvent{Events: op.events | unix.EPOLLONESHOT, Fd: int32(op.fd)}
	p.byFD[int32(op.fd)] = op
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, op.fd, ev); err != nil {
		delete(p.byFD, int32(op.fd))
		return err
	}
	return nil
}

func (p *epollPoller) remove(op *pollOp) {
	delete(p.byFD, int32(op.fd))
	_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, op.fd, nil)
}

// wait blocks for up to timeoutMs (negative means forever) and returns the
// pollOps that became ready, already removed from the poller's bookkeeping.
// It also reports whether the wakeup fd fired.
func (p *epollPoller) wait(timeoutMs int) (ready []*pollOp, wokenUp bool, err error) {
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, false, nil
		}
		return nil, false, err
	}
	for i := 0; i < n; i++ {
		ev := p.eventBuf[i]
		if int(ev.Fd) == p.wakeupFd {
			wokenUp = true
			p.drainWakeup()
			continue
		}
		op, ok := p.byFD[ev.Fd]
		if !ok {
			continue
		}
		op.resultEvents = ev.Events
		delete(p.byFD, ev.Fd)
		_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, op.fd, nil)
		ready = append(ready, op)
	}
	return ready, wokenUp, nil
}
