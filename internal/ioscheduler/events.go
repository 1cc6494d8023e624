package ioscheduler

// IOEvents mirrors the POSIX poll/epoll event bitmask. The numeric values
// match EPOLLIN/EPOLLOUT/EPOLLERR/EPOLLHUP exactly (those bits are shared
// with poll(2) by convention), so they can be passed straight through to the
// Linux poller without translation.
type IOEvents uint32

const (
	EventRead  IOEvents = 0x001
	EventWrite IOEvents = 0x004
	EventError IOEvents = 0x008
	EventHangup IOEvents = 0x010
)
