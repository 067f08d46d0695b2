// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

// newPlatformPoller returns the epoll backend.
func newPlatformPoller() Poller {
	return &epollPoller{epfd: -1}
}

// epollPoller multiplexes readiness with epoll. It is driven from the loop
// goroutine only, so the registration table needs no locking.
type epollPoller struct {
	epfd     int
	fds      []fdInfo
	eventBuf [256]unix.EpollEvent
	closed   bool
}

func (p *epollPoller) Init() error {
	if p.closed {
		return ErrPollerClosed
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = epfd
	p.fds = make([]fdInfo, initialFDs)
	return nil
}

func (p *epollPoller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.epfd >= 0 {
		return unix.Close(p.epfd)
	}
	return nil
}

func (p *epollPoller) Register(fd int, events IOEvents, cb IOCallback) error {
	if p.closed {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= maxFDLimit {
		return ErrFDOutOfRange
	}

	p.fds = growFDs(p.fds, fd)
	if p.fds[fd].active {
		return ErrFDAlreadyRegistered
	}
	p.fds[fd] = fdInfo{callback: cb, events: events, active: true}

	ev := unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		p.fds[fd] = fdInfo{}
		return err
	}
	return nil
}

func (p *epollPoller) Modify(fd int, events IOEvents) error {
	if p.closed {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= len(p.fds) || !p.fds[fd].active {
		return ErrFDNotRegistered
	}
	p.fds[fd].events = events

	ev := unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Unregister(fd int) error {
	if p.closed {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= len(p.fds) || !p.fds[fd].active {
		return ErrFDNotRegistered
	}
	p.fds[fd] = fdInfo{}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Poll(timeoutMs int) (int, error) {
	if p.closed {
		return 0, ErrPollerClosed
	}

	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		if fd < 0 || fd >= len(p.fds) {
			continue
		}
		info := p.fds[fd]
		if info.active && info.callback != nil {
			info.callback(epollToEvents(p.eventBuf[i].Events))
		}
	}
	return n, nil
}

func eventsToEpoll(events IOEvents) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) IOEvents {
	var events IOEvents
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if e&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	return events
}
