// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package reactor

import (
	"golang.org/x/sys/unix"
)

// newPlatformPoller returns the kqueue backend.
func newPlatformPoller() Poller {
	return &kqueuePoller{kq: -1}
}

// kqueuePoller multiplexes readiness with kqueue. It is driven from the
// loop goroutine only, so the registration table needs no locking.
type kqueuePoller struct {
	kq       int
	fds      []fdInfo
	eventBuf [256]unix.Kevent_t
	closed   bool
}

func (p *kqueuePoller) Init() error {
	if p.closed {
		return ErrPollerClosed
	}
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	p.fds = make([]fdInfo, initialFDs)
	return nil
}

func (p *kqueuePoller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.kq >= 0 {
		return unix.Close(p.kq)
	}
	return nil
}

func (p *kqueuePoller) Register(fd int, events IOEvents, cb IOCallback) error {
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

	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(p.kq, kevents, nil, nil); err != nil {
			p.fds[fd] = fdInfo{}
			return err
		}
	}
	return nil
}

func (p *kqueuePoller) Modify(fd int, events IOEvents) error {
	if p.closed {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= len(p.fds) || !p.fds[fd].active {
		return ErrFDNotRegistered
	}

	old := p.fds[fd].events
	p.fds[fd].events = events

	if removed := old &^ events; removed != 0 {
		del := eventsToKevents(fd, removed, unix.EV_DELETE)
		// Delete failures are ignored: the filter may already be gone.
		_, _ = unix.Kevent(p.kq, del, nil, nil)
	}
	if added := events &^ old; added != 0 {
		add := eventsToKevents(fd, added, unix.EV_ADD|unix.EV_ENABLE)
		if _, err := unix.Kevent(p.kq, add, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *kqueuePoller) Unregister(fd int) error {
	if p.closed {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= len(p.fds) || !p.fds[fd].active {
		return ErrFDNotRegistered
	}

	del := eventsToKevents(fd, p.fds[fd].events, unix.EV_DELETE)
	if len(del) > 0 {
		_, _ = unix.Kevent(p.kq, del, nil, nil)
	}
	p.fds[fd] = fdInfo{}
	return nil
}

func (p *kqueuePoller) Poll(timeoutMs int) (int, error) {
	if p.closed {
		return 0, ErrPollerClosed
	}

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if fd < 0 || fd >= len(p.fds) {
			continue
		}
		info := p.fds[fd]
		if info.active && info.callback != nil {
			info.callback(keventToEvents(&p.eventBuf[i]))
		}
	}
	return n, nil
}

func eventsToKevents(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&EventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}
	if events&EventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) IOEvents {
	var events IOEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= EventRead
	case unix.EVFILT_WRITE:
		events |= EventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	return events
}
