// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

// PollWatch watches a caller-owned file descriptor for readiness,
// bridging the backend poller into the pending queue. Readiness observed
// during a poll accumulates on the handle and is delivered as one callback
// on the following cycle.
//
// The watched descriptor remains owned by the caller; close it only after
// the handle has been stopped (or its close callback has run), or stale
// events may be delivered to a recycled descriptor.
type PollWatch struct {
	handleBase
	cb         func(*PollWatch, IOEvents)
	fd         int
	watched    IOEvents
	fired      IOEvents
	registered bool
}

// NewPollWatch registers a watcher for fd with the loop. The watcher does
// nothing until started.
func NewPollWatch(l *Loop, fd int) (*PollWatch, error) {
	if fd < 0 {
		return nil, ErrFDOutOfRange
	}
	h := &PollWatch{fd: fd}
	h.init(l, KindPollWatch)
	return h, nil
}

// FD returns the watched descriptor.
func (h *PollWatch) FD() int { return h.fd }

// Start begins watching for events, invoking cb on the cycle after
// readiness is observed. Starting an already-started watcher updates the
// event mask and callback.
func (h *PollWatch) Start(events IOEvents, cb func(*PollWatch, IOEvents)) error {
	if IsClosing(h) {
		return ErrHandleClosing
	}
	if cb == nil || events&(EventRead|EventWrite) == 0 {
		return ErrInvalidArgument
	}

	h.cb = cb
	if h.registered {
		if events != h.watched {
			if err := h.loop.poller.Modify(h.fd, events); err != nil {
				return err
			}
			h.watched = events
		}
		return nil
	}

	if err := h.loop.poller.Register(h.fd, events, func(ev IOEvents) {
		h.fired |= ev
		h.loop.makePending(h)
	}); err != nil {
		return err
	}
	h.registered = true
	h.watched = events
	h.startHandle()
	return nil
}

// Stop ends watching. Readiness already observed but not yet dispatched is
// discarded.
func (h *PollWatch) Stop() error {
	h.stop()
	return nil
}

func (h *PollWatch) stop() {
	if h.registered {
		// The descriptor may have been closed under us; losing the
		// backend registration then is fine.
		_ = h.loop.poller.Unregister(h.fd)
		h.registered = false
	}
	h.fired = 0
	h.stopHandle()
}

func (h *PollWatch) processPending() {
	if h.flags&flagActive == 0 {
		return
	}
	ev := h.fired
	h.fired = 0
	if ev == 0 {
		return
	}
	h.cb(h, ev)
}

func (h *PollWatch) closeKind() { h.stop() }

func (h *PollWatch) finalizeKind() {
	if h.registered {
		internalError("poll watcher finalized while registered")
	}
}
