// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

// Idle, Prepare, and Check are the loop's phase hooks. They share their
// mechanics: starting registers the handle with its phase list, and every
// cycle the loop invokes the started hooks of each phase in registration
// order. They differ only in when their phase runs: idle hooks run first
// every cycle (and their mere registration forces non-blocking polls),
// prepare hooks run immediately before the poll, check hooks immediately
// after.

// Idle is a handle whose callback runs every cycle during the idle phase.
// While any idle hook is started the loop never blocks in the backend
// poll.
type Idle struct {
	handleBase
	cb func(*Idle)
}

// NewIdle registers an idle hook with the loop.
func NewIdle(l *Loop) *Idle {
	h := &Idle{}
	h.init(l, KindIdle)
	return h
}

// Start begins invoking cb once per cycle. Starting an already-started
// hook replaces its callback.
func (h *Idle) Start(cb func(*Idle)) error {
	if IsClosing(h) {
		return ErrHandleClosing
	}
	if cb == nil {
		return ErrInvalidArgument
	}
	h.cb = cb
	if h.flags&flagActive == 0 {
		h.loop.idleHandles = append(h.loop.idleHandles, h)
		h.startHandle()
	}
	return nil
}

// Stop ends per-cycle invocation.
func (h *Idle) Stop() error {
	h.stop()
	return nil
}

func (h *Idle) stop() {
	if h.flags&flagActive == 0 {
		return
	}
	h.loop.idleHandles = removeWatcher(h.loop.idleHandles, h)
	h.stopHandle()
}

func (h *Idle) processPending() {
	internalError("pending dispatch of idle handle")
}

func (h *Idle) closeKind()    { h.stop() }
func (h *Idle) finalizeKind() {}

// Prepare is a handle whose callback runs every cycle during the prepare
// phase, immediately before the backend poll.
type Prepare struct {
	handleBase
	cb func(*Prepare)
}

// NewPrepare registers a prepare hook with the loop.
func NewPrepare(l *Loop) *Prepare {
	h := &Prepare{}
	h.init(l, KindPrepare)
	return h
}

// Start begins invoking cb once per cycle, pre-poll. Starting an
// already-started hook replaces its callback.
func (h *Prepare) Start(cb func(*Prepare)) error {
	if IsClosing(h) {
		return ErrHandleClosing
	}
	if cb == nil {
		return ErrInvalidArgument
	}
	h.cb = cb
	if h.flags&flagActive == 0 {
		h.loop.prepareHandles = append(h.loop.prepareHandles, h)
		h.startHandle()
	}
	return nil
}

// Stop ends per-cycle invocation.
func (h *Prepare) Stop() error {
	h.stop()
	return nil
}

func (h *Prepare) stop() {
	if h.flags&flagActive == 0 {
		return
	}
	h.loop.prepareHandles = removeWatcher(h.loop.prepareHandles, h)
	h.stopHandle()
}

func (h *Prepare) processPending() {
	internalError("pending dispatch of prepare handle")
}

func (h *Prepare) closeKind()    { h.stop() }
func (h *Prepare) finalizeKind() {}

// Check is a handle whose callback runs every cycle during the check
// phase, immediately after the backend poll.
type Check struct {
	handleBase
	cb func(*Check)
}

// NewCheck registers a check hook with the loop.
func NewCheck(l *Loop) *Check {
	h := &Check{}
	h.init(l, KindCheck)
	return h
}

// Start begins invoking cb once per cycle, post-poll. Starting an
// already-started hook replaces its callback.
func (h *Check) Start(cb func(*Check)) error {
	if IsClosing(h) {
		return ErrHandleClosing
	}
	if cb == nil {
		return ErrInvalidArgument
	}
	h.cb = cb
	if h.flags&flagActive == 0 {
		h.loop.checkHandles = append(h.loop.checkHandles, h)
		h.startHandle()
	}
	return nil
}

// Stop ends per-cycle invocation.
func (h *Check) Stop() error {
	h.stop()
	return nil
}

func (h *Check) stop() {
	if h.flags&flagActive == 0 {
		return
	}
	h.loop.checkHandles = removeWatcher(h.loop.checkHandles, h)
	h.stopHandle()
}

func (h *Check) processPending() {
	internalError("pending dispatch of check handle")
}

func (h *Check) closeKind()    { h.stop() }
func (h *Check) finalizeKind() {}

// removeWatcher removes v from s, preserving order.
func removeWatcher[T comparable](s []T, v T) []T {
	for i, e := range s {
		if e == v {
			copy(s[i:], s[i+1:])
			var zero T
			s[len(s)-1] = zero
			return s[:len(s)-1]
		}
	}
	return s
}

// The phase runners iterate over a scratch copy so a hook may stop itself,
// or a sibling, mid-phase without invalidating the iteration. A hook
// stopped or closed earlier in the same phase is skipped.

func (l *Loop) runIdle() {
	l.idleScratch = append(l.idleScratch[:0], l.idleHandles...)
	for _, h := range l.idleScratch {
		if h.flags&flagActive != 0 && h.flags&flagClosing == 0 {
			h.cb(h)
		}
	}
}

func (l *Loop) runPrepare() {
	l.prepareScratch = append(l.prepareScratch[:0], l.prepareHandles...)
	for _, h := range l.prepareScratch {
		if h.flags&flagActive != 0 && h.flags&flagClosing == 0 {
			h.cb(h)
		}
	}
}

func (l *Loop) runCheck() {
	l.checkScratch = append(l.checkScratch[:0], l.checkHandles...)
	for _, h := range l.checkScratch {
		if h.flags&flagActive != 0 && h.flags&flagClosing == 0 {
			h.cb(h)
		}
	}
}
