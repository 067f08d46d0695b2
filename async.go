// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "sync/atomic"

// Async is a cross-goroutine wakeup handle. [Async.Send] may be called
// from any goroutine; it wakes the loop and causes the handle's callback
// to run on the loop goroutine via the pending queue. Sends are
// coalescing: any number of Send calls before the dispatch produce one
// callback invocation.
//
// An async handle is active from creation until closed, and so keeps the
// loop running; use [handleBase.Unref] (promoted as Unref) if the handle
// should not count toward the loop's work.
type Async struct {
	handleBase
	cb     func(*Async)
	signal atomic.Uint32
}

// NewAsync registers an async handle with the loop. Must be called on the
// loop goroutine.
func NewAsync(l *Loop, cb func(*Async)) (*Async, error) {
	if cb == nil {
		return nil, ErrInvalidArgument
	}
	h := &Async{cb: cb}
	h.init(l, KindAsync)
	l.asyncHandles = append(l.asyncHandles, h)
	h.startHandle()
	return h, nil
}

// Send schedules the handle's callback to run on the loop goroutine. Safe
// to call from any goroutine, including the loop's own callbacks. Calls
// made after [Loop.Close] on the handle may be silently dropped.
func (h *Async) Send() {
	if !h.signal.CompareAndSwap(0, 1) {
		return
	}
	h.loop.wakeup()
}

func (h *Async) processPending() {
	h.cb(h)
}

func (h *Async) closeKind() {
	h.loop.asyncHandles = removeWatcher(h.loop.asyncHandles, h)
	h.signal.Store(0)
	h.stopHandle()
}

func (h *Async) finalizeKind() {}
