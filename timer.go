// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"container/heap"
	"time"
)

// Timer is a one-shot or repeating timer handle ordered against the loop's
// cached monotonic clock. Due timers are collected at poll exit and
// dispatched through the pending queue on the following cycle.
type Timer struct {
	handleBase
	cb      func(*Timer)
	due     time.Time
	repeat  time.Duration
	seq     uint64
	heapIdx int
}

// NewTimer registers a timer with the loop. The timer does nothing until
// started.
func NewTimer(l *Loop) *Timer {
	t := &Timer{heapIdx: -1}
	t.init(l, KindTimer)
	return t
}

// Start arms the timer to fire cb once after timeout, and then every
// repeat interval if repeat is non-zero. Starting an armed timer rearms
// it. Deadlines are computed against [Loop.Now], the clock cached for the
// current cycle.
func (t *Timer) Start(cb func(*Timer), timeout, repeat time.Duration) error {
	if IsClosing(t) {
		return ErrHandleClosing
	}
	if cb == nil {
		return ErrInvalidArgument
	}

	if t.flags&flagActive != 0 {
		t.stop()
	}

	t.cb = cb
	t.repeat = repeat
	t.due = t.loop.Now().Add(timeout)
	t.seq = t.loop.timerSeq
	t.loop.timerSeq++
	heap.Push(&t.loop.timers, t)
	t.startHandle()
	return nil
}

// Stop disarms the timer. A timer that has expired but not yet been
// dispatched will not fire.
func (t *Timer) Stop() error {
	t.stop()
	return nil
}

func (t *Timer) stop() {
	if t.heapIdx >= 0 {
		heap.Remove(&t.loop.timers, t.heapIdx)
	}
	t.stopHandle()
}

// Again rearms the timer from its repeat interval, as if it had just
// fired. Returns [ErrTimerNotStarted] if the timer has never been started.
func (t *Timer) Again() error {
	if t.cb == nil {
		return ErrTimerNotStarted
	}
	if t.repeat > 0 {
		t.stop()
		return t.Start(t.cb, t.repeat, t.repeat)
	}
	return nil
}

// Repeat returns the repeat interval.
func (t *Timer) Repeat() time.Duration { return t.repeat }

// SetRepeat changes the repeat interval. Takes effect the next time the
// timer is rescheduled; it does not move an armed deadline.
func (t *Timer) SetRepeat(d time.Duration) { t.repeat = d }

// processPending fires the timer callback. A timer that was stopped or
// rearmed after expiring is skipped: its queue entry is stale.
func (t *Timer) processPending() {
	if t.flags&flagActive == 0 || t.heapIdx >= 0 {
		return
	}
	if t.repeat > 0 {
		t.due = t.loop.Now().Add(t.repeat)
		t.seq = t.loop.timerSeq
		t.loop.timerSeq++
		heap.Push(&t.loop.timers, t)
	} else {
		t.stopHandle()
	}
	t.cb(t)
}

func (t *Timer) closeKind()    { t.stop() }
func (t *Timer) finalizeKind() {}

// expireTimers moves every due timer onto the pending queue. Called at
// poll exit, after the cached clock has been advanced.
func (l *Loop) expireTimers() {
	now := l.Now()
	for len(l.timers) > 0 {
		if l.timers[0].due.After(now) {
			break
		}
		t := heap.Pop(&l.timers).(*Timer)
		l.makePending(t)
	}
}

// timerHeap is a min-heap of timers by deadline, sequence-numbered so
// equal deadlines fire in start order.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIdx = i
	h[j].heapIdx = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.heapIdx = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.heapIdx = -1
	*h = old[:n-1]
	return t
}
