// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "github.com/eapache/queue"

// pendingQueue is the loop-owned FIFO of handles with a deferred event or
// teardown action to process. Handles are queued by value of their
// capability interface; there are no intrusive links in caller-visible
// state, the queue owns its own storage.
type pendingQueue struct {
	q *queue.Queue
}

func newPendingQueue() pendingQueue {
	return pendingQueue{q: queue.New()}
}

func (p *pendingQueue) length() int { return p.q.Length() }

// makePending enqueues a handle for dispatch on a subsequent cycle. A
// handle is linked into at most one loop's queue at a time; re-enqueueing
// while already pending is a no-op.
func (l *Loop) makePending(h Handle) {
	b := h.base()
	if b.flags&flagPending != 0 {
		return
	}
	b.flags |= flagPending
	l.pending.q.Add(h)
}

// runPending drains the pending queue. The queue length is snapshotted
// before the drain so handles enqueued during dispatch land in the next
// cycle, never re-processed in the same pass.
func (l *Loop) runPending() {
	n := l.pending.q.Length()
	for i := 0; i < n; i++ {
		h := l.pending.q.Remove().(Handle)
		b := h.base()
		if b.flags&flagPending == 0 {
			internalError("queued handle missing pending flag")
		}
		b.flags &^= flagPending

		if b.flags&flagClosing != 0 {
			l.finishClose(h)
			continue
		}
		h.processPending()
	}
}
