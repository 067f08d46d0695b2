// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

// HandleKind identifies the concrete variant of a handle. It is fixed at
// creation and never changes.
type HandleKind uint8

const (
	// KindIdle is an idle-phase hook; see [Idle].
	KindIdle HandleKind = iota + 1
	// KindPrepare is a prepare-phase hook; see [Prepare].
	KindPrepare
	// KindCheck is a check-phase hook; see [Check].
	KindCheck
	// KindTimer is a monotonic-clock timer; see [Timer].
	KindTimer
	// KindAsync is a cross-goroutine wakeup; see [Async].
	KindAsync
	// KindPollWatch is an fd readiness watcher; see [PollWatch].
	KindPollWatch
)

// String returns a human-readable representation of the handle kind.
func (k HandleKind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindPrepare:
		return "prepare"
	case KindCheck:
		return "check"
	case KindTimer:
		return "timer"
	case KindAsync:
		return "async"
	case KindPollWatch:
		return "pollwatch"
	default:
		return "unknown"
	}
}

// handleFlags is the handle state bitset.
type handleFlags uint8

const (
	// flagActive marks a started handle (it has an event source armed).
	flagActive handleFlags = 1 << iota
	// flagReferenced marks a handle that counts toward the loop's "has
	// work" determination while active.
	flagReferenced
	// flagClosing is set once close has been requested; teardown is in
	// progress.
	flagClosing
	// flagClosed is terminal; set exactly once, only after flagClosing.
	flagClosed
	// flagPending marks a handle currently linked into the pending queue.
	flagPending
)

// Handle is the capability interface implemented by every handle variant.
//
// The loop core calls through this interface only; it never switches on the
// concrete type. Each variant supplies its own pending-event dispatcher
// (processPending), type-specific shutdown (closeKind, run when close is
// requested), and type-specific release (finalizeKind, run during close
// finalization, before the close callback).
//
// Handles belong to exactly one loop for their entire lifetime, and all
// methods except those explicitly documented otherwise must be called from
// the loop goroutine.
type Handle interface {
	// Kind returns the handle's variant tag.
	Kind() HandleKind

	// Loop returns the owning loop.
	Loop() *Loop

	base() *handleBase
	processPending()
	closeKind()
	finalizeKind()
}

// handleBase carries the state shared by every handle variant. Variants
// embed it; its exported methods are promoted onto the variant types.
type handleBase struct {
	loop    *Loop
	closeCb func(Handle)
	kind    HandleKind
	flags   handleFlags
}

func (b *handleBase) init(loop *Loop, kind HandleKind) {
	b.loop = loop
	b.kind = kind
	b.flags = flagReferenced
	loop.handleCount++
}

// Kind returns the handle's variant tag.
func (b *handleBase) Kind() HandleKind { return b.kind }

// Loop returns the owning loop.
func (b *handleBase) Loop() *Loop { return b.loop }

func (b *handleBase) base() *handleBase { return b }

// startHandle marks the handle active and, while referenced, counts it
// toward the loop's active-handle accounting.
func (b *handleBase) startHandle() {
	if b.flags&flagActive != 0 {
		return
	}
	b.flags |= flagActive
	if b.flags&flagReferenced != 0 {
		b.loop.activeHandles++
	}
}

// stopHandle undoes startHandle.
func (b *handleBase) stopHandle() {
	if b.flags&flagActive == 0 {
		return
	}
	b.flags &^= flagActive
	if b.flags&flagReferenced != 0 {
		b.loop.activeHandles--
		if b.loop.activeHandles < 0 {
			internalError("negative active handle count")
		}
	}
}

// Ref marks the handle as counting toward the loop's "has work"
// determination while active. Handles are referenced by default.
func (b *handleBase) Ref() {
	if b.flags&flagReferenced != 0 {
		return
	}
	b.flags |= flagReferenced
	if b.flags&flagActive != 0 {
		b.loop.activeHandles++
	}
}

// Unref excludes the handle from the loop's "has work" determination; an
// active but unreferenced handle still receives events but does not keep
// [Loop.Run] from returning.
func (b *handleBase) Unref() {
	if b.flags&flagReferenced == 0 {
		return
	}
	b.flags &^= flagReferenced
	if b.flags&flagActive != 0 {
		b.loop.activeHandles--
		if b.loop.activeHandles < 0 {
			internalError("negative active handle count")
		}
	}
}

// IsActive reports whether the handle currently counts toward the loop's
// "has work" determination.
func IsActive(h Handle) bool {
	b := h.base()
	return b.flags&flagActive != 0 && b.flags&flagReferenced != 0
}

// IsClosing reports whether close has been requested or completed for the
// handle.
func IsClosing(h Handle) bool {
	return h.base().flags&(flagClosing|flagClosed) != 0
}

// Close requests teardown of a handle. Type-specific shutdown runs
// immediately; the handle is then enqueued onto the pending queue so
// finalization is drained on a subsequent cycle even if the handle has no
// other pending event. cb, if non-nil, is invoked exactly once, after all
// type-specific teardown, and is the single point at which the handle's
// resources are fully released: callers must not reuse the handle's storage
// before cb runs.
//
// Closing an already-closing or closed handle is a caller error and panics.
func (l *Loop) Close(h Handle, cb func(Handle)) {
	b := h.base()
	if b.loop != l {
		internalError("close of handle owned by another loop")
	}
	if b.flags&(flagClosing|flagClosed) != 0 {
		panic("reactor: close of closing or closed handle")
	}
	b.closeCb = cb
	h.closeKind()
	b.flags |= flagClosing
	l.makePending(h)
}

// finishClose is the terminal step of the handle state machine. It runs
// during the pending drain, after the handle's type-specific shutdown has
// completed and the handle has been stopped.
func (l *Loop) finishClose(h Handle) {
	b := h.base()
	if b.flags&flagActive != 0 {
		internalError("close finalization of active handle")
	}
	if b.flags&flagClosing == 0 {
		internalError("close finalization without close request")
	}
	if b.flags&flagClosed != 0 {
		internalError("double close finalization")
	}
	b.flags |= flagClosed
	h.finalizeKind()
	if b.closeCb != nil {
		b.closeCb(h)
	}
	l.handleCount--
	if l.handleCount < 0 {
		internalError("negative handle count")
	}
}
