//go:build linux || darwin

package reactor

import (
	"testing"
)

// probeHandle is a minimal handle variant for exercising the pending queue
// and close machinery in isolation.
type probeHandle struct {
	handleBase
	onPending  func()
	onClose    func()
	onFinalize func()
}

func newProbeHandle(l *Loop) *probeHandle {
	h := &probeHandle{}
	h.init(l, KindAsync)
	return h
}

func (h *probeHandle) processPending() {
	if h.onPending != nil {
		h.onPending()
	}
}

func (h *probeHandle) closeKind() {
	h.stopHandle()
	if h.onClose != nil {
		h.onClose()
	}
}

func (h *probeHandle) finalizeKind() {
	if h.onFinalize != nil {
		h.onFinalize()
	}
}

func TestPending_MakePendingIdempotent(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	h := newProbeHandle(l)
	l.makePending(h)
	l.makePending(h)
	l.makePending(h)

	if got := l.pending.length(); got != 1 {
		t.Fatalf("pending length = %d, want 1", got)
	}
}

// A handle enqueued during the drain is dispatched on the next drain, never
// within the same pass: re-enqueueing cannot starve the rest of the cycle.
func TestPending_EnqueueDuringDrainDefersToNextCycle(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	h := newProbeHandle(l)
	dispatched := 0
	h.onPending = func() {
		dispatched++
		l.makePending(h)
	}

	l.makePending(h)

	l.runPending()
	if dispatched != 1 {
		t.Fatalf("dispatched = %d after first drain, want 1", dispatched)
	}

	l.runPending()
	if dispatched != 2 {
		t.Fatalf("dispatched = %d after second drain, want 2", dispatched)
	}
}

func TestPending_DrainOrderIsFIFO(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	var order []int
	for i := 0; i < 3; i++ {
		h := newProbeHandle(l)
		i := i
		h.onPending = func() { order = append(order, i) }
		l.makePending(h)
	}

	l.runPending()

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("dispatch order = %v, want [0 1 2]", order)
	}
}

func TestClose_CallbackRunsExactlyOnce(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	h := newProbeHandle(l)
	before := l.handleCount

	finalized := 0
	h.onFinalize = func() { finalized++ }
	closed := 0
	l.Close(h, func(got Handle) {
		closed++
		if got != Handle(h) {
			t.Error("close callback received wrong handle")
		}
		if got.base().flags&flagClosed == 0 {
			t.Error("handle not closed at callback time")
		}
	})

	if !IsClosing(h) {
		t.Error("IsClosing false after Close")
	}

	l.runPending()

	if closed != 1 {
		t.Fatalf("close callback ran %d times, want 1", closed)
	}
	if finalized != 1 {
		t.Fatalf("finalize ran %d times, want 1", finalized)
	}
	if l.handleCount != before-1 {
		t.Errorf("handleCount = %d, want %d", l.handleCount, before-1)
	}
}

func TestClose_DoubleClosePanics(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	h := newProbeHandle(l)
	l.Close(h, nil)

	defer func() {
		if recover() == nil {
			t.Error("second Close did not panic")
		}
		l.runPending()
	}()
	l.Close(h, nil)
}

// Close of an already-pending handle supersedes the queued event: the drain
// finalizes the handle instead of dispatching it.
func TestClose_SupersedesPendingEvent(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	h := newProbeHandle(l)
	h.onPending = func() { t.Error("pending event dispatched after close") }

	l.makePending(h)
	closed := false
	l.Close(h, func(Handle) { closed = true })

	if got := l.pending.length(); got != 1 {
		t.Fatalf("pending length = %d, want 1", got)
	}

	l.runPending()
	if !closed {
		t.Error("close was not finalized")
	}
}
