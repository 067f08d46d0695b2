//go:build linux || darwin

package reactor

import (
	"testing"

	"golang.org/x/sys/unix"
)

func testPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		t.Fatalf("nonblock: %v", err)
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		t.Fatalf("nonblock: %v", err)
	}
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func testSocketpair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestPollWatch_ReadReadiness(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	r, w := testPipe(t)

	var got IOEvents
	h, err := NewPollWatch(l, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(EventRead, func(h *PollWatch, ev IOEvents) {
		got |= ev
		var buf [1]byte
		if _, err := unix.Read(h.FD(), buf[:]); err != nil {
			t.Errorf("read: %v", err)
		}
		_ = h.Stop()
		l.Close(h, nil)
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := unix.Write(w, []byte{'x'}); err != nil {
		t.Fatal(err)
	}

	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	if got&EventRead == 0 {
		t.Fatalf("events = %v, want read readiness", got)
	}
}

func TestPollWatch_WriteReadiness(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	a, _ := testSocketpair(t)

	var got IOEvents
	h, err := NewPollWatch(l, a)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(EventWrite, func(h *PollWatch, ev IOEvents) {
		got |= ev
		_ = h.Stop()
		l.Close(h, nil)
	}); err != nil {
		t.Fatal(err)
	}

	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	if got&EventWrite == 0 {
		t.Fatalf("events = %v, want write readiness", got)
	}
}

// Restart with a different mask goes through the backend's modify path.
func TestPollWatch_RestartChangesMask(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	a, _ := testSocketpair(t)

	var got IOEvents
	h, err := NewPollWatch(l, a)
	if err != nil {
		t.Fatal(err)
	}
	// Watch for read first; the socket is not readable, so nothing fires
	// until the mask is changed to write.
	cb := func(h *PollWatch, ev IOEvents) {
		got |= ev
		_ = h.Stop()
		l.Close(h, nil)
	}
	if err := h.Start(EventRead, cb); err != nil {
		t.Fatal(err)
	}
	if err := h.Start(EventWrite, cb); err != nil {
		t.Fatal(err)
	}

	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	if got&EventWrite == 0 {
		t.Fatalf("events = %v, want write readiness after mask change", got)
	}
}

func TestPollWatch_StopDiscardsAccumulated(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	r, _ := testPipe(t)

	h, err := NewPollWatch(l, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(EventRead, func(*PollWatch, IOEvents) {
		t.Error("callback ran after stop")
	}); err != nil {
		t.Fatal(err)
	}

	// Simulate readiness observed during a poll, then stop before dispatch.
	h.fired = EventRead
	l.makePending(h)
	if err := h.Stop(); err != nil {
		t.Fatal(err)
	}
	if h.fired != 0 {
		t.Error("stop did not discard accumulated events")
	}
	l.runPending()

	l.Close(h, nil)
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestPollWatch_Errors(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	if _, err := NewPollWatch(l, -1); err != ErrFDOutOfRange {
		t.Fatalf("NewPollWatch(-1): %v, want ErrFDOutOfRange", err)
	}

	r, _ := testPipe(t)
	h, err := NewPollWatch(l, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(EventRead, nil); err != ErrInvalidArgument {
		t.Fatalf("Start(nil cb): %v, want ErrInvalidArgument", err)
	}
	if err := h.Start(0, func(*PollWatch, IOEvents) {}); err != ErrInvalidArgument {
		t.Fatalf("Start(no events): %v, want ErrInvalidArgument", err)
	}

	l.Close(h, nil)
	if err := h.Start(EventRead, func(*PollWatch, IOEvents) {}); err != ErrHandleClosing {
		t.Fatalf("Start after Close: %v, want ErrHandleClosing", err)
	}
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
}
