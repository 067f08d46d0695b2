//go:build linux || darwin

package reactor

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/stumpy"
)

func TestLoop_RunEmptyReturnsImmediately(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	done := make(chan error, 1)
	go func() { done <- l.Run() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on an empty loop")
	}

	if l.hasWork() {
		t.Error("empty loop reports work")
	}
}

func TestLoop_RunOnceEmpty(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	if l.RunOnce() {
		t.Error("RunOnce on an empty loop reported more work")
	}
}

// The cached clock is stable between updates: repeated reads within one
// cycle observe the identical instant.
func TestLoop_NowStableUntilUpdate(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	before := l.Now()
	time.Sleep(2 * time.Millisecond)
	if !l.Now().Equal(before) {
		t.Error("Now advanced without UpdateTime")
	}

	l.UpdateTime()
	if !l.Now().After(before) {
		t.Error("Now did not advance after UpdateTime")
	}
}

func TestLoop_DefaultSingleton(t *testing.T) {
	a, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	b, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("Default returned distinct loops")
	}
}

// A bare in-flight request, with no active handles, still keeps the loop
// running until its completion is delivered.
func TestLoop_BareRequestKeepsLoopAlive(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	var completed atomic.Bool
	l.reqRegister()
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.postCompletion(func() {
			completed.Store(true)
			l.reqUnregister()
		})
	}()

	done := make(chan error, 1)
	go func() { done <- l.Run() }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the request completed")
	}

	if !completed.Load() {
		t.Error("completion did not run before Run returned")
	}
	if l.activeRequests != 0 {
		t.Errorf("activeRequests = %d, want 0", l.activeRequests)
	}
}

func TestLoop_WakeupCoalesces(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	l.wakeup()
	l.wakeup()
	l.wakeup()
	if got := l.wakePending.Load(); got != 1 {
		t.Fatalf("wakePending = %d, want 1", got)
	}

	l.onWake()
	if got := l.wakePending.Load(); got != 0 {
		t.Fatalf("wakePending after drain = %d, want 0", got)
	}
}

func TestLoop_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
	).Logger()

	l, err := New(WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	if l.logger == nil {
		t.Fatal("logger not wired")
	}
	l.logger.Info().Str("component", "loop").Log("logger attached")
	if !strings.Contains(buf.String(), "logger attached") {
		t.Errorf("log output missing record: %q", buf.String())
	}
}

// The nil logger is fully inert: every log site must tolerate it.
func TestLoop_NilLoggerSafe(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Shutdown() }()

	if l.logger != nil {
		t.Fatal("expected nil logger by default")
	}
	l.logger.Debug().Err(nil).Log("must not panic")
}

func TestLoop_ShutdownReleasesWakeFd(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if l.wakeFd < 0 {
		t.Fatal("wake fd not created")
	}
	if err := l.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if l.wakeFd != -1 || l.wakeWriteFd != -1 {
		t.Error("wake fds not cleared")
	}
}
