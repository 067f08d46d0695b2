// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Loop is the single-goroutine reactor. It owns all handles and in-flight
// requests for one logical run context and drives the per-cycle phases.
//
// The loop is single-goroutine cooperative: no internal locking protects
// handle or queue state, so concurrent invocation of loop operations from
// multiple goroutines is undefined. The cross-goroutine entry points are
// [Async.Send] and the completion routing used by requests, both of which
// funnel through the loop's wake descriptor.
type Loop struct {
	// Prevent copying
	_ [0]func()

	poller Poller
	logger *logiface.Logger[logiface.Event]

	pending pendingQueue

	// Started phase hooks, in registration order.
	idleHandles    []*Idle
	prepareHandles []*Prepare
	checkHandles   []*Check

	// Scratch buffers so hooks may stop themselves mid-phase without
	// invalidating the iteration.
	idleScratch    []*Idle
	prepareScratch []*Prepare
	checkScratch   []*Check

	// Initialized async handles, scanned on wakeup.
	asyncHandles []*Async

	timers   timerHeap
	timerSeq uint64

	// Monotonic clock: anchor is fixed at creation, nowOffset advances at
	// poll exit (and via UpdateTime). Time-based decisions within a cycle
	// use this cached value, never a fresh clock read.
	anchor    time.Time
	nowOffset time.Duration

	// Work accounting. The loop keeps running while any of these, or the
	// pending queue, is non-zero.
	activeHandles  int
	activeRequests int

	// pollHolds marks the loop busy for the duration of a backend poll so
	// nothing sampling the loop mid-poll observes a transient idle state.
	pollHolds int

	// handleCount tracks registered (not yet finalized) handles.
	handleCount int

	// Wake mechanism: eventfd on Linux, self-pipe on Darwin.
	wakeFd      int
	wakeWriteFd int
	wakeBuf     [8]byte
	wakePending atomic.Uint32

	// Cross-goroutine completion routing (request results computed off the
	// loop goroutine).
	completionsMu     sync.Mutex
	completions       []func()
	completionScratch []func()
}

// New creates a loop with its platform backend poller and wake descriptor.
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		poller:      cfg.poller,
		logger:      cfg.logger,
		pending:     newPendingQueue(),
		anchor:      time.Now(),
		wakeFd:      -1,
		wakeWriteFd: -1,
	}
	if l.poller == nil {
		l.poller = newPlatformPoller()
	}

	if err := l.poller.Init(); err != nil {
		return nil, err
	}

	wakeFd, wakeWriteFd, err := createWakeFd()
	if err != nil {
		_ = l.poller.Close()
		return nil, err
	}
	l.wakeFd = wakeFd
	l.wakeWriteFd = wakeWriteFd

	if err := l.poller.Register(wakeFd, EventRead, func(IOEvents) {
		l.onWake()
	}); err != nil {
		_ = l.poller.Close()
		closeWakeFd(wakeFd, wakeWriteFd)
		return nil, err
	}

	return l, nil
}

var (
	defaultLoopOnce sync.Once
	defaultLoop     *Loop
	defaultLoopErr  error
)

// Default returns the process-wide default loop, constructing it on first
// call. The default instance is shared: it is a convenience for programs
// with a single run context, and tests should construct their own loops
// with [New] instead.
func Default() (*Loop, error) {
	defaultLoopOnce.Do(func() {
		defaultLoop, defaultLoopErr = New()
	})
	return defaultLoop, defaultLoopErr
}

// Run drives cycles until the loop has neither active handles nor active
// requests nor pending dispatches, then returns. It may be called again on
// the same loop after returning, as long as only one goroutine ever drives
// the loop.
func (l *Loop) Run() error {
	for l.cycle() {
	}
	return nil
}

// RunOnce executes exactly one cycle, regardless of remaining work, and
// reports whether more work may exist. Used for manual pump-style
// integration.
func (l *Loop) RunOnce() bool {
	return l.cycle()
}

// cycle is one full reactor cycle: idle, pending drain, work gate,
// prepare, poll, check, in strict order.
func (l *Loop) cycle() bool {
	l.runIdle()
	l.runPending()

	if l.activeHandles > 0 || l.activeRequests > 0 {
		l.runPrepare()
		l.poll(l.shouldBlock())
		l.runCheck()
	}

	return l.hasWork()
}

// hasWork reports whether the loop has any remaining reason to continue
// running.
func (l *Loop) hasWork() bool {
	return l.pending.length() > 0 ||
		l.activeHandles > 0 ||
		l.activeRequests > 0 ||
		l.pollHolds > 0
}

// shouldBlock decides whether the backend poll may sleep: don't block if an
// idle hook is waiting to run every tick, and don't sleep either when no
// handle is active (a bare request completes via a non-blocking poll, as
// its completion is consumed during the poll dispatch).
func (l *Loop) shouldBlock() bool {
	return len(l.idleHandles) == 0 && l.activeHandles > 0
}

// UpdateTime advances the loop's cached monotonic clock. The loop does this
// at poll exit; manual pumps may call it before scheduling timers.
func (l *Loop) UpdateTime() {
	l.nowOffset = time.Since(l.anchor)
}

// Now returns the loop's cached monotonic time. The value only advances at
// poll exit or via [Loop.UpdateTime], so repeated reads within one cycle
// are stable.
func (l *Loop) Now() time.Time {
	return l.anchor.Add(l.nowOffset)
}

// pollHold marks the loop busy around a backend poll. The returned release
// runs on every exit path and is idempotent.
func (l *Loop) pollHold() func() {
	l.pollHolds++
	released := false
	return func() {
		if !released {
			released = true
			l.pollHolds--
		}
	}
}

// poll asks the backend to wait for readiness, then expires due timers.
func (l *Loop) poll(block bool) {
	release := l.pollHold()
	defer release()

	timeout := 0
	if block {
		timeout = l.pollTimeout()
	}

	if _, err := l.poller.Poll(timeout); err != nil {
		l.logger.Err().Err(err).Log("backend poll failed")
		internalError("backend poll failed: " + err.Error())
	}

	l.UpdateTime()
	l.expireTimers()
}

// maxPollDelay caps blocking polls so a loop with distant timers still
// revisits its cycle periodically.
const maxPollDelay = 10 * time.Second

// pollTimeout computes the blocking poll timeout in milliseconds from the
// timer heap, against the cached clock.
func (l *Loop) pollTimeout() int {
	delay := maxPollDelay

	if len(l.timers) > 0 {
		d := l.timers[0].due.Sub(l.Now())
		if d < 0 {
			d = 0
		}
		if d < delay {
			delay = d
		}
	}

	// Round sub-millisecond delays up so a due-soon timer is not spun on.
	if delay > 0 && delay < time.Millisecond {
		return 1
	}
	return int(delay.Milliseconds())
}

// wakeup makes the next backend poll return promptly. Safe from any
// goroutine; writes are deduplicated until the loop drains the descriptor.
func (l *Loop) wakeup() {
	if !l.wakePending.CompareAndSwap(0, 1) {
		return
	}
	// Any non-zero 8-byte counter works for eventfd; the pipe backend
	// only cares that a byte lands.
	var buf [8]byte
	buf[0] = 1
	if _, err := writeFD(l.wakeWriteFd, buf[:]); err != nil {
		// The write end can fail if the loop is being torn down; the
		// completion (if any) is already queued and will be observed by
		// the next drain.
		l.wakePending.Store(0)
		l.logger.Debug().Err(err).Log("wake write failed")
	}
}

// onWake runs on the loop goroutine during poll dispatch when the wake
// descriptor becomes readable. It drains the descriptor, flushes queued
// cross-goroutine completions, and collects signaled async handles.
func (l *Loop) onWake() {
	for {
		if _, err := readFD(l.wakeFd, l.wakeBuf[:]); err != nil {
			break
		}
	}
	l.wakePending.Store(0)

	l.runCompletions()

	for _, h := range l.asyncHandles {
		if h.signal.CompareAndSwap(1, 0) {
			l.makePending(h)
		}
	}
}

// postCompletion queues fn to run on the loop goroutine and wakes the loop.
// Safe from any goroutine.
func (l *Loop) postCompletion(fn func()) {
	l.completionsMu.Lock()
	l.completions = append(l.completions, fn)
	l.completionsMu.Unlock()
	l.wakeup()
}

func (l *Loop) runCompletions() {
	l.completionsMu.Lock()
	if len(l.completions) == 0 {
		l.completionsMu.Unlock()
		return
	}
	fns := l.completions
	l.completions = l.completionScratch[:0]
	l.completionScratch = fns[:0]
	l.completionsMu.Unlock()

	for i, fn := range fns {
		fn()
		fns[i] = nil
	}
}

// reqRegister counts an in-flight request toward the loop's work.
func (l *Loop) reqRegister() {
	l.activeRequests++
}

// reqUnregister drops a completed request from the loop's work accounting.
func (l *Loop) reqUnregister() {
	l.activeRequests--
	if l.activeRequests < 0 {
		internalError("negative active request count")
	}
}

// Shutdown releases the loop's backend poller and wake descriptor. It must
// only be called once [Loop.Run] has returned (or before the loop was ever
// driven); handles must already be closed and finalized.
func (l *Loop) Shutdown() error {
	err := l.poller.Close()
	if l.wakeFd >= 0 {
		closeWakeFd(l.wakeFd, l.wakeWriteFd)
		l.wakeFd = -1
		l.wakeWriteFd = -1
	}
	return err
}
