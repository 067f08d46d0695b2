// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package reactor implements the core of an asynchronous I/O runtime: a
// single-goroutine event loop that multiplexes I/O readiness, timers, and
// cross-goroutine wakeups into one phased dispatch cycle, plus a
// cross-goroutine single-assignment result handoff primitive ([Promise]).
//
// # Architecture
//
// A [Loop] owns a set of long-lived handles ([Idle], [Prepare], [Check],
// [Timer], [Async], [PollWatch]) and short-lived requests
// ([AddrInfoRequest]). One cycle of the loop runs, in strict order:
//
//  1. Idle hooks (every cycle, unconditionally)
//  2. Pending drain: the entire pending queue is detached and each handle
//     is either finalized (if closing) or dispatched; handles enqueued
//     during the drain land in the next cycle
//  3. Work gate: prepare/poll/check run only while at least one active
//     handle or request remains
//  4. Prepare hooks
//  5. Backend poll (blocking only when no idle hooks are started and at
//     least one handle is active)
//  6. Check hooks
//
// [Loop.Run] repeats cycles until no active handle, active request, or
// pending dispatch remains. [Loop.RunOnce] executes exactly one cycle.
//
// # Thread Safety
//
// The loop is single-goroutine cooperative: one goroutine drives
// [Loop.Run] or [Loop.RunOnce], and all handle operations must happen on
// that goroutine. The only cross-goroutine entry points are [Async.Send]
// and the [Promise] primitive, which is loop-agnostic and safe for one
// producer and any number of consumers.
//
// # Platform Support
//
// The backend poller is pluggable (see [Poller] and [WithPoller]); the
// built-in backends use epoll on Linux and kqueue on Darwin, with an
// eventfd or self-pipe wake mechanism respectively.
package reactor
