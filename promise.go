// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "sync"

// PromiseStatus is the lifecycle state of a [Promise]. A promise starts
// [PromisePending] and transitions at most once, to exactly one of the
// terminal states; terminal states are absorbing.
type PromiseStatus int32

const (
	// PromisePending indicates no terminal transition has occurred yet.
	PromisePending PromiseStatus = iota
	// PromiseFulfilled indicates the producer published a value.
	PromiseFulfilled
	// PromiseBroken indicates the producer published an error code.
	PromiseBroken
	// PromiseCancelled indicates the promise was destroyed while still
	// pending.
	PromiseCancelled
)

// String returns a human-readable representation of the status.
func (s PromiseStatus) String() string {
	switch s {
	case PromisePending:
		return "pending"
	case PromiseFulfilled:
		return "fulfilled"
	case PromiseBroken:
		return "broken"
	case PromiseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// PromiseResult is a snapshot of a promise's observable state. Value is
// meaningful only when Status is [PromiseFulfilled]; Code only when Status
// is [PromiseBroken].
type PromiseResult struct {
	Value  any
	Code   int
	Status PromiseStatus
}

// Promise is a cross-goroutine single-assignment future: one producer
// publishes a value ([Promise.Fulfil]) or an error code ([Promise.Break])
// exactly once, and any number of consumers retrieve it, blocking
// ([Promise.Get]) or polling ([Promise.TryWait]). It is loop-agnostic: a
// common pattern is a loop-driven callback acting as producer while an
// unrelated goroutine blocks in Get.
//
// All synchronization is one mutex and one condition variable; every
// operation except Get is lock-bounded and returns promptly.
type Promise struct {
	mu      sync.Mutex
	cond    *sync.Cond
	value   any
	code    int
	waiting int
	status  PromiseStatus
}

// NewPromise creates a pending promise.
func NewPromise() *Promise {
	p := &Promise{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Fulfil publishes a success value. The first terminal transition wins:
// if the promise is no longer pending, Fulfil changes nothing and returns
// [ErrPromiseSettled]. All goroutines blocked in [Promise.Get] are woken.
func (p *Promise) Fulfil(value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != PromisePending {
		return ErrPromiseSettled
	}
	p.status = PromiseFulfilled
	p.value = value
	if p.waiting > 0 {
		p.cond.Broadcast()
	}
	return nil
}

// Break publishes a failure code. Symmetric to [Promise.Fulfil]: only
// legal while pending, otherwise [ErrPromiseSettled] with no change.
func (p *Promise) Break(code int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != PromisePending {
		return ErrPromiseSettled
	}
	p.status = PromiseBroken
	p.code = code
	if p.waiting > 0 {
		p.cond.Broadcast()
	}
	return nil
}

// Get blocks until the promise reaches a terminal state and returns the
// snapshot. There is no timeout and no cancellation: the calling goroutine
// is committed until a terminal transition occurs, including the one
// forced by [Promise.Destroy]. Callers needing a bounded wait must build
// it externally, e.g. by pairing with a timer that calls Break.
func (p *Promise) Get() PromiseResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.waiting++
	for p.status == PromisePending {
		p.cond.Wait()
	}
	p.waiting--

	return PromiseResult{Status: p.status, Code: p.code, Value: p.value}
}

// TryWait returns a snapshot without ever blocking.
//
// CONTRACT WARNING: if the promise's lock is held by any other operation
// at the instant of the call, TryWait returns a [PromisePending] snapshot
// by definition, a deliberately conservative "inconclusive" result rather
// than a true reading of promise state. A pending result from TryWait
// does NOT mean the promise is pending; only a terminal result, or a
// snapshot from [Promise.Get], is authoritative. Test code in particular
// must not assert on a pending TryWait result under concurrency.
func (p *Promise) TryWait() PromiseResult {
	if !p.mu.TryLock() {
		return PromiseResult{Status: PromisePending}
	}
	rs := PromiseResult{Status: p.status, Code: p.code, Value: p.value}
	p.mu.Unlock()
	return rs
}

// Destroy terminates the promise's lifetime. If still pending it is
// forced to [PromiseCancelled] and every goroutine blocked in
// [Promise.Get] is woken, so no consumer can block forever past
// destruction.
//
// Caller discipline: no goroutine may begin a Get or TryWait call after
// Destroy starts, and Destroy must not be invoked concurrently with
// itself. The wake happens under the lock, which is what makes a Destroy
// racing an in-flight Get safe; nothing protects calls that start later.
func (p *Promise) Destroy() {
	p.mu.Lock()
	if p.status == PromisePending {
		p.status = PromiseCancelled
	}
	if p.waiting > 0 {
		p.cond.Broadcast()
	}
	p.mu.Unlock()
}
