// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "errors"

// Standard errors.
var (
	// ErrPromiseSettled is returned by [Promise.Fulfil] and [Promise.Break]
	// when the promise has already reached a terminal state.
	ErrPromiseSettled = errors.New("reactor: promise already settled")

	// ErrNoSuchHost is the distinguished resolution failure reported when
	// the resolver finds no records for the requested name.
	ErrNoSuchHost = errors.New("reactor: no such host")

	// ErrInvalidArgument is returned when a request or handle operation is
	// given arguments it cannot act on (e.g. a resolution request with
	// neither hostname nor service).
	ErrInvalidArgument = errors.New("reactor: invalid argument")

	// ErrTimerNotStarted is returned by [Timer.Again] when the timer was
	// never started with a repeat interval.
	ErrTimerNotStarted = errors.New("reactor: timer has no repeat to rearm")

	// ErrHandleClosing is returned when an operation is attempted on a
	// handle whose close has already been requested.
	ErrHandleClosing = errors.New("reactor: handle is closing")

	// ErrFDOutOfRange is returned when a file descriptor is negative or
	// exceeds the poller's supported range.
	ErrFDOutOfRange = errors.New("reactor: fd out of range")

	// ErrFDAlreadyRegistered is returned when registering a file descriptor
	// that is already being monitored.
	ErrFDAlreadyRegistered = errors.New("reactor: fd already registered")

	// ErrFDNotRegistered is returned when modifying or removing a file
	// descriptor that is not being monitored.
	ErrFDNotRegistered = errors.New("reactor: fd not registered")

	// ErrPollerClosed is returned when operations are attempted on a closed
	// poller.
	ErrPollerClosed = errors.New("reactor: poller closed")
)

// internalError panics with a consistency-violation message. Reaching one of
// these indicates corrupted handle or loop state, not a recoverable runtime
// condition, so the process must not continue.
func internalError(msg string) {
	panic("reactor: internal error: " + msg)
}
