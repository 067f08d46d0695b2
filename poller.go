// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

// IOEvents is the bitset of I/O readiness conditions.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// IOCallback is invoked by the poller, on the loop goroutine, with the
// readiness bits observed for a registered descriptor.
type IOCallback func(IOEvents)

// Poller is the backend readiness multiplexer the loop polls once per
// cycle. Implementations are driven from the loop goroutine only.
//
// Poll with a timeout of 0 must never block; -1 blocks until an event; a
// positive value is a bound in milliseconds. Interrupted waits (EINTR) are
// swallowed, not reported. Dispatch invokes registered callbacks inline
// before Poll returns.
type Poller interface {
	Init() error
	Register(fd int, events IOEvents, cb IOCallback) error
	Modify(fd int, events IOEvents) error
	Unregister(fd int) error
	Poll(timeoutMs int) (n int, err error)
	Close() error
}

// fdInfo stores per-descriptor registration state.
type fdInfo struct {
	callback IOCallback
	events   IOEvents
	active   bool
}

// maxFDLimit is the largest descriptor value supported by the built-in
// backends' direct-indexed registration tables.
const maxFDLimit = 1 << 24

// initialFDs is the registration table's starting size.
const initialFDs = 1024

// growFDs returns a registration table large enough for fd, growing in
// doubling steps to bound reallocation.
func growFDs(fds []fdInfo, fd int) []fdInfo {
	if fd < len(fds) {
		return fds
	}
	newSize := fd*2 + 1
	if newSize > maxFDLimit {
		newSize = maxFDLimit + 1
	}
	grown := make([]fdInfo, newSize)
	copy(grown, fds)
	return grown
}
