// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"golang.org/x/sys/unix"
)

// Socket/fd helpers: thin syscall wrappers with no state of their own,
// used to hand descriptors to [PollWatch] in the mode the loop expects
// (non-blocking, close-on-exec).

// Socket opens a socket in non-blocking close-on-exec mode, atomically
// where the kernel supports it, falling back to setting the flags after
// creation.
func Socket(domain, typ, proto int) (int, error) {
	return sysSocket(domain, typ, proto)
}

func socketFallback(domain, typ, proto int) (int, error) {
	fd, err := unix.Socket(domain, typ, proto)
	if err != nil {
		return -1, err
	}
	if err := SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	if err := SetCloexec(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// Accept accepts a connection on fd, retrying on EINTR. The accepted
// descriptor is returned non-blocking and close-on-exec.
func Accept(fd int) (int, unix.Sockaddr, error) {
	for {
		nfd, sa, err := sysAccept(fd)
		if err == unix.EINTR {
			continue
		}
		return nfd, sa, err
	}
}

func acceptFallback(fd int) (int, unix.Sockaddr, error) {
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return -1, nil, err
	}
	if err := SetCloexec(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return -1, nil, err
	}
	if err := SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return -1, nil, err
	}
	return nfd, sa, nil
}

// SetNonblock sets or clears a descriptor's non-blocking flag.
func SetNonblock(fd int, set bool) error {
	return unix.SetNonblock(fd, set)
}

// SetCloexec sets or clears a descriptor's close-on-exec flag. FD_CLOEXEC
// is the only descriptor flag, so the read-modify-write dance is
// unnecessary.
func SetCloexec(fd int, set bool) error {
	flag := 0
	if set {
		flag = unix.FD_CLOEXEC
	}
	_, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, flag)
	return err
}

// DupCloexec duplicates fd with close-on-exec set on the duplicate. There
// is a window between dup and fcntl in which the descriptor is inherited
// by a concurrent exec.
func DupCloexec(fd int) (int, error) {
	nfd, err := unix.Dup(fd)
	if err != nil {
		return -1, err
	}
	if err := SetCloexec(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}
