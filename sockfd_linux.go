// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

func sysSocket(domain, typ, proto int) (int, error) {
	fd, err := unix.Socket(domain, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
	if err == nil {
		return fd, nil
	}
	// EINVAL means the kernel predates atomic socket flags.
	if err != unix.EINVAL {
		return -1, err
	}
	return socketFallback(domain, typ, proto)
}

func sysAccept(fd int) (int, unix.Sockaddr, error) {
	nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err == nil || err != unix.ENOSYS {
		return nfd, sa, err
	}
	return acceptFallback(fd)
}
