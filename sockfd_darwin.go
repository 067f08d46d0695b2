// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package reactor

import (
	"golang.org/x/sys/unix"
)

func sysSocket(domain, typ, proto int) (int, error) {
	return socketFallback(domain, typ, proto)
}

func sysAccept(fd int) (int, unix.Sockaddr, error) {
	return acceptFallback(fd)
}
