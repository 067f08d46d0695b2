// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"errors"
	"net"
)

// AddrInfoRequest is a short-lived name-resolution request. Resolution
// executes off the loop goroutine; the completion callback is routed back
// through the loop's wake mechanism and runs on the loop goroutine during
// a poll. While in flight the request counts toward the loop's active
// work, so [Loop.Run] does not return before the completion is delivered.
type AddrInfoRequest struct {
	loop     *Loop
	cb       func(*AddrInfoRequest, []net.IPAddr, error)
	Hostname string
	Service  string
	// Port is the resolved service port, set before the completion
	// callback runs when Service was non-empty.
	Port int
}

// GetAddrInfo starts resolution of hostname (and optionally a service
// name, resolved to a port). At least one of hostname and service must be
// non-empty and cb must be non-nil, otherwise [ErrInvalidArgument] is
// returned and no request is started.
//
// The callback receives the resolved addresses or an error; a resolver
// "no such host" failure is mapped to [ErrNoSuchHost], anything else
// passes through unchanged.
func (l *Loop) GetAddrInfo(hostname, service string, cb func(*AddrInfoRequest, []net.IPAddr, error)) (*AddrInfoRequest, error) {
	if cb == nil || (hostname == "" && service == "") {
		return nil, ErrInvalidArgument
	}

	req := &AddrInfoRequest{
		loop:     l,
		cb:       cb,
		Hostname: hostname,
		Service:  service,
	}
	l.reqRegister()

	go func() {
		addrs, port, err := resolveAddrInfo(hostname, service)
		l.postCompletion(func() {
			l.reqUnregister()
			req.Port = port
			if err != nil {
				l.logger.Debug().
					Err(err).
					Str("hostname", hostname).
					Log("resolution failed")
			}
			req.cb(req, addrs, mapResolverError(err))
		})
	}()

	return req, nil
}

func resolveAddrInfo(hostname, service string) ([]net.IPAddr, int, error) {
	var (
		addrs []net.IPAddr
		port  int
		err   error
	)
	if hostname != "" {
		addrs, err = net.DefaultResolver.LookupIPAddr(context.Background(), hostname)
		if err != nil {
			return nil, 0, err
		}
	}
	if service != "" {
		port, err = net.DefaultResolver.LookupPort(context.Background(), "tcp", service)
		if err != nil {
			return nil, 0, err
		}
	}
	return addrs, port, nil
}

// mapResolverError maps the resolver's native error space into this
// package's: a not-found failure becomes the distinguished
// [ErrNoSuchHost]; anything else passes through raw.
func mapResolverError(err error) error {
	if err == nil {
		return nil
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return ErrNoSuchHost
	}
	return err
}
