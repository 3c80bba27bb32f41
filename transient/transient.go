// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// A Category is the transience category of an error, as reported by
// Categorize.
//
// The category Not means a retry after the error is very unlikely to
// succeed. Every other category means a retry has some prospect of
// success.
type Category int

const (
	// Not indicates a nil error or any non-transient error.
	Not Category = iota
	// Timeout indicates a client-side timeout. The error or one of its
	// wrapped causes has a Timeout method reporting true.
	Timeout
	// ConnRefused indicates the remote host refused the connection
	// (syscall.ECONNREFUSED). The remote service may be restarting.
	ConnRefused
	// ConnReset indicates the remote host reset a previously active
	// connection (syscall.ECONNRESET), typically because the service
	// or a load balancer in front of it went away mid-response.
	ConnReset
	// ConnClosed indicates the connection closed before the response
	// was complete: an unexpected EOF, a broken pipe, or an aborted
	// connection.
	ConnClosed
)

var categoryNames = []string{
	"Not",
	"Timeout",
	"ConnRefused",
	"ConnReset",
	"ConnClosed",
}

// String returns the name of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Unknown"
	}
	return categoryNames[c]
}

// Categorize returns the transience category of err. In assessing
// transience, Categorize looks at wrapped cause errors, not just err
// itself. It never consults a Temporary method, as the semantics of
// Temporary are unclear.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var t hasTimeout
	if errors.As(err, &t) && t.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET:
			return ConnReset
		case syscall.ECONNREFUSED:
			return ConnRefused
		case syscall.ECONNABORTED, syscall.EPIPE:
			return ConnClosed
		}
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ConnClosed
	}

	return Not
}

// IsNetwork reports whether err originates below the HTTP layer: it is
// transient, or it wraps a net.Error or a net.OpError.
func IsNetwork(err error) bool {
	if Categorize(err) != Not {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

type hasTimeout interface {
	Timeout() bool
}
