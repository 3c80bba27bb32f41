// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gogama/reqx/request"
	"github.com/gogama/reqx/transient"
)

// A Kind classifies a ResponseError. Plugins may define kinds of their
// own; the library only ever produces the kinds declared below.
type Kind string

const (
	// KindTimeout means the attempt timed out, either because its own
	// timer fired or because the caller's context deadline passed.
	KindTimeout Kind = "Timeout"
	// KindAborted means the attempt was aborted, either explicitly or
	// because the caller's context was cancelled.
	KindAborted Kind = "Aborted"
	// KindNetworkError means the transport failed to complete the
	// exchange, for example because the connection was refused.
	KindNetworkError Kind = "NetworkError"
	// KindBodyNull means the response was consumed as a stream but
	// carried no body.
	KindBodyNull Kind = "BodyNull"
	// KindDedupe means an identical request was already in flight.
	KindDedupe Kind = "Dedupe"
	// KindExceeded means a retry was requested after the attempt limit
	// had been reached.
	KindExceeded Kind = "Exceeded"
	// KindStatus means the response had a non-2XX status code.
	KindStatus Kind = "Status"
	// KindUnknown classifies any other failure, including arbitrary
	// errors returned from plugin handlers.
	KindUnknown Kind = "Unknown"
)

var (
	// ErrBodyUsed is returned when the body of an attempt is accessed
	// both as a buffered value and as a stream. An attempt's body can
	// only be consumed one way.
	ErrBodyUsed = errors.New("reqx: body already consumed")

	// ErrNotRetryable is returned by Attempt.Retry when the attempt has
	// not been rejected or aborted.
	ErrNotRetryable = errors.New("reqx: attempt is not rejected or aborted")

	errAborted = errors.New("reqx: attempt aborted")
	errTimeout = errors.New("reqx: attempt timed out")
)

// A ResponseError is the error an attempt fails with. Every error
// entering the OnError chain is first normalized into a ResponseError;
// handlers may replace it with an error of any type.
type ResponseError struct {
	// Kind classifies the failure.
	Kind Kind

	// Message is an optional human readable description.
	Message string

	// StatusCode and Status are copied from Response, if there is one.
	StatusCode int
	Status     string

	// Config is the configuration of the failed attempt.
	Config *request.Config

	// Response is the response received before the failure, if any.
	Response *request.Response

	// Err is the underlying error, if any.
	Err error
}

func (e *ResponseError) Error() string {
	var b strings.Builder
	b.WriteString("reqx: ")
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ResponseError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the error is a timeout. It lets callers and
// the transient package recognize timeouts without knowing about Kind.
func (e *ResponseError) Timeout() bool {
	return e.Kind == KindTimeout
}

// KindOf returns the Kind of the first ResponseError in err's chain.
// It returns KindUnknown if there is none, and the empty Kind if err
// is nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var re *ResponseError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// IsKind reports whether KindOf(err) is kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// normalize converts err into a ResponseError. The attempt context's
// cancellation cause takes precedence over the shape of err, since a
// transport interrupted by cancellation reports all manner of errors.
func normalize(ctx context.Context, err error, c *request.Config, r *request.Response) *ResponseError {
	if re, ok := err.(*ResponseError); ok {
		if re.Config == nil {
			re.Config = c
		}
		return re
	}

	re := &ResponseError{
		Kind:     KindUnknown,
		Config:   c,
		Response: r,
		Err:      err,
	}
	if r != nil {
		re.StatusCode = r.StatusCode
		re.Status = r.Status
	}

	if cause := context.Cause(ctx); cause != nil {
		if errors.Is(cause, errTimeout) || errors.Is(cause, context.DeadlineExceeded) {
			re.Kind = KindTimeout
		} else {
			re.Kind = KindAborted
		}
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || err == cause {
			re.Err = cause
		}
		return re
	}

	if transient.Categorize(err) == transient.Timeout {
		re.Kind = KindTimeout
	} else if transient.IsNetwork(err) {
		re.Kind = KindNetworkError
	}
	return re
}

func statusError(c *request.Config, r *request.Response) *ResponseError {
	status := r.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
	}
	return &ResponseError{
		Kind:       KindStatus,
		Message:    "unexpected status " + status,
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Config:     c,
		Response:   r,
	}
}
