// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/reqx/transient"
	"github.com/google/uuid"
)

// An Execution represents the state of a single attempt at executing a
// Config. It is the context object handed to every stage handler.
//
// When an attempt is created, an Execution is created for it. The
// Execution is updated as the attempt progresses (for example when the
// response becomes available, or when the attempt fails) and is handed
// to each plugin stage handler in turn.
//
// Plugins may store arbitrary data on an Execution using SetValue and
// read it back using Value. They should treat the exported fields as
// read-only, because the attempt's control logic depends on them; the
// sanctioned way to change the request or response is to return a new
// value from the relevant stage handler.
type Execution struct {
	// Config is the request configuration of the attempt. Before and
	// during the BeforeRequest stage it is the merged configuration
	// handed in by the caller; afterwards it is the configuration
	// produced by the final BeforeRequest handler.
	Config *Config

	// ID uniquely identifies the attempt.
	ID string

	// Lineage identifies the logical request. A retry attempt has its
	// own ID but inherits the Lineage of the attempt it retries.
	Lineage string

	// Attempt is the zero-based index of the attempt within its
	// lineage. It is zero on the initial attempt, one on the first
	// retry, and so on.
	Attempt int

	// Timeouts is the number of earlier attempts in the lineage which
	// ended because they timed out.
	Timeouts int

	// Previous is the execution of the attempt this attempt retries,
	// or nil for the initial attempt of a lineage.
	Previous *Execution

	// Start is the time the attempt started. It is assigned a non-zero
	// value when dispatch begins and remains constant thereafter.
	Start time.Time

	// End is the time the attempt settled. It contains the zero value
	// until the attempt settles.
	End time.Time

	// Response is the response received by the attempt, if any. For a
	// buffered attempt it reflects the output of the AfterResponse
	// stage once that stage has run.
	Response *Response

	// Err is the error the attempt failed with. While the OnError stage
	// is running it holds the normalized error the chain started with;
	// once the attempt settles it holds the final error, or nil.
	Err error

	ctx  context.Context
	data context.Context
}

// NewExecution returns the Execution for a new attempt. A fresh ID is
// generated; if lineage is empty the ID doubles as the lineage.
func NewExecution(ctx context.Context, cfg *Config, attempt int, lineage string, timeouts int) *Execution {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	id := uuid.NewString()
	if lineage == "" {
		lineage = id
	}
	return &Execution{
		Config:   cfg,
		ID:       id,
		Lineage:  lineage,
		Attempt:  attempt,
		Timeouts: timeouts,
		ctx:      ctx,
	}
}

// Context returns the attempt's context. It is cancelled when the
// attempt is aborted or times out, and after it settles.
//
// The returned context is always non-nil; it defaults to the
// background context.
func (e *Execution) Context() context.Context {
	if e.ctx != nil {
		return e.ctx
	}
	return context.Background()
}

// StatusCode returns the status code of the attempt's response. If
// there is no response, 0 is returned.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the headers of the attempt's response. If there is no
// response, the nil header is returned.
//
// Note that a nil return value is always safe for read-only operations,
// since http.Header is a map type.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the attempt.
//
// If the attempt has not yet started, the duration is zero. If it has
// ended, the duration returned is equal to End minus Start. Otherwise,
// it is equal to the current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the attempt has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the attempt has settled. Once it returns
// true there will be no further changes to the execution.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout indicates whether Err currently contains a non-nil value
// which indicates a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue allows plugins to store arbitrary data in the execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue, namely it:
//
// • it may not be nil;
//
// • it must be comparable;
//
// • it should not be of type string or any other built-in type to avoid
// collisions between different plugins putting data into the same
// execution.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
