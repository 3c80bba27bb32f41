// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"context"

	"github.com/gogama/reqx/request"
)

// An Outcome is a deferred result which an OnError handler hands back
// to make a failed attempt settle some other way. Result blocks until
// the outcome is known.
//
// *Attempt implements Outcome, so a handler may return a new attempt,
// typically one obtained from RetryContext.Retry.
type Outcome interface {
	Result() (*request.Response, error)
}

// The OutcomeFunc type is an adapter to allow the use of ordinary
// functions as outcomes.
type OutcomeFunc func() (*request.Response, error)

// Result calls f().
func (f OutcomeFunc) Result() (*request.Response, error) {
	return f()
}

type settled struct {
	resp *request.Response
	err  error
}

func (s settled) Result() (*request.Response, error) {
	return s.resp, s.err
}

// A RetryContext is handed to every OnError handler. It describes where
// the failed attempt sits within its lineage and lets the handler
// replace the attempt's outcome.
type RetryContext struct {
	// Attempt is the zero-based index of the failed attempt. It is zero
	// for the failure of the initial attempt.
	Attempt int

	// MaxAttempts is the attempt limit of the lineage, including the
	// initial attempt.
	MaxAttempts int

	attempt *Attempt
	err     error
}

// Err returns the error as it stands at the current OnError handler,
// after any replacements made by the handlers before it.
func (rc *RetryContext) Err() error {
	return rc.err
}

// Retry spawns a new attempt which executes the same Config as the
// failed attempt, after applying overrides to a copy of it. The new
// attempt shares the failed attempt's plugins, lineage, and context,
// and is dispatched when the returned Outcome is first awaited.
//
// If the lineage has reached MaxAttempts, no attempt is spawned and the
// returned Outcome fails with a KindExceeded ResponseError wrapping Err.
func (rc *RetryContext) Retry(overrides ...func(*request.Config)) Outcome {
	a := rc.attempt
	if rc.Attempt+1 >= rc.MaxAttempts {
		return settled{err: a.exceeded(rc.err)}
	}
	return a.spawn(a.life, overrides)
}

// Context returns a context which lives as long as the failed attempt
// is unsettled. Unlike the attempt's own context, it is not cancelled
// when the attempt times out, so a handler can wait on it, for example
// before retrying, and still observe an abort.
func (rc *RetryContext) Context() context.Context {
	if rc.attempt == nil {
		return context.Background()
	}
	return rc.attempt.life
}

// Resolve returns an Outcome which makes the failed attempt succeed
// with r.
func (rc *RetryContext) Resolve(r *request.Response) Outcome {
	return settled{resp: r}
}

// Reject returns an Outcome which makes the failed attempt fail with
// err, bypassing the rest of the OnError chain.
func (rc *RetryContext) Reject(err error) Outcome {
	if err == nil {
		panic("reqx: nil error")
	}
	return settled{err: err}
}
