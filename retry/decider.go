// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"errors"
	"slices"
	"time"

	"github.com/gogama/reqx"
	"github.com/gogama/reqx/request"
	"github.com/gogama/reqx/transient"
)

// A Decider decides if a failed attempt should be retried.
//
// Decide receives the execution of the failed attempt and the error as
// it stands when the retry plugin's OnError handler runs. The error is
// e.Err unless an OnError handler ordered before the retry plugin
// replaced it, in which case it is the replacement, so a handler can
// veto a retry by reclassifying the failure.
//
// Implementations of Decider must be safe for concurrent use by
// multiple goroutines.
type Decider interface {
	Decide(e *request.Execution, err error) bool
}

// The DeciderFunc type is an adapter to allow the use of ordinary
// functions as retry deciders. DeciderFunc values compose with And, Or,
// and Not, so most deciders are built by combining the constructors in
// this package:
//
//	retry.Times(3).And(retry.Kinds(reqx.KindNetworkError, reqx.KindTimeout))
type DeciderFunc func(e *request.Execution, err error) bool

// DefaultTimes is the number of retries DefaultDecider allows. The
// attempt limit of the request, request.Config.MaxAttempts, caps it.
const DefaultTimes = 5

// DefaultDecider retries up to DefaultTimes times when the error is
// transient (TransientErr), including timeouts, or when it is a status
// failure with one of the codes 429, 502, 503, or 504.
var DefaultDecider = Times(DefaultTimes).And(StatusCode(429, 502, 503, 504).Or(TransientErr))

// TransientErr retries if the error is transient according to
// transient.Categorize. It ignores status failures.
var TransientErr DeciderFunc = func(_ *request.Execution, err error) bool {
	return transient.Categorize(err) != transient.Not
}

// Decide calls f(e, err).
func (f DeciderFunc) Decide(e *request.Execution, err error) bool {
	return f(e, err)
}

// And returns a decider which retries only if both f and g do. g is
// not consulted if f declines.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution, err error) bool {
		return f(e, err) && g(e, err)
	}
}

// Or returns a decider which retries if either f or g does. g is not
// consulted if f retries.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution, err error) bool {
		return f(e, err) || g(e, err)
	}
}

// Not returns a decider which retries exactly when f declines.
func (f DeciderFunc) Not() DeciderFunc {
	return func(e *request.Execution, err error) bool {
		return !f(e, err)
	}
}

// Times returns a decider which allows n retries: it retries while the
// index of the failed attempt within its lineage is less than n.
func Times(n int) DeciderFunc {
	return func(e *request.Execution, _ error) bool {
		return e.Attempt < n
	}
}

// Before returns a decider which retries until d has elapsed since the
// first attempt of the lineage started.
func Before(d time.Duration) DeciderFunc {
	return func(e *request.Execution, _ error) bool {
		return elapsed(e) < d
	}
}

// StatusCode returns a decider which retries status failures whose
// status code is one of codes. Errors which carry no status code, such
// as network failures or errors substituted by other handlers, are not
// retried.
func StatusCode(codes ...int) DeciderFunc {
	codes = slices.Clone(codes)
	return func(_ *request.Execution, err error) bool {
		var re *reqx.ResponseError
		if !errors.As(err, &re) || re.StatusCode == 0 {
			return false
		}
		return slices.Contains(codes, re.StatusCode)
	}
}

// Kinds returns a decider which retries errors whose Kind, as reported
// by reqx.KindOf, is one of kinds.
func Kinds(kinds ...reqx.Kind) DeciderFunc {
	kinds = slices.Clone(kinds)
	return func(_ *request.Execution, err error) bool {
		return err != nil && slices.Contains(kinds, reqx.KindOf(err))
	}
}

// elapsed measures from the start of the lineage's first attempt to the
// end of e, or to now if e has not ended.
func elapsed(e *request.Execution) time.Duration {
	first := e
	for first.Previous != nil {
		first = first.Previous
	}
	if !first.Started() {
		return 0
	}
	if e.Ended() {
		return e.End.Sub(first.Start)
	}
	return time.Since(first.Start)
}
