// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/gogama/reqx"
	"github.com/gogama/reqx/request"
)

// A Waiter says how long to wait before retrying a failed attempt. Like
// a Decider, it receives the error as it stands in the OnError chain.
// The retry plugin only consults the Waiter after the Decider has
// chosen to retry.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
type Waiter interface {
	Wait(e *request.Execution, err error) time.Duration
}

// The WaiterFunc type is an adapter to allow the use of ordinary
// functions as waiters.
type WaiterFunc func(e *request.Execution, err error) time.Duration

// Wait calls f(e, err).
func (f WaiterFunc) Wait(e *request.Execution, err error) time.Duration {
	return f(e, err)
}

// DefaultWaiter waits a fully jittered exponential backoff starting at
// 50 milliseconds and capped at 1 second, unless the response asks for
// a longer wait with a Retry-After header, which is honored up to 30
// seconds.
var DefaultWaiter Waiter = RetryAfter(Jitter(Exponential(50*time.Millisecond, time.Second)), 30*time.Second)

// Fixed returns a waiter which always waits d.
func Fixed(d time.Duration) WaiterFunc {
	return func(*request.Execution, error) time.Duration {
		return d
	}
}

// Exponential returns a waiter which waits base after the initial
// attempt fails, and doubles the wait for every later attempt of the
// lineage, up to max.
//
// Exponential panics unless 0 < base <= max.
func Exponential(base, max time.Duration) WaiterFunc {
	if base <= 0 {
		panic("reqx/retry: base must be positive")
	}
	if max < base {
		panic("reqx/retry: max must be at least base")
	}
	return func(e *request.Execution, _ error) time.Duration {
		d := base
		for i := 0; i < e.Attempt; i++ {
			if d > max/2 {
				return max
			}
			d *= 2
		}
		return min(d, max)
	}
}

// Jitter returns a waiter which waits a uniformly random duration
// between zero and the wait w returns, the "full jitter" strategy. It
// spreads out retries from many clients which failed at the same time.
func Jitter(w Waiter) WaiterFunc {
	if w == nil {
		panic("reqx/retry: nil waiter")
	}
	return func(e *request.Execution, err error) time.Duration {
		d := w.Wait(e, err)
		if d <= 0 {
			return 0
		}
		return rand.N(d)
	}
}

// RetryAfter returns a waiter which honors the Retry-After header of
// the failed attempt's response, in either its delay-seconds or its
// HTTP-date form, capping the wait at max. Without a usable header it
// defers to w.
//
// The response is taken from the reqx.ResponseError in err's chain,
// falling back to e.Response.
func RetryAfter(w Waiter, max time.Duration) WaiterFunc {
	if w == nil {
		panic("reqx/retry: nil waiter")
	}
	return func(e *request.Execution, err error) time.Duration {
		d, ok := parseRetryAfter(retryAfterHeader(e, err), time.Now())
		if !ok {
			return w.Wait(e, err)
		}
		return min(d, max)
	}
}

func retryAfterHeader(e *request.Execution, err error) string {
	var re *reqx.ResponseError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.Header.Get("Retry-After")
	}
	return e.Header().Get("Retry-After")
}

func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	return max(t.Sub(now), 0), true
}
