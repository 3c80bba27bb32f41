// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/reqx/request"
)

// A Policy decides whether a failed attempt is retried and, if it is,
// how long to wait first.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	Decider
	Waiter
}

// DefaultPolicy combines DefaultDecider and DefaultWaiter.
var DefaultPolicy = NewPolicy(DefaultDecider, DefaultWaiter)

// Never is a policy that never retries.
var Never = NewPolicy(Times(0), Fixed(0))

type policy struct {
	Decider
	Waiter
}

// NewPolicy composes a Decider and a Waiter into a retry Policy.
func NewPolicy(d Decider, w Waiter) Policy {
	if d == nil {
		panic("reqx/retry: nil decider")
	}
	if w == nil {
		panic("reqx/retry: nil waiter")
	}
	return policy{d, w}
}

// wait returns how long p wants to wait before retrying, or false if it
// declines to retry.
func wait(p Policy, e *request.Execution, err error) (time.Duration, bool) {
	if !p.Decide(e, err) {
		return 0, false
	}
	return p.Wait(e, err), true
}
