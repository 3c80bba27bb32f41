// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides a plugin which retries failed attempts, and
// the policies which decide whether to retry and how long to wait
// before retrying.
//
// A Policy pairs a Decider with a Waiter. Both are consulted with the
// failed attempt's execution and the error as it stands in the OnError
// chain, so an OnError handler ordered before the retry plugin can turn
// a retryable failure into a fatal one. Deciders and waiters built from
// the constructors in this package compose freely:
//
//	decider := retry.Times(3).
//		And(retry.Before(5 * time.Second)).
//		And(retry.StatusCode(500).Or(retry.TransientErr))
//	waiter := retry.RetryAfter(retry.Jitter(retry.Exponential(100*time.Millisecond, 2*time.Second)), time.Minute)
//	client.Use(retry.Plugin(retry.NewPolicy(decider, waiter)))
package retry
