// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/reqx"
	"github.com/gogama/reqx/request"
)

// PluginName is the name under which Plugin installs itself. Installing
// a second retry plugin replaces the first.
const PluginName = "retry"

// PluginPriority orders the retry handler after OnError handlers of the
// default priority, so that they see each failure, and may reclassify
// it, before it is retried.
const PluginPriority = 100

// Plugin returns a reqx.Plugin which retries failed attempts according
// to p. The policy is consulted with the error left by the OnError
// handlers before it. When p decides to retry, the handler waits for
// the duration p returns and then adopts a fresh attempt obtained from
// reqx.RetryContext.Retry, so the total number of attempts remains
// bounded by request.Config.MaxAttempts.
//
// Aborted attempts are never retried, and aborting an attempt while
// the handler is waiting cancels the retry.
func Plugin(p Policy) reqx.Plugin {
	if p == nil {
		panic("reqx/retry: nil policy")
	}
	return reqx.Plugin{
		Name:     PluginName,
		Priority: PluginPriority,
		OnError: func(e *request.Execution, err error, rc *reqx.RetryContext) (reqx.Outcome, error) {
			ctx := rc.Context()
			if ctx.Err() != nil || reqx.IsKind(err, reqx.KindAborted) {
				return nil, nil
			}
			d, ok := wait(p, e, err)
			if !ok {
				return nil, nil
			}
			if d > 0 {
				timer := time.NewTimer(d)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-ctx.Done():
					return nil, nil
				}
			}
			return rc.Retry(), nil
		},
	}
}
