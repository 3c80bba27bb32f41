// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"io"

	"github.com/gogama/reqx/request"
	"github.com/gogama/reqx/stream"
)

// A Plugin extends a Client with handlers for one or more pipeline
// stages. Every handler field is optional; a nil field means the plugin
// does not take part in that stage.
//
// Plugins are keyed by Name. Installing a plugin whose name is already
// installed replaces the earlier plugin, and the replacement is ordered
// as though it had been installed last.
type Plugin struct {
	// Name uniquely identifies the plugin within a Client. It may not
	// be empty.
	Name string

	// Priority orders the plugin relative to others within every stage.
	// Handlers run in ascending priority order, and plugins with equal
	// priority run in the order they were installed.
	Priority int

	BeforeRequest        RequestHandler
	BeforeStream         StreamHandler
	TransformStreamChunk ChunkHandler
	AfterResponse        ResponseHandler
	OnError              ErrorHandler
	OnFinally            FinallyHandler
}

// A RequestHandler handles the BeforeRequest stage. It receives the
// Config produced by the previous handler and returns the Config to
// hand to the next one. Returning a nil Config and a nil error leaves
// the Config unchanged. Returning an error cancels dispatch.
//
// Handlers should not modify c in place: use c.Clone.
type RequestHandler func(e *request.Execution, c *request.Config) (*request.Config, error)

// A StreamHandler handles the BeforeStream stage. It receives the body
// stream produced by the previous handler and returns the stream to
// hand to the next one. A handler which replaces the stream is
// responsible for closing the one it was given when the replacement is
// closed.
type StreamHandler func(e *request.Execution, body io.ReadCloser) (io.ReadCloser, error)

// A ChunkHandler handles the TransformStreamChunk stage.
type ChunkHandler func(e *request.Execution, c stream.Chunk) (stream.Chunk, error)

// A ResponseHandler handles the AfterResponse stage. Returning a nil
// Response and a nil error leaves the response unchanged.
type ResponseHandler func(e *request.Execution, r *request.Response) (*request.Response, error)

// An ErrorHandler handles the OnError stage.
//
// The handler receives the error produced so far, which is always a
// *ResponseError when it reaches the first handler, and decides how
// the attempt proceeds:
//
// • returning (nil, nil) passes err on to the next handler unchanged;
//
// • returning (nil, err2) passes err2 on to the next handler in place
// of err;
//
// • returning a non-nil Outcome ends the chain, and the attempt adopts
// the outcome's result. The Outcome may be a new Attempt obtained from
// rc.Retry, or one of rc.Resolve and rc.Reject.
//
// If no handler returns an Outcome, the attempt fails with the error
// left by the last handler. The error passed to a handler is also
// available as rc.Err.
type ErrorHandler func(e *request.Execution, err error, rc *RetryContext) (Outcome, error)

// A FinallyHandler handles the OnFinally stage. An error returned from
// a FinallyHandler is logged and does not change the outcome of the
// attempt.
type FinallyHandler func(e *request.Execution) error

func (p *Plugin) handles(s Stage) bool {
	switch s {
	case BeforeRequest:
		return p.BeforeRequest != nil
	case BeforeStream:
		return p.BeforeStream != nil
	case TransformStreamChunk:
		return p.TransformStreamChunk != nil
	case AfterResponse:
		return p.AfterResponse != nil
	case OnError:
		return p.OnError != nil
	case OnFinally:
		return p.OnFinally != nil
	default:
		return false
	}
}
