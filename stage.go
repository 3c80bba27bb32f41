// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

// A Stage identifies one of the hook points in an attempt's pipeline.
// Plugins extend a Client by supplying handlers for one or more stages.
type Stage int

const (
	// BeforeRequest identifies the stage that runs before the attempt
	// is dispatched to the transport.
	//
	// BeforeRequest handlers run as a reduction: each receives the
	// Config returned by the previous handler, and the Config returned
	// by the last handler is the one dispatched. A BeforeRequest handler
	// that returns an error prevents dispatch, and the error enters the
	// OnError chain.
	BeforeRequest Stage = iota
	// BeforeStream identifies the stage that runs when the response
	// body is about to be consumed as a stream.
	//
	// BeforeStream handlers run as a reduction over the body stream,
	// so a handler may wrap or replace the byte stream before it is
	// handed to the stream decoder.
	BeforeStream
	// TransformStreamChunk identifies the stage that runs on every
	// decoded stream chunk.
	//
	// TransformStreamChunk handlers run as a reduction over the chunk.
	// A handler error is recorded on the chunk and ends the reduction
	// for that chunk only; the stream itself continues.
	TransformStreamChunk
	// AfterResponse identifies the stage that runs after a buffered
	// response body has been read in full.
	//
	// AfterResponse handlers run as a reduction over the response, and
	// never run for an attempt which fails before a response arrives,
	// or whose body is consumed as a stream.
	AfterResponse
	// OnError identifies the stage that runs when an attempt fails.
	//
	// OnError handlers run as a chain which stops at the first handler
	// to return a non-nil Outcome. See ErrorHandler.
	OnError
	// OnFinally identifies the stage that runs exactly once when an
	// attempt settles, regardless of how it settled.
	//
	// Every OnFinally handler runs even if an earlier one fails.
	OnFinally
	// stageSentinel provides the total number of stages typed as a
	// Stage.
	stageSentinel

	// numStages provides the total number of stages as an int.
	numStages = int(stageSentinel)
)

var stageNames = []string{
	"BeforeRequest",
	"BeforeStream",
	"TransformStreamChunk",
	"AfterResponse",
	"OnError",
	"OnFinally",
}

// Stages returns a slice containing all pipeline stages.
func Stages() []Stage {
	return []Stage{
		BeforeRequest,
		BeforeStream,
		TransformStreamChunk,
		AfterResponse,
		OnError,
		OnFinally,
	}
}

// Name returns the name of the stage.
func (s Stage) Name() string {
	return stageNames[int(s)]
}

// String returns the name of the stage.
func (s Stage) String() string {
	return s.Name()
}
