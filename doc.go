// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package reqx provides an HTTP client built around lazily dispatched,
abortable attempts and a plugin pipeline, with first-class support for
streamed responses such as server-sent events.

Create a Client to begin making requests. Requests return an Attempt,
which is not sent until its response is first asked for:

	client := reqx.New(request.Config{BaseURL: "https://api.example.com"})
	a := client.Get(ctx, "/v1/items")
	var items []Item
	err := a.JSON(&items)

The same attempt can instead be consumed as a stream of decoded chunks:

	cfg := &request.Config{
		Method: "POST",
		URL:    "/v1/complete",
		Body:   prompt,
		Stream: stream.SSE,
	}
	s := client.Request(ctx, cfg).Stream()
	defer s.Close()
	for s.Next() {
		fmt.Println(s.Chunk().Result)
	}

An attempt's body is consumed once, buffered or streamed, never both.
An attempt may be aborted at any time with Abort, and settles exactly
once into the Resolved, Rejected, or Aborted state.

For control over how the client sends requests, set a Transport. The
default sends requests through http.DefaultClient; to use a custom
GoLang standard HTTP client, wrap it in an HTTPTransport:

	client := &reqx.Client{
		Transport: &reqx.HTTPTransport{Doer: &http.Client{...}},
	}

For control over individual attempt timeouts, set a timeout policy
using package timeout, or set Timeout on the request.Config:

	client := &reqx.Client{
		TimeoutPolicy: timeout.Fixed(10*time.Second),
	}

To hook into the life of an attempt, install a Plugin. A plugin
contributes handlers to one or more stages (BeforeRequest,
BeforeStream, TransformStreamChunk, AfterResponse, OnError, and
OnFinally), and plugins run in ascending Priority order:

	client.Use(reqx.Plugin{
		Name: "auth",
		BeforeRequest: func(e *request.Execution, c *request.Config) (*request.Config, error) {
			c.Header.Set("Authorization", "Bearer "+token)
			return c, nil
		},
	})

OnError handlers decide how a failed attempt settles. Returning the
Outcome of RetryContext.Retry replaces the failure with a fresh attempt;
package retry provides a ready-made retry plugin built this way, and
packages dedupe, logging, and otelhook provide other common plugins.

Package reqx also provides basic interfaces for each method of the
client (Requester, Getter, Header, Optioner, Deleter, Poster, Putter,
Patcher, and IdleCloser); a combined interface that composes them all
(Executor); and utility functions for working with a Requester
(Inflate, Get, Head, Post, and friends).
*/
package reqx
