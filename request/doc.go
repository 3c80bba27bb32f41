// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Config (describes a logical
HTTP request), Response (what a transport returns), and Execution
(describes one attempt at executing a Config).

The first core type is Config. A Config describes how to make a logical
HTTP request: its URL, resolved against an optional base URL, query
parameters, method, headers, body, timeout, attempt limit, and the
options used to segment a streamed response. Client defaults and
per-request settings are combined with Merge:

	base, err := request.LoadConfig("reqx.yaml")
	...
	c := base.Merge(&request.Config{URL: "/items", Method: "POST", Body: item})

Config bodies are deliberately loose. A string is sent as plain text, a
[]byte as-is, url.Values as a form, an io.Reader is read fully, and any
other value is encoded as JSON. See BodyBytes.

The second core type is Execution, which represents the state of one
attempt. Execution is the input type for every plugin stage handler. An
attempt which is retried produces a new Execution with a new ID but the
same Lineage, so that plugins such as deduplication can recognize the
retry as the same logical request. You will typically not allocate
Execution instances yourself, but will instead work with the ones handed
out by the client.
*/
package request
