// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"io"
	"net/http"
)

// A Response is what a transport hands back after dispatching a Config.
//
// A transport sets exactly one of Body and Stream. Body holds a fully
// buffered payload; Stream holds a live byte stream which the caller
// must close. A Response with neither set has no body at all.
type Response struct {
	// StatusCode is the HTTP status code, e.g. 200.
	StatusCode int

	// Status is the HTTP status line text, e.g. "200 OK".
	Status string

	// Header holds the response headers.
	Header http.Header

	// Body is the buffered response body.
	Body []byte

	// Stream is the unread response body.
	Stream io.ReadCloser
}

// OK reports whether StatusCode is in the 2XX range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HasBody reports whether the response carries a body, buffered or
// streaming.
func (r *Response) HasBody() bool {
	return r.Body != nil || r.Stream != nil
}
