// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gogama/reqx/request"
)

// A Transport sends the Config of an attempt and returns the response.
//
// Send must respect ctx: when ctx is cancelled, Send should return
// promptly, and any response body it has returned should fail further
// reads. A Transport must be safe for concurrent use by multiple
// goroutines.
type Transport interface {
	Send(ctx context.Context, c *request.Config) (*request.Response, error)
}

// The TransportFunc type is an adapter to allow the use of ordinary
// functions as transports.
type TransportFunc func(ctx context.Context, c *request.Config) (*request.Response, error)

// Send calls f(ctx, c).
func (f TransportFunc) Send(ctx context.Context, c *request.Config) (*request.Response, error) {
	return f(ctx, c)
}

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

// HTTPTransport is a Transport which sends requests through an
// HTTPDoer. Its zero value uses http.DefaultClient.
//
// HTTPTransport never reads the response body itself: the body is
// returned as the Stream of the response, and the attempt decides
// whether to buffer it or stream it.
type HTTPTransport struct {
	// Doer specifies the mechanics of sending HTTP requests and
	// receiving responses. If Doer is nil, http.DefaultClient is used.
	Doer HTTPDoer
}

// Send converts c into an http.Request and sends it.
func (t *HTTPTransport) Send(ctx context.Context, c *request.Config) (*request.Response, error) {
	r, err := c.ToRequest(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := t.doer().Do(r)
	if err != nil {
		return nil, urlErrorWrap(r, err)
	}
	out := &request.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
	}
	if resp.Body != nil && resp.Body != http.NoBody {
		out.Stream = resp.Body
	}
	return out, nil
}

// CloseIdleConnections invokes the same method on the underlying
// HTTPDoer, if it has one.
func (t *HTTPTransport) CloseIdleConnections() {
	if ic, ok := t.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (t *HTTPTransport) doer() HTTPDoer {
	if t.Doer == nil {
		return http.DefaultClient
	}

	return t.Doer
}

func urlErrorWrap(r *http.Request, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	return &url.Error{
		Op:  urlErrorOp(r.Method),
		URL: r.URL.String(),
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
