// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"context"
	"net/http"

	"github.com/gogama/reqx/request"
	"github.com/gogama/reqx/timeout"
	"github.com/rs/zerolog"
)

var nopLogger = zerolog.Nop()

// A Client creates Attempts which run through a pipeline of plugins.
// Its zero value is a valid configuration.
//
// The zero value client uses an HTTPTransport over http.DefaultClient
// (from net/http) as the transport, timeout.DefaultPolicy as the
// timeout policy, no base configuration, no plugins, and discards its
// log output.
//
// Client is safe for concurrent use by multiple goroutines. Installing
// a plugin affects attempts created afterwards; attempts created
// earlier, and every attempt retried from them, keep the plugins they
// were created with.
//
// On top of the features provided by the Transport, Client adds the
// following features:
//
// • every request is merged over a base configuration, so base URL,
// headers, timeout, and stream options can be set once;
//
// • every attempt runs an ordered pipeline of plugin stage handlers,
// allowing new features to be mixed in from outside libraries;
//
// • responses can be consumed fully buffered, or as a stream of decoded
// chunks;
//
// • failed attempts can be retried, from the OnError stage or by the
// caller, within an attempt limit; and
//
// • Client implements the reqx.Executor interface.
type Client struct {
	// Base is the configuration every request is merged over. See
	// request.Config.Merge.
	//
	// If Base is nil, requests are used as given.
	Base *request.Config
	// Transport sends requests and receives responses.
	//
	// If Transport is nil, an HTTPTransport using http.DefaultClient is
	// used.
	Transport Transport
	// TimeoutPolicy specifies how to set timeouts on attempts whose
	// Config does not set one.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Logger receives debug events about attempts, and warnings about
	// failing OnFinally handlers.
	//
	// If Logger is nil, nothing is logged.
	Logger *zerolog.Logger

	registry registry
}

// New returns a Client whose requests are merged over base, with
// plugins installed in the order given.
func New(base request.Config, plugins ...Plugin) *Client {
	c := &Client{Base: base.Clone()}
	for _, p := range plugins {
		c.Use(p)
	}
	return c
}

// Use installs a plugin. If a plugin with the same name is installed,
// p replaces it, and is ordered as though installed last.
//
// Use panics if p has no name.
func (c *Client) Use(p Plugin) {
	c.registry.use(p)
}

// Plugins returns the installed plugins in the order they were
// installed.
func (c *Client) Plugins() []Plugin {
	return c.registry.plugins()
}

// Pipeline returns the names of the plugins which handle stage s, in
// the order their handlers run.
func (c *Client) Pipeline(s Stage) []string {
	names := c.registry.pipeline().names[s]
	return append([]string(nil), names...)
}

// Request returns a new Attempt which executes cfg, merged over the
// client's base configuration. The attempt is not dispatched until its
// response is first asked for.
//
// The attempt observes ctx: cancelling ctx aborts it, and an expired
// ctx deadline times it out.
func (c *Client) Request(ctx context.Context, cfg *request.Config) *Attempt {
	if ctx == nil {
		panic("reqx: nil context")
	}

	var merged *request.Config
	switch {
	case c.Base != nil:
		merged = c.Base.Merge(cfg)
	case cfg != nil:
		merged = cfg.Clone()
	default:
		merged = &request.Config{}
	}

	return newAttempt(ctx, c.env(), c.registry.pipeline(), merged, 0, "", 0, nil)
}

// Get returns an Attempt which issues a GET to the specified URL.
func (c *Client) Get(ctx context.Context, url string) *Attempt {
	return Get(ctx, c, url)
}

// Head returns an Attempt which issues a HEAD to the specified URL.
func (c *Client) Head(ctx context.Context, url string) *Attempt {
	return Head(ctx, c, url)
}

// Options returns an Attempt which issues an OPTIONS to the specified
// URL.
func (c *Client) Options(ctx context.Context, url string) *Attempt {
	return Options(ctx, c, url)
}

// Delete returns an Attempt which issues a DELETE to the specified URL.
func (c *Client) Delete(ctx context.Context, url string) *Attempt {
	return Delete(ctx, c, url)
}

// Post returns an Attempt which issues a POST to the specified URL.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.BodyBytes.
func (c *Client) Post(ctx context.Context, url string, body interface{}) *Attempt {
	return Post(ctx, c, url, body)
}

// Put returns an Attempt which issues a PUT to the specified URL.
func (c *Client) Put(ctx context.Context, url string, body interface{}) *Attempt {
	return Put(ctx, c, url, body)
}

// Patch returns an Attempt which issues a PATCH to the specified URL.
func (c *Client) Patch(ctx context.Context, url string, body interface{}) *Attempt {
	return Patch(ctx, c, url, body)
}

// CloseIdleConnections invokes the same method on the client's
// Transport.
//
// If the Transport has no CloseIdleConnections method, this method does
// nothing.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.transport().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) env() *env {
	timeoutPolicy := c.TimeoutPolicy
	if timeoutPolicy == nil {
		timeoutPolicy = timeout.DefaultPolicy
	}

	logger := c.Logger
	if logger == nil {
		logger = &nopLogger
	}

	return &env{
		transport: c.transport(),
		timeouts:  timeoutPolicy,
		logger:    logger,
	}
}

func (c *Client) transport() Transport {
	if c.Transport == nil {
		return &HTTPTransport{Doer: http.DefaultClient}
	}

	return c.Transport
}
