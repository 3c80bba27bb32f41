// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"context"
	"net/http"

	"github.com/gogama/reqx/request"
)

// Requester is the interface that wraps the basic Request method.
//
// Request returns a new Attempt which executes the given Config. Client
// implements the Requester interface, and any other Requester
// implementation must behave substantially the same as Client.Request.
//
// Any Requester can be converted into an Executor via the Inflate
// function.
type Requester interface {
	Request(ctx context.Context, cfg *request.Config) *Attempt
}

// Getter is the interface that wraps the basic Get method.
//
// Any Requester can be used to emulate a Getter via the Get function.
type Getter interface {
	Get(ctx context.Context, url string) *Attempt
}

// Header is the interface that wraps the basic Head method.
//
// Any Requester can be used to emulate a Header via the Head function.
type Header interface {
	Head(ctx context.Context, url string) *Attempt
}

// Optioner is the interface that wraps the basic Options method.
//
// Any Requester can be used to emulate an Optioner via the Options
// function.
type Optioner interface {
	Options(ctx context.Context, url string) *Attempt
}

// Deleter is the interface that wraps the basic Delete method.
//
// Any Requester can be used to emulate a Deleter via the Delete
// function.
type Deleter interface {
	Delete(ctx context.Context, url string) *Attempt
}

// Poster is the interface that wraps the basic Post method.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.BodyBytes.
//
// Any Requester can be used to emulate a Poster via the Post function.
type Poster interface {
	Post(ctx context.Context, url string, body interface{}) *Attempt
}

// Putter is the interface that wraps the basic Put method.
//
// Any Requester can be used to emulate a Putter via the Put function.
type Putter interface {
	Put(ctx context.Context, url string, body interface{}) *Attempt
}

// Patcher is the interface that wraps the basic Patch method.
//
// Any Requester can be used to emulate a Patcher via the Patch
// function.
type Patcher interface {
	Patch(ctx context.Context, url string, body interface{}) *Attempt
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
//
// If the underlying implementation supports it, CloseIdleConnections
// closes any idle which were previously connected from previous
// requests but are now sitting idle in a "keep-alive" state. It does
// not interrupt any connections currently in use.
//
// If the underlying implementation does not support this ability,
// CloseIdleConnections does nothing.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor is the interface that groups the Request method, the verb
// methods, and CloseIdleConnections.
//
// Any Requester can be converted into an Executor via the Inflate
// function.
type Executor interface {
	Requester
	Getter
	Header
	Optioner
	Deleter
	Poster
	Putter
	Patcher
	IdleCloser
}

// Get uses the specified Requester to issue a GET to the specified URL.
//
// To make a request with custom headers, build a request.Config and use
// r.Request.
func Get(ctx context.Context, r Requester, url string) *Attempt {
	return r.Request(ctx, &request.Config{Method: http.MethodGet, URL: url})
}

// Head uses the specified Requester to issue a HEAD to the specified
// URL.
func Head(ctx context.Context, r Requester, url string) *Attempt {
	return r.Request(ctx, &request.Config{Method: http.MethodHead, URL: url})
}

// Options uses the specified Requester to issue an OPTIONS to the
// specified URL.
func Options(ctx context.Context, r Requester, url string) *Attempt {
	return r.Request(ctx, &request.Config{Method: http.MethodOptions, URL: url})
}

// Delete uses the specified Requester to issue a DELETE to the
// specified URL.
func Delete(ctx context.Context, r Requester, url string) *Attempt {
	return r.Request(ctx, &request.Config{Method: http.MethodDelete, URL: url})
}

// Post uses the specified Requester to issue a POST to the specified
// URL.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.BodyBytes. The Content-Type header is set
// from the body's type unless the base configuration sets it.
func Post(ctx context.Context, r Requester, url string, body interface{}) *Attempt {
	return r.Request(ctx, &request.Config{Method: http.MethodPost, URL: url, Body: body})
}

// Put uses the specified Requester to issue a PUT to the specified URL.
func Put(ctx context.Context, r Requester, url string, body interface{}) *Attempt {
	return r.Request(ctx, &request.Config{Method: http.MethodPut, URL: url, Body: body})
}

// Patch uses the specified Requester to issue a PATCH to the specified
// URL.
func Patch(ctx context.Context, r Requester, url string, body interface{}) *Attempt {
	return r.Request(ctx, &request.Config{Method: http.MethodPatch, URL: url, Body: body})
}

// Inflate converts any non-nil Requester into an Executor. This may be
// helpful for interop across library boundaries, i.e. if code that only
// has access to a Requester needs to call a function that requires an
// Executor.
func Inflate(r Requester) Executor {
	if r == nil {
		panic("reqx: nil requester")
	}

	if e, ok := r.(Executor); ok {
		return e
	}

	return inflated{r}
}

type inflated struct {
	requester Requester
}

func (i inflated) Request(ctx context.Context, cfg *request.Config) *Attempt {
	return i.requester.Request(ctx, cfg)
}

func (i inflated) Get(ctx context.Context, url string) *Attempt {
	return Get(ctx, i.requester, url)
}

func (i inflated) Head(ctx context.Context, url string) *Attempt {
	return Head(ctx, i.requester, url)
}

func (i inflated) Options(ctx context.Context, url string) *Attempt {
	return Options(ctx, i.requester, url)
}

func (i inflated) Delete(ctx context.Context, url string) *Attempt {
	return Delete(ctx, i.requester, url)
}

func (i inflated) Post(ctx context.Context, url string, body interface{}) *Attempt {
	return Post(ctx, i.requester, url, body)
}

func (i inflated) Put(ctx context.Context, url string, body interface{}) *Attempt {
	return Put(ctx, i.requester, url, body)
}

func (i inflated) Patch(ctx context.Context, url string, body interface{}) *Attempt {
	return Patch(ctx, i.requester, url, body)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.requester.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
