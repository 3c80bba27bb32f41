// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gogama/reqx/request"
	"github.com/gogama/reqx/timeout"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// A State is a stage in the life of an Attempt.
type State int

const (
	// Idle means the attempt has not been dispatched.
	Idle State = iota
	// Dispatching means the BeforeRequest chain or the transport is
	// running.
	Dispatching
	// Buffering means the response body is being read into memory.
	Buffering
	// Streaming means the response body is being consumed as a stream.
	Streaming
	// Resolved is the terminal state of a successful attempt.
	Resolved
	// Rejected is the terminal state of a failed attempt.
	Rejected
	// Aborted is the terminal state of an aborted attempt.
	Aborted
)

var stateNames = []string{
	"Idle",
	"Dispatching",
	"Buffering",
	"Streaming",
	"Resolved",
	"Rejected",
	"Aborted",
}

// String returns the name of the state.
func (s State) String() string {
	return stateNames[int(s)]
}

// Settled reports whether s is a terminal state.
func (s State) Settled() bool {
	return s >= Resolved
}

// maxFormMemory bounds the memory FormData uses for multipart values.
const maxFormMemory = 32 << 20

type mode int

const (
	modeNone mode = iota
	modeBuffered
	modeStream
	modeAbort
)

// env holds the client settings an attempt, and every attempt spawned
// from it, runs with.
type env struct {
	transport Transport
	timeouts  timeout.Policy
	logger    *zerolog.Logger
}

// An Attempt is one execution of a request.Config. Attempts are created
// by a Client, but are not dispatched until the response is first asked
// for, whether by a buffered accessor (Result, Bytes, Text, JSON, ...),
// by Stream, or by an OnError handler adopting the attempt.
//
// The response body can be consumed once, either buffered or as a
// stream. Buffered accessors may be called any number of times, from
// any goroutine, and all of them share a single dispatch. Calling a
// buffered accessor on an attempt whose body is being streamed, or the
// reverse, returns ErrBodyUsed.
//
// Every Attempt settles exactly once, into the Resolved, Rejected, or
// Aborted state, and runs its OnFinally chain exactly once when it
// does.
type Attempt struct {
	env   *env
	pipe  *pipeline
	input *request.Config
	exec  *request.Execution

	caller     context.Context
	life       context.Context
	lifeCancel context.CancelCauseFunc
	ctx        context.Context
	cancel     context.CancelCauseFunc

	once   sync.Once
	done   chan struct{}
	stream *Stream

	lock  sync.Mutex
	state State
	mode  mode
	timer *time.Timer
	resp  *request.Response
	err   error
}

func newAttempt(ctx context.Context, env *env, pipe *pipeline, c *request.Config, index int, lineage string, timeouts int, prev *request.Execution) *Attempt {
	life, lifeCancel := context.WithCancelCause(ctx)
	actx, cancel := context.WithCancelCause(life)
	e := request.NewExecution(actx, c, index, lineage, timeouts)
	e.Previous = prev
	return &Attempt{
		env:        env,
		pipe:       pipe,
		input:      c,
		exec:       e,
		caller:     ctx,
		life:       life,
		lifeCancel: lifeCancel,
		ctx:        actx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Execution returns the attempt's execution state. It should be treated
// as read-only, and is only stable once the attempt has settled.
func (a *Attempt) Execution() *request.Execution {
	return a.exec
}

// State returns the attempt's current state.
func (a *Attempt) State() State {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.state
}

// Done returns a channel which is closed once the attempt has settled
// and its OnFinally chain has run.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Abort cancels the attempt. A dispatch or stream read in progress
// observes the cancellation at its next opportunity, and the attempt
// then fails with a KindAborted ResponseError after running its OnError
// and OnFinally chains as usual.
//
// Aborting an attempt which has not been dispatched settles it at once,
// on the calling goroutine. Aborting a settled attempt does nothing.
// Abort is safe to call from any goroutine, any number of times.
func (a *Attempt) Abort() {
	a.lock.Lock()
	if a.state.Settled() {
		a.lock.Unlock()
		return
	}
	idle := a.mode == modeNone
	if idle {
		a.mode = modeAbort
	}
	a.lock.Unlock()

	a.lifeCancel(errAborted)
	if idle {
		a.once.Do(func() {
			a.settle(a.adopt(a.recover(errAborted)))
		})
	}
}

// Retry returns a new, independent Attempt which executes the same
// Config as a, after applying overrides to a copy of it. The new
// attempt belongs to the same lineage and uses the same plugins.
//
// Retry returns ErrNotRetryable unless a is Rejected or Aborted. If the
// lineage has reached its attempt limit, request.Config.MaxAttempts,
// Retry returns a KindExceeded ResponseError wrapping the error a
// failed with.
func (a *Attempt) Retry(overrides ...func(*request.Config)) (*Attempt, error) {
	switch a.State() {
	case Rejected, Aborted:
	default:
		return nil, ErrNotRetryable
	}
	if a.exec.Attempt+1 >= a.exec.Config.Attempts() {
		_, err := a.outcome()
		return nil, a.exceeded(err)
	}
	return a.spawn(a.caller, overrides), nil
}

// Result dispatches the attempt if necessary, waits for it to settle,
// and returns the buffered response or the error it failed with.
//
// A response with a non-2XX status code is a failure: the error is a
// KindStatus ResponseError, unless an OnError handler decides
// otherwise.
func (a *Attempt) Result() (*request.Response, error) {
	switch a.use(modeBuffered) {
	case modeBuffered:
		a.once.Do(a.runBuffered)
	case modeAbort:
		<-a.done
	default:
		return nil, ErrBodyUsed
	}
	return a.outcome()
}

// Bytes returns the buffered response body.
func (a *Attempt) Bytes() ([]byte, error) {
	r, err := a.Result()
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return r.Body, nil
}

// Blob is an alias of Bytes.
func (a *Attempt) Blob() ([]byte, error) {
	return a.Bytes()
}

// ArrayBuffer is an alias of Bytes.
func (a *Attempt) ArrayBuffer() ([]byte, error) {
	return a.Bytes()
}

// Text returns the buffered response body as a string, decoded from
// the charset named in the Content-Type header. Without a charset, the
// body is assumed to be UTF-8.
func (a *Attempt) Text() (string, error) {
	r, err := a.Result()
	if err != nil || r == nil {
		return "", err
	}
	_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if label := params["charset"]; label != "" {
		if enc, _ := charset.Lookup(label); enc != nil && enc != encoding.Nop {
			b, err := enc.NewDecoder().Bytes(r.Body)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}
	}
	return string(r.Body), nil
}

// JSON decodes the buffered response body into the value pointed to by
// v, using the same rules as json.Unmarshal.
func (a *Attempt) JSON(v interface{}) error {
	b, err := a.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// FormData parses the buffered response body as a form. URL-encoded
// and multipart bodies are supported; the body type is taken from the
// Content-Type header. URL-encoded values are returned in the Value
// field of the form.
func (a *Attempt) FormData() (*multipart.Form, error) {
	r, err := a.Result()
	if err != nil {
		return nil, err
	}
	if r == nil {
		return &multipart.Form{Value: map[string][]string{}}, nil
	}
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, &ResponseError{Kind: KindUnknown, Message: "form content type", Config: a.exec.Config, Response: r, Err: err}
	}
	switch {
	case mediaType == "application/x-www-form-urlencoded":
		vs, err := url.ParseQuery(string(r.Body))
		if err != nil {
			return nil, err
		}
		return &multipart.Form{Value: vs}, nil
	case strings.HasPrefix(mediaType, "multipart/"):
		mr := multipart.NewReader(bytes.NewReader(r.Body), params["boundary"])
		return mr.ReadForm(maxFormMemory)
	default:
		return nil, &ResponseError{Kind: KindUnknown, Message: "not a form: " + mediaType, Config: a.exec.Config, Response: r}
	}
}

// use claims the attempt's body for consumption mode m and returns the
// mode the body is claimed for.
func (a *Attempt) use(m mode) mode {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.mode == modeNone {
		a.mode = m
	}
	return a.mode
}

func (a *Attempt) setState(s State) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.state = s
}

func (a *Attempt) outcome() (*request.Response, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.resp, a.err
}

func (a *Attempt) spawn(ctx context.Context, overrides []func(*request.Config)) *Attempt {
	c := a.input.Clone()
	for _, o := range overrides {
		o(c)
	}
	timeouts := a.exec.Timeouts
	if IsKind(a.exec.Err, KindTimeout) {
		timeouts++
	}
	return newAttempt(ctx, a.env, a.pipe, c, a.exec.Attempt+1, a.exec.Lineage, timeouts, a.exec)
}

func (a *Attempt) exceeded(err error) *ResponseError {
	if err == nil {
		err = a.exec.Err
	}
	return &ResponseError{
		Kind:     KindExceeded,
		Message:  fmt.Sprintf("%d attempts made", a.exec.Attempt+1),
		Config:   a.exec.Config,
		Response: a.exec.Response,
		Err:      err,
	}
}

func (a *Attempt) runBuffered() {
	resp, err := a.dispatch()
	if err == nil {
		a.setState(Buffering)
		resp, err = a.buffer(resp)
	}
	if err == nil {
		resp, err = a.pipe.runAfterResponse(a.exec, resp)
	}
	if err == nil {
		// A timeout or abort during AfterResponse still wins.
		err = context.Cause(a.ctx)
	}
	if err == nil && !resp.OK() {
		err = statusError(a.exec.Config, resp)
	}
	if err != nil {
		resp, err = a.adopt(a.recover(err))
	}
	a.settle(resp, err)
}

// dispatch runs the BeforeRequest chain and sends the resulting Config.
func (a *Attempt) dispatch() (*request.Response, error) {
	e := a.exec
	a.setState(Dispatching)
	e.Start = time.Now()
	a.startTimer()
	a.env.logger.Debug().
		Str("attempt_id", e.ID).
		Str("lineage", e.Lineage).
		Int("attempt", e.Attempt).
		Msg("reqx: dispatching")

	if cause := context.Cause(a.ctx); cause != nil {
		return nil, cause
	}
	c, err := a.pipe.runBeforeRequest(e, e.Config)
	if err != nil {
		return nil, err
	}
	if cause := context.Cause(a.ctx); cause != nil {
		return nil, cause
	}
	resp, err := a.env.transport.Send(a.ctx, c)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("reqx: transport returned no response")
	}
	e.Response = resp
	return resp, nil
}

func (a *Attempt) buffer(resp *request.Response) (*request.Response, error) {
	if resp.Stream != nil {
		b, err := readAll(a.ctx, resp.Stream)
		_ = resp.Stream.Close()
		if err != nil {
			return resp, err
		}
		buffered := *resp
		buffered.Body = b
		buffered.Stream = nil
		resp = &buffered
		a.exec.Response = resp
	}
	if cause := context.Cause(a.ctx); cause != nil {
		return resp, cause
	}
	return resp, nil
}

// recover normalizes err and runs the OnError chain over it.
func (a *Attempt) recover(err error) (Outcome, error) {
	a.stopTimer()
	e := a.exec
	re := normalize(a.ctx, err, e.Config, e.Response)
	e.Err = re
	rc := &RetryContext{
		Attempt:     e.Attempt,
		MaxAttempts: e.Config.Attempts(),
		attempt:     a,
	}
	return a.pipe.runOnError(e, re, rc)
}

// adopt waits for the outcome chosen by the OnError chain, if any. An
// adopted Attempt is derived from a's lifetime context, so aborting a
// also aborts it.
func (a *Attempt) adopt(out Outcome, err error) (*request.Response, error) {
	if out == nil {
		return nil, err
	}
	return out.Result()
}

func (a *Attempt) settle(resp *request.Response, err error) {
	a.stopTimer()
	e := a.exec
	e.End = time.Now()
	if !e.Started() {
		e.Start = e.End
	}
	state := Resolved
	if err != nil {
		e.Err = err
		state = Rejected
		if IsKind(err, KindAborted) || errors.Is(context.Cause(a.life), errAborted) {
			state = Aborted
		}
	} else {
		e.Err = nil
		if resp != nil {
			e.Response = resp
		}
	}

	a.lock.Lock()
	a.state = state
	a.resp, a.err = resp, err
	a.lock.Unlock()

	a.pipe.runOnFinally(e, a.env.logger)
	a.env.logger.Debug().
		Str("attempt_id", e.ID).
		Str("lineage", e.Lineage).
		Int("attempt", e.Attempt).
		Stringer("state", state).
		Dur("duration", e.Duration()).
		Msg("reqx: settled")
	a.lifeCancel(nil)
	close(a.done)
}

func (a *Attempt) startTimer() {
	d := a.exec.Config.Timeout
	if d <= 0 {
		d = a.env.timeouts.Timeout(a.exec)
	}
	if d <= 0 {
		return
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	a.timer = time.AfterFunc(d, func() {
		a.cancel(errTimeout)
	})
}

func (a *Attempt) stopTimer() {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	p := make([]byte, 32*1024)
	for {
		if cause := context.Cause(ctx); cause != nil {
			return nil, cause
		}
		n, err := r.Read(p)
		buf.Write(p[:n])
		if err == io.EOF {
			return buf.Bytes(), nil
		} else if err != nil {
			return nil, err
		}
	}
}
