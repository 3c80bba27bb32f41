// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"bytes"
	"context"
	"io"
	"iter"

	"github.com/gogama/reqx/request"
	"github.com/gogama/reqx/stream"
)

// A Stream is a pull-based sequence of decoded chunks read from the
// response body of an Attempt. Obtain one with Attempt.Stream, then
// call Next until it returns false:
//
//	s := client.Post(ctx, "/v1/complete", prompt).Stream()
//	defer s.Close()
//	for s.Next() {
//		c := s.Chunk()
//		if c.Err != nil {
//			continue
//		}
//		...
//	}
//	if err := s.Err(); err != nil {
//		...
//	}
//
// A chunk whose Err field is set does not end the stream. The stream
// ends when the body is exhausted, when the Done sentinel configured in
// request.Config.Stream is seen, or when the attempt fails. In the last
// case Err reports the failure.
//
// When the stream ends, the attempt settles. A stream abandoned before
// it ends must be closed, which aborts the attempt.
//
// A Stream is not safe for concurrent use, but its attempt may be
// aborted from any goroutine.
type Stream struct {
	a        *Attempt
	body     io.ReadCloser
	dec      *stream.Decoder
	delegate *Stream
	chunk    stream.Chunk
	err      error
	done     bool
}

// Stream dispatches the attempt if necessary and returns the stream of
// its response body. Every call on the same attempt returns the same
// Stream.
//
// A non-2XX response fails the attempt. So does a response without a
// body, which fails with a KindBodyNull ResponseError.
func (a *Attempt) Stream() *Stream {
	switch a.use(modeStream) {
	case modeStream:
		a.once.Do(a.openStream)
		return a.stream
	case modeAbort:
		<-a.done
		_, err := a.outcome()
		return &Stream{err: err, done: true}
	default:
		return &Stream{err: ErrBodyUsed, done: true}
	}
}

func (a *Attempt) openStream() {
	s := &Stream{a: a}
	a.stream = s

	resp, err := a.dispatch()
	var body io.ReadCloser
	if err == nil {
		if !resp.OK() {
			closeBody(resp)
			err = statusError(a.exec.Config, resp)
		} else if body = bodyOf(resp); body == nil {
			err = &ResponseError{
				Kind:       KindBodyNull,
				Message:    "response has no body",
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Config:     a.exec.Config,
				Response:   resp,
			}
		}
	}
	if err == nil {
		a.setState(Streaming)
		var replaced io.ReadCloser
		replaced, err = a.pipe.runBeforeStream(a.exec, body)
		if err != nil {
			_ = replaced.Close()
		} else {
			body = replaced
		}
	}
	if err == nil {
		var dec *stream.Decoder
		dec, err = stream.NewDecoder(&ctxReader{ctx: a.ctx, r: body}, a.exec.Config.Stream)
		if err != nil {
			_ = body.Close()
		} else {
			s.body, s.dec = body, dec
		}
	}
	if err != nil {
		s.fail(err)
	}
}

// Next advances the stream to the next chunk, which is then available
// through Chunk. It returns false when the stream ends.
func (s *Stream) Next() bool {
	for {
		if s.delegate != nil {
			if s.delegate.Next() {
				s.chunk = s.delegate.chunk
				return true
			}
			s.end(s.delegate.outcome())
			return false
		}
		if s.done {
			return false
		}

		c, err := s.dec.Next()
		if err == nil {
			s.chunk = s.a.pipe.runTransformStreamChunk(s.a.exec, c)
			return true
		}
		s.closeBody()
		if err == io.EOF {
			s.end(s.a.exec.Response, nil)
			return false
		}
		s.fail(err)
	}
}

// Chunk returns the chunk Next advanced to.
func (s *Stream) Chunk() stream.Chunk {
	return s.chunk
}

// Err returns the error the attempt failed with, if the stream ended
// because of a failure.
func (s *Stream) Err() error {
	return s.err
}

// Close ends the stream. If the stream has not already ended, the
// attempt is aborted and settles before Close returns.
func (s *Stream) Close() error {
	for !s.done {
		if s.delegate != nil {
			_ = s.delegate.Close()
			s.end(s.delegate.outcome())
			break
		}
		s.a.Abort()
		s.closeBody()
		s.fail(errAborted)
	}
	return nil
}

// All returns an iterator over the remaining chunks. The iterator
// yields the attempt's error, if any, as its final element. Breaking
// out of the loop closes the stream.
func (s *Stream) All() iter.Seq2[stream.Chunk, error] {
	return func(yield func(stream.Chunk, error) bool) {
		for s.Next() {
			if !yield(s.Chunk(), nil) {
				_ = s.Close()
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(stream.Chunk{}, err)
		}
	}
}

// fail runs the attempt's OnError chain. If the chain adopts a new
// Attempt, the stream continues with the new attempt's stream, and the
// attempt settles when that stream ends.
func (s *Stream) fail(err error) {
	a := s.a
	out, err := a.recover(err)
	if child, ok := out.(*Attempt); ok {
		s.delegate = child.Stream()
		return
	}
	s.end(a.adopt(out, err))
}

func (s *Stream) outcome() (*request.Response, error) {
	if s.a == nil {
		return nil, s.err
	}
	return s.a.outcome()
}

func (s *Stream) end(resp *request.Response, err error) {
	s.done = true
	s.err = err
	s.delegate = nil
	s.a.settle(resp, err)
}

func (s *Stream) closeBody() {
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
}

func bodyOf(r *request.Response) io.ReadCloser {
	if r.Stream != nil {
		return r.Stream
	}
	if r.Body != nil {
		return io.NopCloser(bytes.NewReader(r.Body))
	}
	return nil
}

func closeBody(r *request.Response) {
	if r.Stream != nil {
		_ = r.Stream.Close()
	}
}

// ctxReader fails reads once ctx is done, so that a stream observes
// cancellation before every read even when the underlying reader does
// not.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if cause := context.Cause(r.ctx); cause != nil {
		return 0, cause
	}
	return r.r.Read(p)
}
