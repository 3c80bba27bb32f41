// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"fmt"
	"io"

	"github.com/gogama/reqx/request"
	"github.com/gogama/reqx/stream"
	"github.com/rs/zerolog"
)

// A pipeline is the compiled, immutable form of a registry: one ordered
// handler list per stage.
type pipeline struct {
	names                [numStages][]string
	beforeRequest        []RequestHandler
	beforeStream         []StreamHandler
	transformStreamChunk []ChunkHandler
	afterResponse        []ResponseHandler
	onError              []ErrorHandler
	onFinally            []FinallyHandler
}

var emptyPipeline = &pipeline{}

func (p *pipeline) runBeforeRequest(e *request.Execution, c *request.Config) (*request.Config, error) {
	for _, h := range p.beforeRequest {
		next, err := h(e, c)
		if err != nil {
			return nil, err
		}
		if next != nil {
			c = next
		}
		e.Config = c
	}
	return c, nil
}

func (p *pipeline) runBeforeStream(e *request.Execution, body io.ReadCloser) (io.ReadCloser, error) {
	for _, h := range p.beforeStream {
		next, err := h(e, body)
		if err != nil {
			return body, err
		}
		if next != nil {
			body = next
		}
	}
	return body, nil
}

func (p *pipeline) runTransformStreamChunk(e *request.Execution, c stream.Chunk) stream.Chunk {
	for _, h := range p.transformStreamChunk {
		next, err := h(e, c)
		if err != nil {
			c.Err = err
			return c
		}
		c = next
	}
	return c
}

func (p *pipeline) runAfterResponse(e *request.Execution, r *request.Response) (*request.Response, error) {
	for _, h := range p.afterResponse {
		next, err := h(e, r)
		if err != nil {
			return r, err
		}
		if next != nil {
			r = next
		}
		e.Response = r
	}
	return r, nil
}

func (p *pipeline) runOnError(e *request.Execution, err error, rc *RetryContext) (Outcome, error) {
	for _, h := range p.onError {
		rc.err = err
		out, replacement := h(e, err, rc)
		if out != nil {
			return out, err
		}
		if replacement != nil {
			err = replacement
		}
	}
	return nil, err
}

// runOnFinally runs every OnFinally handler. Errors and panics raised
// by one handler are logged and do not stop the handlers after it.
func (p *pipeline) runOnFinally(e *request.Execution, logger *zerolog.Logger) {
	for i, h := range p.onFinally {
		if err := callFinally(h, e); err != nil {
			logger.Warn().
				Err(err).
				Str("plugin", p.names[OnFinally][i]).
				Str("attempt_id", e.ID).
				Msg("reqx: OnFinally handler failed")
		}
	}
}

func callFinally(h FinallyHandler, e *request.Execution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(e)
}
