// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package logging provides a plugin which writes a structured log of
// the life of every attempt using zerolog.
//
// Each event carries the fields attempt_id, lineage, and attempt.
// Request events add method and url; response events add status;
// error events add kind; and the event logged when an attempt settles
// adds duration and, for a failed attempt, kind and error:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	client.Use(logging.Plugin(logger))
package logging

import (
	"io"

	"github.com/gogama/reqx"
	"github.com/gogama/reqx/request"
	"github.com/rs/zerolog"
)

// PluginName is the name under which Plugin installs itself.
const PluginName = "logging"

// PluginPriority runs the logging handlers ahead of handlers of the
// default priority, so that errors are logged before other OnError
// handlers act on them.
const PluginPriority = -1000

// Plugin returns a reqx.Plugin which logs to l. Progress events are
// logged at debug level, failures handed to the OnError chain at warn
// level, and settlement at info level, or error level if the attempt
// failed.
func Plugin(l zerolog.Logger) reqx.Plugin {
	return reqx.Plugin{
		Name:     PluginName,
		Priority: PluginPriority,
		BeforeRequest: func(e *request.Execution, c *request.Config) (*request.Config, error) {
			event(l.Debug(), e).
				Str("method", method(c)).
				Str("url", target(c)).
				Msg("request")
			return c, nil
		},
		BeforeStream: func(e *request.Execution, body io.ReadCloser) (io.ReadCloser, error) {
			event(l.Debug(), e).
				Int("status", e.StatusCode()).
				Msg("stream opened")
			return body, nil
		},
		AfterResponse: func(e *request.Execution, r *request.Response) (*request.Response, error) {
			event(l.Debug(), e).
				Int("status", r.StatusCode).
				Int("bytes", len(r.Body)).
				Msg("response")
			return r, nil
		},
		OnError: func(e *request.Execution, err error, rc *reqx.RetryContext) (reqx.Outcome, error) {
			event(l.Warn(), e).
				Str("kind", string(reqx.KindOf(err))).
				Int("max_attempts", rc.MaxAttempts).
				Err(err).
				Msg("attempt failed")
			return nil, nil
		},
		OnFinally: func(e *request.Execution) error {
			ev := l.Info()
			if e.Err != nil {
				ev = l.Error()
			}
			ev = event(ev, e).
				Str("method", method(e.Config)).
				Str("url", target(e.Config)).
				Dur("duration", e.Duration())
			if status := e.StatusCode(); status != 0 {
				ev = ev.Int("status", status)
			}
			if e.Err != nil {
				ev = ev.Str("kind", string(reqx.KindOf(e.Err))).Err(e.Err)
			}
			ev.Msg("attempt settled")
			return nil
		},
	}
}

func event(ev *zerolog.Event, e *request.Execution) *zerolog.Event {
	return ev.
		Str("attempt_id", e.ID).
		Str("lineage", e.Lineage).
		Int("attempt", e.Attempt)
}

func method(c *request.Config) string {
	if c == nil || c.Method == "" {
		return "GET"
	}
	return c.Method
}

func target(c *request.Config) string {
	if c == nil {
		return ""
	}
	u, err := c.ResolveURL()
	if err != nil {
		return c.URL
	}
	u.User = nil
	return u.String()
}
