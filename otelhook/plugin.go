// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package otelhook provides a plugin which traces and meters attempts
// with OpenTelemetry.
//
// Every dispatched attempt gets a client span, a child of any span in
// the context the attempt was created with. The span context is
// injected into the request headers with the configured propagator.
// Every settled attempt is counted, and its duration recorded, whether
// or not it was dispatched:
//
//	h, err := otelhook.New(otelhook.Options{})
//	if err != nil {
//		...
//	}
//	client.Use(h.Plugin())
package otelhook

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gogama/reqx"
	"github.com/gogama/reqx/request"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of the tracer and meter.
const ScopeName = "github.com/gogama/reqx/otelhook"

// PluginName is the name under which Hook.Plugin installs itself.
const PluginName = "otelhook"

// PluginPriority runs the hook's handlers ahead of most other plugins,
// so that the span covers their work.
const PluginPriority = -500

// Attribute keys. The HTTP keys follow the stable OpenTelemetry HTTP
// semantic conventions.
const (
	MethodKey  = attribute.Key("http.request.method")
	StatusKey  = attribute.Key("http.response.status_code")
	URLKey     = attribute.Key("url.full")
	AttemptKey = attribute.Key("reqx.attempt")
	LineageKey = attribute.Key("reqx.lineage")
	KindKey    = attribute.Key("reqx.error.kind")
	StateKey   = attribute.Key("reqx.outcome")
)

// Options configures a Hook. Zero fields fall back to the global
// OpenTelemetry providers and propagator.
type Options struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Propagator     propagation.TextMapPropagator
}

// A Hook holds the tracer and instruments the plugin reports to.
type Hook struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	attempts   metric.Int64Counter
	duration   metric.Float64Histogram
}

type spanKey struct{}

// New creates the hook's tracer and metric instruments.
func New(opts Options) (*Hook, error) {
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := opts.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	prop := opts.Propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	meter := mp.Meter(ScopeName)
	attempts, err := meter.Int64Counter("reqx.attempts",
		metric.WithDescription("Number of settled attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("reqx/otelhook: creating reqx.attempts counter: %w", err)
	}
	duration, err := meter.Float64Histogram("reqx.attempt.duration",
		metric.WithDescription("Duration of settled attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("reqx/otelhook: creating reqx.attempt.duration histogram: %w", err)
	}

	return &Hook{
		tracer:     tp.Tracer(ScopeName),
		propagator: prop,
		attempts:   attempts,
		duration:   duration,
	}, nil
}

// Plugin returns a reqx.Plugin which reports to h.
func (h *Hook) Plugin() reqx.Plugin {
	return reqx.Plugin{
		Name:          PluginName,
		Priority:      PluginPriority,
		BeforeRequest: h.beforeRequest,
		BeforeStream:  h.beforeStream,
		AfterResponse: h.afterResponse,
		OnError:       h.onError,
		OnFinally:     h.onFinally,
	}
}

func (h *Hook) beforeRequest(e *request.Execution, c *request.Config) (*request.Config, error) {
	m := method(c)
	ctx, span := h.tracer.Start(e.Context(), "HTTP "+m,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			MethodKey.String(m),
			AttemptKey.Int(e.Attempt),
			LineageKey.String(e.Lineage),
		),
	)
	if u, err := c.ResolveURL(); err == nil {
		u.User = nil
		span.SetAttributes(URLKey.String(u.String()))
	}
	e.SetValue(spanKey{}, span)

	c2 := c.Clone()
	if c2.Header == nil {
		c2.Header = http.Header{}
	}
	h.propagator.Inject(ctx, propagation.HeaderCarrier(c2.Header))
	return c2, nil
}

func (h *Hook) beforeStream(e *request.Execution, body io.ReadCloser) (io.ReadCloser, error) {
	if span := spanOf(e); span != nil {
		span.SetAttributes(StatusKey.Int(e.StatusCode()))
		span.AddEvent("stream opened")
	}
	return body, nil
}

func (h *Hook) afterResponse(e *request.Execution, r *request.Response) (*request.Response, error) {
	if span := spanOf(e); span != nil {
		span.SetAttributes(StatusKey.Int(r.StatusCode))
	}
	return r, nil
}

func (h *Hook) onError(e *request.Execution, err error, _ *reqx.RetryContext) (reqx.Outcome, error) {
	if span := spanOf(e); span != nil {
		span.RecordError(err, trace.WithAttributes(KindKey.String(string(reqx.KindOf(err)))))
	}
	return nil, nil
}

func (h *Hook) onFinally(e *request.Execution) error {
	outcome := "ok"
	if e.Err != nil {
		outcome = string(reqx.KindOf(e.Err))
	}

	if span := spanOf(e); span != nil {
		if status := e.StatusCode(); status != 0 {
			span.SetAttributes(StatusKey.Int(status))
		}
		span.SetAttributes(StateKey.String(outcome))
		if e.Err != nil {
			span.SetStatus(codes.Error, e.Err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End(trace.WithTimestamp(e.End))
	}

	// The attempt context is cancelled by now, and metrics must not
	// inherit that cancellation.
	ctx := context.WithoutCancel(e.Context())
	attrs := metric.WithAttributes(
		MethodKey.String(method(e.Config)),
		StateKey.String(outcome),
	)
	h.attempts.Add(ctx, 1, attrs)
	h.duration.Record(ctx, e.Duration().Seconds(), attrs)
	return nil
}

func spanOf(e *request.Execution) trace.Span {
	span, _ := e.Value(spanKey{}).(trace.Span)
	return span
}

func method(c *request.Config) string {
	if c == nil || c.Method == "" {
		return http.MethodGet
	}
	return c.Method
}
