// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package otelhook

import (
	"context"
	"io"
	"net/url"
	"strings"
	"syscall"
	"testing"

	"github.com/gogama/reqx"
	"github.com/gogama/reqx/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type fixture struct {
	spans  *tracetest.SpanRecorder
	tp     *sdktrace.TracerProvider
	reader *sdkmetric.ManualReader
	hook   *Hook
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		spans:  tracetest.NewSpanRecorder(),
		reader: sdkmetric.NewManualReader(),
	}
	f.tp = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(f.spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(f.reader))
	var err error
	f.hook, err = New(Options{
		TracerProvider: f.tp,
		MeterProvider:  mp,
		Propagator:     propagation.TraceContext{},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) span(t *testing.T, name string) sdktrace.ReadOnlySpan {
	for _, s := range f.spans.Ended() {
		if s.Name() == name {
			return s
		}
	}
	require.Failf(t, "span not found", "no ended span named %q", name)
	return nil
}

func (f *fixture) metrics(t *testing.T) map[string]metricdata.Metrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		assert.Equal(t, ScopeName, sm.Scope.Name)
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestHook(t *testing.T) {
	t.Run("success", testHookSuccess)
	t.Run("failure", testHookFailure)
	t.Run("abort before dispatch", testHookAbortBeforeDispatch)
	t.Run("global defaults", testHookGlobalDefaults)
}

func testHookSuccess(t *testing.T) {
	f := newFixture(t)
	var traceparent string
	cl := reqx.New(request.Config{}, f.hook.Plugin())
	cl.Transport = reqx.TransportFunc(func(ctx context.Context, c *request.Config) (*request.Response, error) {
		traceparent = c.Header.Get("traceparent")
		return respond(201), nil
	})

	ctx, parent := f.tp.Tracer("test").Start(context.Background(), "parent")
	input := &request.Config{Method: "PUT", URL: "http://user:pw@example.test/items/1", Body: "x"}
	_, err := cl.Request(ctx, input).Result()
	require.NoError(t, err)
	parent.End()
	assert.Nil(t, input.Header, "caller's config must not be changed")

	s := f.span(t, "HTTP PUT")
	assert.Equal(t, trace.SpanKindClient, s.SpanKind())
	assert.Equal(t, parent.SpanContext().SpanID(), s.Parent().SpanID())
	assert.Equal(t, codes.Ok, s.Status().Code)
	attrs := attributes(s.Attributes())
	assert.Equal(t, "PUT", attrs[MethodKey].AsString())
	assert.Equal(t, "http://example.test/items/1", attrs[URLKey].AsString())
	assert.Equal(t, int64(201), attrs[StatusKey].AsInt64())
	assert.Equal(t, int64(0), attrs[AttemptKey].AsInt64())
	assert.Equal(t, "ok", attrs[StateKey].AsString())
	assert.Contains(t, traceparent, s.SpanContext().TraceID().String())
	assert.Contains(t, traceparent, s.SpanContext().SpanID().String())

	m := f.metrics(t)
	sum := m["reqx.attempts"].Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
	outcome, _ := sum.DataPoints[0].Attributes.Value(StateKey)
	assert.Equal(t, "ok", outcome.AsString())
	hist := m["reqx.attempt.duration"].Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func testHookFailure(t *testing.T) {
	f := newFixture(t)
	cl := reqx.New(request.Config{}, f.hook.Plugin())
	cl.Transport = reqx.TransportFunc(func(ctx context.Context, c *request.Config) (*request.Response, error) {
		return nil, &url.Error{Op: "Get", URL: c.URL, Err: syscall.ECONNREFUSED}
	})
	_, err := cl.Get(context.Background(), "http://example.test").Result()
	require.Error(t, err)

	s := f.span(t, "HTTP GET")
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, err.Error(), s.Status().Description)
	assert.Equal(t, string(reqx.KindNetworkError), attributes(s.Attributes())[StateKey].AsString())
	require.Len(t, s.Events(), 1)
	ev := s.Events()[0]
	assert.Equal(t, "exception", ev.Name)
	assert.Equal(t, string(reqx.KindNetworkError), attributes(ev.Attributes)[KindKey].AsString())
}

func testHookAbortBeforeDispatch(t *testing.T) {
	f := newFixture(t)
	cl := reqx.New(request.Config{}, f.hook.Plugin())
	cl.Transport = reqx.TransportFunc(func(ctx context.Context, c *request.Config) (*request.Response, error) {
		t.Error("transport should not be called")
		return respond(200), nil
	})
	cl.Get(context.Background(), "http://example.test").Abort()

	assert.Empty(t, f.spans.Ended())
	sum := f.metrics(t)["reqx.attempts"].Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	outcome, _ := sum.DataPoints[0].Attributes.Value(StateKey)
	assert.Equal(t, string(reqx.KindAborted), outcome.AsString())
}

func testHookGlobalDefaults(t *testing.T) {
	h, err := New(Options{})
	require.NoError(t, err)
	cl := reqx.New(request.Config{}, h.Plugin())
	cl.Transport = reqx.TransportFunc(func(ctx context.Context, c *request.Config) (*request.Response, error) {
		return respond(200), nil
	})
	_, err = cl.Get(context.Background(), "http://example.test").Result()
	assert.NoError(t, err)
}

func attributes(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func respond(status int) *request.Response {
	return &request.Response{
		StatusCode: status,
		Stream:     io.NopCloser(strings.NewReader("")),
	}
}
