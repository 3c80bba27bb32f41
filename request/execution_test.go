// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecution(t *testing.T) {
	cfg := &Config{URL: "/x"}
	t.Run("nil context", func(t *testing.T) {
		assert.PanicsWithValue(t, nilCtxMsg, func() {
			NewExecution(nil, cfg, 0, "", 0)
		})
	})
	t.Run("new lineage", func(t *testing.T) {
		e := NewExecution(context.Background(), cfg, 0, "", 0)
		require.NotEmpty(t, e.ID)
		assert.Equal(t, e.ID, e.Lineage)
		assert.Same(t, cfg, e.Config)
		assert.Equal(t, 0, e.Attempt)
		assert.False(t, e.Started())
	})
	t.Run("inherited lineage", func(t *testing.T) {
		first := NewExecution(context.Background(), cfg, 0, "", 0)
		second := NewExecution(context.Background(), cfg, 1, first.Lineage, 1)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, first.Lineage, second.Lineage)
		assert.Equal(t, 1, second.Attempt)
		assert.Equal(t, 1, second.Timeouts)
	})
	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		e := NewExecution(ctx, cfg, 0, "", 0)
		assert.Same(t, ctx, e.Context())
		assert.NotNil(t, (&Execution{}).Context())
	})
}

func TestExecutionResponse(t *testing.T) {
	testCases := []struct {
		name   string
		resp   *Response
		status int
		header http.Header
	}{
		{name: "no response"},
		{name: "no header", resp: &Response{StatusCode: 204}, status: 204},
		{
			name:   "header",
			resp:   &Response{StatusCode: 429, Header: http.Header{"Retry-After": {"3"}}},
			status: 429,
			header: http.Header{"Retry-After": {"3"}},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			e := &Execution{Response: testCase.resp}
			assert.Equal(t, testCase.status, e.StatusCode())
			assert.Equal(t, testCase.header, e.Header())
			assert.Equal(t, testCase.header.Get("Retry-After"), e.Header().Get("Retry-After"))
		})
	}
}

func TestExecutionDuration(t *testing.T) {
	start := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		name     string
		start    time.Time
		end      time.Time
		started  bool
		ended    bool
		duration time.Duration
	}{
		{name: "idle"},
		{name: "settled", start: start, end: start.Add(1500 * time.Millisecond), started: true, ended: true, duration: 1500 * time.Millisecond},
		{name: "aborted before dispatch", start: start, end: start, started: true, ended: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			e := &Execution{Start: testCase.start, End: testCase.end}
			assert.Equal(t, testCase.started, e.Started())
			assert.Equal(t, testCase.ended, e.Ended())
			assert.Equal(t, testCase.duration, e.Duration())
		})
	}
	t.Run("in flight", func(t *testing.T) {
		e := &Execution{Start: time.Now().Add(-time.Minute)}
		assert.True(t, e.Started())
		assert.False(t, e.Ended())
		assert.GreaterOrEqual(t, e.Duration(), time.Minute)
	})
}

func TestExecutionTimeout(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		timeout bool
	}{
		{"settled without error", nil, false},
		{"handler error", errors.New("rejected by plugin"), false},
		{"connection refused", &url.Error{Op: "Get", URL: "/x", Err: syscall.ECONNREFUSED}, false},
		{"socket timeout", &url.Error{Op: "Get", URL: "/x", Err: syscall.ETIMEDOUT}, true},
		{"classified timeout", timeoutErr{}, true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			e := &Execution{Err: testCase.err}
			assert.Equal(t, testCase.timeout, e.Timeout())
		})
	}
}

func TestExecutionValue(t *testing.T) {
	type sigKey struct{}
	type spanKey struct{}
	e := NewExecution(context.Background(), &Config{}, 0, "", 0)
	assert.Nil(t, e.Value(sigKey{}))

	e.SetValue(sigKey{}, uint64(42))
	e.SetValue(spanKey{}, "span-1")
	assert.Equal(t, uint64(42), e.Value(sigKey{}))
	assert.Equal(t, "span-1", e.Value(spanKey{}))

	e.SetValue(sigKey{}, uint64(7))
	assert.Equal(t, uint64(7), e.Value(sigKey{}))
	assert.Equal(t, "span-1", e.Value(spanKey{}))

	retry := NewExecution(context.Background(), e.Config, 1, e.Lineage, 0)
	retry.Previous = e
	assert.Nil(t, retry.Value(sigKey{}), "values belong to one attempt")
	assert.Equal(t, uint64(7), retry.Previous.Value(sigKey{}))
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "deadline passed" }

func (timeoutErr) Timeout() bool { return true }
