// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBodyBytes(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		testCases := []struct {
			name        string
			body        interface{}
			expected    []byte
			contentType string
		}{
			{"nil", nil, nil, ""},
			{"string", "foo", []byte("foo"), contentTypeText},
			{"bytes", []byte("bar"), []byte("bar"), ""},
			{"reader", strings.NewReader("baz"), []byte("baz"), ""},
			{"read closer", io.NopCloser(bytes.NewReader([]byte("bar"))), []byte("bar"), ""},
			{"form", url.Values{"b": {"2"}, "a": {"1"}}, []byte("a=1&b=2"), contentTypeForm},
			{"int", 10, []byte("10"), contentTypeJSON},
			{"map", map[string]int{"x": 1}, []byte(`{"x":1}`), contentTypeJSON},
		}
		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				b, contentType, err := BodyBytes(testCase.body)
				require.NoError(t, err)
				assert.Equal(t, testCase.expected, b)
				assert.Equal(t, testCase.contentType, contentType)
			})
		}
	})
	t.Run("same slice", func(t *testing.T) {
		b2 := []byte("bar")
		b, _, err := BodyBytes(b2)
		require.NoError(t, err)
		assert.Same(t, &b2[0], &b[0])
	})
	t.Run("unencodable", func(t *testing.T) {
		b, contentType, err := BodyBytes(make(chan int))
		assert.Nil(t, b)
		assert.Empty(t, contentType)
		assert.ErrorContains(t, err, "reqx/request: encode body")
	})
	t.Run("reader errors", func(t *testing.T) {
		expectedErr := errors.New("ham")
		t.Run("Read", func(t *testing.T) {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.Anything).Return(10, expectedErr).Once()
			b, _, err := BodyBytes(m)
			assert.Nil(t, b)
			assert.Same(t, expectedErr, err)
			m.AssertExpectations(t)
		})
		t.Run("Close", func(t *testing.T) {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.Anything).Return(0, io.EOF).Once()
			m.On("Close").Return(expectedErr).Once()
			b, _, err := BodyBytes(m)
			assert.Nil(t, b)
			assert.Same(t, expectedErr, err)
			m.AssertExpectations(t)
		})
	})
}

type mockReadCloser struct {
	mock.Mock
}

func (m *mockReadCloser) Read(p []byte) (n int, err error) {
	args := m.Called(p)
	n = args.Int(0)
	err = args.Error(1)
	return
}

func (m *mockReadCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}
