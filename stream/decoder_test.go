// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder(t *testing.T) {
	t.Run("sentinel", testDecoderSentinel)
	t.Run("fragmentation", testDecoderFragmentation)
	t.Run("multi-byte", testDecoderMultiByte)
	t.Run("plain", testDecoderPlain)
	t.Run("carry-over flush", testDecoderFlush)
	t.Run("line separator", testDecoderLineSeparator)
	t.Run("non-JSON line", testDecoderNonJSONLine)
	t.Run("read error", testDecoderReadError)
	t.Run("charset", testDecoderCharset)
}

func testDecoderSentinel(t *testing.T) {
	opts := Options{JSON: true, Prefix: "data: ", Done: "[DONE]"}
	input := "data: {\"a\":1}\n\ndata: [DONE]\n\ndata: {\"b\":2}\n\n"

	d, err := NewDecoder(strings.NewReader(input), opts)
	require.NoError(t, err)

	c, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": float64(1)}, c.Result)
	assert.Equal(t, []byte(`data: {"a":1}`), c.Source)
	assert.NoError(t, c.Err)

	for i := 0; i < 3; i++ {
		_, err = d.Next()
		assert.Equal(t, io.EOF, err, "Next call %d after sentinel", i)
	}
}

func testDecoderFragmentation(t *testing.T) {
	input := "data: {\"n\":1}\n\n" +
		"data: not json\n\n" +
		"   \n\n" +
		"data: {\"n\":\"ünïcødé ✓\"}\n\n" +
		"data: {\"n\":3}"
	optionSets := []Options{
		{JSON: true, Prefix: "data: ", Trim: true},
		{Trim: true},
		SSE,
	}
	for i, opts := range optionSets {
		t.Run(fmt.Sprintf("opts[%d]", i), func(t *testing.T) {
			whole, err := Segments(strings.NewReader(input), opts)
			require.NoError(t, err)
			require.Len(t, whole, 4)

			readers := map[string]io.Reader{
				"one byte":  iotest.OneByteReader(strings.NewReader(input)),
				"half":      iotest.HalfReader(strings.NewReader(input)),
				"data+EOF":  iotest.DataErrReader(strings.NewReader(input)),
				"fragments": &fragmentReader{s: input, sizes: []int{1, 2, 3, 5, 7, 11, 13}},
			}
			for name, r := range readers {
				t.Run(name, func(t *testing.T) {
					got, err := Segments(r, opts)
					require.NoError(t, err)
					assert.Equal(t, whole, got)
				})
			}
		})
	}
}

func testDecoderMultiByte(t *testing.T) {
	input := "é✓\n\n日本\n\n"
	got, err := Segments(iotest.OneByteReader(strings.NewReader(input)), Options{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "é✓", got[0].Result)
	assert.Equal(t, "日本", got[1].Result)
}

func testDecoderPlain(t *testing.T) {
	input := "  one  \n\n\n\ntwo\n\n[DONE]\n\nthree\n\n"
	t.Run("no trim", func(t *testing.T) {
		got, err := Segments(strings.NewReader(input), Options{Done: "[DONE]"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "  one  ", got[0].Result)
		assert.Equal(t, "two", got[1].Result)
	})
	t.Run("trim", func(t *testing.T) {
		got, err := Segments(strings.NewReader(input), Options{Done: "[DONE]", Trim: true})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "one", got[0].Result)
	})
	t.Run("no sentinel", func(t *testing.T) {
		got, err := Segments(strings.NewReader(input), Options{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "[DONE]", got[2].Result)
	})
}

func testDecoderFlush(t *testing.T) {
	got, err := Segments(strings.NewReader("{\"x\":1}\n\n{\"x\":2}"), Options{JSON: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, map[string]interface{}{"x": float64(2)}, got[1].Result)

	got, err = Segments(strings.NewReader("{\"x\":1}\n\n \n "), Options{JSON: true})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func testDecoderNonJSONLine(t *testing.T) {
	input := "data: {\"a\":1}\n\ndata: keep-alive \n\n"
	t.Run("untrimmed", func(t *testing.T) {
		got, err := Segments(strings.NewReader(input), Options{JSON: true, Prefix: "data: "})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "data: keep-alive ", got[1].Result)
		assert.Equal(t, []byte("data: keep-alive "), got[1].Source)
	})
	t.Run("trimmed", func(t *testing.T) {
		got, err := Segments(strings.NewReader(input), Options{JSON: true, Prefix: "data: ", Trim: true})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "data: keep-alive", got[1].Result)
	})
}

func testDecoderLineSeparator(t *testing.T) {
	input := "event: delta\ndata: {\"t\":\"he\"}\n\n" +
		"data: {\"t\":\"llo\"}\n\n" +
		"data: [DONE]\n\n"
	got, err := Segments(strings.NewReader(input), SSE)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "event: delta", got[0].Result)
	assert.Equal(t, map[string]interface{}{"t": "he"}, got[1].Result)
	assert.Equal(t, map[string]interface{}{"t": "llo"}, got[2].Result)

	var typed struct{ T string }
	require.NoError(t, got[2].Decode(&typed))
	assert.Equal(t, "llo", typed.T)
	m, ok := As[map[string]interface{}](got[1])
	assert.True(t, ok)
	assert.Equal(t, "he", m["t"])
	_, ok = As[string](got[1])
	assert.False(t, ok)
}

func testDecoderReadError(t *testing.T) {
	expectedErr := errors.New("connection went away")
	r := io.MultiReader(strings.NewReader("a\n\nb\n\nc"), iotest.ErrReader(expectedErr))
	d, err := NewDecoder(r, Options{})
	require.NoError(t, err)

	c, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", c.Result)
	c, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, "b", c.Result)
	_, err = d.Next()
	assert.Same(t, expectedErr, err)
}

func testDecoderCharset(t *testing.T) {
	// "café" in ISO-8859-1.
	input := []byte{'c', 'a', 'f', 0xe9, '\n', '\n'}
	got, err := Segments(strings.NewReader(string(input)), Options{Charset: "iso-8859-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "café", got[0].Result)

	_, err = NewDecoder(strings.NewReader(""), Options{Charset: "klingon"})
	assert.EqualError(t, err, `reqx/stream: unknown charset "klingon"`)
}

type fragmentReader struct {
	s     string
	sizes []int
	i     int
}

func (r *fragmentReader) Read(p []byte) (int, error) {
	if r.s == "" {
		return 0, io.EOF
	}
	n := r.sizes[r.i%len(r.sizes)]
	r.i++
	if n > len(r.s) {
		n = len(r.s)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.s[:n])
	r.s = r.s[n:]
	return n, nil
}
