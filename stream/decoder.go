// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultSeparator is the segment boundary used when Options.Separator
// is empty: the blank line that ends a server-sent event.
const DefaultSeparator = "\n\n"

const readSize = 4096

// Options configures a Decoder. The zero value splits on blank lines
// and emits every segment as a string.
type Options struct {
	// Separator is the boundary between segments. Empty means
	// DefaultSeparator.
	Separator string `mapstructure:"separator"`

	// LineSeparator, if set, splits every segment into lines which are
	// decoded one by one. Otherwise the whole segment is one line.
	LineSeparator string `mapstructure:"line_separator"`

	// Trim removes leading and trailing white space from segments and
	// from string chunks.
	Trim bool `mapstructure:"trim"`

	// JSON enables JSON decoding of each line after Prefix is removed.
	// Lines which are not valid JSON are emitted as strings, with the
	// prefix left in place.
	JSON bool `mapstructure:"json"`

	// Prefix is removed from the start of a line before it is decoded
	// as JSON or compared with Done.
	Prefix string `mapstructure:"prefix"`

	// Done is the sentinel which ends the stream. Empty disables the
	// sentinel check.
	Done string `mapstructure:"done"`

	// Charset is the character encoding label of the byte stream, as
	// found in a Content-Type header. Empty means UTF-8.
	Charset string `mapstructure:"charset"`
}

// SSE is a preset for JSON server-sent event streams of the kind served
// by LLM completion APIs: "data: {...}" events terminated by
// "data: [DONE]".
var SSE = Options{
	Separator:     DefaultSeparator,
	LineSeparator: "\n",
	Trim:          true,
	JSON:          true,
	Prefix:        "data:",
	Done:          "[DONE]",
}

// NDJSON is a preset for newline-delimited JSON streams.
var NDJSON = Options{
	Separator: "\n",
	Trim:      true,
	JSON:      true,
}

// A Chunk is one decoded unit of a stream.
type Chunk struct {
	// Result is the decoded value: the JSON value of the line when it
	// decoded, otherwise the line text.
	Result interface{}

	// Source is the text of the line the chunk was decoded from.
	Source []byte

	// Err reports a problem with this chunk only. A chunk carrying an
	// error does not end the stream.
	Err error
}

// Decode stores the chunk's Result in the value pointed to by v, using
// the same rules as json.Unmarshal.
func (c Chunk) Decode(v interface{}) error {
	if s, ok := c.Result.(string); ok {
		return json.Unmarshal([]byte(s), v)
	}
	b, err := json.Marshal(c.Result)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// As returns the chunk's Result as a T, and whether it has that type.
func As[T any](c Chunk) (T, bool) {
	v, ok := c.Result.(T)
	return v, ok
}

// A Decoder turns a byte stream into a sequence of Chunks.
//
// Decoding happens in two phases. First, bytes are decoded into text
// by a transform.Reader, which never splits a multi-byte character
// across reads. Second, the text is buffered and split on the segment
// separator; only complete segments are decoded, and the incomplete
// tail is carried over to the next read. Because of this, the chunks
// produced do not depend on how the underlying reader fragments its
// bytes.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r       io.Reader
	opts    Options
	sep     []byte
	buf     []byte
	carry   []byte
	pending []Chunk
	eof     bool
	done    bool
	err     error
}

// NewDecoder returns a Decoder reading from r. It fails only if
// opts.Charset names an unknown encoding.
func NewDecoder(r io.Reader, opts Options) (*Decoder, error) {
	enc, err := lookup(opts.Charset)
	if err != nil {
		return nil, err
	}
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	return &Decoder{
		r:    transform.NewReader(r, enc.NewDecoder()),
		opts: opts,
		sep:  []byte(sep),
		buf:  make([]byte, readSize),
	}, nil
}

// Next returns the next chunk. It returns io.EOF once the stream has
// ended, either naturally or because the Done sentinel was seen; after
// that every call returns io.EOF. Any other error comes from reading
// the underlying stream and is returned once all chunks decoded before
// it have been returned.
func (d *Decoder) Next() (Chunk, error) {
	for {
		if len(d.pending) > 0 {
			c := d.pending[0]
			d.pending = d.pending[1:]
			return c, nil
		}
		if d.done {
			return Chunk{}, io.EOF
		}
		if d.err != nil {
			return Chunk{}, d.err
		}
		if d.eof {
			d.flush()
			d.done = true
			continue
		}
		d.fill()
	}
}

// Segments decodes all of r and returns its chunks.
func Segments(r io.Reader, opts Options) ([]Chunk, error) {
	d, err := NewDecoder(r, opts)
	if err != nil {
		return nil, err
	}
	var chunks []Chunk
	for {
		c, err := d.Next()
		if err == io.EOF {
			return chunks, nil
		} else if err != nil {
			return chunks, err
		}
		chunks = append(chunks, c)
	}
}

func (d *Decoder) fill() {
	n, err := d.r.Read(d.buf)
	if n > 0 {
		d.carry = append(d.carry, d.buf[:n]...)
		d.split()
	}
	if err == io.EOF {
		d.eof = true
	} else if err != nil {
		d.err = err
	}
}

func (d *Decoder) split() {
	for !d.done {
		i := bytes.Index(d.carry, d.sep)
		if i < 0 {
			return
		}
		seg := string(d.carry[:i])
		d.carry = d.carry[i+len(d.sep):]
		d.segment(seg)
	}
}

func (d *Decoder) flush() {
	if len(d.carry) == 0 {
		return
	}
	seg := string(d.carry)
	d.carry = nil
	d.segment(seg)
}

func (d *Decoder) segment(seg string) {
	if strings.TrimSpace(seg) == "" {
		return
	}
	if d.opts.Trim {
		seg = strings.TrimSpace(seg)
	}
	lines := []string{seg}
	if d.opts.LineSeparator != "" {
		lines = strings.Split(seg, d.opts.LineSeparator)
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		d.line(line)
		if d.done {
			d.carry = nil
			return
		}
	}
}

func (d *Decoder) line(line string) {
	if d.opts.JSON {
		var v interface{}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, d.opts.Prefix)), &v); err == nil {
			d.emit(v, line)
			return
		}
	}
	// The sentinel is checked before a non-JSON line is emitted so it
	// never surfaces as data.
	if d.opts.Done != "" && strings.TrimSpace(strings.TrimPrefix(line, d.opts.Prefix)) == d.opts.Done {
		d.done = true
		return
	}
	// A line which is not JSON is emitted whole, prefix included.
	payload := line
	if d.opts.Trim {
		payload = strings.TrimSpace(payload)
	}
	d.emit(payload, line)
}

func (d *Decoder) emit(v interface{}, line string) {
	d.pending = append(d.pending, Chunk{Result: v, Source: []byte(line)})
}

func lookup(label string) (encoding.Encoding, error) {
	if label == "" {
		return unicode.UTF8, nil
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("reqx/stream: unknown charset %q", label)
	}
	if enc == encoding.Nop {
		return unicode.UTF8, nil
	}
	return enc, nil
}
