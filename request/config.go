// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"
	"time"

	"github.com/gogama/reqx/stream"
	"golang.org/x/net/http/httpguts"
)

// DefaultMaxAttempts is the attempt limit used when a Config does not
// set MaxAttempts. It counts the initial attempt, so the default allows
// two retries.
const DefaultMaxAttempts = 3

const nilCtxMsg = "reqx/request: nil context"

// Credentials controls whether credentials (the Authorization and
// Cookie headers) travel with a request.
type Credentials string

const (
	// CredentialsInclude sends credentials with every request. This is
	// the behavior of the empty value.
	CredentialsInclude Credentials = "include"
	// CredentialsSameOrigin sends credentials only when the resolved
	// URL has the same scheme and host as the base URL.
	CredentialsSameOrigin Credentials = "same-origin"
	// CredentialsOmit strips credentials from every request.
	CredentialsOmit Credentials = "omit"
)

// A Config contains a logical request configuration for execution by a
// client.
//
// A Config is built by the caller, or merged from client defaults using
// Merge, and then handed to every BeforeRequest handler, each of which
// may return a modified copy. Once dispatch begins, the Config seen by
// the transport should be treated as frozen.
//
// The field structure of Config loosely mirrors the lower-level
// http.Request, but URL and query parameters are kept apart so that a
// single Config can be resolved against different base URLs.
type Config struct {
	// URL is the request URL. If it is not absolute, it is resolved
	// relative to BaseURL.
	URL string `mapstructure:"url"`

	// BaseURL is prepended to URL unless URL is already absolute.
	BaseURL string `mapstructure:"base_url"`

	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string `mapstructure:"method"`

	// Params are query parameters appended to the resolved URL.
	Params urlpkg.Values `mapstructure:"-"`

	// ArrayFormat controls how multi-valued Params are serialized.
	ArrayFormat ArrayFormat `mapstructure:"array_format"`

	// Body is the request body. It may be nil, a string, a []byte, an
	// io.Reader, url.Values, or any other value, which is encoded as
	// JSON. See BodyBytes.
	Body interface{} `mapstructure:"-"`

	// Header contains the request header fields to be sent.
	Header http.Header `mapstructure:"-"`

	// Timeout bounds the whole attempt, from the start of the first
	// BeforeRequest handler until the attempt settles. Zero means the
	// client's timeout policy decides.
	Timeout time.Duration `mapstructure:"timeout"`

	// Credentials controls whether credential headers are sent.
	Credentials Credentials `mapstructure:"credentials"`

	// MaxAttempts is the maximum number of attempts, including the
	// first, that retries may reach. Zero means DefaultMaxAttempts.
	MaxAttempts int `mapstructure:"max_attempts"`

	// Stream configures the segmenter used when the response is
	// consumed as a stream.
	Stream stream.Options `mapstructure:"stream"`

	// Extra is an opaque bag for data shared between plugins. The
	// library never reads it.
	Extra map[string]interface{} `mapstructure:"extra"`
}

// NewConfig returns a new Config given a method, URL, and optional
// body. The URL is validated but kept unresolved so that a client base
// URL can still apply.
func NewConfig(method, url string, body interface{}) (*Config, error) {
	if method == "" {
		method = http.MethodGet
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("reqx/request: invalid method %q", method)
	}
	if _, err := urlpkg.Parse(url); err != nil {
		return nil, err
	}
	return &Config{
		Method: method,
		URL:    url,
		Header: make(http.Header),
		Body:   body,
	}, nil
}

// Attempts returns the effective attempt limit.
func (c *Config) Attempts() int {
	if c.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

// Clone returns a copy of c which a handler may change without
// affecting c. Header, Params, and Extra are copied; Body is shared.
func (c *Config) Clone() *Config {
	c2 := new(Config)
	*c2 = *c
	if c.Header != nil {
		c2.Header = c.Header.Clone()
	}
	if c.Params != nil {
		c2.Params = make(urlpkg.Values, len(c.Params))
		for k, vs := range c.Params {
			c2.Params[k] = append([]string(nil), vs...)
		}
	}
	if c.Extra != nil {
		c2.Extra = make(map[string]interface{}, len(c.Extra))
		for k, v := range c.Extra {
			c2.Extra[k] = v
		}
	}
	return c2
}

// Merge returns a new Config consisting of c overlaid with every
// non-zero field of over. Headers, Params, and Extra are merged key by
// key with over winning. Neither c nor over is changed.
func (c *Config) Merge(over *Config) *Config {
	m := c.Clone()
	if over == nil {
		return m
	}
	if over.URL != "" {
		m.URL = over.URL
	}
	if over.BaseURL != "" {
		m.BaseURL = over.BaseURL
	}
	if over.Method != "" {
		m.Method = over.Method
	}
	if over.ArrayFormat != "" {
		m.ArrayFormat = over.ArrayFormat
	}
	if over.Body != nil {
		m.Body = over.Body
	}
	if over.Timeout > 0 {
		m.Timeout = over.Timeout
	}
	if over.Credentials != "" {
		m.Credentials = over.Credentials
	}
	if over.MaxAttempts > 0 {
		m.MaxAttempts = over.MaxAttempts
	}
	if over.Stream != (stream.Options{}) {
		m.Stream = over.Stream
	}
	if len(over.Header) > 0 {
		if m.Header == nil {
			m.Header = make(http.Header, len(over.Header))
		}
		for k, vs := range over.Header {
			m.Header[k] = append([]string(nil), vs...)
		}
	}
	if len(over.Params) > 0 {
		if m.Params == nil {
			m.Params = make(urlpkg.Values, len(over.Params))
		}
		for k, vs := range over.Params {
			m.Params[k] = append([]string(nil), vs...)
		}
	}
	if len(over.Extra) > 0 {
		if m.Extra == nil {
			m.Extra = make(map[string]interface{}, len(over.Extra))
		}
		for k, v := range over.Extra {
			m.Extra[k] = v
		}
	}
	return m
}

// ResolveURL joins BaseURL and URL and appends the serialized Params.
func (c *Config) ResolveURL() (*urlpkg.URL, error) {
	raw := c.URL
	if c.BaseURL != "" && !isAbsolute(raw) {
		if raw == "" {
			raw = c.BaseURL
		} else {
			raw = strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(raw, "/")
		}
	}
	u, err := urlpkg.Parse(raw)
	if err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	if q := EncodeParams(c.Params, c.ArrayFormat); q != "" {
		if u.RawQuery == "" {
			u.RawQuery = q
		} else {
			u.RawQuery += "&" + q
		}
	}
	return u, nil
}

// ToRequest creates an HTTP request corresponding to the given config.
// The context of the new request is set to ctx, which may not be nil.
func (c *Config) ToRequest(ctx context.Context) (*http.Request, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	method := c.Method
	if method == "" {
		method = http.MethodGet
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("reqx/request: invalid method %q", method)
	}
	u, err := c.ResolveURL()
	if err != nil {
		return nil, err
	}
	b, contentType, err := BodyBytes(c.Body)
	if err != nil {
		return nil, err
	}
	header := c.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	for k, vs := range header {
		if !httpguts.ValidHeaderFieldName(k) {
			return nil, fmt.Errorf("reqx/request: invalid header name %q", k)
		}
		for _, v := range vs {
			if !httpguts.ValidHeaderFieldValue(v) {
				return nil, fmt.Errorf("reqx/request: invalid value for header %q", k)
			}
		}
	}
	if len(b) > 0 && contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}
	if !c.sendCredentials(u) {
		header.Del("Authorization")
		header.Del("Cookie")
	}

	r, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	r.Header = header
	if len(b) > 0 {
		r.Body = newBodyReader(b)
		r.GetBody = func() (io.ReadCloser, error) {
			return newBodyReader(b), nil
		}
		r.ContentLength = int64(len(b))
	}
	return r, nil
}

func (c *Config) sendCredentials(u *urlpkg.URL) bool {
	switch c.Credentials {
	case CredentialsOmit:
		return false
	case CredentialsSameOrigin:
		base, err := urlpkg.Parse(c.BaseURL)
		if err != nil || c.BaseURL == "" {
			return !u.IsAbs()
		}
		return strings.EqualFold(base.Scheme, u.Scheme) && strings.EqualFold(base.Host, u.Host)
	default:
		return true
	}
}

func isAbsolute(raw string) bool {
	u, err := urlpkg.Parse(raw)
	return err == nil && u.IsAbs()
}

// validMethod reports whether method is an RFC 7230 token, which is
// the same character class as a header field name.
func validMethod(method string) bool {
	return httpguts.ValidHeaderFieldName(method)
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort is lifted verbatim from net/http/http.go
//
// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
