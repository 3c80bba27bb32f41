// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	urlpkg "net/url"
)

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// BodyBytes converts a generic body parameter to a byte slice for use
// as a request body, and reports the content type implied by its Go
// type.
//
// The conversion logic is:
//
// • If body is nil, a nil byte slice, no content type, and no error is
// returned.
//
// • If body is a []byte, body itself is returned with no content type.
//
// • If body is a string, its bytes are returned with a plain text
// content type.
//
// • If body is url.Values, its URL-encoded form is returned with the
// form content type.
//
// • If body is an io.Reader or io.ReadCloser, the result of reading
// the whole contents of the reader (and closing it if it implements
// Closer) is returned with no content type. If reading or closing
// fails, the return value is a nil byte slice and the error.
//
// • Any other value is encoded as JSON and returned with the JSON
// content type.
func BodyBytes(body interface{}) ([]byte, string, error) {
	switch x := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(x), contentTypeText, nil
	case []byte:
		return x, "", nil
	case urlpkg.Values:
		return []byte(x.Encode()), contentTypeForm, nil
	case io.ReadCloser:
		b, err := io.ReadAll(x)
		if err != nil {
			return nil, "", err
		}
		err = x.Close()
		if err != nil {
			return nil, "", err
		}
		return b, "", nil
	case io.Reader:
		return BodyBytes(io.NopCloser(x))
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, "", fmt.Errorf("reqx/request: encode body: %w", err)
		}
		return b, contentTypeJSON, nil
	}
}

func newBodyReader(b []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b))
}
