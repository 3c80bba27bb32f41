// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
base_url: https://api.example.com/v1
method: post
timeout: 15s
max_attempts: 4
credentials: same-origin
array_format: comma
headers:
  x-api-key: secret
  accept: application/json
params:
  version: "2"
stream:
  separator: "\n\n"
  line_separator: "\n"
  json: true
  prefix: "data:"
  done: "[DONE]"
extra:
  tenant: acme
`

func writeConfig(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		c, err := LoadConfig(writeConfig(t, "reqx.yaml", testYAML))
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/v1", c.BaseURL)
		assert.Equal(t, "POST", c.Method)
		assert.Equal(t, 15*time.Second, c.Timeout)
		assert.Equal(t, 4, c.MaxAttempts)
		assert.Equal(t, CredentialsSameOrigin, c.Credentials)
		assert.Equal(t, ArrayComma, c.ArrayFormat)
		assert.Equal(t, "secret", c.Header.Get("X-Api-Key"))
		assert.Equal(t, "application/json", c.Header.Get("Accept"))
		assert.Equal(t, "2", c.Params.Get("version"))
		assert.True(t, c.Stream.JSON)
		assert.Equal(t, "data:", c.Stream.Prefix)
		assert.Equal(t, "[DONE]", c.Stream.Done)
		assert.Equal(t, "\n", c.Stream.LineSeparator)
		assert.Equal(t, "acme", c.Extra["tenant"])
	})
	t.Run("environment override", func(t *testing.T) {
		t.Setenv("REQX_TIMEOUT", "2s")
		t.Setenv("REQX_BASE_URL", "https://override.example.com")
		c, err := LoadConfig(writeConfig(t, "reqx.yaml", testYAML))
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, c.Timeout)
		assert.Equal(t, "https://override.example.com", c.BaseURL)
	})
	t.Run("json", func(t *testing.T) {
		c, err := LoadConfig(writeConfig(t, "reqx.json", `{"url": "/ping", "max_attempts": 1}`))
		require.NoError(t, err)
		assert.Equal(t, "/ping", c.URL)
		assert.Equal(t, 1, c.MaxAttempts)
		assert.Nil(t, c.Header)
	})
	t.Run("missing file", func(t *testing.T) {
		c, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Nil(t, c)
		assert.ErrorContains(t, err, "reqx/request: read config")
	})
	t.Run("invalid method", func(t *testing.T) {
		c, err := LoadConfig(writeConfig(t, "reqx.yaml", "method: \"bad method\"\n"))
		assert.Nil(t, c)
		assert.EqualError(t, err, `reqx/request: invalid method "BAD METHOD"`)
	})
}
