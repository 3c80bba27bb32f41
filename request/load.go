// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/viper"
)

// file mirrors Config for decoding. Viper folds keys to lower case, so
// headers are decoded into a plain map and canonicalized afterwards.
type file struct {
	Config  `mapstructure:",squash"`
	Headers map[string]string `mapstructure:"headers"`
	Params  map[string]string `mapstructure:"params"`
}

// LoadConfig reads a base Config from the file at path. The format is
// inferred from the extension (YAML, JSON, and TOML are supported).
// Environment variables prefixed with REQX_ override file values, e.g.
// REQX_BASE_URL or REQX_TIMEOUT.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("reqx")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reqx/request: read config %s: %w", path, err)
	}
	return DecodeConfig(v)
}

// DecodeConfig decodes a base Config out of v. Durations may be given
// as strings such as "30s".
func DecodeConfig(v *viper.Viper) (*Config, error) {
	var f file
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("reqx/request: decode config: %w", err)
	}
	c := f.Config.Clone()
	if len(f.Headers) > 0 {
		c.Header = make(http.Header, len(f.Headers))
		for k, val := range f.Headers {
			c.Header.Set(k, val)
		}
	}
	if len(f.Params) > 0 {
		c.Params = make(map[string][]string, len(f.Params))
		for k, val := range f.Params {
			c.Params.Set(k, val)
		}
	}
	c.Method = strings.ToUpper(c.Method)
	if c.Method != "" && !validMethod(c.Method) {
		return nil, fmt.Errorf("reqx/request: invalid method %q", c.Method)
	}
	return c, nil
}
