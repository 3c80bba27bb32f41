// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	urlpkg "net/url"
	"sort"
	"strconv"
	"strings"
)

// An ArrayFormat selects how a query parameter with several values is
// written into the query string.
type ArrayFormat string

const (
	// ArrayRepeat repeats the key: a=1&a=2. This is the behavior of the
	// empty value.
	ArrayRepeat ArrayFormat = "repeat"
	// ArrayBrackets appends empty brackets to the key: a[]=1&a[]=2.
	ArrayBrackets ArrayFormat = "brackets"
	// ArrayIndices appends the value index to the key: a[0]=1&a[1]=2.
	ArrayIndices ArrayFormat = "indices"
	// ArrayComma joins the values with commas: a=1,2.
	ArrayComma ArrayFormat = "comma"
)

// EncodeParams serializes params in key order using format. Keys with
// a single value are written plainly regardless of format.
func EncodeParams(params urlpkg.Values, format ArrayFormat) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	write := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(urlpkg.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(urlpkg.QueryEscape(v))
	}
	for _, k := range keys {
		vs := params[k]
		if len(vs) == 1 {
			write(k, vs[0])
			continue
		}
		switch format {
		case ArrayBrackets:
			for _, v := range vs {
				write(k+"[]", v)
			}
		case ArrayIndices:
			for i, v := range vs {
				write(k+"["+strconv.Itoa(i)+"]", v)
			}
		case ArrayComma:
			write(k, strings.Join(vs, ","))
		default:
			for _, v := range vs {
				write(k, v)
			}
		}
	}
	return b.String()
}
