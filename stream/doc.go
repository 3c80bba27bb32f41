// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package stream segments push-style text streams, such as server-sent
events or newline-delimited JSON, into decoded chunks.

A Decoder reads raw bytes, decodes them into text, splits the text on a
segment separator, and decodes each segment (or each line of each
segment) into a Chunk:

	d, err := stream.NewDecoder(resp.Body, stream.SSE)
	...
	for {
		c, err := d.Next()
		if err == io.EOF {
			break
		}
		...
	}

Segment boundaries are never split across chunks, however the bytes
arrive: a Decoder fed one byte at a time yields the same chunks as one
fed the whole stream at once. When Options.Done is set, the line whose
prefix-stripped text equals the sentinel ends the stream without being
emitted.
*/
package stream
