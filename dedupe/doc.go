// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package dedupe provides a plugin which rejects a request while an
// identical request is already in flight.
//
// Requests are identical when their signatures match. The default
// signature covers the method, the resolved URL, and the body; supply a
// custom Signer to change what counts as identical:
//
//	g := dedupe.New()
//	client.Use(g.Plugin())
//
// A rejected request fails with a reqx.KindDedupe error. Retries of an
// in-flight request belong to its lineage and are never rejected. The
// guard releases a signature when the attempt holding it settles, no
// matter whether it succeeded, failed, or was aborted.
package dedupe
