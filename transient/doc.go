// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies transport errors. The request lifecycle
// uses it to decide whether a dispatch failure is a timeout or a
// network error, and retry policies use it to decide whether a failure
// is worth another attempt.
//
// Package transient depends only on the standard library, so it adds
// no dependencies when imported on its own.
package transient
