// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds API keys and sealing identities in memory
// outside the Go heap.
//
// A [Buffer] is an anonymous mmap region locked against swap and
// excluded from core dumps. Close zeroes and unmaps it. Callers that
// need a string (JSON bodies, HTTP headers) take one with
// [Buffer.String] at the boundary and drop it promptly.
//
// [ReadFromPath] reads a secret from a file or stdin for the
// --set-key flag.
package secret
