// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Loom packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with a time.After fallback) so that individual
// tests do not need direct time.After calls. [TryReceive] is the
// non-fatal form for values that may legitimately never arrive. These
// are the only place in the test suite where real wall-clock timeouts
// are used; everything else runs on clock.Fake.
//
// All fatal helpers call t.Fatalf rather than returning errors, since
// test setup failures are not recoverable.
//
// This package has no Loom-internal dependencies.
package testutil
