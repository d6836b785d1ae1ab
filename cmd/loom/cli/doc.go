// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli holds the helpers shared by the Loom binaries: the
// command logger, categorised errors with hints, and exit-code
// mapping.
package cli
