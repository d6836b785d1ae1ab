// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the Loom
// binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/loomworks/loom/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When GitCommit is not injected, [Info] falls back to the revision
// the go command records in the build info.
package version
