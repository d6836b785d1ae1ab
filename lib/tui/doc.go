// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds the terminal UI pieces the dashboard shares: the
// color theme, ANSI-aware overlay splicing, the search result list,
// fzf-backed fuzzy matching, the scrollbar, and a slog handler that
// routes log records into a running bubbletea program instead of
// onto the alternate screen.
package tui
