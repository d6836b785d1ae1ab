// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package markdown renders assistant replies for the terminal pane.
//
// Input is parsed with goldmark (GFM tables, strikethrough, task lists
// and autolinks) and rendered block by block into styled lines that
// fit a column width. Paragraph soft breaks reflow, so text that the
// model hard-wrapped at 80 columns still reads well in a narrow pane.
// Fenced code is highlighted with chroma and never wrapped.
package markdown
