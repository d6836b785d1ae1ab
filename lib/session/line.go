// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "time"

// LineKind classifies a transcript line for display.
type LineKind string

const (
	LineInput     LineKind = "input"
	LineOutput    LineKind = "output"
	LineError     LineKind = "error"
	LineSystem    LineKind = "system"
	LineStreaming LineKind = "streaming"
)

// Line is one visible transcript entry.
type Line struct {
	ID        string
	Kind      LineKind
	Content   string
	Timestamp time.Time
}

// Direction is a history recall direction.
type Direction int

const (
	// Older recalls the previous command (the up arrow).
	Older Direction = iota
	// Newer recalls the next command (the down arrow).
	Newer
)
