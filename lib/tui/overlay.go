// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// SpliceOverlay replaces a rectangle of a rendered view with overlay
// lines placed at (anchorX, anchorY). Truncation is ANSI-aware, so
// styling on both sides of the overlay survives.
func SpliceOverlay(view string, overlayLines []string, anchorX, anchorY int) string {
	if len(overlayLines) == 0 {
		return view
	}

	viewLines := strings.Split(view, "\n")
	overlayWidth := ansi.StringWidth(overlayLines[0])

	for index, overlayLine := range overlayLines {
		viewLineIndex := anchorY + index
		if viewLineIndex < 0 || viewLineIndex >= len(viewLines) {
			continue
		}
		viewLine := viewLines[viewLineIndex]
		viewLineWidth := ansi.StringWidth(viewLine)

		var result strings.Builder
		if anchorX > 0 {
			prefix := ansi.Truncate(viewLine, anchorX, "")
			result.WriteString(prefix)
			// Short lines are padded so the overlay lands at anchorX.
			if gap := anchorX - ansi.StringWidth(prefix); gap > 0 {
				result.WriteString(strings.Repeat(" ", gap))
			}
		}
		result.WriteString("\x1b[0m")
		result.WriteString(overlayLine)
		result.WriteString("\x1b[0m")

		if suffixStart := anchorX + overlayWidth; suffixStart < viewLineWidth {
			result.WriteString(ansi.TruncateLeft(viewLine, suffixStart, ""))
		}
		viewLines[viewLineIndex] = result.String()
	}

	return strings.Join(viewLines, "\n")
}

// JoinColumns places two rendered blocks side by side, padding every
// left line to leftWidth.
func JoinColumns(left, right string, leftWidth int) string {
	leftLines := strings.Split(left, "\n")
	rightLines := strings.Split(right, "\n")
	count := max(len(leftLines), len(rightLines))

	var builder strings.Builder
	for index := range count {
		var leftLine, rightLine string
		if index < len(leftLines) {
			leftLine = ansi.Truncate(leftLines[index], leftWidth, "")
		}
		if index < len(rightLines) {
			rightLine = rightLines[index]
		}
		builder.WriteString(leftLine)
		if pad := leftWidth - ansi.StringWidth(leftLine); pad > 0 {
			builder.WriteString(strings.Repeat(" ", pad))
		}
		builder.WriteString(rightLine)
		if index < count-1 {
			builder.WriteString("\n")
		}
	}
	return builder.String()
}
