// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ScrollWindow describes a scrolled view: Total content lines, Visible
// lines on screen, and the Offset of the first visible line.
type ScrollWindow struct {
	Total   int
	Visible int
	Offset  int
}

// Thumb returns the thumb's first row and row count on a track of the
// given height. Content that fits yields a full-height thumb.
func (window ScrollWindow) Thumb(height int) (start, size int) {
	if height <= 0 {
		return 0, 0
	}
	if window.Total <= 0 || window.Total <= window.Visible {
		return 0, height
	}
	size = max(1, height*window.Visible/window.Total)
	scrollable := window.Total - window.Visible
	if track := height - size; track > 0 {
		offset := min(max(window.Offset, 0), scrollable)
		start = offset * track / scrollable
	}
	return start, size
}

// RenderScrollbar draws a one-column scrollbar for window. The thumb
// takes the focus color when focused.
func RenderScrollbar(theme Theme, height int, window ScrollWindow, focused bool) string {
	if height <= 0 {
		return ""
	}
	thumbColor := theme.BorderColor
	if focused {
		thumbColor = theme.FocusBorder
	}
	track := lipgloss.NewStyle().Foreground(theme.BorderColor).Render("│")
	thumb := lipgloss.NewStyle().Foreground(thumbColor).Render("┃")

	start, size := window.Thumb(height)
	rows := make([]string, height)
	for row := range rows {
		if row >= start && row < start+size {
			rows[row] = thumb
		} else {
			rows[row] = track
		}
	}
	return strings.Join(rows, "\n")
}
