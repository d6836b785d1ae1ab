// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// ResultList is the floating list of search matches under the search
// box. It wraps cursor movement and renders matched characters in the
// match color.
type ResultList struct {
	Results []Ranked
	Cursor  int
}

// SetResults replaces the list and moves the cursor to the top.
func (list *ResultList) SetResults(results []Ranked) {
	list.Results = results
	list.Cursor = 0
}

// MoveUp moves the cursor up by one, wrapping to the bottom.
func (list *ResultList) MoveUp() {
	if len(list.Results) == 0 {
		return
	}
	list.Cursor--
	if list.Cursor < 0 {
		list.Cursor = len(list.Results) - 1
	}
}

// MoveDown moves the cursor down by one, wrapping to the top.
func (list *ResultList) MoveDown() {
	if len(list.Results) == 0 {
		return
	}
	list.Cursor++
	if list.Cursor >= len(list.Results) {
		list.Cursor = 0
	}
}

// Selected returns the highlighted result, false when the list is
// empty.
func (list *ResultList) Selected() (Ranked, bool) {
	if list.Cursor < 0 || list.Cursor >= len(list.Results) {
		return Ranked{}, false
	}
	return list.Results[list.Cursor], true
}

// Render returns one line per result, each exactly width columns, on
// the overlay background. The cursor row uses the selection colors.
func (list *ResultList) Render(theme Theme, width int) []string {
	if width < 4 {
		width = 4
	}
	innerWidth := width - 2

	background := lipgloss.NewStyle().Background(theme.OverlayBackground).Foreground(theme.NormalText)
	selected := lipgloss.NewStyle().Background(theme.SelectedBackground).Foreground(theme.SelectedForeground)
	match := lipgloss.NewStyle().Foreground(theme.MatchForeground).Bold(true)

	lines := make([]string, 0, len(list.Results))
	for index, result := range list.Results {
		base := background
		marker := "  "
		if index == list.Cursor {
			base = selected
			marker = "> "
		}

		label := ansi.Truncate(result.Label, innerWidth-len(marker), "…")
		content := marker + highlightPositions(label, result.Positions, base, match.Inherit(base))
		pad := innerWidth - ansi.StringWidth(marker+label)
		if pad < 0 {
			pad = 0
		}
		lines = append(lines, base.Render(" ")+content+base.Render(strings.Repeat(" ", pad+1)))
	}
	return lines
}

// highlightPositions styles the runes at positions with match and the
// rest with base.
func highlightPositions(text string, positions []int, base, match lipgloss.Style) string {
	if len(positions) == 0 {
		return base.Render(text)
	}
	marked := make(map[int]bool, len(positions))
	for _, position := range positions {
		marked[position] = true
	}

	var builder strings.Builder
	var run strings.Builder
	runMatched := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if runMatched {
			builder.WriteString(match.Render(run.String()))
		} else {
			builder.WriteString(base.Render(run.String()))
		}
		run.Reset()
	}
	for index, character := range []rune(text) {
		if marked[index] != runMatched {
			flush()
			runMatched = marked[index]
		}
		run.WriteRune(character)
	}
	flush()
	return builder.String()
}
