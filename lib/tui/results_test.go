// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestResultListCursor(t *testing.T) {
	t.Parallel()

	var list ResultList
	if _, ok := list.Selected(); ok {
		t.Error("empty list has a selection")
	}
	list.MoveDown()
	list.MoveUp()

	list.SetResults([]Ranked{
		{Candidate: Candidate{Label: "alpha", Value: "1"}},
		{Candidate: Candidate{Label: "beta", Value: "2"}},
		{Candidate: Candidate{Label: "gamma", Value: "3"}},
	})
	list.MoveUp()
	if selected, _ := list.Selected(); selected.Value != "3" {
		t.Errorf("MoveUp from top selected %q, want wrap to 3", selected.Value)
	}
	list.MoveDown()
	list.MoveDown()
	if selected, _ := list.Selected(); selected.Value != "2" {
		t.Errorf("selected %q, want 2", selected.Value)
	}

	list.SetResults(list.Results[:1])
	if list.Cursor != 0 {
		t.Errorf("SetResults left Cursor = %d", list.Cursor)
	}
}

func TestResultListRender(t *testing.T) {
	t.Parallel()

	list := ResultList{Results: Rank([]Candidate{
		{Label: "Deploy watcher"},
		{Label: "a very long loop name that will not fit"},
	}, "", 0)}

	lines := list.Render(DefaultTheme, 20)
	if len(lines) != 2 {
		t.Fatalf("Render returned %d lines", len(lines))
	}
	for index, line := range lines {
		if width := ansi.StringWidth(line); width != 20 {
			t.Errorf("line %d width = %d, want 20", index, width)
		}
	}
	if plain := ansi.Strip(lines[0]); !strings.HasPrefix(plain, " > Deploy") {
		t.Errorf("cursor row = %q", plain)
	}
	if plain := ansi.Strip(lines[1]); !strings.Contains(plain, "…") {
		t.Errorf("long row not truncated: %q", plain)
	}
}

func TestHighlightPositionsKeepsText(t *testing.T) {
	t.Parallel()

	result := FuzzyMatch("Deploy watcher", []rune("dw"), nil)
	rendered := highlightPositions("Deploy watcher", result.Positions, lipgloss.NewStyle(), lipgloss.NewStyle().Bold(true))
	if ansi.Strip(rendered) != "Deploy watcher" {
		t.Errorf("highlighted text = %q", ansi.Strip(rendered))
	}
}
