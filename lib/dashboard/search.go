// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/loomworks/loom/lib/tui"
)

const searchLimit = 8

func (model *Model) openSearch() tea.Cmd {
	model.priorFocus = model.focus
	model.search.Reset()
	model.rankSearch()
	return model.setFocus(FocusSearch)
}

func (model *Model) closeSearch() tea.Cmd {
	model.results.SetResults(nil)
	return model.setFocus(model.priorFocus)
}

// rankSearch reranks node names against the query.
func (model *Model) rankSearch() {
	nodes := model.view.Graph().Nodes()
	candidates := make([]tui.Candidate, len(nodes))
	for index, node := range nodes {
		candidates[index] = tui.Candidate{Label: node.Label(), Value: node.ID}
	}
	model.results.SetResults(tui.Rank(candidates, model.search.Value(), searchLimit))
}

func (model *Model) handleSearchKey(message tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(message, model.keys.Escape):
		return model.closeSearch()
	case message.Type == tea.KeyUp:
		model.results.MoveUp()
		return nil
	case message.Type == tea.KeyDown:
		model.results.MoveDown()
		return nil
	case key.Matches(message, model.keys.Submit):
		selected, ok := model.results.Selected()
		command := model.closeSearch()
		if ok {
			model.view.Focus(selected.Value)
		}
		return command
	}

	var command tea.Cmd
	model.search, command = model.search.Update(message)
	model.rankSearch()
	return command
}

// renderSearch returns the search box and its results as overlay
// lines of equal width.
func (model Model) renderSearch() []string {
	graphColumns, _, _ := model.paneSizes()
	width := min(graphColumns-2, 48)

	box := model.styles.NewStyle().
		Background(model.theme.OverlayBackground).
		Foreground(model.theme.NormalText).
		Width(width)
	lines := []string{box.Render(ansi.Truncate(model.search.View(), width, ""))}
	lines = append(lines, model.results.Render(model.theme, width)...)
	if len(model.results.Results) == 0 {
		lines = append(lines, box.Foreground(model.theme.FaintText).Render("  no matching loops"))
	}
	return lines
}
