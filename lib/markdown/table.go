// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

const columnGap = "  "

// table renders a GFM table as aligned columns with a rule under the
// header. Columns shrink proportionally, to three cells minimum, when
// the table is wider than width.
func (state *renderState) table(table *extast.Table, width int) []string {
	var header []string
	var rows [][]string
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.Kind() {
		case extast.KindTableHeader:
			header = state.tableCells(child)
		case extast.KindTableRow:
			rows = append(rows, state.tableCells(child))
		}
	}

	columns := len(header)
	for _, row := range rows {
		columns = max(columns, len(row))
	}
	if columns == 0 {
		return nil
	}

	widths := make([]int, columns)
	measure := func(cells []string) {
		for index, cell := range cells {
			widths[index] = max(widths[index], lipgloss.Width(cell))
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}
	shrinkColumns(widths, width)

	var lines []string
	if len(header) > 0 {
		bold := state.styles.NewStyle().Bold(true).Foreground(state.theme.NormalText)
		lines = append(lines, bold.Render(formatRow(header, widths, table.Alignments)))

		rules := make([]string, columns)
		for index, columnWidth := range widths {
			rules[index] = strings.Repeat("─", columnWidth)
		}
		lines = append(lines, state.style(state.theme.BorderColor).Render(strings.Join(rules, columnGap)))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, table.Alignments))
	}
	return lines
}

func (state *renderState) tableCells(row ast.Node) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if cell.Kind() == extast.KindTableCell {
			cells = append(cells, state.inline(cell))
		}
	}
	return cells
}

func shrinkColumns(widths []int, available int) {
	total := len(columnGap) * (len(widths) - 1)
	for _, columnWidth := range widths {
		total += columnWidth
	}
	if total <= available {
		return
	}
	usable := max(available-len(columnGap)*(len(widths)-1), 3*len(widths))
	for index := range widths {
		widths[index] = max(widths[index]*usable/total, 3)
	}
}

func formatRow(cells []string, widths []int, alignments []extast.Alignment) string {
	parts := make([]string, len(widths))
	for index, columnWidth := range widths {
		var cell string
		if index < len(cells) {
			cell = cells[index]
		}
		if lipgloss.Width(cell) > columnWidth {
			cell = ansi.Truncate(cell, columnWidth, "…")
		}
		padding := max(columnWidth-lipgloss.Width(cell), 0)

		alignment := extast.AlignNone
		if index < len(alignments) {
			alignment = alignments[index]
		}
		switch alignment {
		case extast.AlignRight:
			cell = strings.Repeat(" ", padding) + cell
		case extast.AlignCenter:
			left := padding / 2
			cell = strings.Repeat(" ", left) + cell + strings.Repeat(" ", padding-left)
		default:
			cell += strings.Repeat(" ", padding)
		}
		parts[index] = cell
	}
	return strings.Join(parts, columnGap)
}
