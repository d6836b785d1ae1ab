// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/loomworks/loom/lib/graphview"
)

// Dot offsets: braille cells are two dots wide and four tall.
const (
	DotsPerColumn = 2
	DotsPerRow    = 4
)

const brailleBase = 0x2800

// brailleBits maps (x, y) inside a cell to its braille dot bit.
var brailleBits = [DotsPerColumn][DotsPerRow]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// minOpacity is the faintest mark that still sets dots. Fainter marks
// would blend to the background color anyway.
const minOpacity = 0.015

type cell struct {
	dots      uint8
	color     graphview.Color
	intensity float64

	text       rune
	textColor  graphview.Color
	background *graphview.Color
}

// Canvas is a fixed-size drawing surface.
type Canvas struct {
	columns, rows int
	cells         []cell
	background    graphview.Color
	renderer      *lipgloss.Renderer
}

// New returns a blank canvas of the given size in terminal cells.
// A nil renderer uses lipgloss's default.
func New(columns, rows int, renderer *lipgloss.Renderer) *Canvas {
	columns, rows = max(columns, 0), max(rows, 0)
	if renderer == nil {
		renderer = lipgloss.DefaultRenderer()
	}
	return &Canvas{
		columns:    columns,
		rows:       rows,
		cells:      make([]cell, columns*rows),
		background: graphview.Background,
		renderer:   renderer,
	}
}

// Size returns the canvas size in terminal cells.
func (canvas *Canvas) Size() (columns, rows int) { return canvas.columns, canvas.rows }

// DotSize returns the canvas size in braille dots.
func (canvas *Canvas) DotSize() (width, height int) {
	return canvas.columns * DotsPerColumn, canvas.rows * DotsPerRow
}

// Clear blanks every cell.
func (canvas *Canvas) Clear() {
	clear(canvas.cells)
}

func (canvas *Canvas) at(column, row int) *cell {
	if column < 0 || row < 0 || column >= canvas.columns || row >= canvas.rows {
		return nil
	}
	return &canvas.cells[row*canvas.columns+column]
}

// Set lights the dot at (x, y) in dot coordinates.
func (canvas *Canvas) Set(x, y int, color graphview.Color, opacity float64) {
	if opacity < minOpacity || x < 0 || y < 0 {
		return
	}
	target := canvas.at(x/DotsPerColumn, y/DotsPerRow)
	if target == nil {
		return
	}
	target.dots |= brailleBits[x%DotsPerColumn][y%DotsPerRow]
	if opacity >= target.intensity {
		target.intensity = opacity
		target.color = color.Blend(canvas.background, opacity)
	}
}

// Line draws a straight line between two dot positions.
func (canvas *Canvas) Line(x0, y0, x1, y1 float64, color graphview.Color, opacity float64) {
	steps := int(math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))))
	if steps == 0 {
		canvas.Set(int(math.Round(x0)), int(math.Round(y0)), color, opacity)
		return
	}
	// Lines entirely off-canvas are common when zoomed in.
	width, height := canvas.DotSize()
	if (x0 < 0 && x1 < 0) || (y0 < 0 && y1 < 0) ||
		(x0 >= float64(width) && x1 >= float64(width)) ||
		(y0 >= float64(height) && y1 >= float64(height)) {
		return
	}
	steps = min(steps, 4*(width+height))
	for step := 0; step <= steps; step++ {
		fraction := float64(step) / float64(steps)
		canvas.Set(
			int(math.Round(x0+(x1-x0)*fraction)),
			int(math.Round(y0+(y1-y0)*fraction)),
			color, opacity,
		)
	}
}

// Circle draws a circle outline centered at (x, y) in dots.
func (canvas *Canvas) Circle(x, y, radius float64, color graphview.Color, opacity float64) {
	if radius < 0.5 {
		canvas.Set(int(math.Round(x)), int(math.Round(y)), color, opacity)
		return
	}
	steps := max(8, int(math.Ceil(2*math.Pi*radius)))
	for step := range steps {
		angle := 2 * math.Pi * float64(step) / float64(steps)
		canvas.Set(
			int(math.Round(x+radius*math.Cos(angle))),
			int(math.Round(y+radius*math.Sin(angle))),
			color, opacity,
		)
	}
}

// Disc fills a circle centered at (x, y) in dots.
func (canvas *Canvas) Disc(x, y, radius float64, color graphview.Color, opacity float64) {
	if radius < 0.75 {
		canvas.Set(int(math.Round(x)), int(math.Round(y)), color, opacity)
		return
	}
	limit := radius * radius
	for dy := -math.Ceil(radius); dy <= math.Ceil(radius); dy++ {
		for dx := -math.Ceil(radius); dx <= math.Ceil(radius); dx++ {
			if dx*dx+dy*dy <= limit {
				canvas.Set(int(math.Round(x+dx)), int(math.Round(y+dy)), color, opacity)
			}
		}
	}
}

// Text writes label starting at a cell, clipped at the right edge.
// A non-nil background fills the covered cells.
func (canvas *Canvas) Text(column, row int, label string, color graphview.Color, opacity float64, background *graphview.Color) {
	if row < 0 || row >= canvas.rows || opacity < minOpacity {
		return
	}
	if column < 0 {
		label = ansi.TruncateLeft(label, -column, "")
		column = 0
	}
	available := canvas.columns - column
	if available <= 0 {
		return
	}
	if ansi.StringWidth(label) > available {
		label = ansi.Truncate(label, available, "…")
	}
	blended := color.Blend(canvas.background, opacity)
	for _, character := range label {
		target := canvas.at(column, row)
		if target == nil {
			break
		}
		target.text = character
		target.textColor = blended
		target.background = background
		column++
	}
}

// Plain returns the canvas as text without color, one line per row.
func (canvas *Canvas) Plain() string {
	var builder strings.Builder
	for row := range canvas.rows {
		if row > 0 {
			builder.WriteByte('\n')
		}
		for column := range canvas.columns {
			builder.WriteRune(canvas.cells[row*canvas.columns+column].glyph())
		}
	}
	return builder.String()
}

func (target cell) glyph() rune {
	switch {
	case target.text != 0:
		return target.text
	case target.dots != 0:
		return rune(brailleBase + int(target.dots))
	default:
		return ' '
	}
}

type runStyle struct {
	foreground graphview.Color
	background graphview.Color
	hasBack    bool
}

func (target cell) style() runStyle {
	if target.text != 0 {
		style := runStyle{foreground: target.textColor}
		if target.background != nil {
			style.background, style.hasBack = *target.background, true
		}
		return style
	}
	return runStyle{foreground: target.color}
}

// Render returns the canvas as styled terminal text. Adjacent cells
// sharing a style are emitted as one run.
func (canvas *Canvas) Render() string {
	lines := make([]string, canvas.rows)
	var run strings.Builder
	for row := range canvas.rows {
		var line strings.Builder
		var current runStyle
		flush := func() {
			if run.Len() == 0 {
				return
			}
			style := canvas.renderer.NewStyle().Foreground(lipgloss.Color(current.foreground.Hex()))
			if current.hasBack {
				style = style.Background(lipgloss.Color(current.background.Hex()))
			}
			line.WriteString(style.Render(run.String()))
			run.Reset()
		}
		for column := range canvas.columns {
			target := canvas.cells[row*canvas.columns+column]
			style := target.style()
			if run.Len() > 0 && style != current {
				flush()
			}
			current = style
			run.WriteRune(target.glyph())
		}
		flush()
		lines[row] = line.String()
	}
	return strings.Join(lines, "\n")
}
