// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"strings"
	"testing"

	"github.com/loomworks/loom/lib/graphview"
	"github.com/loomworks/loom/lib/viewport"
)

var white = graphview.Color{R: 255, G: 255, B: 255}

func TestSetBrailleBits(t *testing.T) {
	t.Parallel()

	canvas := New(2, 1, nil)
	canvas.Set(0, 0, white, 1)
	canvas.Set(1, 3, white, 1)
	canvas.Set(2, 1, white, 1)

	got := []rune(canvas.Plain())
	if got[0] != rune(brailleBase+0x01+0x80) {
		t.Errorf("cell 0 = %U, want dots 1 and 8", got[0])
	}
	if got[1] != rune(brailleBase+0x02) {
		t.Errorf("cell 1 = %U, want dot 2", got[1])
	}
}

func TestSetIgnoresOutOfBoundsAndFaint(t *testing.T) {
	t.Parallel()

	canvas := New(1, 1, nil)
	canvas.Set(-1, 0, white, 1)
	canvas.Set(5, 5, white, 1)
	canvas.Set(0, 0, white, 0.001)
	if canvas.Plain() != " " {
		t.Errorf("canvas = %q, want blank", canvas.Plain())
	}
}

func TestMostOpaqueMarkWinsColor(t *testing.T) {
	t.Parallel()

	canvas := New(1, 1, nil)
	bright := graphview.Color{R: 200}
	canvas.Set(0, 0, bright, 1)
	canvas.Set(1, 1, white, 0.3)
	if got := canvas.cells[0].color; got != bright {
		t.Errorf("cell color = %+v, want the opaque mark", got)
	}
}

func TestLineAndDisc(t *testing.T) {
	t.Parallel()

	canvas := New(10, 2, nil)
	canvas.Line(0, 0, 19, 0, white, 1)
	top := strings.Split(canvas.Plain(), "\n")[0]
	if strings.Contains(top, " ") {
		t.Errorf("horizontal line has gaps: %q", top)
	}

	disc := New(4, 2, nil)
	disc.Disc(4, 4, 2, white, 1)
	if strings.Count(disc.Plain(), " ") == 8 {
		t.Error("disc drew nothing")
	}
}

func TestTextClipsAtEdge(t *testing.T) {
	t.Parallel()

	canvas := New(6, 1, nil)
	canvas.Text(2, 0, "Anthropic", white, 1, nil)
	if got := canvas.Plain(); got != "  Ant…" {
		t.Errorf("clipped label = %q", got)
	}

	left := New(4, 1, nil)
	left.Text(-2, 0, "abcdef", white, 1, nil)
	if got := left.Plain(); got != "cdef" {
		t.Errorf("left-clipped label = %q", got)
	}
}

func TestDrawScene(t *testing.T) {
	t.Parallel()

	canvas := New(40, 10, nil)
	width, height := canvas.DotSize()
	scene := graphview.Scene{
		Transform: viewport.Transform{Zoom: 1, Unit: 1, Width: float64(width), Height: float64(height)},
		Nodes: []graphview.NodeMark{{
			ID:           "a",
			Position:     viewport.Point{X: -10, Y: 0},
			Radius:       2,
			Color:        white,
			Opacity:      1,
			Label:        "alpha",
			LabelColor:   white,
			LabelOpacity: 1,
		}},
		Links: []graphview.LinkMark{{
			From: viewport.Point{X: -10, Y: 0}, To: viewport.Point{X: 10, Y: 0}, Color: white, Opacity: 1,
		}},
	}
	canvas.Draw(scene)
	plain := canvas.Plain()

	if !strings.Contains(plain, "alpha") {
		t.Errorf("label missing from:\n%s", plain)
	}
	if strings.TrimSpace(strings.ReplaceAll(plain, "alpha", "")) == "" {
		t.Error("no dots drawn")
	}
	if rendered := canvas.Render(); !strings.Contains(rendered, "alpha") {
		t.Error("Render lost the label")
	}
}

func TestDrawEmptyScene(t *testing.T) {
	t.Parallel()

	canvas := New(5, 2, nil)
	canvas.Draw(graphview.Scene{})
	if got := canvas.Plain(); got != "     \n     " {
		t.Errorf("empty scene = %q", got)
	}
	if New(0, 0, nil).Render() != "" {
		t.Error("zero-size canvas rendered content")
	}
}

func TestCellToDot(t *testing.T) {
	t.Parallel()

	if got := CellToDot(3, 2); got != (viewport.Point{X: 7, Y: 10}) {
		t.Errorf("CellToDot = %v", got)
	}
}
