// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"math"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/loomworks/loom/lib/canvas"
	"github.com/loomworks/loom/lib/graph"
	"github.com/loomworks/loom/lib/graphview"
	"github.com/loomworks/loom/lib/viewport"
)

const (
	// panStep is how far one arrow key moves the camera, in dots.
	panStep = 8.0

	zoomStep = 1.25

	// dragThreshold is the pointer travel, in dots, that turns a press
	// into a drag instead of a click.
	dragThreshold = 3.0

	// fitMargin pads the fitted extent so edge clusters keep their
	// labels on screen.
	fitMargin = 1.15
)

// pressState tracks a left-button press on the graph pane until it
// resolves into a click or a drag.
type pressState struct {
	active   bool
	dragging bool
	origin   viewport.Point
}

func (model *Model) handleGraphKey(message tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(message, model.keys.Quit):
		return tea.Quit
	case key.Matches(message, model.keys.FocusToggle):
		return model.setFocus(FocusTerminal)
	case key.Matches(message, model.keys.Search):
		return model.openSearch()
	case key.Matches(message, model.keys.Escape):
		model.view.ClearSelection()
	case key.Matches(message, model.keys.PanUp):
		model.view.Pan(0, -panStep)
	case key.Matches(message, model.keys.PanDown):
		model.view.Pan(0, panStep)
	case key.Matches(message, model.keys.PanLeft):
		model.view.Pan(-panStep, 0)
	case key.Matches(message, model.keys.PanRight):
		model.view.Pan(panStep, 0)
	case key.Matches(message, model.keys.ZoomIn):
		model.view.ZoomBy(zoomStep)
	case key.Matches(message, model.keys.ZoomOut):
		model.view.ZoomBy(1 / zoomStep)
	case key.Matches(message, model.keys.Filter):
		if model.view.Filter() == graphview.FilterAll {
			model.view.SetFilter(graphview.FilterExceptional)
		} else {
			model.view.SetFilter(graphview.FilterAll)
		}
	case key.Matches(message, model.keys.Rig):
		model.view.SetRigFilter(nextRig(model.view.Graph().Groups(), model.view.RigFilter()))
	case key.Matches(message, model.keys.Reset):
		model.view.Reset()
	}
	return nil
}

// nextRig cycles the rig filter: none, then each group in order, then
// none again.
func nextRig(groups []graph.GroupID, current graph.GroupID) graph.GroupID {
	if len(groups) == 0 {
		return ""
	}
	if current == "" {
		return groups[0]
	}
	for index, group := range groups {
		if group == current {
			if index+1 < len(groups) {
				return groups[index+1]
			}
			return ""
		}
	}
	return ""
}

// graphPoint maps a mouse position to the graph pane's dot space. It
// reports false outside the pane.
func (model Model) graphPoint(message tea.MouseMsg) (viewport.Point, bool) {
	graphColumns, _, bodyRows := model.paneSizes()
	column, row := message.X, message.Y-1
	if column < 0 || column >= graphColumns || row < 0 || row >= bodyRows {
		return viewport.Point{}, false
	}
	return canvas.CellToDot(column, row), true
}

func (model *Model) handleMouse(message tea.MouseMsg) {
	point, inGraph := model.graphPoint(message)

	switch message.Action {
	case tea.MouseActionPress:
		switch message.Button {
		case tea.MouseButtonWheelUp:
			if inGraph {
				model.view.ZoomBy(zoomStep)
			} else {
				model.scrollTranscript(-3)
			}
		case tea.MouseButtonWheelDown:
			if inGraph {
				model.view.ZoomBy(1 / zoomStep)
			} else {
				model.scrollTranscript(3)
			}
		case tea.MouseButtonLeft:
			if !inGraph {
				model.setFocus(FocusTerminal)
				return
			}
			if model.focus != FocusGraph {
				model.setFocus(FocusGraph)
			}
			model.press = pressState{active: true, origin: point}
		}

	case tea.MouseActionMotion:
		if !model.press.active {
			if inGraph {
				model.hovered = model.view.Hover(point)
			}
			return
		}
		if !model.press.dragging {
			if math.Hypot(point.X-model.press.origin.X, point.Y-model.press.origin.Y) < dragThreshold {
				return
			}
			model.press.dragging = model.view.DragStart(model.press.origin)
			if !model.press.dragging {
				return
			}
		}
		model.view.DragMove(point)

	case tea.MouseActionRelease:
		if !model.press.active {
			return
		}
		if model.press.dragging {
			model.view.DragEnd()
		} else {
			model.view.ClickAt(model.press.origin)
		}
		model.press = pressState{}
	}
}

// resizeGraph sizes the camera to the pane in dots and picks the base
// scale so the cluster field fits at zoom 1.
func (model *Model) resizeGraph(columns, rows int) {
	width := float64(columns * canvas.DotsPerColumn)
	height := float64(rows * canvas.DotsPerRow)
	model.view.Resize(width, height)

	spanX, spanY := model.extent()
	if spanX <= 0 || spanY <= 0 {
		return
	}
	model.view.Camera().SetUnit(math.Min(width/spanX, height/spanY))
}

// extent returns the padded size of the box around the origin that
// holds every cluster anchor and every node.
func (model Model) extent() (spanX, spanY float64) {
	var halfX, halfY float64
	for _, anchor := range model.view.Engine().Config().Anchors {
		halfX = math.Max(halfX, math.Abs(anchor.X))
		halfY = math.Max(halfY, math.Abs(anchor.Y))
	}
	lower, upper := model.view.Engine().Bounds()
	halfX = math.Max(halfX, math.Max(math.Abs(lower.X), math.Abs(upper.X)))
	halfY = math.Max(halfY, math.Max(math.Abs(lower.Y), math.Abs(upper.Y)))
	return 2 * halfX * fitMargin, 2 * halfY * fitMargin
}

func (model Model) renderGraphPane() string {
	columns, _, rows := model.paneSizes()
	surface := canvas.New(columns, rows, model.styles)
	surface.Draw(model.view.Scene())
	return surface.Render()
}
