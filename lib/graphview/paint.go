// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package graphview

import (
	"github.com/loomworks/loom/lib/graph"
	"github.com/loomworks/loom/lib/layout"
	"github.com/loomworks/loom/lib/viewport"
)

// FilterMode selects which part of the graph is emphasized.
type FilterMode int

const (
	// FilterAll shows every node and link.
	FilterAll FilterMode = iota
	// FilterExceptional keeps only links between exceptional nodes and
	// fades every other node almost to nothing. Nodes stay in the
	// layout so positions do not jump when the filter toggles.
	FilterExceptional
)

func (mode FilterMode) String() string {
	if mode == FilterExceptional {
		return "exceptional"
	}
	return "all"
}

// Opacity levels.
const (
	filteredOpacity    = 0.02
	rigExcludedOpacity = 0.15
	unrelatedFactor    = 0.35
)

// Radii in graph units.
const (
	coordinatorRadius  = 6
	coordinatorGlow    = 10
	selectedGlowFactor = 1.5
	exceptionalRadius  = 3
	exceptionalGlow    = 6
	exceptionalTarget  = 5
	convoyRingGap      = 1.2
)

var statusRadii = map[graph.Status]float64{
	graph.StatusActive:    2.5,
	graph.StatusBlocked:   2.5,
	graph.StatusFailed:    2.5,
	graph.StatusCompleted: 2,
	graph.StatusIdle:      1.5,
}

// PaintState is everything besides the node itself that affects how a
// node or link is drawn.
type PaintState struct {
	Selected  string
	Neighbors graph.IDSet
	Filter    FilterMode
	Rig       graph.GroupID
	Zoom      float64
	LabelZoom float64

	// Pulse is the phase of the active-status halo animation in [0, 1).
	Pulse float64
}

// Ring is an outline or translucent disc around a node.
type Ring struct {
	Radius  float64
	Color   Color
	Opacity float64
	Filled  bool
}

// NodeMark is the drawing of one node.
type NodeMark struct {
	ID       string
	Position viewport.Point
	Radius   float64
	Color    Color
	Opacity  float64

	// Rings are drawn beneath the body, outermost first.
	Rings []Ring

	// Label is empty when the node is unlabeled.
	Label        string
	LabelColor   Color
	LabelOpacity float64

	Selected    bool
	Coordinator bool
}

// LinkMark is the drawing of one link.
type LinkMark struct {
	From, To  viewport.Point
	Color     Color
	Width     float64
	Opacity   float64
	Connected bool
}

// ClusterMark is the overlay drawn at one cluster anchor. Label
// geometry is in graph units divided by zoom, so it keeps a constant
// on-screen size.
type ClusterMark struct {
	Center        viewport.Point
	Label         string
	RingRadius    float64
	CrosshairHalf float64
	LabelBoxY     float64
	LabelBoxH     float64
	LabelY        float64
	Color         Color
	RingOpacity   float64
	Scale         float64
}

// Scene is a complete frame in graph coordinates.
type Scene struct {
	Transform viewport.Transform
	Links     []LinkMark
	Nodes     []NodeMark
	Clusters  []ClusterMark
}

// PaintNode computes the marks for node at position. It is a pure
// function of its arguments.
func PaintNode(node graph.Node, position viewport.Point, state PaintState) NodeMark {
	filteredOut := state.Filter == FilterExceptional && !node.Exceptional
	selected := state.Selected != "" && node.ID == state.Selected
	mark := NodeMark{
		ID:          node.ID,
		Position:    position,
		Opacity:     1,
		Selected:    selected,
		Coordinator: node.IsCoordinator(),
	}

	switch {
	case mark.Coordinator:
		mark.Radius = coordinatorRadius
		mark.Color = CoordinatorColor
		glow := float64(coordinatorGlow)
		if selected {
			glow *= selectedGlowFactor
		}
		mark.Rings = append(mark.Rings, Ring{Radius: glow, Color: CoordinatorColor, Opacity: 0.2, Filled: true})
	default:
		mark.Radius = statusRadius(node.Status)
		mark.Color = statusColor(node.Status)
		if node.Status == graph.StatusActive {
			halo := mark.Radius * (1.6 + 0.6*state.Pulse)
			mark.Rings = append(mark.Rings, Ring{Radius: halo, Color: mark.Color, Opacity: 0.25 * (1 - state.Pulse*0.5), Filled: true})
		}
		if node.Exceptional && !filteredOut {
			mark.Radius = max(mark.Radius, exceptionalRadius)
			mark.Color = ExceptionalColor
			mark.Rings = append(mark.Rings,
				Ring{Radius: exceptionalGlow, Color: ExceptionalColor, Opacity: 0.15, Filled: true},
				Ring{Radius: exceptionalTarget, Color: ExceptionalColor, Opacity: 1},
			)
		}
		if node.ConvoyID != "" {
			mark.Rings = append(mark.Rings, Ring{Radius: mark.Radius + convoyRingGap, Color: ConvoyColor(node.ConvoyID), Opacity: 0.9})
		}
	}

	switch {
	case filteredOut:
		mark.Opacity = filteredOpacity
	default:
		if state.Rig != "" && node.Group != state.Rig && !mark.Coordinator {
			mark.Opacity = rigExcludedOpacity
		}
		if state.Selected != "" && !state.Neighbors.Has(node.ID) {
			mark.Opacity *= unrelatedFactor
		}
	}

	if !filteredOut && labeled(node, state) {
		mark.Label = node.Label()
		mark.LabelColor = LabelColor
		mark.LabelOpacity = 0.6
		if node.Exceptional {
			mark.LabelColor = ExceptionalColor
		}
		if selected || mark.Coordinator {
			mark.LabelOpacity = 1
		}
		mark.LabelOpacity *= mark.Opacity
	}
	return mark
}

func labeled(node graph.Node, state PaintState) bool {
	switch {
	case node.IsCoordinator():
		return true
	case state.Selected != "" && state.Neighbors.Has(node.ID):
		return true
	case state.LabelZoom > 0 && state.Zoom > state.LabelZoom:
		return true
	}
	return false
}

func statusRadius(status graph.Status) float64 {
	if radius, ok := statusRadii[status]; ok {
		return radius
	}
	return statusRadii[graph.StatusIdle]
}

func statusColor(status graph.Status) Color {
	if color, ok := statusColors[status]; ok {
		return color
	}
	return statusColors[graph.StatusIdle]
}

// PaintLink computes the mark for a link between source and target.
func PaintLink(source, target graph.Node, from, to viewport.Point, state PaintState) LinkMark {
	mark := LinkMark{From: from, To: to, Color: LinkColor, Width: 0.5, Opacity: 0.5}
	if state.Selected == "" {
		return mark
	}
	if source.ID == state.Selected || target.ID == state.Selected {
		mark.Connected = true
		mark.Color = HighlightColor
		mark.Width = 1.5
		mark.Opacity = 0.9
		return mark
	}
	mark.Opacity = 0.08
	return mark
}

// PaintClusters computes the anchor overlay for the given zoom.
func PaintClusters(anchors layout.Anchors, zoom float64) []ClusterMark {
	if zoom <= 0 {
		zoom = 1
	}
	scale := 1 / zoom
	marks := make([]ClusterMark, 0, len(anchors))
	for _, anchor := range anchors {
		marks = append(marks, ClusterMark{
			Center:        viewport.Point{X: anchor.X, Y: anchor.Y},
			Label:         anchor.Label,
			RingRadius:    80,
			CrosshairHalf: 10,
			LabelBoxY:     anchor.Y + 85*scale,
			LabelBoxH:     18 * scale,
			LabelY:        anchor.Y + 94*scale,
			Color:         HighlightColor,
			RingOpacity:   0.08,
			Scale:         scale,
		})
	}
	return marks
}
