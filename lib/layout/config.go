// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"github.com/loomworks/loom/lib/graph"
)

// Point is a position in graph coordinates.
type Point struct {
	X, Y float64
}

// Anchor is the target point for one cluster group.
type Anchor struct {
	Group graph.GroupID
	Label string
	X, Y  float64
}

// Anchors is the static cluster anchor table.
type Anchors []Anchor

// Target returns the anchor point for group. Nodes without a group
// fall back to the first anchor. A group matching no anchor by name
// is treated as a table index when numeric, and otherwise targets
// the origin.
func (anchors Anchors) Target(group graph.GroupID) Point {
	if len(anchors) == 0 {
		return Point{}
	}
	if group == "" {
		return Point{X: anchors[0].X, Y: anchors[0].Y}
	}
	for _, anchor := range anchors {
		if anchor.Group == group {
			return Point{X: anchor.X, Y: anchor.Y}
		}
	}
	if index, ok := group.Index(); ok && index < len(anchors) {
		return Point{X: anchors[index].X, Y: anchors[index].Y}
	}
	return Point{}
}

// Config holds the simulation parameters.
type Config struct {
	// ChargeStrength is the per-node many-body strength. Negative
	// values repel.
	ChargeStrength float64

	// ChargeDistanceMax bounds the many-body interaction distance.
	ChargeDistanceMax float64

	// Theta is the Barnes-Hut approximation criterion.
	Theta float64

	LinkDistance   float64
	CollideRadius  float64
	CenterStrength float64

	// ClusterGain scales the pull toward each node's anchor.
	ClusterGain float64

	AlphaDecay    float64
	AlphaMin      float64
	VelocityDecay float64

	WarmupTicks   int
	CooldownTicks int

	// DragAlphaTarget is the alpha target held while a node is being
	// dragged.
	DragAlphaTarget float64

	Anchors Anchors

	// Seed makes the coincident-point jiggle reproducible.
	Seed uint64
}

// DefaultConfig returns the parameters tuned for large agent fleets:
// short links, modest repulsion, and fast annealing.
func DefaultConfig() Config {
	return Config{
		ChargeStrength:    -30,
		ChargeDistanceMax: 300,
		Theta:             0.9,
		LinkDistance:      20,
		CollideRadius:     3,
		CenterStrength:    0.02,
		ClusterGain:       1,
		AlphaDecay:        0.05,
		AlphaMin:          0.001,
		VelocityDecay:     0.7,
		WarmupTicks:       50,
		CooldownTicks:     50,
		DragAlphaTarget:   0.3,
		Seed:              1,
	}
}
