// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"math"

	"github.com/charmbracelet/x/ansi"

	"github.com/loomworks/loom/lib/graphview"
	"github.com/loomworks/loom/lib/viewport"
)

// labelBackground is the fill behind cluster labels.
var labelBackground = graphview.Color{R: 0x16, G: 0x18, B: 0x1d}

// Draw rasterizes scene. The scene's transform must be sized to the
// canvas in dots (see [Canvas.DotSize]).
func (canvas *Canvas) Draw(scene graphview.Scene) {
	transform := scene.Transform
	scale := transform.Scale()

	for _, cluster := range scene.Clusters {
		center := transform.ToScreen(cluster.Center)
		canvas.Circle(center.X, center.Y, cluster.RingRadius*scale, cluster.Color, cluster.RingOpacity)
		half := cluster.CrosshairHalf * scale
		canvas.Line(center.X-half, center.Y, center.X+half, center.Y, cluster.Color, cluster.RingOpacity*2)
		canvas.Line(center.X, center.Y-half, center.X, center.Y+half, cluster.Color, cluster.RingOpacity*2)
	}

	for _, link := range scene.Links {
		from := transform.ToScreen(link.From)
		to := transform.ToScreen(link.To)
		canvas.Line(from.X, from.Y, to.X, to.Y, link.Color, link.Opacity)
	}

	type pendingLabel struct {
		column, row int
		text        string
		color       graphview.Color
		opacity     float64
	}
	var labels []pendingLabel

	for _, node := range scene.Nodes {
		center := transform.ToScreen(node.Position)
		for _, ring := range node.Rings {
			radius := ring.Radius * scale
			if ring.Filled {
				canvas.Disc(center.X, center.Y, radius, ring.Color, ring.Opacity*node.Opacity)
			} else {
				canvas.Circle(center.X, center.Y, radius, ring.Color, ring.Opacity*node.Opacity)
			}
		}
		canvas.Disc(center.X, center.Y, node.Radius*scale, node.Color, node.Opacity)

		if node.Label != "" {
			offset := math.Max(node.Radius*scale+2, 2)
			column, row := dotToCell(viewport.Point{X: center.X + offset, Y: center.Y})
			labels = append(labels, pendingLabel{column, row, node.Label, node.LabelColor, node.LabelOpacity})
		}
	}

	// Cluster labels, then node labels on top.
	for _, cluster := range scene.Clusters {
		if cluster.Label == "" {
			continue
		}
		anchor := transform.ToScreen(viewport.Point{X: cluster.Center.X, Y: cluster.LabelY})
		column, row := dotToCell(anchor)
		text := " " + cluster.Label + " "
		column -= ansi.StringWidth(text) / 2
		background := labelBackground
		canvas.Text(column, row, text, cluster.Color, 1, &background)
	}
	for _, label := range labels {
		canvas.Text(label.column, label.row, label.text, label.color, label.opacity, nil)
	}
}

func dotToCell(point viewport.Point) (column, row int) {
	return int(math.Floor(point.X / DotsPerColumn)), int(math.Floor(point.Y / DotsPerRow))
}

// CellToDot returns the dot at the center of a terminal cell, for
// mapping mouse events into the scene's screen space.
func CellToDot(column, row int) viewport.Point {
	return viewport.Point{
		X: float64(column*DotsPerColumn) + DotsPerColumn/2.0,
		Y: float64(row*DotsPerRow) + DotsPerRow/2.0,
	}
}
