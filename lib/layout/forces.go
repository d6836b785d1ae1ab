// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"math"
)

// applyLinks pulls linked nodes toward the configured link distance,
// using predicted positions (position plus velocity).
func (engine *Engine) applyLinks() {
	for position, edge := range engine.graph.Edges() {
		source := &engine.bodies[edge.Source]
		target := &engine.bodies[edge.Target]

		x := target.x + target.vx - source.x - source.vx
		y := target.y + target.vy - source.y - source.vy
		if x == 0 {
			x = engine.jiggle()
		}
		if y == 0 {
			y = engine.jiggle()
		}
		length := math.Sqrt(x*x + y*y)
		length = (length - engine.config.LinkDistance) / length * engine.alpha * engine.linkStrength[position]
		x *= length
		y *= length

		bias := engine.linkBias[position]
		target.vx -= x * bias
		target.vy -= y * bias
		source.vx += x * (1 - bias)
		source.vy += y * (1 - bias)
	}
}

// applyCenter shifts every node so the mean position moves toward the
// origin by CenterStrength of the offset. It moves positions, not
// velocities.
func (engine *Engine) applyCenter() {
	count := len(engine.bodies)
	if count == 0 || engine.config.CenterStrength == 0 {
		return
	}
	var sumX, sumY float64
	for _, current := range engine.bodies {
		sumX += current.x
		sumY += current.y
	}
	shiftX := sumX / float64(count) * engine.config.CenterStrength
	shiftY := sumY / float64(count) * engine.config.CenterStrength
	for position := range engine.bodies {
		engine.bodies[position].x -= shiftX
		engine.bodies[position].y -= shiftY
	}
}

// applyCluster nudges every node's velocity toward its group anchor.
func (engine *Engine) applyCluster() {
	if len(engine.config.Anchors) == 0 || engine.config.ClusterGain == 0 {
		return
	}
	gain := engine.config.ClusterGain * engine.alpha
	for position, node := range engine.graph.Nodes() {
		target := engine.config.Anchors.Target(node.Group)
		current := &engine.bodies[position]
		current.vx += (target.X - current.x) * gain
		current.vy += (target.Y - current.y) * gain
	}
}

// applyCollide separates nodes whose predicted positions overlap. All
// nodes share one radius, so a uniform grid with cells of one diameter
// finds every candidate pair in the 3x3 neighborhood.
func (engine *Engine) applyCollide() {
	radius := engine.config.CollideRadius
	count := len(engine.bodies)
	if radius <= 0 || count < 2 {
		return
	}
	diameter := 2 * radius

	type cell struct{ column, row int64 }
	predictedX := make([]float64, count)
	predictedY := make([]float64, count)
	grid := make(map[cell][]int, count)
	for position, current := range engine.bodies {
		predictedX[position] = current.x + current.vx
		predictedY[position] = current.y + current.vy
		key := cell{
			column: int64(math.Floor(predictedX[position] / diameter)),
			row:    int64(math.Floor(predictedY[position] / diameter)),
		}
		grid[key] = append(grid[key], position)
	}

	limit := diameter * diameter
	for position := range engine.bodies {
		home := cell{
			column: int64(math.Floor(predictedX[position] / diameter)),
			row:    int64(math.Floor(predictedY[position] / diameter)),
		}
		for columnOffset := int64(-1); columnOffset <= 1; columnOffset++ {
			for rowOffset := int64(-1); rowOffset <= 1; rowOffset++ {
				for _, other := range grid[cell{home.column + columnOffset, home.row + rowOffset}] {
					if other <= position {
						continue
					}
					x := predictedX[position] - predictedX[other]
					y := predictedY[position] - predictedY[other]
					distance := x*x + y*y
					if distance >= limit {
						continue
					}
					if x == 0 {
						x = engine.jiggle()
						distance += x * x
					}
					if y == 0 {
						y = engine.jiggle()
						distance += y * y
					}
					length := math.Sqrt(distance)
					length = (diameter - length) / length
					x *= length
					y *= length
					// Equal radii split the correction evenly.
					engine.bodies[position].vx += x * 0.5
					engine.bodies[position].vy += y * 0.5
					engine.bodies[other].vx -= x * 0.5
					engine.bodies[other].vy -= y * 0.5
				}
			}
		}
	}
}
