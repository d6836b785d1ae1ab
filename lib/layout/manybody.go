// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"math"
)

// maxQuadDepth stops subdivision for coincident points; deeper bodies
// share a leaf.
const maxQuadDepth = 32

const distanceMin2 = 1

// quad is one Barnes-Hut cell. Leaves hold body indices; internal
// cells hold four children. charge is the summed strength and (cx, cy)
// the center of charge.
type quad struct {
	x0, y0, x1, y1 float64
	children       [4]*quad
	bodies         []int
	charge         float64
	cx, cy         float64
	internal       bool
}

func (cell *quad) insert(engine *Engine, position, depth int) {
	if !cell.internal {
		if len(cell.bodies) == 0 || depth >= maxQuadDepth {
			cell.bodies = append(cell.bodies, position)
			return
		}
		// Split and push the residents down one level.
		existing := cell.bodies
		cell.bodies = nil
		cell.internal = true
		for _, resident := range existing {
			cell.child(engine, resident).insert(engine, resident, depth+1)
		}
	}
	cell.child(engine, position).insert(engine, position, depth+1)
}

func (cell *quad) child(engine *Engine, position int) *quad {
	midX := (cell.x0 + cell.x1) / 2
	midY := (cell.y0 + cell.y1) / 2
	current := engine.bodies[position]
	index := 0
	x0, y0, x1, y1 := cell.x0, cell.y0, midX, midY
	if current.x >= midX {
		index |= 1
		x0, x1 = midX, cell.x1
	}
	if current.y >= midY {
		index |= 2
		y0, y1 = midY, cell.y1
	}
	if cell.children[index] == nil {
		cell.children[index] = &quad{x0: x0, y0: y0, x1: x1, y1: y1}
	}
	return cell.children[index]
}

// accumulate computes charge and center of charge bottom-up.
func (cell *quad) accumulate(engine *Engine, strength float64) {
	var weight, sumX, sumY float64
	if cell.internal {
		for _, child := range cell.children {
			if child == nil {
				continue
			}
			child.accumulate(engine, strength)
			magnitude := math.Abs(child.charge)
			cell.charge += child.charge
			weight += magnitude
			sumX += magnitude * child.cx
			sumY += magnitude * child.cy
		}
	} else {
		for _, position := range cell.bodies {
			current := engine.bodies[position]
			cell.charge += strength
			weight += math.Abs(strength)
			sumX += math.Abs(strength) * current.x
			sumY += math.Abs(strength) * current.y
		}
	}
	if weight > 0 {
		cell.cx = sumX / weight
		cell.cy = sumY / weight
	}
}

// applyCharge applies pairwise repulsion approximated by Barnes-Hut,
// ignoring pairs farther apart than ChargeDistanceMax.
func (engine *Engine) applyCharge() {
	count := len(engine.bodies)
	strength := engine.config.ChargeStrength
	if count < 2 || strength == 0 {
		return
	}

	lower, upper := engine.Bounds()
	size := math.Max(upper.X-lower.X, upper.Y-lower.Y) + 1
	root := &quad{x0: lower.X, y0: lower.Y, x1: lower.X + size, y1: lower.Y + size}
	for position := range engine.bodies {
		root.insert(engine, position, 0)
	}
	root.accumulate(engine, strength)

	distanceMax2 := math.Inf(1)
	if engine.config.ChargeDistanceMax > 0 {
		distanceMax2 = engine.config.ChargeDistanceMax * engine.config.ChargeDistanceMax
	}
	theta2 := engine.config.Theta * engine.config.Theta
	for position := range engine.bodies {
		engine.visitCharge(root, position, strength, theta2, distanceMax2)
	}
}

func (engine *Engine) visitCharge(cell *quad, position int, strength, theta2, distanceMax2 float64) {
	if cell.charge == 0 {
		return
	}
	current := &engine.bodies[position]
	x := cell.cx - current.x
	y := cell.cy - current.y
	width := cell.x1 - cell.x0
	distance := x*x + y*y

	if width*width/theta2 < distance {
		// Far enough to treat the cell as one body.
		if distance < distanceMax2 {
			x, y, distance = engine.separate(x, y, distance)
			current.vx += x * cell.charge * engine.alpha / distance
			current.vy += y * cell.charge * engine.alpha / distance
		}
		return
	}

	if cell.internal {
		for _, child := range cell.children {
			if child != nil {
				engine.visitCharge(child, position, strength, theta2, distanceMax2)
			}
		}
		return
	}
	// Leaves at the depth limit can hold distinct bodies, so the range
	// check is per resident.
	for _, other := range cell.bodies {
		if other == position {
			continue
		}
		resident := engine.bodies[other]
		x := resident.x - current.x
		y := resident.y - current.y
		if x*x+y*y >= distanceMax2 {
			continue
		}
		x, y, distance := engine.separate(x, y, x*x+y*y)
		weight := strength * engine.alpha / distance
		current.vx += x * weight
		current.vy += y * weight
	}
}

// separate jiggles exactly coincident offsets and clamps tiny
// distances so the inverse-square term stays finite.
func (engine *Engine) separate(x, y, distance float64) (float64, float64, float64) {
	if x == 0 {
		x = engine.jiggle()
		distance += x * x
	}
	if y == 0 {
		y = engine.jiggle()
		distance += y * y
	}
	if distance < distanceMin2 {
		distance = math.Sqrt(distanceMin2 * distance)
	}
	return x, y, distance
}
