// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"math"
	"math/rand/v2"

	"github.com/loomworks/loom/lib/graph"
)

const (
	initialRadius = 10
	jiggleScale   = 1e-6
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// body is the engine-owned state of one node.
type body struct {
	x, y   float64
	vx, vy float64

	pinned bool
	fx, fy float64
}

// Engine runs the simulation for one graph at a time.
type Engine struct {
	config Config
	random *rand.Rand

	graph  *graph.Graph
	bodies []body

	linkStrength []float64
	linkBias     []float64

	alpha       float64
	alphaTarget float64
	ticksLeft   int
	running     bool
	dragging    string
	ticks       int
}

// New returns an engine with no graph loaded.
func New(config Config) *Engine {
	if config.Theta == 0 {
		config.Theta = 0.9
	}
	return &Engine{
		config: config,
		random: rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
		graph:  graph.New(graph.Snapshot{}),
	}
}

// Config returns the engine's parameters.
func (engine *Engine) Config() Config { return engine.config }

// Graph returns the loaded graph.
func (engine *Engine) Graph() *graph.Graph { return engine.graph }

// Load replaces the graph, reheats the simulation, and runs the warmup
// ticks. Ids already known keep their position and pin; new nodes start
// from their snapshot seed position or a phyllotaxis spiral.
func (engine *Engine) Load(next *graph.Graph) {
	previous := make(map[string]body, len(engine.bodies))
	for position, node := range engine.graph.Nodes() {
		previous[node.ID] = engine.bodies[position]
	}

	nodes := next.Nodes()
	engine.graph = next
	engine.bodies = make([]body, len(nodes))
	for position, node := range nodes {
		current := &engine.bodies[position]
		if old, ok := previous[node.ID]; ok {
			*current = body{x: old.x, y: old.y, pinned: old.pinned, fx: old.fx, fy: old.fy}
		} else {
			radius := initialRadius * math.Sqrt(0.5+float64(position))
			angle := float64(position) * initialAngle
			current.x = radius * math.Cos(angle)
			current.y = radius * math.Sin(angle)
			if node.X != nil && node.Y != nil {
				current.x, current.y = *node.X, *node.Y
			}
		}
		if node.FX != nil && node.FY != nil {
			current.pinned = true
			current.fx, current.fy = *node.FX, *node.FY
		}
		if current.pinned {
			current.x, current.y = current.fx, current.fy
		}
	}
	engine.initializeLinks()

	if engine.dragging != "" {
		if _, ok := next.Lookup(engine.dragging); !ok {
			engine.dragging = ""
			engine.alphaTarget = 0
		}
	}

	engine.alpha = 1
	for range engine.config.WarmupTicks {
		engine.step()
	}
	engine.restart()
}

// initializeLinks computes per-link strength and bias from endpoint
// degrees so that hubs are not torn apart by their many springs.
func (engine *Engine) initializeLinks() {
	edges := engine.graph.Edges()
	count := make([]int, engine.graph.Len())
	for _, edge := range edges {
		count[edge.Source]++
		count[edge.Target]++
	}
	engine.linkStrength = make([]float64, len(edges))
	engine.linkBias = make([]float64, len(edges))
	for position, edge := range edges {
		source, target := count[edge.Source], count[edge.Target]
		engine.linkStrength[position] = 1 / float64(min(source, target))
		engine.linkBias[position] = float64(source) / float64(source+target)
	}
}

func (engine *Engine) restart() {
	engine.ticksLeft = engine.config.CooldownTicks
	engine.running = engine.graph.Len() > 0
}

// Reheat restarts the cooldown budget at full temperature.
func (engine *Engine) Reheat() {
	engine.alpha = 1
	engine.restart()
}

// Running reports whether ticks still move nodes.
func (engine *Engine) Running() bool { return engine.running }

// Alpha returns the current simulation temperature.
func (engine *Engine) Alpha() float64 { return engine.alpha }

// Ticks returns the number of simulation steps taken since New.
func (engine *Engine) Ticks() int { return engine.ticks }

// Tick advances the simulation one step if it is running and reports
// whether it is still running afterwards.
func (engine *Engine) Tick() bool {
	if !engine.running {
		return false
	}
	engine.step()
	if engine.dragging != "" {
		return true
	}
	engine.ticksLeft--
	if engine.ticksLeft <= 0 || engine.alpha < engine.config.AlphaMin {
		engine.running = false
	}
	return engine.running
}

func (engine *Engine) step() {
	engine.ticks++
	engine.alpha += (engine.alphaTarget - engine.alpha) * engine.config.AlphaDecay

	engine.applyLinks()
	engine.applyCharge()
	engine.applyCenter()
	engine.applyCollide()
	engine.applyCluster()

	damping := 1 - engine.config.VelocityDecay
	for position := range engine.bodies {
		current := &engine.bodies[position]
		if current.pinned {
			current.x, current.y = current.fx, current.fy
			current.vx, current.vy = 0, 0
			continue
		}
		current.vx *= damping
		current.vy *= damping
		current.x += current.vx
		current.y += current.vy
	}
}

func (engine *Engine) jiggle() float64 {
	return (engine.random.Float64() - 0.5) * jiggleScale
}

// Position returns the current position of id.
func (engine *Engine) Position(id string) (Point, bool) {
	position, ok := engine.graph.Lookup(id)
	if !ok {
		return Point{}, false
	}
	current := engine.bodies[position]
	return Point{X: current.x, Y: current.y}, true
}

// PositionAt returns the position of the node at index position in
// [graph.Graph.Nodes]. It panics on an out-of-range index.
func (engine *Engine) PositionAt(position int) Point {
	current := engine.bodies[position]
	return Point{X: current.x, Y: current.y}
}

// Pinned reports whether id is held at a fixed position.
func (engine *Engine) Pinned(id string) bool {
	position, ok := engine.graph.Lookup(id)
	return ok && engine.bodies[position].pinned
}

// Pin holds id at its current position.
func (engine *Engine) Pin(id string) {
	if position, ok := engine.graph.Lookup(id); ok {
		engine.pin(position)
	}
}

func (engine *Engine) pin(position int) {
	current := &engine.bodies[position]
	current.pinned = true
	current.fx, current.fy = current.x, current.y
}

// PinAll holds every node at its current position.
func (engine *Engine) PinAll() {
	for position := range engine.bodies {
		engine.pin(position)
	}
}

// Unpin releases id back to the simulation.
func (engine *Engine) Unpin(id string) {
	if position, ok := engine.graph.Lookup(id); ok {
		engine.bodies[position].pinned = false
	}
}

// Reset releases every pin and reheats.
func (engine *Engine) Reset() {
	for position := range engine.bodies {
		engine.bodies[position].pinned = false
	}
	engine.dragging = ""
	engine.alphaTarget = 0
	engine.Reheat()
}

// DragStart begins dragging id. The simulation keeps running at the
// drag alpha target until [Engine.DragEnd].
func (engine *Engine) DragStart(id string) bool {
	position, ok := engine.graph.Lookup(id)
	if !ok {
		return false
	}
	engine.dragging = id
	engine.pin(position)
	engine.alphaTarget = engine.config.DragAlphaTarget
	engine.running = true
	return true
}

// DragTo pins the dragged node at point.
func (engine *Engine) DragTo(point Point) {
	if engine.dragging == "" {
		return
	}
	position, ok := engine.graph.Lookup(engine.dragging)
	if !ok {
		return
	}
	current := &engine.bodies[position]
	current.pinned = true
	current.fx, current.fy = point.X, point.Y
	current.x, current.y = point.X, point.Y
}

// DragEnd drops the dragged node. It stays pinned where it was
// dropped; the simulation cools down from here.
func (engine *Engine) DragEnd() {
	if engine.dragging == "" {
		return
	}
	engine.dragging = ""
	engine.alphaTarget = 0
	engine.restart()
}

// Dragging returns the id being dragged, or "".
func (engine *Engine) Dragging() string { return engine.dragging }

// Export returns a copy of the graph's nodes with current positions
// and pins filled in.
func (engine *Engine) Export() []graph.Node {
	nodes := make([]graph.Node, engine.graph.Len())
	copy(nodes, engine.graph.Nodes())
	for position := range nodes {
		current := engine.bodies[position]
		x, y := current.x, current.y
		nodes[position].X, nodes[position].Y = &x, &y
		nodes[position].FX, nodes[position].FY = nil, nil
		if current.pinned {
			fx, fy := current.fx, current.fy
			nodes[position].FX, nodes[position].FY = &fx, &fy
		}
	}
	return nodes
}

// Bounds returns the bounding box of all node positions. It returns
// zero points for an empty graph.
func (engine *Engine) Bounds() (lower, upper Point) {
	if len(engine.bodies) == 0 {
		return Point{}, Point{}
	}
	lower = Point{X: math.Inf(1), Y: math.Inf(1)}
	upper = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, current := range engine.bodies {
		lower.X = math.Min(lower.X, current.x)
		lower.Y = math.Min(lower.Y, current.y)
		upper.X = math.Max(upper.X, current.x)
		upper.Y = math.Max(upper.Y, current.y)
	}
	return lower, upper
}
