// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package graphview

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/loomworks/loom/lib/clock"
	"github.com/loomworks/loom/lib/graph"
	"github.com/loomworks/loom/lib/layout"
	"github.com/loomworks/loom/lib/viewport"
)

// Config configures a View.
type Config struct {
	Layout layout.Config

	MinZoom float64
	MaxZoom float64

	// Unit is screen pixels per graph unit at zoom 1.
	Unit float64

	// LabelZoom is the zoom above which every visible node is labeled.
	LabelZoom float64

	CenterDuration time.Duration
	ZoomDuration   time.Duration

	DragEnabled bool

	// HitSlop is the minimum hit radius in screen pixels.
	HitSlop float64

	Clock  clock.Clock
	Logger *slog.Logger
}

// DefaultConfig returns the standard view settings.
func DefaultConfig() Config {
	return Config{
		Layout:         layout.DefaultConfig(),
		MinZoom:        0.5,
		MaxZoom:        2.4,
		Unit:           1,
		LabelZoom:      2.0,
		CenterDuration: time.Second,
		ZoomDuration:   2 * time.Second,
		HitSlop:        3,
	}
}

// View is the graph view controller.
type View struct {
	config Config
	logger *slog.Logger

	engine *layout.Engine
	camera *viewport.Viewport

	filter   FilterMode
	rig      graph.GroupID
	selected string
	hovered  string
	pulse    float64

	onNodeClick func(graph.Node)
}

// New returns an empty view.
func New(config Config) *View {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &View{
		config: config,
		logger: logger,
		engine: layout.New(config.Layout),
		camera: viewport.New(viewport.Config{
			MinZoom: config.MinZoom,
			MaxZoom: config.MaxZoom,
			Unit:    config.Unit,
			Clock:   config.Clock,
		}),
	}
}

// OnNodeClick registers the callback for clicks and focus.
func (view *View) OnNodeClick(callback func(graph.Node)) { view.onNodeClick = callback }

// OnZoom registers the callback for zoom changes.
func (view *View) OnZoom(callback func(zoom float64)) { view.camera.OnZoom(callback) }

// Engine returns the layout engine.
func (view *View) Engine() *layout.Engine { return view.engine }

// Camera returns the viewport.
func (view *View) Camera() *viewport.Viewport { return view.camera }

// Graph returns the loaded graph.
func (view *View) Graph() *graph.Graph { return view.engine.Graph() }

// SetData loads a new snapshot. A selection or hover whose node is no
// longer present is dropped.
func (view *View) SetData(snapshot graph.Snapshot) {
	loaded := graph.New(snapshot)
	view.engine.Load(loaded)
	if _, ok := loaded.Lookup(view.selected); !ok {
		view.selected = ""
	}
	if _, ok := loaded.Lookup(view.hovered); !ok {
		view.hovered = ""
	}
	view.logger.Debug("graph data loaded",
		"nodes", loaded.Len(),
		"links", len(loaded.Edges()),
		"dangling_links", loaded.DanglingLinks(),
	)
}

// SetFilter changes the filter mode.
func (view *View) SetFilter(mode FilterMode) { view.filter = mode }

// Filter returns the filter mode.
func (view *View) Filter() FilterMode { return view.filter }

// SetRigFilter narrows node opacity to one group. An empty group
// clears the filter.
func (view *View) SetRigFilter(group graph.GroupID) { view.rig = group }

// RigFilter returns the rig filter.
func (view *View) RigFilter() graph.GroupID { return view.rig }

// SetSelected sets the selection without the click pipeline. It
// reports false, leaving the selection unchanged, for an unknown id.
// An empty id clears the selection.
func (view *View) SetSelected(id string) bool {
	if id == "" {
		view.selected = ""
		return true
	}
	if _, ok := view.Graph().Lookup(id); !ok {
		return false
	}
	view.selected = id
	return true
}

// Selected returns the selected node id, or "".
func (view *View) Selected() string { return view.selected }

// ClearSelection drops the selection. Pins stay in place.
func (view *View) ClearSelection() { view.selected = "" }

// NeighborSet returns the closed neighborhood of the selection,
// computed fresh from the graph. It is empty when nothing is selected.
func (view *View) NeighborSet() graph.IDSet {
	if view.selected == "" {
		return graph.IDSet{}
	}
	return view.Graph().Neighbors(view.selected)
}

// Click activates the node with the given id: every node is pinned
// where it stands, the camera centers on the node and zooms to the
// maximum, the node becomes the selection, and the click callback
// fires. It reports false for an unknown id.
func (view *View) Click(id string) bool {
	node, ok := view.Graph().Node(id)
	if !ok {
		return false
	}
	position, _ := view.engine.Position(id)

	view.engine.PinAll()
	view.camera.CenterAt(viewport.Point{X: position.X, Y: position.Y}, view.config.CenterDuration)
	view.camera.ZoomTo(view.camera.MaxZoom(), view.config.ZoomDuration)
	view.selected = id

	view.logger.Debug("node activated", "node", id)
	if view.onNodeClick != nil {
		view.onNodeClick(node)
	}
	return true
}

// Focus runs the click pipeline for an externally supplied id. An id
// not in the current graph is a no-op.
func (view *View) Focus(id string) bool {
	return view.Click(id)
}

// ClickAt hit-tests a screen point and clicks the node under it.
func (view *View) ClickAt(point viewport.Point) bool {
	id, ok := view.NodeAt(point)
	if !ok {
		return false
	}
	return view.Click(id)
}

// Hover updates the hovered node from a screen point and returns its
// id, or "".
func (view *View) Hover(point viewport.Point) string {
	view.hovered, _ = view.NodeAt(point)
	return view.hovered
}

// Hovered returns the hovered node id, or "".
func (view *View) Hovered() string { return view.hovered }

// NodeAt returns the node closest to a screen point within its hit
// radius. Nodes faded out by the exceptional filter cannot be hit.
func (view *View) NodeAt(point viewport.Point) (string, bool) {
	transform := view.camera.Transform()
	scale := transform.Scale()
	state := view.paintState()

	best := ""
	bestDistance := math.Inf(1)
	for position, node := range view.Graph().Nodes() {
		if state.Filter == FilterExceptional && !node.Exceptional {
			continue
		}
		location := view.engine.PositionAt(position)
		screen := transform.ToScreen(viewport.Point{X: location.X, Y: location.Y})
		distance := math.Hypot(screen.X-point.X, screen.Y-point.Y)
		mark := PaintNode(node, viewport.Point{}, state)
		reach := math.Max(mark.Radius*scale, view.config.HitSlop)
		if distance <= reach && distance < bestDistance {
			best, bestDistance = node.ID, distance
		}
	}
	return best, best != ""
}

// DragStart begins dragging the node under a screen point when drag
// is enabled.
func (view *View) DragStart(point viewport.Point) bool {
	if !view.config.DragEnabled {
		return false
	}
	id, ok := view.NodeAt(point)
	if !ok {
		return false
	}
	return view.engine.DragStart(id)
}

// DragMove pins the dragged node under a screen point.
func (view *View) DragMove(point viewport.Point) {
	if view.engine.Dragging() == "" {
		return
	}
	target := view.camera.Transform().ToGraph(point)
	view.engine.DragTo(layout.Point{X: target.X, Y: target.Y})
}

// DragEnd drops the dragged node where it is. It stays pinned.
func (view *View) DragEnd() { view.engine.DragEnd() }

// Reset releases all pins and reheats the layout.
func (view *View) Reset() { view.engine.Reset() }

// Resize sets the surface size in screen pixels.
func (view *View) Resize(width, height float64) { view.camera.Resize(width, height) }

// Pan moves the camera by a screen offset.
func (view *View) Pan(dx, dy float64) { view.camera.Pan(dx, dy) }

// ZoomBy scales the zoom, clamped to the allowed range.
func (view *View) ZoomBy(factor float64) { view.camera.ZoomBy(factor) }

// Tick advances the layout and camera one frame. It reports whether
// either is still moving.
func (view *View) Tick() bool {
	layoutRunning := view.engine.Tick()
	animating := view.camera.Advance()
	return layoutRunning || animating
}

// Active reports whether another Tick would change anything.
func (view *View) Active() bool {
	return view.engine.Running() || view.camera.Animating()
}

// SetPulse sets the active-halo animation phase, wrapped into [0, 1).
func (view *View) SetPulse(phase float64) {
	view.pulse = phase - math.Floor(phase)
}

func (view *View) paintState() PaintState {
	return PaintState{
		Selected:  view.selected,
		Neighbors: view.NeighborSet(),
		Filter:    view.filter,
		Rig:       view.rig,
		Zoom:      view.camera.Zoom(),
		LabelZoom: view.config.LabelZoom,
		Pulse:     view.pulse,
	}
}

// VisibleLinks returns the links rendered under the current filter.
func (view *View) VisibleLinks() []graph.Edge {
	if view.filter == FilterExceptional {
		return view.Graph().ExceptionalEdges()
	}
	return view.Graph().Edges()
}

// Scene collects the current frame. Faded nodes are ordered first so
// the selection and coordinators draw on top.
func (view *View) Scene() Scene {
	state := view.paintState()
	loaded := view.Graph()
	nodes := loaded.Nodes()

	scene := Scene{Transform: view.camera.Transform()}
	for _, edge := range view.VisibleLinks() {
		from := view.engine.PositionAt(edge.Source)
		to := view.engine.PositionAt(edge.Target)
		scene.Links = append(scene.Links, PaintLink(
			nodes[edge.Source], nodes[edge.Target],
			viewport.Point{X: from.X, Y: from.Y}, viewport.Point{X: to.X, Y: to.Y},
			state,
		))
	}

	scene.Nodes = make([]NodeMark, 0, len(nodes))
	for position, node := range nodes {
		location := view.engine.PositionAt(position)
		scene.Nodes = append(scene.Nodes, PaintNode(node, viewport.Point{X: location.X, Y: location.Y}, state))
	}
	slices.SortStableFunc(scene.Nodes, func(a, b NodeMark) int {
		return drawRank(a) - drawRank(b)
	})

	scene.Clusters = PaintClusters(view.config.Layout.Anchors, state.Zoom)
	return scene
}

func drawRank(mark NodeMark) int {
	switch {
	case mark.Selected:
		return 3
	case mark.Coordinator:
		return 2
	case mark.Opacity >= 1:
		return 1
	}
	return 0
}
