// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package graphview

import (
	"math"
	"testing"
	"time"

	"github.com/loomworks/loom/lib/clock"
	"github.com/loomworks/loom/lib/graph"
	"github.com/loomworks/loom/lib/layout"
	"github.com/loomworks/loom/lib/viewport"
)

func pinned(id string, x, y float64) graph.Node {
	return graph.Node{ID: id, Name: id, FX: &x, FY: &y}
}

// fixture is a small fleet with fixed positions:
//
//	mayor(0,0) - a(50,0) - b(100,0) - c(150,0)
//	             d(0,50) - mayor
func fixture() graph.Snapshot {
	nodes := []graph.Node{
		pinned("mayor", 0, 0),
		pinned("a", 50, 0),
		pinned("b", 100, 0),
		pinned("c", 150, 0),
		pinned("d", 0, 50),
	}
	nodes[0].Role = graph.RoleCoordinator
	nodes[1].Exceptional = true
	nodes[2].Exceptional = true
	nodes[1].Group = "openai"
	nodes[2].Group = "openai"
	nodes[3].Group = "meta"
	return graph.Snapshot{
		Nodes: nodes,
		Links: []graph.Link{
			graph.NewLink("mayor", "a"),
			graph.NewLink("a", "b"),
			graph.NewLink("b", "c"),
			graph.NewLink("d", "mayor"),
		},
	}
}

func newTestView(t *testing.T) (*View, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	config := DefaultConfig()
	config.Clock = fake
	view := New(config)
	view.Resize(400, 200)
	view.SetData(fixture())
	return view, fake
}

func TestSelectionReplacesNeighborSet(t *testing.T) {
	t.Parallel()

	view, _ := newTestView(t)
	view.Click("mayor")
	if got := view.NeighborSet().Sorted(); len(got) != 3 {
		t.Fatalf("neighbors of mayor = %v", got)
	}

	view.Click("c")
	got := view.NeighborSet()
	want := graph.IDSet{"b": {}, "c": {}}
	if !got.Equal(want) {
		t.Errorf("neighbors after selecting c = %v, want %v", got.Sorted(), want.Sorted())
	}
}

func TestNeighborSetDeterministic(t *testing.T) {
	t.Parallel()

	view, _ := newTestView(t)
	view.SetSelected("a")
	if !view.NeighborSet().Equal(view.NeighborSet()) {
		t.Error("NeighborSet differs between calls")
	}
}

func TestNeighborSetEmptyWithoutSelection(t *testing.T) {
	t.Parallel()

	view, _ := newTestView(t)
	if len(view.NeighborSet()) != 0 {
		t.Error("NeighborSet without selection should be empty")
	}
}

func TestExceptionalFilterDropsLinks(t *testing.T) {
	t.Parallel()

	view, _ := newTestView(t)
	view.SetFilter(FilterExceptional)

	exceptional := view.Graph().Exceptional()
	nodes := view.Graph().Nodes()
	links := view.VisibleLinks()
	if len(links) != 1 {
		t.Fatalf("visible links = %v, want only a-b", links)
	}
	for _, edge := range links {
		if !exceptional.Has(nodes[edge.Source].ID) || !exceptional.Has(nodes[edge.Target].ID) {
			t.Errorf("link %s-%s touches a non-exceptional node", nodes[edge.Source].ID, nodes[edge.Target].ID)
		}
	}
	if len(view.Scene().Nodes) != 5 {
		t.Error("filter removed nodes from the scene")
	}

	view.SetFilter(FilterAll)
	if len(view.VisibleLinks()) != 4 {
		t.Errorf("FilterAll links = %d, want 4", len(view.VisibleLinks()))
	}
}

func TestClickPipeline(t *testing.T) {
	t.Parallel()

	view, fake := newTestView(t)
	var clicked []graph.Node
	view.OnNodeClick(func(node graph.Node) { clicked = append(clicked, node) })
	var zooms []float64
	view.OnZoom(func(zoom float64) { zooms = append(zooms, zoom) })

	if !view.Click("b") {
		t.Fatal("Click failed")
	}
	for _, node := range view.Graph().Nodes() {
		if !view.Engine().Pinned(node.ID) {
			t.Errorf("%s not pinned after click", node.ID)
		}
	}
	if view.Selected() != "b" {
		t.Errorf("Selected = %q", view.Selected())
	}
	if len(clicked) != 1 || clicked[0].ID != "b" {
		t.Errorf("callback got %v", clicked)
	}
	if !view.Camera().Animating() {
		t.Fatal("camera should animate toward the node")
	}

	fake.Advance(3 * time.Second)
	view.Tick()
	if view.Camera().Zoom() != 2.4 {
		t.Errorf("zoom = %g, want max 2.4", view.Camera().Zoom())
	}
	if center := view.Camera().Center(); center != (viewport.Point{X: 100, Y: 0}) {
		t.Errorf("center = %v, want node b at (100, 0)", center)
	}
	if len(zooms) == 0 || zooms[len(zooms)-1] != 2.4 {
		t.Errorf("zoom notifications = %v", zooms)
	}
}

func TestFocusUnknownIsNoOp(t *testing.T) {
	t.Parallel()

	view, _ := newTestView(t)
	view.Click("a")
	calls := 0
	view.OnNodeClick(func(graph.Node) { calls++ })

	if view.Focus("ghost") {
		t.Error("Focus on unknown id reported success")
	}
	if calls != 0 || view.Selected() != "a" {
		t.Errorf("Focus(ghost) changed state: calls=%d selected=%q", calls, view.Selected())
	}

	if !view.Focus("d") || calls != 1 || view.Selected() != "d" {
		t.Errorf("Focus(d): calls=%d selected=%q", calls, view.Selected())
	}
}

func TestSetDataDropsStaleSelection(t *testing.T) {
	t.Parallel()

	view, _ := newTestView(t)
	view.SetSelected("c")
	snapshot := fixture()
	snapshot.Nodes = snapshot.Nodes[:3]
	view.SetData(snapshot)
	if view.Selected() != "" {
		t.Errorf("stale selection %q survived reload", view.Selected())
	}
}

func TestSetSelectedUnknown(t *testing.T) {
	t.Parallel()

	view, _ := newTestView(t)
	view.SetSelected("a")
	if view.SetSelected("ghost") || view.Selected() != "a" {
		t.Errorf("SetSelected(ghost) changed selection to %q", view.Selected())
	}
	view.SetSelected("")
	if view.Selected() != "" {
		t.Error("SetSelected(\"\") did not clear")
	}
}

func TestNodeAtHitTest(t *testing.T) {
	t.Parallel()

	view, _ := newTestView(t)
	// Camera centered on the origin at zoom 1 in a 400x200 surface:
	// node a at (50, 0) lands on screen (250, 100).
	if id, ok := view.NodeAt(viewport.Point{X: 251, Y: 101}); !ok || id != "a" {
		t.Errorf("NodeAt near a = %q, %v", id, ok)
	}
	if _, ok := view.NodeAt(viewport.Point{X: 225, Y: 150}); ok {
		t.Error("NodeAt in empty space hit something")
	}

	view.SetFilter(FilterExceptional)
	if _, ok := view.NodeAt(viewport.Point{X: 350, Y: 100}); ok {
		t.Error("filtered-out node c was hit")
	}

	if !view.ClickAt(viewport.Point{X: 300, Y: 100}) || view.Selected() != "b" {
		t.Errorf("ClickAt b selected %q", view.Selected())
	}
}

func TestDragRequiresEnable(t *testing.T) {
	t.Parallel()

	view, _ := newTestView(t)
	if view.DragStart(viewport.Point{X: 250, Y: 100}) {
		t.Error("drag started while disabled")
	}

	fake := clock.Fake(time.Now())
	config := DefaultConfig()
	config.Clock = fake
	config.DragEnabled = true
	draggable := New(config)
	draggable.Resize(400, 200)
	draggable.SetData(fixture())

	if !draggable.DragStart(viewport.Point{X: 250, Y: 100}) {
		t.Fatal("DragStart on a failed")
	}
	draggable.DragMove(viewport.Point{X: 210, Y: 60})
	draggable.Tick()
	draggable.DragEnd()
	for draggable.Tick() {
	}

	position, _ := draggable.Engine().Position("a")
	if math.Abs(position.X-10) > 1e-9 || math.Abs(position.Y+40) > 1e-9 {
		t.Errorf("dragged a to %v, want (10, -40)", position)
	}
	if !draggable.Engine().Pinned("a") {
		t.Error("dropped node not pinned")
	}
}

func TestEmptyGraphScene(t *testing.T) {
	t.Parallel()

	view := New(DefaultConfig())
	view.SetData(graph.Snapshot{})
	scene := view.Scene()
	if len(scene.Nodes) != 0 || len(scene.Links) != 0 {
		t.Errorf("empty scene = %+v", scene)
	}
	if view.Click("x") || view.ClickAt(viewport.Point{}) {
		t.Error("click on empty graph succeeded")
	}
}

func TestSceneDrawOrder(t *testing.T) {
	t.Parallel()

	view, _ := newTestView(t)
	view.SetSelected("c")
	nodes := view.Scene().Nodes
	if last := nodes[len(nodes)-1]; last.ID != "c" {
		t.Errorf("last drawn = %q, want selected c", last.ID)
	}
	if nodes[len(nodes)-2].ID != "mayor" {
		t.Errorf("second to last = %q, want coordinator", nodes[len(nodes)-2].ID)
	}
}

func TestSceneClusters(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Now())
	config := DefaultConfig()
	config.Clock = fake
	config.Layout.Anchors = layout.Anchors{{Group: "openai", Label: "OpenAI", X: 400, Y: -450}}
	view := New(config)
	view.SetData(fixture())

	clusters := view.Scene().Clusters
	if len(clusters) != 1 || clusters[0].Label != "OpenAI" {
		t.Fatalf("clusters = %+v", clusters)
	}
}
