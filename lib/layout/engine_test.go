// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/loomworks/loom/lib/graph"
)

// isolatedConfig returns a config with every force disabled so tests
// can switch on one at a time.
func isolatedConfig() Config {
	return Config{
		AlphaDecay:    0.05,
		AlphaMin:      0.001,
		VelocityDecay: 0.7,
		WarmupTicks:   50,
		CooldownTicks: 50,
		Seed:          7,
	}
}

func seeded(id string, x, y float64) graph.Node {
	return graph.Node{ID: id, X: &x, Y: &y}
}

func distance(t *testing.T, engine *Engine, a, b string) float64 {
	t.Helper()
	first, ok := engine.Position(a)
	if !ok {
		t.Fatalf("no position for %q", a)
	}
	second, ok := engine.Position(b)
	if !ok {
		t.Fatalf("no position for %q", b)
	}
	return math.Hypot(first.X-second.X, first.Y-second.Y)
}

func fleet(groups []graph.GroupID, perGroup int) *graph.Graph {
	var snapshot graph.Snapshot
	for _, group := range groups {
		for index := range perGroup {
			id := fmt.Sprintf("%s-%d", group, index)
			snapshot.Nodes = append(snapshot.Nodes, graph.Node{ID: id, Group: group})
			if index > 0 {
				snapshot.Links = append(snapshot.Links, graph.NewLink(id, fmt.Sprintf("%s-0", group)))
			}
		}
	}
	return graph.New(snapshot)
}

func TestLoadRunsWarmupThenCoolsDown(t *testing.T) {
	t.Parallel()

	engine := New(DefaultConfig())
	engine.Load(fleet([]graph.GroupID{"a"}, 10))

	if engine.Ticks() != 50 {
		t.Errorf("Ticks after Load = %d, want 50 warmup ticks", engine.Ticks())
	}
	if !engine.Running() {
		t.Fatal("engine should run after Load")
	}

	ticks := 0
	for engine.Tick() {
		ticks++
		if ticks > 100 {
			t.Fatal("engine never froze")
		}
	}
	if ticks >= 50 {
		t.Errorf("ran %d more ticks, want fewer than the 50 tick cooldown", ticks)
	}
	if engine.Tick() {
		t.Error("Tick after freeze reported running")
	}
}

func TestEmptyGraph(t *testing.T) {
	t.Parallel()

	engine := New(DefaultConfig())
	engine.Load(graph.New(graph.Snapshot{}))
	if engine.Running() || engine.Tick() {
		t.Error("empty graph should not run")
	}
	if len(engine.Export()) != 0 {
		t.Error("empty graph exported nodes")
	}
	engine.PinAll()
	if _, ok := engine.Position("ghost"); ok {
		t.Error("Position on empty graph reported a node")
	}
}

func TestChargeRepels(t *testing.T) {
	t.Parallel()

	config := isolatedConfig()
	config.ChargeStrength = -30
	config.ChargeDistanceMax = 300
	engine := New(config)
	engine.Load(graph.New(graph.Snapshot{Nodes: []graph.Node{seeded("a", -1, 0), seeded("b", 1, 0)}}))

	if got := distance(t, engine, "a", "b"); got <= 2 {
		t.Errorf("distance after warmup = %g, want > 2", got)
	}
}

func TestChargeIgnoresDistantPairs(t *testing.T) {
	t.Parallel()

	config := isolatedConfig()
	config.ChargeStrength = -30
	config.ChargeDistanceMax = 50
	engine := New(config)
	engine.Load(graph.New(graph.Snapshot{Nodes: []graph.Node{seeded("a", -200, 0), seeded("b", 200, 0)}}))

	if got := distance(t, engine, "a", "b"); math.Abs(got-400) > 1e-6 {
		t.Errorf("distance = %g, want unchanged 400", got)
	}
}

func TestChargeChecksRangePerLeafResident(t *testing.T) {
	t.Parallel()

	engine := New(isolatedConfig())
	engine.alpha = 1
	engine.bodies = []body{{x: 0, y: 0}, {x: 3, y: 4}, {x: 60, y: 1}}

	// A depth-limited leaf holding both other bodies. Its center of
	// charge is within range of body 0 but the far resident is not.
	leaf := &quad{x0: -50, y0: -50, x1: 50, y1: 50, bodies: []int{1, 2}, charge: -60, cx: 31.5, cy: 2.5}
	engine.visitCharge(leaf, 0, -30, 0.81, 50*50)

	moved := engine.bodies[0]
	if math.Abs(moved.vx-(-3.6)) > 1e-9 || math.Abs(moved.vy-(-4.8)) > 1e-9 {
		t.Errorf("velocity = (%g, %g), want (-3.6, -4.8) from the near resident only", moved.vx, moved.vy)
	}
}

func TestLinkAttracts(t *testing.T) {
	t.Parallel()

	config := isolatedConfig()
	config.LinkDistance = 20
	engine := New(config)
	engine.Load(graph.New(graph.Snapshot{
		Nodes: []graph.Node{seeded("a", -100, 0), seeded("b", 100, 0)},
		Links: []graph.Link{graph.NewLink("a", "b")},
	}))

	got := distance(t, engine, "a", "b")
	if got >= 200 || got < 10 {
		t.Errorf("distance = %g, want pulled in toward the link distance", got)
	}
}

func TestCollideSeparates(t *testing.T) {
	t.Parallel()

	config := isolatedConfig()
	config.CollideRadius = 3
	engine := New(config)
	engine.Load(graph.New(graph.Snapshot{Nodes: []graph.Node{seeded("a", 0, 0), seeded("b", 0.5, 0)}}))

	if got := distance(t, engine, "a", "b"); got < 3 {
		t.Errorf("distance = %g, want nodes pushed at least one radius apart", got)
	}
}

func TestClusterForceSeparatesGroups(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.Anchors = Anchors{
		{Group: "left", X: -500, Y: 0},
		{Group: "right", X: 500, Y: 0},
	}
	engine := New(config)
	engine.Load(fleet([]graph.GroupID{"left", "right"}, 12))
	for engine.Tick() {
	}

	var leftSum, rightSum float64
	for _, node := range engine.Export() {
		if node.Group == "left" {
			leftSum += *node.X
		} else {
			rightSum += *node.X
		}
	}
	if leftSum/12 >= -100 || rightSum/12 <= 100 {
		t.Errorf("group mean x = %g / %g, want clusters near their anchors", leftSum/12, rightSum/12)
	}
}

func TestPinAllFreezesPositions(t *testing.T) {
	t.Parallel()

	engine := New(DefaultConfig())
	engine.Load(fleet([]graph.GroupID{"a", "b"}, 5))
	engine.PinAll()
	before := engine.Export()

	engine.Reheat()
	for range 5 {
		engine.Tick()
	}
	for position, node := range engine.Export() {
		if *node.X != *before[position].X || *node.Y != *before[position].Y {
			t.Errorf("%s moved from (%g,%g) to (%g,%g)", node.ID, *before[position].X, *before[position].Y, *node.X, *node.Y)
		}
		if node.FX == nil || !engine.Pinned(node.ID) {
			t.Errorf("%s not pinned", node.ID)
		}
	}
}

func TestReloadKeepsPositionsAndPins(t *testing.T) {
	t.Parallel()

	engine := New(DefaultConfig())
	engine.Load(fleet([]graph.GroupID{"a"}, 4))
	engine.Pin("a-1")
	pinned, _ := engine.Position("a-1")

	engine.Load(fleet([]graph.GroupID{"a"}, 6))
	if !engine.Pinned("a-1") {
		t.Fatal("pin lost across reload")
	}
	if got, _ := engine.Position("a-1"); got != pinned {
		t.Errorf("pinned node moved across reload: %v -> %v", pinned, got)
	}
	if _, ok := engine.Position("a-5"); !ok {
		t.Error("new node has no position")
	}
}

func TestLoadDoesNotMutateSnapshot(t *testing.T) {
	t.Parallel()

	x, y := 5.0, 6.0
	snapshot := graph.Snapshot{Nodes: []graph.Node{{ID: "a", X: &x, Y: &y}, {ID: "b"}}}
	engine := New(DefaultConfig())
	engine.Load(graph.New(snapshot))
	engine.PinAll()

	if x != 5 || y != 6 {
		t.Errorf("seed coordinates mutated to (%g, %g)", x, y)
	}
	if snapshot.Nodes[1].X != nil || snapshot.Nodes[0].FX != nil {
		t.Error("engine wrote layout fields onto the caller's nodes")
	}
}

func TestSnapshotPinsAreHonored(t *testing.T) {
	t.Parallel()

	fx, fy := 42.0, -17.0
	engine := New(DefaultConfig())
	engine.Load(graph.New(graph.Snapshot{Nodes: []graph.Node{{ID: "fixed", FX: &fx, FY: &fy}, {ID: "free"}}}))

	got, _ := engine.Position("fixed")
	if got != (Point{X: 42, Y: -17}) {
		t.Errorf("fixed node at %v, want (42, -17)", got)
	}
}

func TestDragPinsAndKeepsRunning(t *testing.T) {
	t.Parallel()

	engine := New(DefaultConfig())
	engine.Load(fleet([]graph.GroupID{"a"}, 5))
	if !engine.DragStart("a-2") {
		t.Fatal("DragStart failed")
	}
	if engine.DragStart("ghost") {
		t.Error("DragStart on unknown id succeeded")
	}
	engine.DragStart("a-2")

	for range 80 {
		engine.DragTo(Point{X: 100, Y: 100})
		if !engine.Tick() {
			t.Fatal("engine froze during drag")
		}
	}
	engine.DragEnd()
	if engine.Dragging() != "" {
		t.Error("still dragging after DragEnd")
	}
	for engine.Tick() {
	}

	got, _ := engine.Position("a-2")
	if got != (Point{X: 100, Y: 100}) {
		t.Errorf("dropped node at %v, want (100, 100)", got)
	}
	if !engine.Pinned("a-2") {
		t.Error("dropped node not pinned")
	}
}

func TestResetReleasesPins(t *testing.T) {
	t.Parallel()

	engine := New(DefaultConfig())
	engine.Load(fleet([]graph.GroupID{"a"}, 3))
	engine.PinAll()
	engine.Reset()
	for _, node := range engine.Graph().Nodes() {
		if engine.Pinned(node.ID) {
			t.Errorf("%s still pinned after Reset", node.ID)
		}
	}
	if !engine.Running() {
		t.Error("Reset should reheat")
	}
}

func TestUnpin(t *testing.T) {
	t.Parallel()

	engine := New(DefaultConfig())
	engine.Load(fleet([]graph.GroupID{"a"}, 2))
	engine.Pin("a-0")
	engine.Unpin("a-0")
	if engine.Pinned("a-0") {
		t.Error("Unpin did not release")
	}
}

func TestAnchorsTarget(t *testing.T) {
	t.Parallel()

	anchors := Anchors{
		{Group: "deepmind", X: -600, Y: -300},
		{Group: "openai", X: 400, Y: -450},
	}
	tests := []struct {
		group graph.GroupID
		want  Point
	}{
		{"", Point{X: -600, Y: -300}},
		{"openai", Point{X: 400, Y: -450}},
		{"1", Point{X: 400, Y: -450}},
		{"9", Point{}},
		{"unknown", Point{}},
	}
	for _, test := range tests {
		if got := anchors.Target(test.group); got != test.want {
			t.Errorf("Target(%q) = %v, want %v", test.group, got, test.want)
		}
	}
	if got := (Anchors{}).Target("x"); got != (Point{}) {
		t.Errorf("empty table Target = %v", got)
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	first := New(DefaultConfig())
	second := New(DefaultConfig())
	first.Load(fleet([]graph.GroupID{"a", "b"}, 6))
	second.Load(fleet([]graph.GroupID{"a", "b"}, 6))

	for _, node := range first.Graph().Nodes() {
		a, _ := first.Position(node.ID)
		b, _ := second.Position(node.ID)
		if a != b {
			t.Errorf("%s: %v vs %v", node.ID, a, b)
		}
	}
}
