// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package layout is a force-directed layout engine.
//
// The engine keeps its own position table keyed by node id. Callers
// hand it a [graph.Graph] with [Engine.Load] and read positions back
// with [Engine.Position] or [Engine.Export]; the caller's snapshot is
// never written to. Positions survive a reload for ids present in
// both graphs, so a data refresh does not scatter the picture.
//
// Each tick applies five forces in order: link springs, many-body
// repulsion (Barnes-Hut, bounded by a maximum distance), a weak
// centering shift, collision separation, and the cluster force that
// pulls every node toward its group's anchor in proportion to alpha.
// Alpha anneals toward its target by the configured decay; velocities
// are damped by the velocity decay.
//
// Load runs the warmup ticks synchronously, then the engine runs for
// at most the cooldown tick budget (or until alpha falls below
// [Config].AlphaMin) and freezes. Dragging a node reheats it until
// the drag ends.
//
// An Engine is not safe for concurrent use. The dashboard drives it
// from a single update loop.
package layout
