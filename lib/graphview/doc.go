// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package graphview is the interactive force-directed network view.
//
// A [View] owns a [layout.Engine] and a [viewport.Viewport] and holds
// the ephemeral interaction state: selected node, hovered node,
// filter mode, and rig filter. The neighbor set of the selection is
// derived from the graph on every call, never stored, so nothing
// carries over from a previous selection.
//
// Clicking a node, or focusing one by id from outside (a search box),
// runs one pipeline: pin every node where it stands, center the
// camera on the node, zoom to the maximum, select it, and notify the
// click callback.
//
// Rendering is split in two. [View.Scene] collects the marks to draw
// in graph coordinates; [PaintNode], [PaintLink] and [PaintClusters]
// are pure functions of a node or link plus [PaintState], so the
// visual encoding can be tested without a surface. The canvas package
// rasterizes a Scene for the terminal.
//
// A View is not safe for concurrent use. It is the only writer of its
// engine's positions and pins.
package graphview
