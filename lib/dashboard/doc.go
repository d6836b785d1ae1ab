// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package dashboard is the bubbletea screen that hosts the fleet graph
// and the loop terminal side by side.
//
// The left pane rasterizes a [graphview.View] onto a braille canvas.
// Keyboard and mouse input drive the view's click, drag, pan and zoom
// operations, and the "/" search box feeds fzf-ranked node names into
// the view's focus pipeline. The right pane shows the
// [session.Controller] for the selected node: one session per loop,
// created on first selection, with the node's loop state as chat
// context. Selecting nothing shows a global session.
//
// Layout frames run on a tea.Tick loop only while the layout engine or
// the camera is moving. Session updates arrive from the controller's
// change callback through a channel the model listens on, the same
// way source events reach a bubbletea model elsewhere in this module.
package dashboard
