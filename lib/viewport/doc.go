// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package viewport maps graph coordinates to screen coordinates with
// pan and bounded zoom, and animates center and zoom transitions.
//
// Animations are driven by an injected [clock.Clock]: [Viewport.Advance]
// samples the clock and moves the camera along a quadratic ease-out
// curve. Nothing runs in the background; the host calls Advance from
// its frame loop while [Viewport.Animating] is true.
package viewport
