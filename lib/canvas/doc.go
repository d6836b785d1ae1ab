// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package canvas rasterizes a [graphview.Scene] onto a terminal grid.
//
// Each terminal cell holds a 2x4 braille dot matrix, so the drawing
// surface is twice the column count wide and four times the row count
// tall. A cell shows one foreground color: the most opaque mark that
// touched it, blended over the background by that mark's opacity.
// Labels are text overlays that replace the dots of the cells they
// cover.
package canvas
