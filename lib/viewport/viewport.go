// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package viewport

import (
	"math"
	"time"

	"github.com/loomworks/loom/lib/clock"
)

// Point is a 2D coordinate, in graph or screen space depending on
// context.
type Point struct {
	X, Y float64
}

// Transform is an immutable snapshot of the camera.
type Transform struct {
	Center Point
	Zoom   float64

	// Unit is screen pixels per graph unit at zoom 1.
	Unit float64

	Width, Height float64
}

// Scale returns screen pixels per graph unit at the current zoom.
func (transform Transform) Scale() float64 { return transform.Zoom * transform.Unit }

// ToScreen maps a graph point to screen pixels.
func (transform Transform) ToScreen(point Point) Point {
	scale := transform.Scale()
	return Point{
		X: (point.X-transform.Center.X)*scale + transform.Width/2,
		Y: (point.Y-transform.Center.Y)*scale + transform.Height/2,
	}
}

// ToGraph maps screen pixels to a graph point.
func (transform Transform) ToGraph(point Point) Point {
	scale := transform.Scale()
	if scale == 0 {
		return transform.Center
	}
	return Point{
		X: (point.X-transform.Width/2)/scale + transform.Center.X,
		Y: (point.Y-transform.Height/2)/scale + transform.Center.Y,
	}
}

// Config bounds the camera.
type Config struct {
	MinZoom float64
	MaxZoom float64

	// Unit is screen pixels per graph unit at zoom 1.
	Unit float64

	Clock clock.Clock
}

type transition struct {
	from, to float64
	start    time.Time
	duration time.Duration
	active   bool
}

func (animation *transition) value(now time.Time) (float64, bool) {
	if !animation.active {
		return animation.to, false
	}
	elapsed := now.Sub(animation.start)
	if elapsed >= animation.duration {
		animation.active = false
		return animation.to, false
	}
	progress := float64(elapsed) / float64(animation.duration)
	eased := progress * (2 - progress)
	return animation.from + (animation.to-animation.from)*eased, true
}

// Viewport is the camera state. Not safe for concurrent use.
type Viewport struct {
	config Config

	center        Point
	zoom          float64
	width, height float64

	centerX, centerY, zoomTransition transition

	onZoom   func(float64)
	lastZoom float64
}

// New returns a viewport centered on the origin at zoom 1, clamped to
// the configured range.
func New(config Config) *Viewport {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Unit <= 0 {
		config.Unit = 1
	}
	if config.MinZoom <= 0 {
		config.MinZoom = math.SmallestNonzeroFloat64
	}
	if config.MaxZoom < config.MinZoom {
		config.MaxZoom = math.Inf(1)
	}
	viewport := &Viewport{config: config}
	viewport.zoom = viewport.clamp(1)
	viewport.lastZoom = viewport.zoom
	return viewport
}

// OnZoom registers a callback invoked whenever the effective zoom
// changes, including every animation frame of a zoom transition.
func (viewport *Viewport) OnZoom(callback func(zoom float64)) {
	viewport.onZoom = callback
}

func (viewport *Viewport) clamp(zoom float64) float64 {
	return math.Min(math.Max(zoom, viewport.config.MinZoom), viewport.config.MaxZoom)
}

// MinZoom returns the lower zoom bound.
func (viewport *Viewport) MinZoom() float64 { return viewport.config.MinZoom }

// MaxZoom returns the upper zoom bound.
func (viewport *Viewport) MaxZoom() float64 { return viewport.config.MaxZoom }

// Resize sets the screen size in pixels.
func (viewport *Viewport) Resize(width, height float64) {
	viewport.width, viewport.height = width, height
}

// SetUnit changes the pixels-per-unit base scale.
func (viewport *Viewport) SetUnit(unit float64) {
	if unit > 0 {
		viewport.config.Unit = unit
	}
}

// Transform returns the camera as of the last [Viewport.Advance].
func (viewport *Viewport) Transform() Transform {
	return Transform{
		Center: viewport.center,
		Zoom:   viewport.zoom,
		Unit:   viewport.config.Unit,
		Width:  viewport.width,
		Height: viewport.height,
	}
}

// Zoom returns the current zoom.
func (viewport *Viewport) Zoom() float64 { return viewport.zoom }

// Center returns the current center in graph coordinates.
func (viewport *Viewport) Center() Point { return viewport.center }

// CenterAt moves the center to point over duration. A zero duration
// jumps immediately.
func (viewport *Viewport) CenterAt(point Point, duration time.Duration) {
	now := viewport.config.Clock.Now()
	viewport.centerX = transition{from: viewport.center.X, to: point.X, start: now, duration: duration, active: duration > 0}
	viewport.centerY = transition{from: viewport.center.Y, to: point.Y, start: now, duration: duration, active: duration > 0}
	if duration <= 0 {
		viewport.center = point
	}
}

// ZoomTo moves the zoom to level, clamped to the allowed range, over
// duration. A zero duration jumps immediately.
func (viewport *Viewport) ZoomTo(level float64, duration time.Duration) {
	level = viewport.clamp(level)
	viewport.zoomTransition = transition{
		from:     viewport.zoom,
		to:       level,
		start:    viewport.config.Clock.Now(),
		duration: duration,
		active:   duration > 0,
	}
	if duration <= 0 {
		viewport.zoom = level
		viewport.notify()
	}
}

// ZoomBy multiplies the zoom immediately, cancelling any zoom
// transition.
func (viewport *Viewport) ZoomBy(factor float64) {
	viewport.ZoomTo(viewport.zoom*factor, 0)
}

// Pan moves the center by a screen-space offset immediately,
// cancelling any center transition.
func (viewport *Viewport) Pan(dx, dy float64) {
	scale := viewport.zoom * viewport.config.Unit
	viewport.CenterAt(Point{
		X: viewport.center.X + dx/scale,
		Y: viewport.center.Y + dy/scale,
	}, 0)
}

// Animating reports whether a transition is in progress.
func (viewport *Viewport) Animating() bool {
	return viewport.centerX.active || viewport.centerY.active || viewport.zoomTransition.active
}

// Advance samples the clock and applies in-progress transitions. It
// reports whether any transition is still running.
func (viewport *Viewport) Advance() bool {
	now := viewport.config.Clock.Now()
	if viewport.centerX.active || viewport.centerY.active {
		viewport.center.X, _ = viewport.centerX.value(now)
		viewport.center.Y, _ = viewport.centerY.value(now)
	}
	if viewport.zoomTransition.active {
		viewport.zoom, _ = viewport.zoomTransition.value(now)
		viewport.notify()
	}
	return viewport.Animating()
}

func (viewport *Viewport) notify() {
	if viewport.zoom == viewport.lastZoom {
		return
	}
	viewport.lastZoom = viewport.zoom
	if viewport.onZoom != nil {
		viewport.onZoom(viewport.zoom)
	}
}
