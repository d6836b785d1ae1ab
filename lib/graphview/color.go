// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package graphview

import (
	"fmt"
	"hash/fnv"

	"github.com/loomworks/loom/lib/graph"
)

// Color is an opaque RGB color. Translucency is carried separately as
// an opacity on each mark.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as #rrggbb.
func (color Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", color.R, color.G, color.B)
}

// Blend mixes color over background at the given opacity.
func (color Color) Blend(background Color, opacity float64) Color {
	if opacity >= 1 {
		return color
	}
	if opacity <= 0 {
		return background
	}
	mix := func(front, back uint8) uint8 {
		return uint8(float64(front)*opacity + float64(back)*(1-opacity) + 0.5)
	}
	return Color{R: mix(color.R, background.R), G: mix(color.G, background.G), B: mix(color.B, background.B)}
}

func rgb(hex uint32) Color {
	return Color{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex)}
}

// Palette.
var (
	Background       = rgb(0x16181d)
	CoordinatorColor = rgb(0xc084fc)
	ExceptionalColor = rgb(0xfca5a5)
	HighlightColor   = rgb(0x82cfff)
	LinkColor        = rgb(0x475569)
	LabelColor       = rgb(0xe2e8f0)

	statusColors = map[graph.Status]Color{
		graph.StatusActive:    rgb(0x82cfff),
		graph.StatusIdle:      rgb(0x475569),
		graph.StatusBlocked:   rgb(0xfbbf24),
		graph.StatusCompleted: rgb(0x86efac),
		graph.StatusFailed:    rgb(0xf87171),
	}

	convoyPalette = []Color{
		rgb(0xf472b6), rgb(0x34d399), rgb(0xfacc15), rgb(0x60a5fa),
		rgb(0xfb923c), rgb(0xa78bfa), rgb(0x2dd4bf), rgb(0xe879f9),
	}
)

// ConvoyColor returns the stable ring color for a convoy id.
func ConvoyColor(convoyID string) Color {
	hash := fnv.New32a()
	hash.Write([]byte(convoyID))
	return convoyPalette[hash.Sum32()%uint32(len(convoyPalette))]
}
