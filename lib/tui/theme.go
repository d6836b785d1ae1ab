// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/loomworks/loom/lib/graph"
)

// Theme is the dashboard color palette, in ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Loop status colors.
	StatusActive    lipgloss.Color
	StatusIdle      lipgloss.Color
	StatusBlocked   lipgloss.Color
	StatusCompleted lipgloss.Color
	StatusFailed    lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	FocusBorder      lipgloss.Color
	HelpText         lipgloss.Color

	// Transcript line kinds.
	PromptText lipgloss.Color
	ErrorText  lipgloss.Color
	WarnText   lipgloss.Color

	// Fuzzy match highlighting in the search list.
	MatchForeground lipgloss.Color

	OverlayBackground lipgloss.Color
}

// StatusColor returns the color for a loop status, FaintText for
// unknown values.
func (theme Theme) StatusColor(status graph.Status) lipgloss.Color {
	switch status {
	case graph.StatusActive:
		return theme.StatusActive
	case graph.StatusIdle:
		return theme.StatusIdle
	case graph.StatusBlocked:
		return theme.StatusBlocked
	case graph.StatusCompleted:
		return theme.StatusCompleted
	case graph.StatusFailed:
		return theme.StatusFailed
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the dark-terminal palette.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StatusActive:    lipgloss.Color("117"), // light blue
	StatusIdle:      lipgloss.Color("240"), // slate
	StatusBlocked:   lipgloss.Color("220"), // amber
	StatusCompleted: lipgloss.Color("114"), // green
	StatusFailed:    lipgloss.Color("203"), // red

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	FocusBorder:      lipgloss.Color("141"), // coordinator purple
	HelpText:         lipgloss.Color("241"),

	PromptText: lipgloss.Color("117"),
	ErrorText:  lipgloss.Color("203"),
	WarnText:   lipgloss.Color("220"),

	MatchForeground: lipgloss.Color("220"),

	OverlayBackground: lipgloss.Color("237"),
}
