// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard's key bindings.
type KeyMap struct {
	FocusToggle key.Binding
	Search      key.Binding
	Escape      key.Binding

	// Graph pane.
	PanUp    key.Binding
	PanDown  key.Binding
	PanLeft  key.Binding
	PanRight key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Filter   key.Binding
	Rig      key.Binding
	Reset    key.Binding

	// Terminal pane.
	Submit      key.Binding
	HistoryUp   key.Binding
	HistoryDown key.Binding
	PageUp      key.Binding
	PageDown    key.Binding

	// Interrupt cancels an in-flight request, and quits when idle.
	Interrupt key.Binding
	Quit      key.Binding
}

// DefaultKeyMap is the built-in binding set.
var DefaultKeyMap = KeyMap{
	FocusToggle: key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "switch pane")),
	Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Escape:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "deselect")),

	PanUp:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("←↑↓→", "pan")),
	PanDown:  key.NewBinding(key.WithKeys("down", "j")),
	PanLeft:  key.NewBinding(key.WithKeys("left", "h")),
	PanRight: key.NewBinding(key.WithKeys("right", "l")),
	ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
	ZoomOut:  key.NewBinding(key.WithKeys("-", "_")),
	Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "exceptional")),
	Rig:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rig")),
	Reset:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset layout")),

	Submit:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "send")),
	HistoryUp:   key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "history")),
	HistoryDown: key.NewBinding(key.WithKeys("down")),
	PageUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("PgUp/PgDn", "scroll")),
	PageDown:    key.NewBinding(key.WithKeys("pgdown")),

	Interrupt: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("C-c", "cancel/quit")),
	Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
}

// graphHelp lists the bindings shown while the graph pane has focus.
func (keys KeyMap) graphHelp() []key.Binding {
	return []key.Binding{keys.PanUp, keys.ZoomIn, keys.Search, keys.Filter, keys.Rig, keys.Reset, keys.Escape, keys.FocusToggle, keys.Quit}
}

// terminalHelp lists the bindings shown while the terminal pane has
// focus.
func (keys KeyMap) terminalHelp() []key.Binding {
	return []key.Binding{keys.Submit, keys.HistoryUp, keys.PageUp, keys.FocusToggle, keys.Interrupt}
}
