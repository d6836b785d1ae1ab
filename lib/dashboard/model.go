// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/loomworks/loom/lib/graph"
	"github.com/loomworks/loom/lib/graphview"
	"github.com/loomworks/loom/lib/markdown"
	"github.com/loomworks/loom/lib/session"
	"github.com/loomworks/loom/lib/tui"
)

// FocusRegion identifies which part of the screen receives keys.
type FocusRegion int

const (
	FocusGraph FocusRegion = iota
	FocusTerminal
	FocusSearch
)

const (
	frameInterval = 33 * time.Millisecond

	// pulseFrames is the active-halo period in frames.
	pulseFrames = 45

	// graphShare is the fraction of the width given to the graph pane.
	graphShare = 0.6
)

// frameMsg advances the layout and camera by one frame.
type frameMsg struct{}

func scheduleFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

// Config configures a Model.
type Config struct {
	// View renders the graph. Required.
	View *graphview.View

	// Snapshot is loaded into View when the model is created.
	Snapshot graph.Snapshot

	// Session is the template for every loop session. Loop and
	// OnChange are filled in per session.
	Session session.Config

	// Theme defaults to tui.DefaultTheme.
	Theme *tui.Theme

	// Keys defaults to DefaultKeyMap.
	Keys *KeyMap

	Logger *slog.Logger
}

// Model is the top-level bubbletea model.
type Model struct {
	ctx    context.Context
	theme  tui.Theme
	keys   KeyMap
	logger *slog.Logger

	view   *graphview.View
	styles *lipgloss.Renderer

	sessions   *sessionSet
	active     *session.Controller
	activeLoop string

	width  int
	height int
	ready  bool

	focus      FocusRegion
	priorFocus FocusRegion

	search  textinput.Model
	results tui.ResultList

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	help       help.Model
	markdown   *markdown.Renderer
	rendered   map[string]string

	framing  bool
	frames   int
	press    pressState
	hovered  string
	logEntry *tui.LogRecordMsg
}

// New returns a Model with config.Snapshot loaded and the global
// session active. ctx bounds every command the terminal runs.
func New(ctx context.Context, config Config) (Model, error) {
	if config.View == nil {
		return Model{}, errors.New("dashboard: a graph view is required")
	}
	theme := tui.DefaultTheme
	if config.Theme != nil {
		theme = *config.Theme
	}
	keys := DefaultKeyMap
	if config.Keys != nil {
		keys = *config.Keys
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Views are rendered to strings before bubbletea writes them, so
	// the profile comes from the environment rather than from
	// probing an output.
	profile := termenv.EnvColorProfile()
	styles := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(profile))
	styles.SetColorProfile(profile)

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "loop name"

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "ask about this loop, or type help"

	model := Model{
		ctx:        ctx,
		theme:      theme,
		keys:       keys,
		logger:     logger,
		view:       config.View,
		styles:     styles,
		sessions:   newSessionSet(config.Session),
		search:     search,
		input:      input,
		transcript: viewport.New(0, 0),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:       help.New(),
		markdown:   markdown.New(theme),
		rendered:   make(map[string]string),
	}

	model.view.OnNodeClick(func(node graph.Node) {
		logger.Info("loop selected", "node", node.ID, "status", node.Status)
	})
	model.view.OnZoom(func(zoom float64) {
		logger.Debug("zoom changed", "zoom", zoom)
	})
	model.view.SetData(config.Snapshot)

	global, err := model.sessions.get(session.Loop{})
	if err != nil {
		return Model{}, err
	}
	model.active = global
	model.framing = model.view.Active()
	return model, nil
}

// Close releases every session.
func (model Model) Close() { model.sessions.closeAll() }

// Focus returns the focused region.
func (model Model) Focus() FocusRegion { return model.focus }

// Session returns the session shown in the terminal pane.
func (model Model) Session() *session.Controller { return model.active }

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	commands := []tea.Cmd{listenForSessionChange(model.sessions.changes)}
	if model.framing {
		commands = append(commands, scheduleFrame())
	}
	return tea.Batch(commands...)
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.resize()
		return model, nil

	case frameMsg:
		model.frames++
		model.view.SetPulse(float64(model.frames%pulseFrames) / pulseFrames)
		if model.view.Tick() {
			return model, scheduleFrame()
		}
		model.framing = false
		return model, nil

	case sessionChangedMsg:
		model.syncTranscript(false)
		return model, listenForSessionChange(model.sessions.changes)

	case commandDoneMsg:
		model.syncTranscript(false)
		return model, nil

	case spinner.TickMsg:
		if !model.active.Processing() {
			return model, nil
		}
		var command tea.Cmd
		model.spinner, command = model.spinner.Update(message)
		return model, command

	case tui.LogRecordMsg:
		model.logEntry = &message
		return model, tui.FadeAfterDelay()

	case tui.LogFadeMsg:
		model.logEntry = nil
		return model, nil

	case tea.KeyMsg:
		command := model.handleKey(message)
		return model, tea.Batch(command, model.afterInteraction())

	case tea.MouseMsg:
		model.handleMouse(message)
		return model, model.afterInteraction()
	}
	return model, nil
}

func (model *Model) handleKey(message tea.KeyMsg) tea.Cmd {
	if key.Matches(message, model.keys.Interrupt) {
		if model.active.Processing() {
			model.active.Cancel()
			return nil
		}
		return tea.Quit
	}

	switch model.focus {
	case FocusSearch:
		return model.handleSearchKey(message)
	case FocusTerminal:
		return model.handleTerminalKey(message)
	default:
		return model.handleGraphKey(message)
	}
}

// setFocus moves keyboard focus, focusing or blurring the inputs.
func (model *Model) setFocus(region FocusRegion) tea.Cmd {
	model.focus = region
	model.input.Blur()
	model.search.Blur()
	switch region {
	case FocusTerminal:
		return model.input.Focus()
	case FocusSearch:
		return model.search.Focus()
	}
	return nil
}

// afterInteraction follows a selection change into the terminal pane
// and starts the frame loop when something began to move.
func (model *Model) afterInteraction() tea.Cmd {
	if selected := model.view.Selected(); selected != model.activeLoop {
		model.switchSession(selected)
	}
	if model.framing || !model.view.Active() {
		return nil
	}
	model.framing = true
	return scheduleFrame()
}

// resize recomputes pane sizes from the window size.
func (model *Model) resize() {
	graphColumns, terminalColumns, bodyRows := model.paneSizes()
	model.resizeGraph(graphColumns, bodyRows)

	model.transcript.Width = max(terminalColumns-1, 1)
	model.transcript.Height = max(bodyRows-2, 1)
	model.input.Width = max(terminalColumns-len(model.input.Prompt)-3, 1)
	model.search.Width = max(min(graphColumns, 48)-len(model.search.Prompt)-3, 1)
	model.help.Width = model.width
	model.syncTranscript(false)
}

// paneSizes splits the window below the header and above the status
// bar. A one-column divider separates the panes.
func (model Model) paneSizes() (graphColumns, terminalColumns, bodyRows int) {
	bodyRows = max(model.height-2, 1)
	graphColumns = max(int(float64(model.width)*graphShare), 10)
	terminalColumns = max(model.width-graphColumns-1, 10)
	return graphColumns, terminalColumns, bodyRows
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return ""
	}
	graphColumns, _, _ := model.paneSizes()

	graphPane := model.renderGraphPane()
	if model.focus == FocusSearch {
		graphPane = tui.SpliceOverlay(graphPane, model.renderSearch(), 1, 0)
	}
	body := tui.JoinColumns(graphPane, tui.JoinColumns(model.renderDivider(), model.renderTerminalPane(), 1), graphColumns)

	return lipgloss.JoinVertical(lipgloss.Left,
		model.renderHeader(),
		body,
		model.renderStatusBar(),
	)
}
