// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/loomworks/loom/lib/graph"
	"github.com/loomworks/loom/lib/session"
	"github.com/loomworks/loom/lib/tui"
)

const streamingCursor = "▍"

func (model *Model) handleTerminalKey(message tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(message, model.keys.FocusToggle), key.Matches(message, model.keys.Escape):
		return model.setFocus(FocusGraph)

	case key.Matches(message, model.keys.Submit):
		command := model.input.Value()
		model.input.Reset()
		if strings.TrimSpace(command) == "" || model.active.Processing() {
			return nil
		}
		return tea.Batch(model.runCommand(model.active, command), model.spinner.Tick)

	case key.Matches(message, model.keys.HistoryUp):
		model.recall(session.Older)
		return nil

	case key.Matches(message, model.keys.HistoryDown):
		model.recall(session.Newer)
		return nil

	case key.Matches(message, model.keys.PageUp):
		model.scrollTranscript(-model.transcript.Height)
		return nil

	case key.Matches(message, model.keys.PageDown):
		model.scrollTranscript(model.transcript.Height)
		return nil
	}

	var command tea.Cmd
	model.input, command = model.input.Update(message)
	return command
}

func (model *Model) recall(direction session.Direction) {
	model.input.SetValue(model.active.NavigateHistory(direction))
	model.input.CursorEnd()
}

func (model *Model) scrollTranscript(delta int) {
	maximum := max(model.transcript.TotalLineCount()-model.transcript.Height, 0)
	model.transcript.SetYOffset(min(max(model.transcript.YOffset+delta, 0), maximum))
}

// switchSession shows the session for the node with the given id, or
// the global session for "".
func (model *Model) switchSession(id string) {
	loop := session.Loop{}
	if id != "" {
		node, ok := model.view.Graph().Node(id)
		if !ok {
			return
		}
		loop = loopFor(node)
	}
	controller, err := model.sessions.get(loop)
	if err != nil {
		model.logger.Error("switching session failed", "node", id, "error", err)
		return
	}
	model.active = controller
	model.activeLoop = id
	model.input.Reset()
	model.syncTranscript(true)
}

// syncTranscript re-renders the active session's lines. The view
// follows new output when it was already at the bottom.
func (model *Model) syncTranscript(forceBottom bool) {
	follow := forceBottom || model.transcript.AtBottom() || model.transcript.TotalLineCount() == 0
	model.transcript.SetContent(model.renderLines(model.active.Lines(), model.transcript.Width))
	if follow {
		model.transcript.GotoBottom()
	}
}

// renderLines formats transcript lines. A blank line precedes every
// command after the first.
func (model Model) renderLines(lines []session.Line, width int) string {
	width = max(width, 1)
	var blocks []string
	for index, line := range lines {
		if line.Kind == session.LineInput && index > 0 {
			blocks = append(blocks, "")
		}
		blocks = append(blocks, model.renderLine(line, width))
	}
	return strings.Join(blocks, "\n")
}

func (model Model) renderLine(line session.Line, width int) string {
	style := func(color lipgloss.Color) lipgloss.Style {
		return model.styles.NewStyle().Foreground(color)
	}
	switch line.Kind {
	case session.LineInput:
		return style(model.theme.PromptText).Render(ansi.Wrap("> "+line.Content, width, ""))
	case session.LineOutput:
		cacheKey := fmt.Sprintf("%s@%d", line.ID, width)
		if rendered, ok := model.rendered[cacheKey]; ok {
			return rendered
		}
		rendered := model.markdown.Render(line.Content, width)
		model.rendered[cacheKey] = rendered
		return rendered
	case session.LineError:
		return style(model.theme.ErrorText).Render(ansi.Wrap(line.Content, width, ""))
	case session.LineStreaming:
		return style(model.theme.NormalText).Render(ansi.Wrap(line.Content+streamingCursor, width, ""))
	default:
		return style(model.theme.FaintText).Render(ansi.Wrap(line.Content, width, ""))
	}
}

func (model Model) renderTerminalPane() string {
	_, columns, bodyRows := model.paneSizes()
	focused := model.focus == FocusTerminal

	titleColor := model.theme.HeaderForeground
	if focused {
		titleColor = model.theme.FocusBorder
	}
	title := model.styles.NewStyle().Bold(true).Foreground(titleColor).
		Render(ansi.Truncate(model.sessionTitle(), columns, "…"))

	body := model.styles.NewStyle().Height(model.transcript.Height).Render(model.transcript.View())
	scrollbar := tui.RenderScrollbar(model.theme, model.transcript.Height, tui.ScrollWindow{
		Total:   model.transcript.TotalLineCount(),
		Visible: model.transcript.Height,
		Offset:  model.transcript.YOffset,
	}, focused)
	transcript := tui.JoinColumns(body, scrollbar, model.transcript.Width)

	prompt := model.input.View()
	if model.active.Processing() {
		waiting := model.styles.NewStyle().Foreground(model.theme.FaintText).Render("waiting for reply · C-c cancels")
		prompt = model.spinner.View() + " " + waiting
	}

	rows := []string{title, transcript, ansi.Truncate(prompt, columns, "")}
	pane := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return model.styles.NewStyle().Width(columns).Height(bodyRows).MaxHeight(bodyRows).Render(pane)
}

func (model Model) sessionTitle() string {
	loop := model.active.Loop()
	if loop.ID == "" {
		return "Loom terminal · global"
	}
	status := ""
	if loop.Context != nil && loop.Context.Status != "" {
		status = " · " + loop.Context.Status
	}
	return fmt.Sprintf("Loom terminal · %s%s", loop.Name, status)
}

func (model Model) renderHeader() string {
	loaded := model.view.Graph()
	parts := []string{
		model.styles.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground).Render("Loom"),
		fmt.Sprintf("%d loops", loaded.Len()),
		fmt.Sprintf("%d links", len(model.view.VisibleLinks())),
		"filter: " + model.view.Filter().String(),
	}
	if rig := model.view.RigFilter(); rig != "" {
		parts = append(parts, "rig: "+string(rig))
	}
	parts = append(parts, fmt.Sprintf("zoom %.2f", model.view.Camera().Zoom()))
	if selected, ok := loaded.Node(model.view.Selected()); ok {
		color := model.theme.StatusColor(selected.Status)
		parts = append(parts, model.styles.NewStyle().Foreground(color).Render("● "+selected.Label()))
	} else if hovered, ok := loaded.Node(model.hovered); ok {
		parts = append(parts, hoverText(hovered))
	}
	header := strings.Join(parts, "  ")
	return ansi.Truncate(header, model.width, "…")
}

func hoverText(node graph.Node) string {
	return fmt.Sprintf("%s (%s)", node.Label(), node.Status)
}

func (model Model) renderStatusBar() string {
	if entry := model.logEntry; entry != nil {
		color := model.theme.WarnText
		if entry.Level >= slog.LevelError {
			color = model.theme.ErrorText
		}
		return model.styles.NewStyle().Foreground(color).Render(ansi.Truncate(entry.Summary, model.width, "…"))
	}
	bindings := model.keys.graphHelp()
	if model.focus == FocusTerminal {
		bindings = model.keys.terminalHelp()
	}
	return ansi.Truncate(model.help.ShortHelpView(bindings), model.width, "")
}

func (model Model) renderDivider() string {
	_, _, bodyRows := model.paneSizes()
	line := model.styles.NewStyle().Foreground(model.theme.BorderColor).Render("│")
	rows := make([]string, bodyRows)
	for index := range rows {
		rows[index] = line
	}
	return strings.Join(rows, "\n")
}
