// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/loomworks/loom/lib/clock"
	"github.com/loomworks/loom/lib/graph"
	"github.com/loomworks/loom/lib/graphview"
	"github.com/loomworks/loom/lib/session"
	"github.com/loomworks/loom/lib/testutil"
	"github.com/loomworks/loom/lib/tui"
	"github.com/loomworks/loom/lib/viewport"
)

func pinned(id, name string, x, y float64) graph.Node {
	return graph.Node{ID: id, Name: name, FX: &x, FY: &y}
}

func fleet() graph.Snapshot {
	nodes := []graph.Node{
		pinned("mayor", "Mayor", 0, 0),
		pinned("ingest", "Ingest Pipeline", 60, 0),
		pinned("billing", "Billing Sync", -60, 30),
	}
	nodes[0].Role = graph.RoleCoordinator
	nodes[1].Group = "openai"
	nodes[1].Status = graph.StatusBlocked
	nodes[1].Exceptional = true
	nodes[1].Loop = graph.LoopInfo{Mode: "autonomous", Goal: "drain the queue", IterationCount: 4}
	nodes[2].Group = "meta"
	nodes[2].Status = graph.StatusActive
	return graph.Snapshot{
		Nodes: nodes,
		Links: []graph.Link{graph.NewLink("mayor", "ingest"), graph.NewLink("mayor", "billing")},
	}
}

func echoHandler(_ context.Context, command string) (string, error) {
	return "echo: " + command, nil
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	viewConfig := graphview.DefaultConfig()
	viewConfig.Clock = clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	model, err := New(context.Background(), Config{
		View:     graphview.New(viewConfig),
		Snapshot: fleet(),
		Session:  session.Config{Handler: echoHandler},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(model.Close)
	return update(t, model, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, model Model, message tea.Msg) Model {
	t.Helper()
	next, _ := model.Update(message)
	return next.(Model)
}

func runes(text string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)} }

// drain runs command and every command it batches, returning the
// messages they produce. Commands that block longer than a second are
// abandoned.
func drain(t *testing.T, command tea.Cmd) []tea.Msg {
	t.Helper()
	if command == nil {
		return nil
	}
	result := make(chan tea.Msg, 1)
	go func() { result <- command() }()

	message, ok := testutil.TryReceive(result, time.Second)
	if !ok {
		return nil
	}
	if batch, ok := message.(tea.BatchMsg); ok {
		var messages []tea.Msg
		for _, inner := range batch {
			messages = append(messages, drain(t, inner)...)
		}
		return messages
	}
	if message == nil {
		return nil
	}
	return []tea.Msg{message}
}

// press sends a key and feeds back any command completion.
func press(t *testing.T, model Model, message tea.KeyMsg) (Model, []tea.Msg) {
	t.Helper()
	next, command := model.Update(message)
	model = next.(Model)
	messages := drain(t, command)
	for _, produced := range messages {
		if _, ok := produced.(commandDoneMsg); ok {
			model = update(t, model, produced)
		}
	}
	return model, messages
}

func contentOf(lines []session.Line) []string {
	contents := make([]string, len(lines))
	for index, line := range lines {
		contents[index] = line.Content
	}
	return contents
}

func TestNewRequiresView(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{Session: session.Config{Handler: echoHandler}}); err == nil {
		t.Fatal("New without a view succeeded")
	}
}

func TestNewRejectsUnusableSessionTemplate(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{View: graphview.New(graphview.DefaultConfig())})
	if err == nil || !strings.Contains(err.Error(), "dashboard: creating session") {
		t.Fatalf("error = %v, want a session creation error", err)
	}
}

func TestViewFillsWindow(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	rendered := ansi.Strip(model.View())
	if lines := strings.Count(rendered, "\n") + 1; lines != 40 {
		t.Errorf("view has %d lines, want 40", lines)
	}
	if !strings.Contains(rendered, "Loom terminal · global") {
		t.Errorf("terminal title missing from view:\n%s", rendered)
	}
}

func TestSearchSelectsLoopSession(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	model, _ = press(t, model, runes("/"))
	if model.Focus() != FocusSearch {
		t.Fatalf("focus = %v after /, want search", model.Focus())
	}
	model, _ = press(t, model, runes("ingest"))
	if selected, ok := model.results.Selected(); !ok || selected.Value != "ingest" {
		t.Fatalf("top result = %+v, %v", selected, ok)
	}
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	if model.Focus() != FocusGraph {
		t.Errorf("focus = %v after picking a result, want graph", model.Focus())
	}
	if got := model.view.Selected(); got != "ingest" {
		t.Errorf("selected = %q, want ingest", got)
	}
	loop := model.Session().Loop()
	if loop.ID != "ingest" || loop.Context == nil {
		t.Fatalf("session loop = %+v", loop)
	}
	if loop.Context.Status != "blocked" || loop.Context.Goal != "drain the queue" || loop.Context.IterationCount != 4 {
		t.Errorf("loop context = %+v", loop.Context)
	}
	if !strings.Contains(ansi.Strip(model.View()), "Loom terminal · Ingest Pipeline · blocked") {
		t.Error("terminal title does not name the selected loop")
	}
}

func TestSearchEscapeRestoresFocus(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyTab})
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyTab})
	model, _ = press(t, model, runes("/"))
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyEscape})
	if model.Focus() != FocusGraph {
		t.Errorf("focus = %v, want graph", model.Focus())
	}
	if model.view.Selected() != "" {
		t.Errorf("escape from search selected %q", model.view.Selected())
	}
}

func TestClickSelectsNodeUnderPointer(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	position, ok := model.view.Engine().Position("billing")
	if !ok {
		t.Fatal("billing has no position")
	}
	screen := model.view.Camera().Transform().ToScreen(viewport.Point{X: position.X, Y: position.Y})
	column, row := int(screen.X/2), int(screen.Y/4)

	model = update(t, model, tea.MouseMsg{X: column, Y: row + 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	model = update(t, model, tea.MouseMsg{X: column, Y: row + 1, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	if got := model.view.Selected(); got != "billing" {
		t.Fatalf("selected = %q after clicking billing's cell (%d,%d)", got, column, row)
	}
	if model.Session().Loop().ID != "billing" {
		t.Errorf("session loop = %q, want billing", model.Session().Loop().ID)
	}
}

func TestClickOutsideGraphFocusesTerminal(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	model = update(t, model, tea.MouseMsg{X: 110, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if model.Focus() != FocusTerminal {
		t.Errorf("focus = %v, want terminal", model.Focus())
	}
}

func TestSessionsAreKeptPerLoop(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	model.view.Focus("ingest")
	model = update(t, model, runes("x"))
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyTab})
	if model.Focus() != FocusTerminal {
		t.Fatalf("focus = %v, want terminal", model.Focus())
	}
	model, _ = press(t, model, runes("how far along?"))
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	want := []string{"how far along?", "echo: how far along?"}
	if got := contentOf(model.Session().Lines()); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("ingest lines = %q, want %q", got, want)
	}
	if model.input.Value() != "" {
		t.Errorf("input = %q after submit, want empty", model.input.Value())
	}

	model.view.Focus("billing")
	model = update(t, model, tea.MouseMsg{Action: tea.MouseActionMotion})
	if lines := model.Session().Lines(); len(lines) != 0 {
		t.Errorf("billing session inherited lines %q", contentOf(lines))
	}

	model.view.Focus("ingest")
	model = update(t, model, tea.MouseMsg{Action: tea.MouseActionMotion})
	if got := contentOf(model.Session().Lines()); len(got) != 2 {
		t.Errorf("ingest lines after returning = %q", got)
	}
}

func TestBuiltinStatusRendersInTranscript(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	model.view.Focus("ingest")
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyTab})
	model, _ = press(t, model, runes("status"))
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	rendered := ansi.Strip(model.View())
	for _, want := range []string{"> status", "Loop: Ingest Pipeline", "Status: blocked"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("view missing %q:\n%s", want, rendered)
		}
	}
}

func TestHistoryRecallInTerminal(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyTab})
	for _, command := range []string{"first", "second"} {
		model, _ = press(t, model, runes(command))
		model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	}

	steps := []struct {
		key  tea.KeyType
		want string
	}{
		{tea.KeyUp, "second"},
		{tea.KeyUp, "first"},
		{tea.KeyDown, "second"},
		{tea.KeyDown, ""},
	}
	for _, step := range steps {
		model, _ = press(t, model, tea.KeyMsg{Type: step.key})
		if got := model.input.Value(); got != step.want {
			t.Errorf("after %v input = %q, want %q", step.key, got, step.want)
		}
	}
}

func TestEscapeReturnsToGlobalSession(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	model.view.Focus("billing")
	model, _ = press(t, model, runes("x"))
	if model.Session().Loop().ID != "billing" {
		t.Fatalf("session loop = %q, want billing", model.Session().Loop().ID)
	}
	model, _ = press(t, model, tea.KeyMsg{Type: tea.KeyEscape})
	if model.view.Selected() != "" || model.Session().Loop().ID != "" {
		t.Errorf("after escape selected = %q, session = %q", model.view.Selected(), model.Session().Loop().ID)
	}
}

func TestFilterAndRigKeys(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	model, _ = press(t, model, runes("f"))
	if model.view.Filter() != graphview.FilterExceptional {
		t.Errorf("filter = %v after f", model.view.Filter())
	}
	model, _ = press(t, model, runes("f"))
	if model.view.Filter() != graphview.FilterAll {
		t.Errorf("filter = %v after second f", model.view.Filter())
	}

	groups := model.view.Graph().Groups()
	if len(groups) != 2 {
		t.Fatalf("groups = %v", groups)
	}
	var seen []graph.GroupID
	for range 3 {
		model, _ = press(t, model, runes("r"))
		seen = append(seen, model.view.RigFilter())
	}
	want := []graph.GroupID{groups[0], groups[1], ""}
	for index := range want {
		if seen[index] != want[index] {
			t.Errorf("rig filters = %v, want %v", seen, want)
			break
		}
	}
}

func TestNextRig(t *testing.T) {
	t.Parallel()

	groups := []graph.GroupID{"meta", "openai"}
	tests := []struct {
		current graph.GroupID
		want    graph.GroupID
	}{
		{"", "meta"},
		{"meta", "openai"},
		{"openai", ""},
		{"gone", ""},
	}
	for _, test := range tests {
		if got := nextRig(groups, test.current); got != test.want {
			t.Errorf("nextRig(%q) = %q, want %q", test.current, got, test.want)
		}
	}
	if got := nextRig(nil, "meta"); got != "" {
		t.Errorf("nextRig with no groups = %q", got)
	}
}

func TestInterruptQuitsWhenIdle(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	_, messages := press(t, model, tea.KeyMsg{Type: tea.KeyCtrlC})
	for _, message := range messages {
		if _, ok := message.(tea.QuitMsg); ok {
			return
		}
	}
	t.Errorf("ctrl+c while idle produced %v, want a quit", messages)
}

func TestLogRecordShowsThenFades(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	model = update(t, model, tui.LogRecordMsg{Summary: "relay unreachable (status=502)", Level: slog.LevelError})
	if !strings.Contains(ansi.Strip(model.View()), "relay unreachable (status=502)") {
		t.Error("status bar does not show the log record")
	}
	model = update(t, model, tui.LogFadeMsg{})
	if strings.Contains(ansi.Strip(model.View()), "relay unreachable") {
		t.Error("log record still shown after fading")
	}
}

func TestLoopForNodeWithoutLoopState(t *testing.T) {
	t.Parallel()

	loop := loopFor(graph.Node{ID: "scout", Status: graph.StatusIdle})
	if loop.ID != "scout" || loop.Name != "scout" {
		t.Errorf("loop = %+v", loop)
	}
	if loop.Context.LoopName != "scout" || loop.Context.Status != "idle" || loop.Context.Mode != "" {
		t.Errorf("context = %+v", loop.Context)
	}
}
