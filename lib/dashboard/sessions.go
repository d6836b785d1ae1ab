// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loomworks/loom/lib/chatstream"
	"github.com/loomworks/loom/lib/graph"
	"github.com/loomworks/loom/lib/session"
)

// sessionChangedMsg reports that some session's lines changed.
type sessionChangedMsg struct{}

// commandDoneMsg reports that an Execute call returned.
type commandDoneMsg struct{}

// sessionSet owns one controller per loop, keyed by node id. The
// empty id is the global session.
type sessionSet struct {
	template session.Config
	byLoop   map[string]*session.Controller

	// changes coalesces change callbacks from every controller into
	// at most one pending notification.
	changes chan struct{}
}

func newSessionSet(template session.Config) *sessionSet {
	return &sessionSet{
		template: template,
		byLoop:   make(map[string]*session.Controller),
		changes:  make(chan struct{}, 1),
	}
}

func (sessions *sessionSet) notify() {
	select {
	case sessions.changes <- struct{}{}:
	default:
	}
}

// get returns the session for loop, creating it on first use.
func (sessions *sessionSet) get(loop session.Loop) (*session.Controller, error) {
	if controller, ok := sessions.byLoop[loop.ID]; ok {
		controller.SetLoop(loop)
		return controller, nil
	}
	config := sessions.template
	config.Loop = loop
	config.OnChange = sessions.notify
	controller, err := session.New(config)
	if err != nil {
		return nil, fmt.Errorf("dashboard: creating session for %q: %w", loop.ID, err)
	}
	sessions.byLoop[loop.ID] = controller
	return controller, nil
}

func (sessions *sessionSet) closeAll() {
	for _, controller := range sessions.byLoop {
		controller.Close()
	}
}

// listenForSessionChange blocks until a session reports a change.
func listenForSessionChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return sessionChangedMsg{}
	}
}

// runCommand executes command off the update loop.
func (model Model) runCommand(controller *session.Controller, command string) tea.Cmd {
	ctx := model.ctx
	return func() tea.Msg {
		controller.Execute(ctx, command)
		return commandDoneMsg{}
	}
}

// loopFor builds the session loop for a node. Nodes without loop
// state still get their id, name and status.
func loopFor(node graph.Node) session.Loop {
	return session.Loop{
		ID:   node.ID,
		Name: node.Label(),
		Context: &chatstream.LoopContext{
			LoopID:             node.ID,
			LoopName:           node.Label(),
			Mode:               node.Loop.Mode,
			Goal:               node.Loop.Goal,
			Status:             string(node.Status),
			IterationCount:     node.Loop.IterationCount,
			InterventionReason: node.Loop.InterventionReason,
		},
	}
}
