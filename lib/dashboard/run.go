// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loomworks/loom/lib/tui"
)

// Run shows the dashboard on the alternate screen until the user
// quits or ctx is cancelled. When logs is non-nil it receives the
// program so log records appear in the status bar.
func Run(ctx context.Context, config Config, logs *tui.LogHandler) error {
	model, err := New(ctx, config)
	if err != nil {
		return err
	}
	defer model.Close()

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	if logs != nil {
		// Set after NewProgram and before Run so records logged during
		// startup already reach the status bar.
		logs.SetSender(program)
		defer logs.SetSender(nil)
	}

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dashboard: running program: %w", err)
	}
	return nil
}
