// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"fmt"
	"strings"

	"github.com/loomworks/loom/lib/chatstream"
)

// SystemPrompt describes the loop the conversation is about.
func SystemPrompt(loop chatstream.LoopContext) string {
	var builder strings.Builder
	builder.WriteString("You are Claude, embedded in the Loom dashboard as the terminal for one agent loop. ")
	builder.WriteString("Answer questions about the loop concisely, using markdown where it helps.\n\n")

	name := loop.LoopName
	if name == "" {
		name = "unnamed"
	}
	fmt.Fprintf(&builder, "Loop: %s", name)
	if loop.LoopID != "" {
		fmt.Fprintf(&builder, " (%s)", loop.LoopID)
	}
	builder.WriteString("\n")

	if loop.Mode != "" {
		fmt.Fprintf(&builder, "Mode: %s\n", loop.Mode)
	}
	if loop.Goal != "" {
		fmt.Fprintf(&builder, "Goal: %s\n", loop.Goal)
	}
	if loop.Status != "" {
		fmt.Fprintf(&builder, "Status: %s\n", loop.Status)
	}
	fmt.Fprintf(&builder, "Iterations: %d\n", loop.IterationCount)
	if loop.InterventionReason != "" {
		fmt.Fprintf(&builder, "Needs intervention: %s\n", loop.InterventionReason)
	}
	return builder.String()
}
