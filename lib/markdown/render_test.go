// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/loomworks/loom/lib/tui"
)

// plain renders input and returns its lines with styling and trailing
// spaces removed.
func plain(t *testing.T, input string, width int) []string {
	t.Helper()
	rendered := New(tui.DefaultTheme).Render(input, width)
	lines := strings.Split(ansi.Strip(rendered), "\n")
	for index, line := range lines {
		lines[index] = strings.TrimRight(line, " ")
	}
	return lines
}

func assertLines(t *testing.T, got, want []string) {
	t.Helper()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("rendered:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestRenderEmpty(t *testing.T) {
	t.Parallel()

	if got := New(tui.DefaultTheme).Render("  \n", 40); got != "" {
		t.Errorf("Render = %q, want empty", got)
	}
}

func TestRenderReflowsParagraphs(t *testing.T) {
	t.Parallel()

	assertLines(t, plain(t, "first line\nsecond line\n\nnext paragraph", 80),
		[]string{"first line second line", "", "next paragraph"})
}

func TestRenderWrapsToWidth(t *testing.T) {
	t.Parallel()

	input := strings.Repeat("word ", 30)
	for index, line := range plain(t, input, 24) {
		if ansi.StringWidth(line) > 24 {
			t.Errorf("line %d is %d columns: %q", index, ansi.StringWidth(line), line)
		}
	}
}

func TestRenderHeadingAndEmphasis(t *testing.T) {
	t.Parallel()

	assertLines(t, plain(t, "# Status\n\nThe loop is **blocked** on ~~review~~ *input*.", 80),
		[]string{"Status", "", "The loop is blocked on review input."})

	rendered := New(tui.DefaultTheme).Render("**bold**", 80)
	if !strings.Contains(rendered, "\x1b[") {
		t.Errorf("bold text carries no styling: %q", rendered)
	}
}

func TestRenderLists(t *testing.T) {
	t.Parallel()

	assertLines(t, plain(t, "- alpha\n- beta\n  - gamma\n- [x] done", 80),
		[]string{"- alpha", "- beta", "  - gamma", "- [x] done"})

	assertLines(t, plain(t, "3. three\n4. four", 80),
		[]string{"3. three", "4. four"})
}

func TestRenderListWrapsUnderBullet(t *testing.T) {
	t.Parallel()

	lines := plain(t, "- "+strings.Repeat("stream ", 6), 20)
	if len(lines) < 2 || !strings.HasPrefix(lines[0], "- stream") || !strings.HasPrefix(lines[1], "  stream") {
		t.Errorf("lines = %q, want continuation indented under the bullet", lines)
	}
}

func TestRenderBlockquote(t *testing.T) {
	t.Parallel()

	assertLines(t, plain(t, "> needs a decision\n> from you", 80),
		[]string{"│ needs a decision from you"})
}

func TestRenderCode(t *testing.T) {
	t.Parallel()

	input := "Run:\n\n```go\nfmt.Println(\"hi\")\n```\n\nand `loom --help`."
	assertLines(t, plain(t, input, 80),
		[]string{"Run:", "", "  fmt.Println(\"hi\")", "", "and loom --help."})

	long := "```\n" + strings.Repeat("x", 50) + "\n```"
	if lines := plain(t, long, 20); len(lines) != 1 {
		t.Errorf("code block wrapped into %d lines", len(lines))
	}
}

func TestRenderLinks(t *testing.T) {
	t.Parallel()

	assertLines(t, plain(t, "See [the docs](https://loom.dev/docs) or https://loom.dev.", 80),
		[]string{"See the docs (https://loom.dev/docs) or https://loom.dev."})
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	input := "| loop | n |\n|------|--:|\n| ingest | 7 |\n| sync | 12 |"
	assertLines(t, plain(t, input, 80), []string{
		"loop     n",
		"──────  ──",
		"ingest   7",
		"sync    12",
	})
}

func TestRenderTableShrinks(t *testing.T) {
	t.Parallel()

	input := "| a | b |\n|---|---|\n| " + strings.Repeat("x", 40) + " | " + strings.Repeat("y", 40) + " |"
	for index, line := range plain(t, input, 30) {
		if ansi.StringWidth(line) > 30 {
			t.Errorf("line %d is %d columns", index, ansi.StringWidth(line))
		}
	}
}
