// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/loomworks/loom/lib/tui"
)

// minimumWidth keeps deeply nested content from wrapping one word per
// line.
const minimumWidth = 10

const wrapBreakpoints = " ,.;-+|"

// Renderer turns markdown into styled terminal lines. A Renderer is
// safe for concurrent use.
type Renderer struct {
	theme      tui.Theme
	markdown   goldmark.Markdown
	styles     *lipgloss.Renderer
	codeStyle  string
	codeFormat string
}

// New returns a Renderer using theme's colors.
func New(theme tui.Theme) *Renderer {
	// The output always lands in a bubbletea view, so the color
	// profile is fixed instead of detected from the process's stdout.
	styles := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(termenv.ANSI256))
	styles.SetColorProfile(termenv.ANSI256)

	return &Renderer{
		theme:      theme,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		styles:     styles,
		codeStyle:  "monokai",
		codeFormat: "terminal256",
	}
}

// Render returns input rendered to lines at most width columns wide,
// joined with newlines. Code blocks may exceed width.
func (renderer *Renderer) Render(input string, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := renderer.markdown.Parser().Parse(text.NewReader(source))

	state := &renderState{Renderer: renderer, source: source}
	lines := state.blocks(document, max(width, minimumWidth))
	return strings.Join(lines, "\n")
}

// renderState is the per-call view of a Renderer.
type renderState struct {
	*Renderer
	source []byte
}

func (state *renderState) style(color lipgloss.Color) lipgloss.Style {
	return state.styles.NewStyle().Foreground(color)
}

// blocks renders parent's children, separating them with blank lines
// except inside tight list items.
func (state *renderState) blocks(parent ast.Node, width int) []string {
	separate := !inTightItem(parent)
	var lines []string
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		block := state.block(child, width)
		if len(block) == 0 {
			continue
		}
		if separate && len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, block...)
	}
	return lines
}

func inTightItem(node ast.Node) bool {
	if node.Kind() != ast.KindListItem {
		return false
	}
	list, ok := node.Parent().(*ast.List)
	return ok && list.IsTight
}

func (state *renderState) block(node ast.Node, width int) []string {
	switch node := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return state.wrap(state.inline(node), width)

	case *ast.Heading:
		style := state.styles.NewStyle().Bold(true).Foreground(state.theme.NormalText)
		if node.Level <= 2 {
			style = style.Foreground(state.theme.HeaderForeground)
		}
		return state.wrap(style.Render(ansi.Strip(state.inline(node))), width)

	case *ast.FencedCodeBlock:
		return state.code(blockText(node, state.source), string(node.Language(state.source)))

	case *ast.CodeBlock:
		return state.code(blockText(node, state.source), "")

	case *ast.Blockquote:
		bar := state.style(state.theme.BorderColor).Render("│") + " "
		return prefixLines(state.blocks(node, width-2), bar, bar)

	case *ast.List:
		return state.list(node, width)

	case *ast.ThematicBreak:
		return []string{state.style(state.theme.BorderColor).Render(strings.Repeat("─", width))}

	case *ast.HTMLBlock:
		stripped := strings.TrimSpace(stripTags(blockText(node, state.source)))
		if stripped == "" {
			return nil
		}
		return state.wrap(state.style(state.theme.FaintText).Render(stripped), width)

	case *extast.Table:
		return state.table(node, width)

	default:
		return state.blocks(node, width)
	}
}

func (state *renderState) list(list *ast.List, width int) []string {
	number := list.Start
	var lines []string
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		bullet := "- "
		if list.IsOrdered() {
			bullet = fmt.Sprintf("%d. ", number)
			number++
		}
		indent := strings.Repeat(" ", len(bullet))

		body := state.blocks(item, width-len(bullet))
		if len(body) == 0 {
			body = []string{""}
		}
		if !list.IsTight && len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, prefixLines(body, bullet, indent)...)
	}
	return lines
}

func (state *renderState) code(source, language string) []string {
	source = strings.TrimRight(source, "\n")
	faint := state.style(state.theme.FaintText)
	if language == "" {
		lines := strings.Split(source, "\n")
		for index, line := range lines {
			lines[index] = faint.Render(line)
		}
		return prefixLines(lines, "  ", "  ")
	}

	var highlighted strings.Builder
	if err := quick.Highlight(&highlighted, source, language, state.codeFormat, state.codeStyle); err != nil {
		return state.code(source, "")
	}
	lines := strings.Split(highlighted.String(), "\n")
	// The formatter may end with a bare reset sequence after the last
	// newline. Drop such lines and keep the reset on the last real one.
	for len(lines) > 1 && strings.TrimSpace(ansi.Strip(lines[len(lines)-1])) == "" {
		lines = lines[:len(lines)-1]
	}
	lines[len(lines)-1] += "\x1b[0m"
	return prefixLines(lines, "  ", "  ")
}

func (state *renderState) wrap(content string, width int) []string {
	if content == "" {
		return nil
	}
	return strings.Split(ansi.Wrap(content, width, wrapBreakpoints), "\n")
}

// inlineStyle is the emphasis in effect while rendering inline nodes.
type inlineStyle struct {
	bold, italic, strikethrough bool
}

func (state *renderState) inline(parent ast.Node) string {
	var builder strings.Builder
	state.inlineChildren(&builder, parent, inlineStyle{})
	return builder.String()
}

func (state *renderState) inlineChildren(builder *strings.Builder, parent ast.Node, current inlineStyle) {
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		state.inlineNode(builder, child, current)
	}
}

func (state *renderState) inlineNode(builder *strings.Builder, node ast.Node, current inlineStyle) {
	faint := state.style(state.theme.FaintText)

	switch node := node.(type) {
	case *ast.Text:
		builder.WriteString(state.emphasized(string(node.Segment.Value(state.source)), current))
		switch {
		case node.HardLineBreak():
			builder.WriteString("\n")
		case node.SoftLineBreak():
			builder.WriteString(" ")
		}

	case *ast.String:
		builder.WriteString(state.emphasized(string(node.Value), current))

	case *ast.Emphasis:
		if node.Level >= 2 {
			current.bold = true
		} else {
			current.italic = true
		}
		state.inlineChildren(builder, node, current)

	case *extast.Strikethrough:
		current.strikethrough = true
		state.inlineChildren(builder, node, current)

	case *ast.CodeSpan:
		var code strings.Builder
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch segment := child.(type) {
			case *ast.Text:
				code.Write(segment.Segment.Value(state.source))
			case *ast.String:
				code.Write(segment.Value)
			}
		}
		builder.WriteString(state.style(state.theme.PromptText).Render(code.String()))

	case *ast.Link:
		var label strings.Builder
		state.inlineChildren(&label, node, current)
		builder.WriteString(label.String())
		destination := string(node.Destination)
		if destination != "" && destination != ansi.Strip(label.String()) {
			builder.WriteString(" " + faint.Render("("+destination+")"))
		}

	case *ast.AutoLink:
		builder.WriteString(faint.Render(string(node.URL(state.source))))

	case *ast.Image:
		var alt strings.Builder
		state.inlineChildren(&alt, node, inlineStyle{})
		builder.WriteString(faint.Render("[" + ansi.Strip(alt.String()) + "]"))

	case *ast.RawHTML:
		var html strings.Builder
		for index := 0; index < node.Segments.Len(); index++ {
			segment := node.Segments.At(index)
			html.Write(segment.Value(state.source))
		}
		if stripped := stripTags(html.String()); stripped != "" {
			builder.WriteString(faint.Render(stripped))
		}

	case *extast.TaskCheckBox:
		if node.IsChecked {
			builder.WriteString(state.style(state.theme.StatusCompleted).Render("[x]") + " ")
		} else {
			builder.WriteString(state.emphasized("[ ] ", current))
		}

	default:
		state.inlineChildren(builder, node, current)
	}
}

func (state *renderState) emphasized(content string, current inlineStyle) string {
	style := state.style(state.theme.NormalText).
		Bold(current.bold).
		Italic(current.italic).
		Strikethrough(current.strikethrough)
	return style.Render(content)
}

// prefixLines puts first before the first line and rest before every
// other line.
func prefixLines(lines []string, first, rest string) []string {
	prefixed := make([]string, len(lines))
	for index, line := range lines {
		if index == 0 {
			prefixed[index] = first + line
		} else {
			prefixed[index] = rest + line
		}
	}
	return prefixed
}

// blockText concatenates the raw source lines of a block node.
func blockText(node ast.Node, source []byte) string {
	var builder strings.Builder
	lines := node.Lines()
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		builder.Write(segment.Value(source))
	}
	return builder.String()
}

// stripTags drops anything between angle brackets.
func stripTags(html string) string {
	var builder strings.Builder
	inTag := false
	for _, character := range html {
		switch {
		case character == '<':
			inTag = true
		case character == '>':
			inTag = false
		case !inTag:
			builder.WriteRune(character)
		}
	}
	return builder.String()
}
