// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/loomworks/loom/lib/chatstream"
	"github.com/loomworks/loom/lib/clock"
	"github.com/loomworks/loom/lib/keystore"
)

// cancelledMarker is appended to a reply cut short by Cancel.
const cancelledMarker = "\n[Cancelled]"

// Handler answers commands in place of the chat endpoint. An empty
// response adds no line.
type Handler func(ctx context.Context, command string) (string, error)

// ChatClient streams a chat reply. *chatstream.Client satisfies it.
type ChatClient interface {
	Chat(ctx context.Context, request chatstream.ChatRequest, onText func(accumulated string)) (string, error)
}

// KeyProvider supplies the API key and reports when it is configured
// or cleared. *keystore.KeyManager satisfies it.
type KeyProvider interface {
	APIKey() (string, bool)
	HasKey() bool
	Subscribe(callback func(configured bool)) (unsubscribe func())
}

// Loop identifies the loop a session is bound to. Context carries the
// optional detail shown by status and context and sent with chat
// requests; when nil, requests carry only the id and name.
type Loop struct {
	ID      string
	Name    string
	Context *chatstream.LoopContext
}

// Config configures a Controller.
type Config struct {
	Loop Loop

	// Handler, when set, receives every non-built-in command and the
	// chat client is not used.
	Handler Handler

	Chat ChatClient
	Keys KeyProvider

	// InitialLines seed the visible transcript.
	InitialLines []Line

	// OnChange is called after every change to the visible state,
	// without the controller's lock held.
	OnChange func()

	// SetKeyHint completes the missing-key messages. Defaults to
	// "Run loom --set-key to add your Anthropic API key."
	SetKeyHint string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Controller is one terminal session.
type Controller struct {
	handler    Handler
	chat       ChatClient
	keys       KeyProvider
	onChange   func()
	setKeyHint string
	clock      clock.Clock
	logger     *slog.Logger
	sessionID  string

	mutex        sync.Mutex
	loop         Loop
	lines        []Line
	messages     []chatstream.Message
	history      []string
	historyIndex int
	processing   bool
	hasAPIKey    bool
	lineCounter  int
	cancel       context.CancelFunc
	// generation changes on every clear, so a reply finishing after a
	// clear does not write into the new conversation.
	generation int

	unsubscribe func()
}

// New returns a Controller. Without a handler, Chat and Keys are
// required.
func New(config Config) (*Controller, error) {
	if config.Handler == nil && (config.Chat == nil || config.Keys == nil) {
		return nil, errors.New("session: a handler or both a chat client and a key provider are required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.SetKeyHint == "" {
		config.SetKeyHint = "Run loom --set-key to add your Anthropic API key."
	}

	sessionID := uuid.NewString()
	controller := &Controller{
		handler:      config.Handler,
		chat:         config.Chat,
		keys:         config.Keys,
		onChange:     config.OnChange,
		setKeyHint:   config.SetKeyHint,
		clock:        config.Clock,
		logger:       config.Logger.With("session", sessionID[:8]),
		sessionID:    sessionID,
		loop:         config.Loop,
		lines:        slices.Clone(config.InitialLines),
		historyIndex: -1,
		unsubscribe:  func() {},
	}

	if config.Keys != nil {
		controller.hasAPIKey = config.Keys.HasKey()
		controller.unsubscribe = config.Keys.Subscribe(controller.keyChanged)
	}
	return controller, nil
}

// Close stops watching the key provider and cancels any request in
// flight.
func (controller *Controller) Close() {
	controller.unsubscribe()
	controller.Cancel()
}

// ID returns the session's unique id.
func (controller *Controller) ID() string { return controller.sessionID }

// Execute runs one command. Blank commands and commands submitted
// while another is in flight are ignored. Execute blocks until a
// handler or chat command finishes.
func (controller *Controller) Execute(ctx context.Context, command string) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return
	}

	controller.mutex.Lock()
	if controller.processing {
		controller.mutex.Unlock()
		return
	}

	controller.remember(trimmed)
	controller.appendLine(LineInput, trimmed)

	if controller.runBuiltin(trimmed) {
		controller.mutex.Unlock()
		controller.changed()
		return
	}

	if controller.handler != nil {
		controller.processing = true
		controller.mutex.Unlock()
		controller.changed()
		controller.runHandler(ctx, trimmed)
		return
	}

	apiKey, ok := controller.keys.APIKey()
	if !ok {
		controller.appendLine(LineError, "No API key configured. "+controller.setKeyHint)
		controller.mutex.Unlock()
		controller.changed()
		return
	}

	controller.processing = true
	controller.messages = append(controller.messages, chatstream.Message{Role: chatstream.RoleUser, Content: trimmed})
	streamingLine := controller.appendLine(LineStreaming, "")
	request := chatstream.ChatRequest{
		APIKey:      apiKey,
		Messages:    slices.Clone(controller.messages),
		LoopContext: controller.loopContext(),
	}
	requestContext, cancel := context.WithCancel(ctx)
	controller.cancel = cancel
	generation := controller.generation
	controller.mutex.Unlock()
	controller.changed()

	controller.logger.Debug("chat request started",
		"messages", len(request.Messages),
		"loop", request.LoopContext.LoopID,
		"key", keystore.Fingerprint(apiKey),
	)

	content, err := controller.chat.Chat(requestContext, request, func(accumulated string) {
		controller.mutex.Lock()
		controller.setLineContent(streamingLine.ID, accumulated)
		controller.mutex.Unlock()
		controller.changed()
	})
	cancelled := err != nil && errors.Is(err, context.Canceled) && requestContext.Err() != nil
	cancel()

	controller.mutex.Lock()
	controller.cancel = nil
	controller.processing = false
	sameConversation := generation == controller.generation
	switch {
	case err == nil:
		controller.setLineContent(streamingLine.ID, content)
		controller.finalizeLine(streamingLine.ID)
		if sameConversation {
			controller.messages = append(controller.messages, chatstream.Message{Role: chatstream.RoleAssistant, Content: content})
		}
		controller.logger.Debug("chat request finished", "characters", len(content))

	case cancelled:
		controller.setLineContent(streamingLine.ID, content+cancelledMarker)
		controller.finalizeLine(streamingLine.ID)
		if sameConversation {
			if content != "" {
				controller.messages = append(controller.messages, chatstream.Message{Role: chatstream.RoleAssistant, Content: content})
			} else {
				controller.rollbackUserTurn()
			}
		}
		controller.logger.Debug("chat request cancelled", "characters", len(content))

	default:
		controller.removeLine(streamingLine.ID)
		if sameConversation {
			controller.rollbackUserTurn()
		}
		message := err.Error()
		if message == "" {
			message = "Failed to get response"
		}
		controller.appendLine(LineError, message)
		controller.logger.Warn("chat request failed", "error", err)
	}
	controller.mutex.Unlock()
	controller.changed()
}

// Cancel aborts the chat request in flight, if any.
func (controller *Controller) Cancel() {
	controller.mutex.Lock()
	cancel := controller.cancel
	controller.mutex.Unlock()
	if cancel != nil {
		cancel()
	}
}

// NavigateHistory moves the recall cursor and returns the command to
// show in the prompt. Moving newer past the newest command leaves
// recall and returns "".
func (controller *Controller) NavigateHistory(direction Direction) string {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()

	if len(controller.history) == 0 {
		return ""
	}
	switch direction {
	case Older:
		if controller.historyIndex == -1 {
			controller.historyIndex = len(controller.history) - 1
		} else {
			controller.historyIndex = max(0, controller.historyIndex-1)
		}
	case Newer:
		if controller.historyIndex == -1 {
			return ""
		}
		controller.historyIndex++
		if controller.historyIndex >= len(controller.history) {
			controller.historyIndex = -1
			return ""
		}
	}
	return controller.history[controller.historyIndex]
}

// Clear wipes the visible lines and the conversation transcript.
func (controller *Controller) Clear() {
	controller.mutex.Lock()
	controller.clearLocked()
	controller.mutex.Unlock()
	controller.changed()
}

// AddSystemMessage appends a system line.
func (controller *Controller) AddSystemMessage(message string) {
	controller.AddLine(LineSystem, message)
}

// AddLine appends a line of any kind and returns it.
func (controller *Controller) AddLine(kind LineKind, content string) Line {
	controller.mutex.Lock()
	line := controller.appendLine(kind, content)
	controller.mutex.Unlock()
	controller.changed()
	return line
}

// SetLoop rebinds the session to another loop. The transcript is kept.
func (controller *Controller) SetLoop(loop Loop) {
	controller.mutex.Lock()
	controller.loop = loop
	controller.mutex.Unlock()
}

// Loop returns the loop the session is bound to.
func (controller *Controller) Loop() Loop {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	return controller.loop
}

// Lines returns a copy of the visible lines.
func (controller *Controller) Lines() []Line {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	return slices.Clone(controller.lines)
}

// Transcript returns a copy of the conversation sent with the next
// chat request.
func (controller *Controller) Transcript() []chatstream.Message {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	return slices.Clone(controller.messages)
}

// History returns the deduplicated command history, oldest first.
func (controller *Controller) History() []string {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	return slices.Clone(controller.history)
}

// Processing reports whether a command is in flight.
func (controller *Controller) Processing() bool {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	return controller.processing
}

// HasAPIKey reports whether an API key is configured, as last
// reported by the key provider.
func (controller *Controller) HasAPIKey() bool {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	return controller.hasAPIKey
}

func (controller *Controller) runHandler(ctx context.Context, command string) {
	response, err := controller.handler(ctx, command)

	controller.mutex.Lock()
	controller.processing = false
	switch {
	case err != nil:
		message := err.Error()
		if message == "" {
			message = "Command failed"
		}
		controller.appendLine(LineError, message)
	case response != "":
		controller.appendLine(LineOutput, response)
	}
	controller.mutex.Unlock()
	controller.changed()
}

// runBuiltin handles the built-in commands. The caller holds the lock.
func (controller *Controller) runBuiltin(command string) bool {
	switch strings.ToLower(command) {
	case "clear":
		controller.clearLocked()
	case "help":
		controller.appendLine(LineSystem, controller.helpText())
	case "status":
		controller.appendLine(LineSystem, controller.statusText())
	case "context":
		controller.appendLine(LineSystem, controller.contextText())
	default:
		return false
	}
	return true
}

func (controller *Controller) helpText() string {
	keyStatus := "✓ API key configured - Ready to chat with Claude"
	if !controller.hasAPIKey {
		keyStatus = "⚠️  No API key configured. " + controller.setKeyHint
	}
	return "Loom Terminal - Claude Interface\n" +
		"\n" +
		"Commands:\n" +
		"  help     - Show this help message\n" +
		"  clear    - Clear terminal history\n" +
		"  status   - Show current loop status\n" +
		"  context  - Display loop context\n" +
		"\n" +
		"Or type any message to chat with Claude about this loop.\n" +
		"\n" +
		keyStatus
}

func (controller *Controller) statusText() string {
	detail := controller.loopDetail()
	return fmt.Sprintf("Loop: %s\nStatus: %s\nMode: %s\nIterations: %d",
		firstNonEmpty(controller.loop.Name, controller.loop.ID, "unknown"),
		firstNonEmpty(detail.Status, "unknown"),
		firstNonEmpty(detail.Mode, "unknown"),
		detail.IterationCount,
	)
}

func (controller *Controller) contextText() string {
	detail := controller.loopDetail()
	var builder strings.Builder
	builder.WriteString("Loop Context:\n")
	fmt.Fprintf(&builder, "  ID: %s\n", firstNonEmpty(controller.loop.ID, "N/A"))
	fmt.Fprintf(&builder, "  Name: %s\n", firstNonEmpty(controller.loop.Name, "N/A"))
	fmt.Fprintf(&builder, "  Mode: %s\n", firstNonEmpty(detail.Mode, "N/A"))
	fmt.Fprintf(&builder, "  Goal: %s\n", firstNonEmpty(detail.Goal, "N/A"))
	fmt.Fprintf(&builder, "  Status: %s\n", firstNonEmpty(detail.Status, "N/A"))
	fmt.Fprintf(&builder, "  Iterations: %d", detail.IterationCount)
	if detail.InterventionReason != "" {
		fmt.Fprintf(&builder, "\n  Intervention: %s", detail.InterventionReason)
	}
	return builder.String()
}

func (controller *Controller) loopDetail() chatstream.LoopContext {
	if controller.loop.Context != nil {
		return *controller.loop.Context
	}
	return chatstream.LoopContext{}
}

// loopContext is the context sent with a chat request.
func (controller *Controller) loopContext() chatstream.LoopContext {
	if controller.loop.Context != nil {
		return *controller.loop.Context
	}
	return chatstream.LoopContext{LoopID: controller.loop.ID, LoopName: controller.loop.Name}
}

func (controller *Controller) remember(command string) {
	controller.history = slices.DeleteFunc(controller.history, func(previous string) bool {
		return previous == command
	})
	controller.history = append(controller.history, command)
	controller.historyIndex = -1
}

func (controller *Controller) clearLocked() {
	controller.lines = nil
	controller.messages = nil
	controller.generation++
}

func (controller *Controller) appendLine(kind LineKind, content string) Line {
	controller.lineCounter++
	scope := controller.loop.ID
	if scope == "" {
		scope = "global"
	}
	line := Line{
		ID:        fmt.Sprintf("line-%s-%d-%s", scope, controller.lineCounter, controller.sessionID[:8]),
		Kind:      kind,
		Content:   content,
		Timestamp: controller.clock.Now(),
	}
	controller.lines = append(controller.lines, line)
	return line
}

func (controller *Controller) setLineContent(id, content string) {
	for index := range controller.lines {
		if controller.lines[index].ID == id {
			controller.lines[index].Content = content
			return
		}
	}
}

func (controller *Controller) finalizeLine(id string) {
	for index := range controller.lines {
		if controller.lines[index].ID == id {
			controller.lines[index].Kind = LineOutput
			return
		}
	}
}

func (controller *Controller) removeLine(id string) {
	controller.lines = slices.DeleteFunc(controller.lines, func(line Line) bool {
		return line.ID == id
	})
}

// rollbackUserTurn drops a trailing user message that never got a
// reply.
func (controller *Controller) rollbackUserTurn() {
	last := len(controller.messages) - 1
	if last >= 0 && controller.messages[last].Role == chatstream.RoleUser {
		controller.messages = controller.messages[:last]
	}
}

func (controller *Controller) keyChanged(configured bool) {
	controller.mutex.Lock()
	controller.hasAPIKey = configured
	controller.mutex.Unlock()
	controller.logger.Debug("api key presence changed", "configured", configured)
	controller.changed()
}

func (controller *Controller) changed() {
	if controller.onChange != nil {
		controller.onChange()
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
