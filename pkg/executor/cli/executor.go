// Package cli provides a line-oriented executor for recall.
//
// Example usage:
//
//	ag := agent.NewChatAgent(provider, agent.WithMemory(controller))
//	executor := cli.NewExecutor(ag, cli.WithShowToolCalls(true))
//	if err := executor.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"

	"github.com/entrhq/recall/pkg/agent/slash"
	"github.com/entrhq/recall/pkg/types"
)

// Agent is the agent surface the CLI drives.
type Agent interface {
	slash.Agent
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	GetChannels() *types.AgentChannels
}

// Executor is a CLI-based executor that enables turn-by-turn conversation
// with an agent through terminal input/output.
type Executor struct {
	agent    Agent
	commands *slash.Handler
	reader   *bufio.Reader
	writer   io.Writer
	copy     func(string) error

	// Display options
	showToolCalls  bool
	renderMarkdown bool
	renderer       *glamour.TermRenderer

	// State
	attachments []string
	lastReply   string
	narration   strings.Builder

	// threadPending is set while a save or load waits for its outcome.
	threadPending atomic.Bool
	welcomed      chan struct{}
	welcomeOnce   sync.Once
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithShowToolCalls prints tool calls and their results.
func WithShowToolCalls(show bool) ExecutorOption {
	return func(e *Executor) {
		e.showToolCalls = show
	}
}

// WithMarkdown renders replies as markdown.
func WithMarkdown(enabled bool) ExecutorOption {
	return func(e *Executor) {
		e.renderMarkdown = enabled
	}
}

// WithWriter sets a custom output writer (default is os.Stdout).
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.writer = w
	}
}

// WithReader sets a custom input reader (default is os.Stdin).
func WithReader(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = bufio.NewReader(r)
	}
}

// WithClipboard replaces the clipboard writer used by /copy.
func WithClipboard(write func(string) error) ExecutorOption {
	return func(e *Executor) {
		e.copy = write
	}
}

// NewExecutor creates a new CLI executor for the given agent.
func NewExecutor(ag Agent, opts ...ExecutorOption) *Executor {
	e := &Executor{
		agent:    ag,
		commands: slash.NewHandler(ag),
		reader:   bufio.NewReader(os.Stdin),
		writer:   os.Stdout,
		copy:     clipboard.WriteAll,
		welcomed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.renderMarkdown {
		r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(100))
		if err == nil {
			e.renderer = r
		}
	}
	return e
}

// Run starts the executor and begins the conversation loop.
// Returns when the user exits, input ends, or ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	if err := e.agent.Start(ctx); err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}

	channels := e.agent.GetChannels()

	// done is signalled after each turn and each thread operation
	done := make(chan struct{}, 1)
	eventsDone := make(chan struct{})
	go e.handleEvents(channels.Event, eventsDone, done)

	// The welcome reply arrives without a turn; wait for it before prompting.
	select {
	case <-e.welcomed:
	case <-time.After(2 * time.Second):
	}
	fmt.Fprintln(e.writer, "Type a message and press Enter. /help lists commands, /quit exits.")
	fmt.Fprintln(e.writer)

	for {
		select {
		case <-ctx.Done():
			e.shutdown(eventsDone)
			return ctx.Err()
		default:
		}

		fmt.Fprint(e.writer, "> ")
		line, err := e.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && strings.TrimSpace(line) != "") {
			if errors.Is(err, io.EOF) {
				e.shutdown(eventsDone)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if cmd, ok := slash.Parse(input); ok {
			quit, wait := e.runCommand(ctx, cmd)
			if quit {
				e.shutdown(eventsDone)
				return nil
			}
			if wait {
				if !waitFor(done, eventsDone) {
					return nil
				}
				e.threadPending.Store(false)
			}
			continue
		}

		channels.Input <- types.NewUserInput(input, e.attachments...)
		e.attachments = nil
		if !waitFor(done, eventsDone) {
			return nil
		}
	}
}

// runCommand executes a slash command. It reports whether the session ends
// and whether an input was sent whose completion must be awaited.
func (e *Executor) runCommand(ctx context.Context, cmd *slash.Command) (quit bool, wait bool) {
	res, err := e.commands.Execute(ctx, cmd)
	if err != nil {
		fmt.Fprintf(e.writer, "❌ %v\n", err)
		return false, false
	}

	switch res.Action {
	case slash.ActionQuit:
		return true, false

	case slash.ActionSend:
		e.sendThreadInput(res.Input)
		return false, true

	case slash.ActionConfirm:
		fmt.Fprintf(e.writer, "%s ", res.Output)
		answer, _ := e.reader.ReadString('\n')
		if strings.EqualFold(strings.TrimSpace(answer), "y") {
			e.sendThreadInput(res.Input)
			return false, true
		}
		fmt.Fprintf(e.writer, "Thread %q was not saved.\n", res.Input.Thread)

	case slash.ActionAttach:
		e.attachments = append(e.attachments, res.Paths...)
		fmt.Fprintln(e.writer, res.Output)

	case slash.ActionCopy:
		switch {
		case e.lastReply == "":
			fmt.Fprintln(e.writer, "Nothing to copy yet.")
		case e.copy(e.lastReply) != nil:
			fmt.Fprintln(e.writer, "❌ Could not access the clipboard.")
		default:
			fmt.Fprintln(e.writer, "Copied the last reply to the clipboard.")
		}

	case slash.ActionClear:
		e.lastReply = ""
		fmt.Fprintln(e.writer, res.Output)

	default:
		fmt.Fprintln(e.writer, res.Output)
	}
	return false, false
}

// sendThreadInput forwards a save or load request. Its outcome is a single
// saved, loaded or error event rather than a turn.
func (e *Executor) sendThreadInput(input *types.Input) {
	e.threadPending.Store(true)
	e.agent.GetChannels().Input <- input
}

// handleEvents processes events from the agent and renders them to the terminal.
func (e *Executor) handleEvents(events <-chan *types.AgentEvent, eventsDone chan struct{}, done chan struct{}) {
	defer close(eventsDone)

	for event := range events {
		e.handleEvent(event, done)
	}
}

// handleEvent processes a single event based on its type
func (e *Executor) handleEvent(event *types.AgentEvent, done chan struct{}) {
	switch event.Type {
	case types.EventTypeMessageStart:
		e.narration.Reset()
	case types.EventTypeMessageContent:
		e.narration.WriteString(event.Content)
	case types.EventTypeToolCall:
		e.handleToolCall(event)
	case types.EventTypeToolResult:
		e.handleToolResult(event)
	case types.EventTypeToolResultError:
		fmt.Fprintf(e.writer, "❌ Tool Error (%s): %v\n", event.ToolName, event.Error)
	case types.EventTypeFinalReply:
		e.handleFinalReply(event)
	case types.EventTypeAttachmentLoaded:
		fmt.Fprintf(e.writer, "📎 %s (%d bytes)\n", event.Attachment.Name, event.Attachment.Bytes)
	case types.EventTypeAttachmentSkipped:
		fmt.Fprintf(e.writer, "📎 skipped %s: %s\n", event.Attachment.Path, event.Attachment.Reason)
	case types.EventTypeContextSummarizationComplete:
		fmt.Fprintf(e.writer, "🧠 Summarized %d older messages\n", event.ContextSummarization.ItemsProcessed)
	case types.EventTypeMemoryError:
		fmt.Fprintf(e.writer, "💾 Memory unavailable: %v\n", event.Error)
	case types.EventTypeThreadSaved:
		fmt.Fprintf(e.writer, "💾 Saved thread %q (%d messages)\n", event.Thread.Name, event.Thread.Messages)
		signal(done)
	case types.EventTypeThreadLoaded:
		e.lastReply = ""
		fmt.Fprintf(e.writer, "📂 Loaded thread %q (%d messages)\n", event.Thread.Name, event.Thread.Messages)
		signal(done)
	case types.EventTypeError:
		fmt.Fprintf(e.writer, "\n❌ Error: %v\n", event.Error)
		if e.threadPending.Load() {
			signal(done)
		}
	case types.EventTypeTurnEnd:
		e.narration.Reset()
		signal(done)
	}
}

func (e *Executor) handleToolCall(event *types.AgentEvent) {
	if narration := strings.TrimSpace(e.narration.String()); narration != "" {
		fmt.Fprintln(e.writer, narration)
	}
	e.narration.Reset()
	if e.showToolCalls && !isReplyTool(event.ToolName) {
		fmt.Fprintf(e.writer, "🔧 Tool: %s\n", event.ToolName)
	}
}

func (e *Executor) handleToolResult(event *types.AgentEvent) {
	if e.showToolCalls && !isReplyTool(event.ToolName) {
		fmt.Fprintf(e.writer, "✅ Result: %v\n", event.ToolOutput)
	}
}

func (e *Executor) handleFinalReply(event *types.AgentEvent) {
	e.narration.Reset()
	welcome, _ := event.Metadata["welcome"].(bool)
	if !welcome {
		e.lastReply = event.Content
	}

	reply := event.Content
	if e.renderer != nil {
		if out, err := e.renderer.Render(reply); err == nil {
			reply = strings.TrimRight(out, "\n")
		}
	}
	fmt.Fprintf(e.writer, "Recall: %s\n\n", reply)

	if welcome {
		e.welcomeOnce.Do(func() { close(e.welcomed) })
	}
}

func isReplyTool(name string) bool {
	return name == "converse" || name == "ask_question"
}

// waitFor blocks until the pending request completes. It returns false when
// the agent stopped first.
func waitFor(done, eventsDone chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-eventsDone:
		return false
	}
}

func signal(done chan struct{}) {
	select {
	case done <- struct{}{}:
	default:
	}
}

// shutdown gracefully shuts down the agent and waits for the last events.
func (e *Executor) shutdown(eventsDone chan struct{}) {
	fmt.Fprintln(e.writer, "\nShutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.agent.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(e.writer, "Warning: shutdown error: %v\n", err)
	}
	<-eventsDone
}
