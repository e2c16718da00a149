// Package tui provides the interactive terminal interface for recall.
//
// The code is split by concern:
// - executor.go: program lifecycle
// - model.go: model state and construction
// - update.go: key handling and input dispatch
// - events.go: agent event rendering
// - commands.go: slash command results
// - view.go: layout
// - overlay.go: modal panels and toasts
// - render.go: markdown and attachment previews
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/recall/pkg/agent/slash"
	"github.com/entrhq/recall/pkg/logging"
	"github.com/entrhq/recall/pkg/types"
)

var debugLog *logging.Logger

func initDebugLog() {
	if debugLog != nil {
		return
	}
	var err error
	debugLog, err = logging.NewLogger("tui")
	if err != nil {
		debugLog.Warnf("Failed to initialize tui logger, using stderr fallback: %v", err)
	}
}

// Agent is the agent surface the TUI drives.
type Agent interface {
	slash.Agent
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	GetChannels() *types.AgentChannels
}

// Options tune rendering.
type Options struct {
	// Header replaces the default banner.
	Header string

	// RenderMarkdown renders replies with glamour.
	RenderMarkdown bool

	// ShowToolCalls prints tool calls and results inline.
	ShowToolCalls bool
}

// Executor runs the TUI until the user quits.
type Executor struct {
	agent   Agent
	program *tea.Program
	opts    Options
}

// NewExecutor creates a TUI executor for ag.
func NewExecutor(ag Agent, opts Options) *Executor {
	return &Executor{agent: ag, opts: opts}
}

// Run starts the agent and the TUI program and blocks until the user exits.
func (e *Executor) Run(ctx context.Context) error {
	initDebugLog()
	debugLog.Infof("TUI executor starting")

	if err := e.agent.Start(ctx); err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}

	m := newModel(e.agent, e.opts)
	e.program = tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		for event := range m.channels.Event {
			e.program.Send(event)
		}
	}()

	_, runErr := e.program.Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.agent.Shutdown(shutdownCtx); err != nil {
		debugLog.Warnf("Agent shutdown: %v", err)
	}
	<-eventsDone

	if runErr != nil {
		return fmt.Errorf("failed to run TUI program: %w", runErr)
	}
	return nil
}
