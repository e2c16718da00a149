package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	agentcontext "github.com/entrhq/recall/pkg/agent/context"
	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/logging"
	"github.com/entrhq/recall/pkg/types"
)

const (
	statusSuccess        = "success"
	statusFailed         = "failed"
	statusPartialSuccess = "partial_success"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("headless")
	if err != nil {
		debugLog.Warnf("Failed to initialize headless logger, using stderr fallback: %v", err)
	}
}

// ErrAgentStopped is reported when the agent's event stream ends before a
// request completes.
var ErrAgentStopped = errors.New("agent stopped")

// Agent is the agent surface a headless run needs.
type Agent interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	GetChannels() *types.AgentChannels
	Summary() agentcontext.Summary
	Memories(ctx context.Context) ([]*longtermmemory.Fact, error)
	SessionID() string
}

// Rememberer stores facts verbatim. It seeds memory from the script.
type Rememberer interface {
	Remember(ctx context.Context, text string, category longtermmemory.Category, sessionID string) (*longtermmemory.Fact, error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithRememberer enables the script's remember section.
func WithRememberer(r Rememberer) Option {
	return func(e *Executor) {
		e.rememberer = r
	}
}

// WithOutput sets where the JSON report is written (default is os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(e *Executor) {
		e.output = w
	}
}

// WithProgress sets where progress is printed (default is os.Stderr).
func WithProgress(w io.Writer) Option {
	return func(e *Executor) {
		e.progress = w
	}
}

// Executor runs a Script against an agent
type Executor struct {
	agent          Agent
	script         *Script
	rememberer     Rememberer
	output         io.Writer
	progress       io.Writer
	logger         *Logger
	artifactWriter *ArtifactWriter

	// Run state
	report *Report
	events <-chan *types.AgentEvent
}

// NewExecutor creates a new headless executor with a pre-configured agent
func NewExecutor(ag Agent, script *Script, opts ...Option) (*Executor, error) {
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}

	e := &Executor{
		agent:  ag,
		script: script,
		output: os.Stdout,
		report: &Report{
			Name:   script.Name,
			Status: "running",
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = NewLogger(parseLogLevel(script.Logging.Verbosity), e.progress)
	if script.Artifacts.OutputDir != "" {
		e.artifactWriter = NewArtifactWriter(script.Artifacts.OutputDir)
	}
	if len(script.Remember) > 0 && e.rememberer == nil {
		return nil, fmt.Errorf("invalid script: remember needs long-term memory enabled")
	}
	return e, nil
}

// Run executes the script and writes the report. The returned error is
// non-nil when any turn failed or the run could not complete.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	e.report.StartTime = time.Now()
	debugLog.Infof("Starting script %q with %d turns", e.script.Name, len(e.script.Turns))
	e.logger.Header(fmt.Sprintf("recall: %s", e.script.Name))

	if err := e.agent.Start(ctx); err != nil {
		return e.finish(fmt.Errorf("failed to start agent: %w", err))
	}
	e.events = e.agent.GetChannels().Event

	// Create execution context with timeout
	execCtx := ctx
	if e.script.Limits.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.script.Limits.Timeout)
		defer cancel()
	}

	if err := e.seed(execCtx); err != nil {
		return e.finish(err)
	}

	runErr := e.runTurns(execCtx)
	if runErr == nil && e.script.SaveAs != "" {
		runErr = e.saveThread(execCtx)
	}
	return e.finish(runErr)
}

// seed stores the script's remember entries before the first turn.
func (e *Executor) seed(ctx context.Context) error {
	if len(e.script.Remember) == 0 {
		return nil
	}
	e.logger.Section("Seeding memory")
	for _, s := range e.script.Remember {
		fact, err := e.rememberer.Remember(ctx, s.Content, longtermmemory.ParseCategory(s.Category), e.agent.SessionID())
		if err != nil {
			return fmt.Errorf("failed to seed memory: %w", err)
		}
		e.report.Metrics.SeededFacts++
		e.logger.Verbosef("remembered %s: %s", fact.ID, fact.Content)
	}
	e.logger.Successf("Seeded %d facts", e.report.Metrics.SeededFacts)
	return nil
}

func (e *Executor) runTurns(ctx context.Context) error {
	e.logger.Section("Conversation")
	var failed []string

	for i, turn := range e.script.Turns {
		e.logger.Step(turn.Message)
		record, err := e.runTurn(ctx, turn)
		e.report.Turns = append(e.report.Turns, *record)
		e.report.Metrics.Turns++

		if err != nil {
			e.report.Metrics.FailedTurns++
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, ErrAgentStopped) {
				return err
			}
			e.logger.Errorf("turn %d: %v", i+1, err)
			failed = append(failed, fmt.Sprintf("turn %d: %v", i+1, err))
			if !e.script.ContinueOnError {
				return errors.New(strings.Join(failed, "; "))
			}
			continue
		}
		e.logger.Reply(record.Reply)

		if limit := e.script.Limits.MaxTokens; limit > 0 && e.report.Metrics.TokensUsed > limit {
			return fmt.Errorf("token limit exceeded: used %d of %d", e.report.Metrics.TokensUsed, limit)
		}
	}

	if len(failed) > 0 {
		return errors.New(strings.Join(failed, "; "))
	}
	return nil
}

// runTurn sends one message and collects events until the turn ends.
func (e *Executor) runTurn(ctx context.Context, turn Turn) (*TurnRecord, error) {
	record := &TurnRecord{Message: turn.Message, Attachments: turn.Attachments}
	start := time.Now()
	defer func() { record.Duration = time.Since(start) }()

	channels := e.agent.GetChannels()
	select {
	case channels.Input <- types.NewUserInput(turn.Message, turn.Attachments...):
	case <-ctx.Done():
		return record, ctx.Err()
	}

	var turnErr error
	for {
		event, err := e.next(ctx)
		if err != nil {
			// Stop the turn in flight so the agent can shut down cleanly.
			select {
			case channels.Input <- types.NewCancelInput():
			default:
			}
			record.Error = err.Error()
			return record, err
		}

		switch event.Type {
		case types.EventTypeToolCall:
			e.report.Metrics.ToolCalls++
			if !isReplyTool(event.ToolName) {
				e.logger.ToolCall(event.ToolName, e.report.Metrics.ToolCalls)
				record.ToolCalls = append(record.ToolCalls, ToolCallRecord{Name: event.ToolName, Input: event.ToolInput})
			}
		case types.EventTypeToolResult:
			if call := lastCall(record, event.ToolName); call != nil {
				call.Output = fmt.Sprint(event.ToolOutput)
			}
		case types.EventTypeToolResultError:
			if call := lastCall(record, event.ToolName); call != nil && event.Error != nil {
				call.Error = event.Error.Error()
			}
		case types.EventTypeFinalReply:
			record.Reply = event.Content
		case types.EventTypeTokenUsage:
			if event.TokenUsage != nil {
				e.report.Metrics.TokensUsed += event.TokenUsage.TotalTokens
			}
		case types.EventTypeAttachmentLoaded:
			record.Loaded = append(record.Loaded, event.Attachment.Name)
			e.logger.Attachment(event.Attachment.Name, true, fmt.Sprintf("%d bytes", event.Attachment.Bytes))
		case types.EventTypeAttachmentSkipped:
			record.Skipped = append(record.Skipped, fmt.Sprintf("%s: %s", event.Attachment.Path, event.Attachment.Reason))
			e.logger.Attachment(event.Attachment.Path, false, event.Attachment.Reason)
		case types.EventTypeMemoryUpdate:
			u := event.MemoryUpdate
			record.Recalled = u.Facts
			e.report.Metrics.MemoryAdds += u.Added
			e.report.Metrics.MemoryEdits += u.Updated + u.Deleted
			e.logger.MemoryUpdate(u.Added, u.Updated, u.Deleted, u.Retrieved)
		case types.EventTypeMemoryError:
			e.report.Metrics.MemoryErrors++
			e.logger.Warningf("memory step failed: %v", event.Error)
		case types.EventTypeContextSummarizationComplete:
			e.report.Metrics.Summarized += event.ContextSummarization.ItemsProcessed
			e.logger.Verbosef("summarized %d messages", event.ContextSummarization.ItemsProcessed)
		case types.EventTypeContextSummarizationError:
			e.logger.Warningf("summarization failed: %s", event.ContextSummarization.ErrorMessage)
		case types.EventTypeError:
			if turnErr == nil {
				turnErr = event.Error
			}
		case types.EventTypeTurnEnd:
			if turnErr != nil {
				record.Error = turnErr.Error()
			}
			return record, turnErr
		}
	}
}

// saveThread stores the conversation under the script's save_as name.
func (e *Executor) saveThread(ctx context.Context) error {
	e.logger.Section("Saving thread")
	channels := e.agent.GetChannels()
	select {
	case channels.Input <- types.NewSaveThreadInput(e.script.SaveAs, e.script.Overwrite):
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		event, err := e.next(ctx)
		if err != nil {
			return err
		}
		switch event.Type {
		case types.EventTypeThreadSaved:
			e.report.Thread = &ThreadRecord{Name: event.Thread.Name, Messages: event.Thread.Messages}
			e.logger.Successf("Saved thread %q (%d messages)", event.Thread.Name, event.Thread.Messages)
			return nil
		case types.EventTypeError:
			return fmt.Errorf("failed to save thread: %w", event.Error)
		}
	}
}

// next returns the next event that is not the welcome reply.
func (e *Executor) next(ctx context.Context) (*types.AgentEvent, error) {
	for {
		select {
		case event, ok := <-e.events:
			if !ok {
				return nil, ErrAgentStopped
			}
			if welcome, _ := event.Metadata["welcome"].(bool); welcome {
				continue
			}
			debugLog.Debugf("Event: %s", event.Type)
			return event, nil
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("execution timeout exceeded: %w", ctx.Err())
			}
			return nil, fmt.Errorf("execution canceled: %w", ctx.Err())
		}
	}
}

// finish shuts the agent down, collects the summary and memories, and
// writes the report.
func (e *Executor) finish(runErr error) (*Report, error) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if e.events != nil {
		if err := e.agent.Shutdown(shutdownCtx); err != nil {
			debugLog.Warnf("Agent shutdown failed: %v", err)
		}
		summary := e.agent.Summary()
		e.report.Summary = SummaryRecord{Content: summary.Content, Covered: summary.Covered, Count: summary.Count}
		e.collectMemories(shutdownCtx)
	}

	e.report.EndTime = time.Now()
	e.report.Duration = e.report.EndTime.Sub(e.report.StartTime)
	switch {
	case runErr == nil:
		e.report.Status = statusSuccess
	case e.report.Metrics.Turns > e.report.Metrics.FailedTurns:
		e.report.Status = statusPartialSuccess
	default:
		e.report.Status = statusFailed
	}
	if runErr != nil {
		e.report.Error = runErr.Error()
	}

	if err := WriteReport(e.output, e.report); err != nil {
		debugLog.Errorf("Failed to write report: %v", err)
		if runErr == nil {
			runErr = err
		}
	}
	if e.artifactWriter != nil {
		if err := e.artifactWriter.WriteAll(e.report); err != nil {
			e.logger.Warningf("failed to write artifacts: %v", err)
		} else {
			e.logger.Infof("Artifacts written to %s", e.script.Artifacts.OutputDir)
		}
	}

	e.logger.Summary(e.report)
	debugLog.Infof("Script %q finished: %s (duration: %s)", e.script.Name, e.report.Status, e.report.Duration)
	return e.report, runErr
}

func (e *Executor) collectMemories(ctx context.Context) {
	facts, err := e.agent.Memories(ctx)
	if err != nil {
		debugLog.Debugf("No memories collected: %v", err)
		return
	}
	for _, f := range facts {
		e.report.Memories = append(e.report.Memories, MemoryRecord{
			ID:       f.ID,
			Content:  f.Content,
			Category: string(f.Category),
			Version:  f.Version,
		})
	}
}

func lastCall(record *TurnRecord, name string) *ToolCallRecord {
	for i := len(record.ToolCalls) - 1; i >= 0; i-- {
		if record.ToolCalls[i].Name == name {
			return &record.ToolCalls[i]
		}
	}
	return nil
}

func isReplyTool(name string) bool {
	return name == "converse" || name == "ask_question"
}
