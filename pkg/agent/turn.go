package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/recall/pkg/agent/prompts"
	"github.com/entrhq/recall/pkg/attachments"
	"github.com/entrhq/recall/pkg/metrics"
	"github.com/entrhq/recall/pkg/types"
)

// ErrMaxIterations is reported when a turn uses every model call it is
// allowed without producing a reply.
var ErrMaxIterations = errors.New("turn ended without a reply")

// turnState is everything one turn is built from. Only input and reply
// outlive the turn.
type turnState struct {
	// input is the text the user typed. It is what history records.
	input string

	// prompt is input with any attachments rendered ahead of it.
	prompt string

	summary    *types.Message
	memories   *types.Message
	recent     []*types.Message
	scratchpad []*types.Message

	reply string
}

// processUserInput runs one turn and records it in history when it
// produces a reply.
func (a *ChatAgent) processUserInput(ctx context.Context, input *types.Input) {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	// Create cancellable context for this turn
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.cancelMu.Lock()
	a.cancelStream = cancel
	a.cancelMu.Unlock()

	defer func() {
		a.cancelMu.Lock()
		a.cancelStream = nil
		a.cancelMu.Unlock()
	}()

	a.emitEvent(types.NewUpdateBusyEvent(true))
	start := time.Now()

	reply, err := a.runTurn(turnCtx, input)

	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.Turns.WithLabelValues(metrics.StatusOK).Inc()
		a.emitEvent(types.NewFinalReplyEvent(reply))
	case turnCtx.Err() != nil:
		metrics.Turns.WithLabelValues(metrics.StatusCancelled).Inc()
		agentDebugLog.Infof("Turn cancelled, history left unchanged")
		a.emitEvent(types.NewErrorEvent(fmt.Errorf("turn cancelled")))
	default:
		metrics.Turns.WithLabelValues(metrics.StatusError).Inc()
		agentDebugLog.Errorf("Turn failed: %v", err)
		a.emitEvent(types.NewErrorEvent(err))
	}

	a.emitEvent(types.NewUpdateBusyEvent(false))
	a.emitEvent(types.NewTurnEndEvent())
}

// runTurn is the turn pipeline: attachments, summary, long-term memory,
// then the tool loop. History is only touched once a reply exists.
func (a *ChatAgent) runTurn(ctx context.Context, input *types.Input) (string, error) {
	state := &turnState{input: input.Content}

	state.prompt = a.loadAttachments(ctx, input)
	if state.prompt == "" {
		return "", fmt.Errorf("message is empty")
	}

	a.summarize(ctx)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	state.memories = a.recallMemories(ctx, state.prompt)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	state.summary, state.recent = a.window()

	reply, err := a.runAgentLoop(ctx, state)
	if err != nil {
		return "", err
	}
	state.reply = reply

	a.history.AddMultiple([]*types.Message{
		types.NewUserMessage(state.input),
		types.NewAssistantMessage(state.reply),
	})
	return state.reply, nil
}

// loadAttachments reads the input's files and renders them ahead of the
// typed text. Files that cannot be used are reported and left out.
func (a *ChatAgent) loadAttachments(ctx context.Context, input *types.Input) string {
	if !input.HasAttachments() {
		return input.Content
	}

	result := a.attachments.Load(ctx, input.Attachments)
	for _, f := range result.Files {
		a.emitEvent(types.NewAttachmentLoadedEvent(f.Name, f.Path, len(f.Content)))
	}
	for _, s := range result.Skipped {
		agentDebugLog.Warnf("Skipped attachment %s: %s", s.Path, s.Reason)
		a.emitEvent(types.NewAttachmentSkippedEvent(s.Path, s.Reason))
	}
	return attachments.Compose(input.Content, result.Files)
}

// summarize folds old history into the rolling summary when a strategy
// asks for it. A failed fold keeps the previous summary.
func (a *ChatAgent) summarize(ctx context.Context) {
	if a.contextManager == nil {
		return
	}

	tokens := a.contextManager.CountWindowTokens(a.history)
	folded, err := a.contextManager.EvaluateAndSummarize(ctx, a.history, tokens)
	if err != nil {
		agentDebugLog.Warnf("Summarization failed, keeping previous summary: %v", err)
		return
	}
	if folded > 0 {
		agentDebugLog.Printf("Summarized %d messages", folded)
	}
}

// recallMemories reconciles long-term memory with text and returns the
// facts to inject, or nil. Failures are reported and the turn goes on.
func (a *ChatAgent) recallMemories(ctx context.Context, text string) *types.Message {
	if a.longTerm == nil {
		return nil
	}

	result, err := a.longTerm.Apply(ctx, text, a.sessionID)
	if err != nil && ctx.Err() == nil {
		agentDebugLog.Warnf("Long-term memory step failed: %v", err)
		a.emitEvent(types.NewMemoryErrorEvent(err))
	}
	if result == nil {
		a.setLastFacts(nil)
		return nil
	}

	update := result.Update()
	a.emitEvent(types.NewMemoryUpdateEvent(update))
	a.setLastFacts(update.Facts)
	return prompts.MemoriesMessage(update.Facts)
}

// window returns the summary message and the recent history the next
// prompt carries.
func (a *ChatAgent) window() (*types.Message, []*types.Message) {
	if a.contextManager == nil {
		return nil, a.history.GetAll()
	}
	return a.contextManager.Window(a.history)
}

func (a *ChatAgent) setLastFacts(facts []string) {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	a.lastFacts = append([]string(nil), facts...)
}
