package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/recall/pkg/agent/prompts"
	"github.com/entrhq/recall/pkg/types"
)

// iterationOutcome is what one model call decided.
type iterationOutcome struct {
	// reply is set when the turn is over.
	reply string
	done  bool

	// errorContext is a recovery hint for the next call.
	errorContext string
}

// runAgentLoop calls the model until it replies in plain text or through a
// loop-breaking tool. Tool calls and their results live in the turn's
// scratchpad and are dropped when the turn ends.
func (a *ChatAgent) runAgentLoop(ctx context.Context, state *turnState) (string, error) {
	var errorContext string
	a.resetErrorTracking()

	for i := 0; i < a.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := a.executeIteration(ctx, state, errorContext)
		if err != nil {
			return "", err
		}
		if out.done {
			return out.reply, nil
		}
		errorContext = out.errorContext
	}

	return "", fmt.Errorf("%w after %d model calls", ErrMaxIterations, a.maxIterations)
}

// executeIteration performs one model call and acts on the response.
func (a *ChatAgent) executeIteration(ctx context.Context, state *turnState, errorContext string) (iterationOutcome, error) {
	pctx := a.preparePrompt(state, errorContext)

	resp, err := a.callLLM(ctx, pctx)
	if err != nil {
		return iterationOutcome{}, err
	}
	a.recordUsage(resp)

	if resp.toolCallContent == "" {
		return a.processPlainReply(resp)
	}

	// The call stays visible to the model for the rest of the turn
	state.scratchpad = append(state.scratchpad, types.NewAssistantMessage(resp.raw()))
	return a.processToolCall(ctx, state, resp.toolCallContent)
}

// processPlainReply treats a response without a tool call as the final
// reply. An empty response is sent back to the model as an error.
func (a *ChatAgent) processPlainReply(resp *llmResponse) (iterationOutcome, error) {
	a.emitEvent(types.NewNoToolCallEvent())

	reply := strings.TrimSpace(resp.assistantContent)
	if reply != "" {
		a.resetErrorTracking()
		return iterationOutcome{reply: reply, done: true}, nil
	}

	errMsg := prompts.BuildErrorRecoveryMessage(prompts.ErrorRecoveryContext{
		Type: prompts.ErrorTypeEmptyResponse,
	})
	if a.trackError(errMsg) {
		return iterationOutcome{}, errCircuitBreaker("empty responses")
	}
	return iterationOutcome{errorContext: errMsg}, nil
}

// emitEvent sends an event on the event channel. Events emitted after the
// agent began stopping are dropped.
func (a *ChatAgent) emitEvent(event *types.AgentEvent) {
	select {
	case a.channels.Event <- event:
	case <-a.stopping:
	}
}
