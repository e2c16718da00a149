package agent

import (
	"context"
	"fmt"

	"github.com/entrhq/recall/pkg/agent/core"
	"github.com/entrhq/recall/pkg/agent/prompts"
	"github.com/entrhq/recall/pkg/metrics"
	"github.com/entrhq/recall/pkg/types"
)

// promptContext holds the prepared prompt and related metadata
type promptContext struct {
	messages     []*types.Message
	promptTokens int
}

// llmResponse holds the response from the LLM
type llmResponse struct {
	assistantContent string
	toolCallContent  string
	promptTokens     int
	completionTokens int
}

// raw returns the response as the model wrote it, tool call included.
func (r *llmResponse) raw() string {
	if r.toolCallContent == "" {
		return r.assistantContent
	}
	return r.assistantContent + "<tool>" + r.toolCallContent + "</tool>"
}

// preparePrompt assembles the messages for the next model call and counts
// their tokens.
func (a *ChatAgent) preparePrompt(state *turnState, errorContext string) *promptContext {
	messages := prompts.BuildMessages(prompts.Turn{
		SystemPrompt: a.buildSystemPrompt(),
		Summary:      state.summary,
		Memories:     state.memories,
		History:      state.recent,
		Input:        state.prompt,
		Scratchpad:   state.scratchpad,
		ErrorContext: errorContext,
	})

	promptTokens := a.tokenizer.Counter(messages)
	agentDebugLog.Printf("Prompt tokens before send: %d (%d messages)", promptTokens, len(messages))

	return &promptContext{
		messages:     messages,
		promptTokens: promptTokens,
	}
}

// callLLM sends the request to the LLM and processes the streaming response
func (a *ChatAgent) callLLM(ctx context.Context, pctx *promptContext) (*llmResponse, error) {
	maxTokens := 0
	if a.contextManager != nil {
		maxTokens = a.contextManager.GetMaxTokens()
	}
	a.emitEvent(types.NewAPICallStartEvent("llm", pctx.promptTokens, maxTokens))
	defer a.emitEvent(types.NewAPICallEndEvent("llm"))

	stream, err := a.GetProvider().StreamCompletion(ctx, pctx.messages)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.LLMErrors.WithLabelValues("chat").Inc()
		return nil, fmt.Errorf("failed to start completion: %w", err)
	}

	result := core.ProcessStream(stream, a.emitEvent)
	if result.Err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.LLMErrors.WithLabelValues("chat").Inc()
		return nil, fmt.Errorf("completion stream failed: %w", result.Err)
	}

	resp := &llmResponse{
		assistantContent: result.Content,
		toolCallContent:  result.ToolCall,
		promptTokens:     pctx.promptTokens,
	}

	// Prefer server-reported usage when the stream carried it
	if result.Usage != nil {
		if result.Usage.PromptTokens > 0 {
			resp.promptTokens = result.Usage.PromptTokens
		}
		resp.completionTokens = result.Usage.CompletionTokens
	} else {
		resp.completionTokens = a.tokenizer.Counter([]*types.Message{types.NewAssistantMessage(resp.raw())})
	}

	return resp, nil
}

// recordUsage emits token usage and adds it to the session totals.
func (a *ChatAgent) recordUsage(resp *llmResponse) {
	if resp.promptTokens == 0 && resp.completionTokens == 0 {
		return
	}

	a.statsMu.Lock()
	a.lastPromptTokens = resp.promptTokens
	a.totalPromptTokens += resp.promptTokens
	a.totalCompletionTokens += resp.completionTokens
	a.statsMu.Unlock()

	a.emitEvent(types.NewTokenUsageEvent(resp.promptTokens, resp.completionTokens, resp.promptTokens+resp.completionTokens))
}
