package context

import (
	"context"

	"github.com/entrhq/recall/pkg/agent/memory"
	"github.com/entrhq/recall/pkg/llm"
)

// Strategy decides when evicted history is folded into the rolling summary
// and how much of it.
type Strategy interface {
	// Name returns the strategy's identifier for logging and events.
	Name() string

	// ShouldRun reports whether the strategy wants to fold history this turn.
	// currentTokens is the size of the prompt window; maxTokens the model budget.
	ShouldRun(conv *memory.ConversationMemory, summary *Summary, currentTokens, maxTokens int) bool

	// Summarize folds messages past summary.Covered into summary and returns
	// how many were folded. summary is only modified on success.
	Summarize(ctx context.Context, conv *memory.ConversationMemory, summary *Summary, llm llm.Provider) (int, error)
}
