package context

import (
	"context"

	"github.com/entrhq/recall/pkg/agent/memory"
	"github.com/entrhq/recall/pkg/llm"
)

// RecencyStrategy keeps the last keep messages verbatim and folds everything
// older into the summary.
type RecencyStrategy struct {
	keep       int
	cumulative bool
}

// NewRecencyStrategy creates a recency strategy. keep is clamped to at least 1.
func NewRecencyStrategy(keep int, cumulative bool) *RecencyStrategy {
	if keep < 1 {
		keep = 1
	}
	return &RecencyStrategy{keep: keep, cumulative: cumulative}
}

// Name returns the strategy name
func (s *RecencyStrategy) Name() string {
	return "Recency"
}

// Keep returns the number of messages left outside the summary.
func (s *RecencyStrategy) Keep() int {
	return s.keep
}

// ShouldRun returns true when more than keep messages are uncovered.
func (s *RecencyStrategy) ShouldRun(conv *memory.ConversationMemory, summary *Summary, currentTokens, maxTokens int) bool {
	return conv.Len()-summary.Covered > s.keep
}

// Summarize folds history[Covered:Len-keep] into the summary.
func (s *RecencyStrategy) Summarize(ctx context.Context, conv *memory.ConversationMemory, summary *Summary, llm llm.Provider) (int, error) {
	end := conv.Len() - s.keep
	if end <= summary.Covered {
		return 0, nil
	}
	batch := conv.Range(summary.Covered, end)
	if err := fold(ctx, llm, summary, batch, s.cumulative); err != nil {
		return 0, err
	}
	return len(batch), nil
}
