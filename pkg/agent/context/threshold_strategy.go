package context

import (
	"context"

	"github.com/entrhq/recall/pkg/agent/memory"
	"github.com/entrhq/recall/pkg/llm"
)

// ThresholdStrategy folds history when the prompt window reaches a share of
// the model's context budget. It catches windows that hold few but very
// large messages, which the recency rule alone lets through.
type ThresholdStrategy struct {
	// thresholdPercent is the percentage (0-100) of max tokens that triggers a fold
	thresholdPercent float64

	// minRecent messages always stay outside the summary
	minRecent  int
	cumulative bool
}

// NewThresholdStrategy creates a threshold strategy. thresholdPercent is
// clamped to 0..100 and minRecent to at least 1.
func NewThresholdStrategy(thresholdPercent float64, minRecent int, cumulative bool) *ThresholdStrategy {
	if thresholdPercent < 0 {
		thresholdPercent = 0
	}
	if thresholdPercent > 100 {
		thresholdPercent = 100
	}
	if minRecent < 1 {
		minRecent = 1
	}
	return &ThresholdStrategy{
		thresholdPercent: thresholdPercent,
		minRecent:        minRecent,
		cumulative:       cumulative,
	}
}

// Name returns the strategy name
func (s *ThresholdStrategy) Name() string {
	return "ThresholdSummarization"
}

// ShouldRun returns true when token usage is at or above the threshold and
// there is something beyond minRecent left to fold.
func (s *ThresholdStrategy) ShouldRun(conv *memory.ConversationMemory, summary *Summary, currentTokens, maxTokens int) bool {
	if maxTokens <= 0 {
		return false
	}
	if conv.Len()-summary.Covered <= s.minRecent {
		return false
	}
	usagePercent := (float64(currentTokens) / float64(maxTokens)) * 100
	return usagePercent >= s.thresholdPercent
}

// Summarize folds every uncovered message except the last minRecent.
func (s *ThresholdStrategy) Summarize(ctx context.Context, conv *memory.ConversationMemory, summary *Summary, llm llm.Provider) (int, error) {
	end := conv.Len() - s.minRecent
	if end <= summary.Covered {
		return 0, nil
	}
	batch := conv.Range(summary.Covered, end)
	if err := fold(ctx, llm, summary, batch, s.cumulative); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// NewStrategies returns the recency strategy followed by the threshold
// strategy. The threshold fold always leaves fewer messages than keep, or it
// could never run after a recency pass.
func NewStrategies(keep int, thresholdPercent float64, minRecent int, cumulative bool) []Strategy {
	recency := NewRecencyStrategy(keep, cumulative)
	if minRecent >= recency.Keep() {
		minRecent = recency.Keep() - 1
	}
	return []Strategy{
		recency,
		NewThresholdStrategy(thresholdPercent, minRecent, cumulative),
	}
}
