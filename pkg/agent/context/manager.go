// Package context maintains the rolling summary of evicted chat history and
// the bounded prompt window built from it.
package context

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/recall/pkg/agent/memory"
	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/llm/tokenizer"
	"github.com/entrhq/recall/pkg/logging"
	"github.com/entrhq/recall/pkg/metrics"
	"github.com/entrhq/recall/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("context")
	if err != nil {
		debugLog.Warnf("Failed to initialize context logger, using stderr fallback: %v", err)
	}
}

// Manager owns the rolling summary and runs its strategies in order,
// emitting summarization events for the UI.
type Manager struct {
	strategies         []Strategy
	llm                llm.Provider
	summarizationModel string
	tokenizer          *tokenizer.Tokenizer
	eventChannel       chan<- *types.AgentEvent
	summary            Summary
	maxTokens          int
	mu                 sync.RWMutex
}

// NewManager creates a manager with the given strategies. Token counts are
// estimated until a tokenizer is set.
func NewManager(provider llm.Provider, maxTokens int, strategies ...Strategy) *Manager {
	return &Manager{
		strategies: strategies,
		llm:        provider,
		maxTokens:  maxTokens,
	}
}

// SetTokenizer sets the tokenizer used to re-count the window after a fold.
func (m *Manager) SetTokenizer(tok *tokenizer.Tokenizer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenizer = tok
}

// SetEventChannel sets the channel summarization events are sent on.
func (m *Manager) SetEventChannel(eventChan chan<- *types.AgentEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventChannel = eventChan
}

// SetProvider updates the LLM provider used for summaries.
func (m *Manager) SetProvider(provider llm.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.llm = provider
}

// SetSummarizationModel sets the model used for summaries. Empty means the
// provider's own model.
func (m *Manager) SetSummarizationModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summarizationModel = model
}

// GetSummarizationModel returns the summarization model override.
func (m *Manager) GetSummarizationModel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summarizationModel
}

func (m *Manager) providerForSummarization() llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return llm.ForModel(m.llm, m.summarizationModel)
}

func (m *Manager) emit(event *types.AgentEvent) {
	m.mu.RLock()
	ch := m.eventChannel
	m.mu.RUnlock()
	if ch != nil {
		ch <- event
	}
}

// Summary returns a copy of the current summary.
func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summary
}

// Restore replaces the summary state.
func (m *Manager) Restore(s Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Covered < 0 {
		s.Covered = 0
	}
	m.summary = s
}

// Reset drops the summary. The next evaluation re-folds from the start of
// the transcript.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = Summary{}
}

// syncWith resets the summary when the transcript shrank below the watermark.
func (m *Manager) syncWith(conv *memory.ConversationMemory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.summary.Covered > conv.Len() {
		debugLog.Warnf("Summary covers %d messages but history has %d; resetting", m.summary.Covered, conv.Len())
		m.summary = Summary{}
	}
}

// Window returns the summary message (nil when nothing is covered) and the
// uncovered tail of the transcript. Together they partition the history.
func (m *Manager) Window(conv *memory.ConversationMemory) (*types.Message, []*types.Message) {
	m.syncWith(conv)
	s := m.Summary()
	return s.Message(), conv.Range(s.Covered, conv.Len())
}

// CountWindowTokens returns the token size of the current window.
func (m *Manager) CountWindowTokens(conv *memory.ConversationMemory) int {
	summary, recent := m.Window(conv)
	msgs := recent
	if summary != nil {
		msgs = append([]*types.Message{summary}, recent...)
	}
	m.mu.RLock()
	tok := m.tokenizer
	m.mu.RUnlock()
	return tok.Counter(msgs)
}

// EvaluateAndSummarize runs each strategy that wants to run and returns the
// total number of messages folded. On failure the watermark stays where it
// was and the error is returned; earlier successful folds are kept.
func (m *Manager) EvaluateAndSummarize(ctx context.Context, conv *memory.ConversationMemory, currentTokens int) (int, error) {
	m.syncWith(conv)
	totalSummarized := 0

	for _, strategy := range m.GetStrategies() {
		working := m.Summary()
		maxTokens := m.GetMaxTokens()
		if !strategy.ShouldRun(conv, &working, currentTokens, maxTokens) {
			continue
		}

		m.emit(types.NewContextSummarizationStartEvent(strategy.Name(), currentTokens, maxTokens))
		startTime := time.Now()

		debugLog.Debugf("Executing Summarize() for strategy %s (covered=%d, len=%d)", strategy.Name(), working.Covered, conv.Len())
		folded, err := strategy.Summarize(ctx, conv, &working, m.providerForSummarization())
		if err != nil {
			debugLog.Errorf("Strategy %s failed: %v", strategy.Name(), err)
			metrics.Summarizations.WithLabelValues(strategy.Name(), metrics.StatusError).Inc()
			metrics.LLMErrors.WithLabelValues("summarize").Inc()
			m.emit(types.NewContextSummarizationErrorEvent(strategy.Name(), err))
			return totalSummarized, fmt.Errorf("strategy %s failed: %w", strategy.Name(), err)
		}
		if folded == 0 {
			continue
		}

		m.mu.Lock()
		m.summary = working
		m.mu.Unlock()

		duration := time.Since(startTime)
		totalSummarized += folded
		metrics.Summarizations.WithLabelValues(strategy.Name(), metrics.StatusOK).Inc()
		metrics.SummarizedMessages.Add(float64(folded))
		debugLog.Infof("Strategy %s folded %d messages in %s (covered=%d)", strategy.Name(), folded, duration, working.Covered)

		m.emit(types.NewContextSummarizationCompleteEvent(strategy.Name(), folded, working.Covered, duration.Round(time.Millisecond).String()))

		currentTokens = m.CountWindowTokens(conv)
	}

	return totalSummarized, nil
}

// AddStrategy appends a strategy; it runs after the existing ones.
func (m *Manager) AddStrategy(strategy Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies = append(m.strategies, strategy)
}

// GetStrategies returns the registered strategies in order.
func (m *Manager) GetStrategies() []Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Strategy, len(m.strategies))
	copy(out, m.strategies)
	return out
}

// SetMaxTokens updates the model's context budget.
func (m *Manager) SetMaxTokens(maxTokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxTokens = maxTokens
}

// GetMaxTokens returns the model's context budget.
func (m *Manager) GetMaxTokens() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxTokens
}
