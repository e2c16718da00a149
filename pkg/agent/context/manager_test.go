package context

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/recall/pkg/agent/memory"
	"github.com/entrhq/recall/pkg/llm/llmtest"
	"github.com/entrhq/recall/pkg/types"
)

func drain(ch chan *types.AgentEvent) []*types.AgentEvent {
	var out []*types.AgentEvent
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestManager_WindowPartitionsHistory(t *testing.T) {
	llm := summaryReply("summary text")
	m := NewManager(llm, 0, NewRecencyStrategy(5, true))
	conv := makeConv(3)

	summary, recent := m.Window(conv)
	assert.Nil(t, summary, "no summary before anything is covered")
	assert.Len(t, recent, 3)

	for round := 0; round < 4; round++ {
		conv.Add(types.NewUserMessage("more"))
		conv.Add(types.NewAssistantMessage("reply"))

		_, err := m.EvaluateAndSummarize(context.Background(), conv, 0)
		require.NoError(t, err)

		s := m.Summary()
		_, recent := m.Window(conv)
		assert.Equal(t, conv.Len(), s.Covered+len(recent), "summary and recent partition the history")
		assert.LessOrEqual(t, len(recent), 5)
		assert.GreaterOrEqual(t, s.Covered, 0)
		assert.LessOrEqual(t, s.Covered, conv.Len())
	}

	summary, recent = m.Window(conv)
	require.NotNil(t, summary)
	assert.True(t, summary.IsSummary())
	assert.Equal(t, types.RoleSystem, summary.Role)
	assert.Equal(t, m.Summary().Count, summary.Metadata[types.MetaSummaryCount])
	assert.Equal(t, m.Summary().Covered, summary.Metadata[types.MetaSummaryCovered])
	assert.Contains(t, summary.Content, "summary text")
	assert.Equal(t, conv.GetAll()[conv.Len()-1], recent[len(recent)-1])
}

func TestManager_EmitsEvents(t *testing.T) {
	m := NewManager(summaryReply("s"), 1000, NewRecencyStrategy(5, true))
	events := make(chan *types.AgentEvent, 10)
	m.SetEventChannel(events)

	n, err := m.EvaluateAndSummarize(context.Background(), makeConv(7), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := drain(events)
	require.Len(t, got, 2)
	assert.Equal(t, types.EventTypeContextSummarizationStart, got[0].Type)
	assert.Equal(t, "Recency", got[0].ContextSummarization.Strategy)
	assert.Equal(t, 100, got[0].ContextSummarization.CurrentTokens)
	assert.Equal(t, types.EventTypeContextSummarizationComplete, got[1].Type)
	assert.Equal(t, 2, got[1].ContextSummarization.ItemsProcessed)
	assert.Equal(t, 2, got[1].ContextSummarization.Covered)
}

func TestManager_FailureKeepsWatermark(t *testing.T) {
	llm := new(llmtest.MockProvider)
	llm.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
	m := NewManager(llm, 0, NewRecencyStrategy(5, true))
	events := make(chan *types.AgentEvent, 10)
	m.SetEventChannel(events)

	conv := makeConv(7)
	_, err := m.EvaluateAndSummarize(context.Background(), conv, 0)
	require.Error(t, err)
	assert.Zero(t, m.Summary().Covered)

	got := drain(events)
	require.Len(t, got, 2)
	assert.Equal(t, types.EventTypeContextSummarizationError, got[1].Type)
	assert.Equal(t, "strategy Recency failed: failed to generate summary: boom", err.Error())

	// The next turn retries from the same place.
	llm.On("Complete", mock.Anything, mock.Anything).Return(types.NewAssistantMessage("ok"), nil)
	n, err := m.EvaluateAndSummarize(context.Background(), conv, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestManager_ResetAndShrink(t *testing.T) {
	m := NewManager(summaryReply("s"), 0, NewRecencyStrategy(2, true))
	conv := makeConv(6)
	_, err := m.EvaluateAndSummarize(context.Background(), conv, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Summary().Covered)

	m.Reset()
	assert.True(t, m.Summary().IsEmpty())

	_, err = m.EvaluateAndSummarize(context.Background(), conv, 0)
	require.NoError(t, err)

	conv.Replace(makeConv(2).GetAll())
	summary, recent := m.Window(conv)
	assert.Nil(t, summary, "a watermark past the end of history is dropped")
	assert.Len(t, recent, 2)
}

func TestManager_StrategyOrder(t *testing.T) {
	llm := summaryReply("s")
	m := NewManager(llm, 100, NewRecencyStrategy(4, true), NewThresholdStrategy(60, 1, true))
	conv := makeConv(6)

	n, err := m.EvaluateAndSummarize(context.Background(), conv, 90)
	require.NoError(t, err)
	// Recency folds 2; the window is then re-counted and falls under 60%.
	assert.Equal(t, 2, n)
	llm.AssertNumberOfCalls(t, "Complete", 1)
}

func TestManager_ThresholdFoldsAfterRecency(t *testing.T) {
	llm := summaryReply("s")
	m := NewManager(llm, 1000, NewStrategies(5, 80, 1, true)...)

	conv := memory.NewConversationMemory()
	big := strings.Repeat("word ", 2000)
	for i := 0; i < 7; i++ {
		conv.Add(types.NewUserMessage(big))
	}

	n, err := m.EvaluateAndSummarize(context.Background(), conv, m.CountWindowTokens(conv))
	require.NoError(t, err)
	// Recency folds 2; the five it keeps still exceed 80% of the budget.
	assert.Equal(t, 6, n)
	assert.Equal(t, conv.Len()-1, m.Summary().Covered)
	assert.Equal(t, 2, m.Summary().Count)
	llm.AssertNumberOfCalls(t, "Complete", 2)

	_, recent := m.Window(conv)
	assert.Len(t, recent, 1)
}

func TestManager_SummarizationModel(t *testing.T) {
	m := NewManager(summaryReply("s"), 0)
	assert.Empty(t, m.GetSummarizationModel())
	m.SetSummarizationModel("gpt-4o-mini")
	assert.Equal(t, "gpt-4o-mini", m.GetSummarizationModel())

	m.AddStrategy(NewRecencyStrategy(3, true))
	assert.Len(t, m.GetStrategies(), 1)
	m.SetMaxTokens(42)
	assert.Equal(t, 42, m.GetMaxTokens())
}

func TestManager_Restore(t *testing.T) {
	m := NewManager(summaryReply("s"), 0)
	m.Restore(Summary{Content: "x", Covered: 2, Count: 1})
	assert.Equal(t, 2, m.Summary().Covered)
}
