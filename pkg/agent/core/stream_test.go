package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/types"
	"github.com/stretchr/testify/assert"
)

func streamOf(chunks ...*llm.StreamChunk) <-chan *llm.StreamChunk {
	ch := make(chan *llm.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func textChunks(parts ...string) []*llm.StreamChunk {
	out := make([]*llm.StreamChunk, 0, len(parts))
	for _, p := range parts {
		out = append(out, &llm.StreamChunk{Content: p})
	}
	return out
}

type recorder struct {
	events []*types.AgentEvent
}

func (r *recorder) emit(e *types.AgentEvent) { r.events = append(r.events, e) }

func (r *recorder) text() string {
	var b strings.Builder
	for _, e := range r.events {
		if e.Type == types.EventTypeMessageContent {
			b.WriteString(e.Content)
		}
	}
	return b.String()
}

func TestProcessStream_PlainText(t *testing.T) {
	r := &recorder{}
	res := ProcessStream(streamOf(textChunks("Hello ", "there")...), r.emit)

	assert.Equal(t, "Hello there", res.Content)
	assert.Empty(t, res.ToolCall)
	assert.Equal(t, "Hello there", r.text())
	assert.Equal(t, types.EventTypeMessageStart, r.events[0].Type)
	assert.Equal(t, types.EventTypeMessageEnd, r.events[len(r.events)-1].Type)
}

func TestProcessStream_ToolCallSplitAcrossChunks(t *testing.T) {
	r := &recorder{}
	res := ProcessStream(streamOf(textChunks(
		"Let me check.<to", "ol><tool_name>long_division</tool_name>",
		"<arguments><dividend>7</dividend></arguments></to", "ol> trailing",
	)...), r.emit)

	assert.Equal(t, "Let me check.", res.Content)
	assert.Equal(t, "<tool_name>long_division</tool_name><arguments><dividend>7</dividend></arguments>", res.ToolCall)
	assert.Equal(t, "Let me check.", r.text(), "tool XML is never streamed to the user")
}

func TestProcessStream_ToolOnly(t *testing.T) {
	r := &recorder{}
	res := ProcessStream(streamOf(textChunks("<tool><tool_name>converse</tool_name></tool>")...), r.emit)

	assert.Empty(t, res.Content)
	assert.Equal(t, "<tool_name>converse</tool_name>", res.ToolCall)
	assert.Empty(t, r.events, "no message events without visible text")
}

func TestProcessStream_UnterminatedTool(t *testing.T) {
	r := &recorder{}
	res := ProcessStream(streamOf(textChunks("<tool><tool_name>converse</tool_name>")...), r.emit)
	assert.Equal(t, "<tool_name>converse</tool_name>", res.ToolCall)
}

func TestProcessStream_LessThanInText(t *testing.T) {
	r := &recorder{}
	res := ProcessStream(streamOf(textChunks("3 <", " 4 and <t", "able>")...), r.emit)
	assert.Equal(t, "3 < 4 and <table>", res.Content)
	assert.Equal(t, res.Content, r.text())
}

func TestProcessStream_UsageRoleAndError(t *testing.T) {
	r := &recorder{}
	boom := errors.New("stream broke")
	res := ProcessStream(streamOf(
		&llm.StreamChunk{Role: "assistant"},
		&llm.StreamChunk{Content: "partial"},
		&llm.StreamChunk{Error: boom},
		&llm.StreamChunk{Finished: true, Usage: &llm.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4}},
	), r.emit)

	assert.Equal(t, "assistant", res.Role)
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, 4, res.Usage.TotalTokens)
	assert.Equal(t, "partial", res.Content)
}

func TestPartialSuffix(t *testing.T) {
	assert.Equal(t, 3, partialSuffix("abc<to", toolOpen))
	assert.Equal(t, 0, partialSuffix("abc", toolOpen))
	assert.Equal(t, 1, partialSuffix("<", toolOpen))
	assert.Equal(t, 0, partialSuffix("", toolOpen))
}
