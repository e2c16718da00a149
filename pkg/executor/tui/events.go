package tui

import (
	"fmt"
	"strings"

	"github.com/entrhq/recall/pkg/types"
)

// handleAgentEvent updates the model from one agent event.
func (m *model) handleAgentEvent(event *types.AgentEvent) {
	switch event.Type {
	case types.EventTypeMessageStart:
		m.stream.Reset()

	case types.EventTypeMessageContent:
		m.stream.WriteString(event.Content)

	case types.EventTypeMessageEnd:
		// The text stays visible until the next tool call or the final reply
		// decides what it was.

	case types.EventTypeToolCall:
		m.handleToolCall(event)

	case types.EventTypeToolResult:
		m.handleToolResult(event)

	case types.EventTypeToolResultError:
		m.appendEntry(formatEntry("    ✗ ", fmt.Sprintf("%s failed: %v", event.ToolName, event.Error), errorStyle, m.width, false))

	case types.EventTypeFinalReply:
		m.handleFinalReply(event)

	case types.EventTypeError:
		m.stream.Reset()
		m.appendEntry(errorStyle.Render(fmt.Sprintf("  ❌ Error: %v", event.Error)))

	case types.EventTypeUpdateBusy:
		m.handleUpdateBusy(event)

	case types.EventTypeTurnEnd:
		m.agentBusy = false
		m.stream.Reset()
		m.recalculateLayout()

	case types.EventTypeAPICallStart:
		if event.APICallInfo != nil {
			m.currentContextTokens = event.APICallInfo.ContextTokens
			m.maxContextTokens = event.APICallInfo.MaxContextTokens
		}

	case types.EventTypeTokenUsage:
		if event.TokenUsage != nil {
			m.totalPromptTokens += event.TokenUsage.PromptTokens
			m.totalCompletionTokens += event.TokenUsage.CompletionTokens
			m.totalTokens += event.TokenUsage.TotalTokens
		}

	case types.EventTypeContextSummarizationStart:
		m.summarizing = true
		m.currentLoadingMessage = "Summarizing older messages..."

	case types.EventTypeContextSummarizationComplete:
		m.summarizing = false
		if cs := event.ContextSummarization; cs != nil {
			m.showToast("Context summarized",
				fmt.Sprintf("%d messages folded, %d covered (%s)", cs.ItemsProcessed, cs.Covered, cs.Duration),
				"🧠", false)
		}

	case types.EventTypeContextSummarizationError:
		m.summarizing = false
		m.showToast("Summary failed", fmt.Sprintf("%v", event.Error), "🧠", true)

	case types.EventTypeMemoryUpdate:
		m.handleMemoryUpdate(event.MemoryUpdate)

	case types.EventTypeMemoryError:
		m.showToast("Memory unavailable", fmt.Sprintf("%v", event.Error), "💾", true)

	case types.EventTypeAttachmentLoaded:
		if a := event.Attachment; a != nil {
			m.appendEntry(formatEntry("    📎 ", fmt.Sprintf("%s (%s)", a.Name, formatByteCount(a.Bytes)), tipsStyle, m.width, false))
		}

	case types.EventTypeAttachmentSkipped:
		if a := event.Attachment; a != nil {
			m.appendEntry(formatEntry("    ✗ ", fmt.Sprintf("%s skipped: %s", a.Path, a.Reason), errorStyle, m.width, false))
		}

	case types.EventTypeThreadSaved:
		if t := event.Thread; t != nil {
			m.showToast("Thread saved", fmt.Sprintf("%q (%d messages)", t.Name, t.Messages), "💾", false)
		}

	case types.EventTypeThreadLoaded:
		m.handleThreadLoaded(event.Thread)
	}

	m.refreshViewport()
}

func (m *model) handleToolCall(event *types.AgentEvent) {
	// Text streamed ahead of a tool call is narration, not the reply.
	if narration := strings.TrimSpace(m.stream.String()); narration != "" {
		m.appendEntry(formatEntry("", narration, streamStyle, m.width, false))
	}
	m.stream.Reset()

	if !m.opts.ShowToolCalls || isReplyTool(event.ToolName) {
		return
	}
	m.appendEntry(formatEntry("🔧 ", event.ToolName+formatToolArgs(event.ToolInput), toolStyle, m.width, false))
}

func (m *model) handleToolResult(event *types.AgentEvent) {
	if !m.opts.ShowToolCalls || isReplyTool(event.ToolName) {
		return
	}
	result := fmt.Sprintf("%v", event.ToolOutput)
	m.appendEntry(formatEntry("    ✓ ", previewLines(result, 4), toolResultStyle, m.width, false))
}

func (m *model) handleFinalReply(event *types.AgentEvent) {
	m.stream.Reset()
	if welcome, _ := event.Metadata["welcome"].(bool); !welcome {
		m.lastReply = event.Content
	}
	label := assistantStyle.Render("Recall:")
	m.appendEntry(label + "\n" + m.renderer.render(event.Content, m.width))
}

func (m *model) handleUpdateBusy(event *types.AgentEvent) {
	wasBusy := m.agentBusy
	m.agentBusy = event.IsBusy
	if m.agentBusy && !wasBusy {
		m.currentLoadingMessage = getRandomLoadingMessage()
	}
	if wasBusy != m.agentBusy {
		m.recalculateLayout()
	}
}

func (m *model) handleMemoryUpdate(u *types.MemoryUpdate) {
	if u == nil {
		return
	}
	m.recalledFacts = u.Retrieved
	changed := u.Added + u.Updated + u.Deleted
	if changed == 0 {
		return
	}
	m.showToast("Memory updated",
		fmt.Sprintf("%d added, %d updated, %d deleted", u.Added, u.Updated, u.Deleted),
		"💾", false)
}

func (m *model) handleThreadLoaded(t *types.ThreadInfo) {
	if t == nil {
		return
	}
	m.content.Reset()
	m.stream.Reset()
	m.lastReply = ""
	m.appendNotice(fmt.Sprintf("Loaded thread %q (%d messages).", t.Name, t.Messages))
	m.showToast("Thread loaded", t.Name, "📂", false)
}

// isReplyTool reports tools whose result is shown as the final reply.
func isReplyTool(name string) bool {
	return name == "converse" || name == "ask_question"
}

func formatToolArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args))
	for _, key := range sortedKeys(args) {
		parts = append(parts, fmt.Sprintf("%s=%v", key, args[key]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
