package types

// AgentEventType defines the type of event emitted by the agent.
type AgentEventType string

const (
	EventTypeMessageStart                 AgentEventType = "message_start"                  // EventTypeMessageStart indicates the agent is starting to compose a message.
	EventTypeMessageContent               AgentEventType = "message_content"                // EventTypeMessageContent indicates content from the agent's message.
	EventTypeMessageEnd                   AgentEventType = "message_end"                    // EventTypeMessageEnd indicates the agent has finished composing the message.
	EventTypeToolCall                     AgentEventType = "tool_call"                      // EventTypeToolCall indicates the agent is calling a tool.
	EventTypeToolResult                   AgentEventType = "tool_result"                    // EventTypeToolResult indicates a successful tool call result.
	EventTypeToolResultError              AgentEventType = "tool_result_error"              // EventTypeToolResultError indicates a tool call resulted in an error.
	EventTypeNoToolCall                   AgentEventType = "no_tool_call"                   // EventTypeNoToolCall indicates the agent answered without calling a tool.
	EventTypeFinalReply                   AgentEventType = "final_reply"                    // EventTypeFinalReply carries the reply recorded in history for the turn.
	EventTypeAPICallStart                 AgentEventType = "api_call_start"                 // EventTypeAPICallStart indicates the agent is making an API call.
	EventTypeAPICallEnd                   AgentEventType = "api_call_end"                   // EventTypeAPICallEnd indicates an API call has completed.
	EventTypeUpdateBusy                   AgentEventType = "update_busy"                    // EventTypeUpdateBusy indicates a change in the agent's busy status.
	EventTypeTurnEnd                      AgentEventType = "turn_end"                       // EventTypeTurnEnd indicates the agent has finished processing the current turn.
	EventTypeError                        AgentEventType = "error"                          // EventTypeError indicates an error occurred during agent processing.
	EventTypeTokenUsage                   AgentEventType = "token_usage"                    // EventTypeTokenUsage indicates token usage information from an LLM completion.
	EventTypeContextSummarizationStart    AgentEventType = "context_summarization_start"    // EventTypeContextSummarizationStart indicates history summarization has started.
	EventTypeContextSummarizationComplete AgentEventType = "context_summarization_complete" // EventTypeContextSummarizationComplete indicates history summarization finished successfully.
	EventTypeContextSummarizationError    AgentEventType = "context_summarization_error"    // EventTypeContextSummarizationError indicates an error occurred during history summarization.
	EventTypeMemoryUpdate                 AgentEventType = "memory_update"                  // EventTypeMemoryUpdate indicates long-term memory was reconciled for a turn.
	EventTypeMemoryError                  AgentEventType = "memory_error"                   // EventTypeMemoryError indicates the long-term memory step failed for a turn.
	EventTypeAttachmentLoaded             AgentEventType = "attachment_loaded"              // EventTypeAttachmentLoaded indicates a file attachment was read into the turn.
	EventTypeAttachmentSkipped            AgentEventType = "attachment_skipped"             // EventTypeAttachmentSkipped indicates a file attachment was rejected.
	EventTypeThreadSaved                  AgentEventType = "thread_saved"                   // EventTypeThreadSaved indicates the chat history was saved as a thread.
	EventTypeThreadLoaded                 AgentEventType = "thread_loaded"                  // EventTypeThreadLoaded indicates the chat history was replaced from a saved thread.
)

// AgentEvent represents an event emitted by the agent during execution.
type AgentEvent struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// ToolInput is the input being sent to the tool (for tool call events).
	ToolInput map[string]interface{}

	// ToolOutput is the result from the tool (for tool result events).
	ToolOutput interface{}

	// Error contains error information for error events.
	Error error

	// Content holds text content for content-type events.
	Content string

	// ToolName is the name of the tool being called (for tool events).
	ToolName string

	// Type indicates the kind of event.
	Type AgentEventType

	// IsBusy indicates if the agent is busy (for busy status events).
	IsBusy bool

	// TokenUsage contains token usage information (for token usage events).
	TokenUsage *TokenUsage

	// ContextSummarization contains summarization information (for summarization events).
	ContextSummarization *ContextSummarization

	// APICallInfo contains API call information (for API call events).
	APICallInfo *APICallInfo

	// MemoryUpdate describes the outcome of a memory reconciliation (for memory events).
	MemoryUpdate *MemoryUpdate

	// Attachment describes a file attachment (for attachment events).
	Attachment *AttachmentInfo

	// Thread describes a saved or loaded thread (for thread events).
	Thread *ThreadInfo
}

// TokenUsage contains token usage statistics from an LLM API call.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the input/prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens in the generated completion/response.
	CompletionTokens int

	// TotalTokens is the total number of tokens used (prompt + completion).
	TotalTokens int
}

// ContextSummarization contains information about history summarization.
type ContextSummarization struct {
	// Strategy is the name of the summarization strategy being executed.
	Strategy string

	// CurrentTokens is the token count of the prompt window before summarization.
	CurrentTokens int

	// MaxTokens is the maximum allowed tokens.
	MaxTokens int

	// ItemsProcessed is the number of history messages folded into the summary.
	ItemsProcessed int

	// Covered is the number of leading history messages the summary represents afterwards.
	Covered int

	// Duration is how long the summarization took.
	Duration string

	// ErrorMessage contains error information if summarization failed.
	ErrorMessage string
}

// APICallInfo contains information about an API call.
type APICallInfo struct {
	// ContextTokens is the current prompt size in tokens.
	ContextTokens int

	// MaxContextTokens is the configured maximum context limit in tokens.
	MaxContextTokens int
}

// MemoryUpdate summarises one pass of the long-term memory controller.
type MemoryUpdate struct {
	Added     int
	Updated   int
	Deleted   int
	Unchanged int

	// Retrieved is the number of facts injected into the prompt.
	Retrieved int

	// Facts holds the retrieved fact texts in relevance order.
	Facts []string
}

// AttachmentInfo describes a single attachment handled during a turn.
type AttachmentInfo struct {
	Name   string
	Path   string
	Bytes  int
	Reason string
}

// ThreadInfo describes a thread persistence operation.
type ThreadInfo struct {
	Name     string
	Messages int
}

// NewMessageStartEvent creates a message start event.
func NewMessageStartEvent() *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeMessageStart,
		Metadata: make(map[string]interface{}),
	}
}

// NewMessageContentEvent creates a message content event.
func NewMessageContentEvent(content string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeMessageContent,
		Content:  content,
		Metadata: make(map[string]interface{}),
	}
}

// NewMessageEndEvent creates a message end event.
func NewMessageEndEvent() *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeMessageEnd,
		Metadata: make(map[string]interface{}),
	}
}

// NewToolCallEvent creates a tool call event.
func NewToolCallEvent(toolName string, toolInput map[string]interface{}) *AgentEvent {
	return &AgentEvent{
		Type:      EventTypeToolCall,
		ToolName:  toolName,
		ToolInput: toolInput,
		Metadata:  make(map[string]interface{}),
	}
}

// NewToolResultEvent creates a tool result event.
func NewToolResultEvent(toolName string, output interface{}) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeToolResult,
		ToolName:   toolName,
		ToolOutput: output,
		Metadata:   make(map[string]interface{}),
	}
}

// NewToolResultErrorEvent creates a tool result error event.
func NewToolResultErrorEvent(toolName string, err error) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeToolResultError,
		ToolName: toolName,
		Error:    err,
		Metadata: make(map[string]interface{}),
	}
}

// NewNoToolCallEvent creates a no tool call event.
func NewNoToolCallEvent() *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeNoToolCall,
		Metadata: make(map[string]interface{}),
	}
}

// NewFinalReplyEvent creates an event carrying the reply the user sees for a
// turn. Streamed message events may hold only part of it when the reply was
// delivered through a tool.
func NewFinalReplyEvent(content string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeFinalReply,
		Content:  content,
		Metadata: make(map[string]interface{}),
	}
}

// NewAPICallStartEvent creates an API call start event with context information.
func NewAPICallStartEvent(apiName string, contextTokens, maxContextTokens int) *AgentEvent {
	return &AgentEvent{
		Type: EventTypeAPICallStart,
		APICallInfo: &APICallInfo{
			ContextTokens:    contextTokens,
			MaxContextTokens: maxContextTokens,
		},
		Metadata: map[string]interface{}{"api_name": apiName},
	}
}

// NewAPICallEndEvent creates an API call end event.
func NewAPICallEndEvent(apiName string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeAPICallEnd,
		Metadata: map[string]interface{}{"api_name": apiName},
	}
}

// NewUpdateBusyEvent creates an event indicating a change in the agent's busy status.
func NewUpdateBusyEvent(isBusy bool) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeUpdateBusy,
		IsBusy:   isBusy,
		Metadata: make(map[string]interface{}),
	}
}

// NewTurnEndEvent creates an event indicating the agent has finished processing the current turn.
func NewTurnEndEvent() *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeTurnEnd,
		Metadata: make(map[string]interface{}),
	}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(err error) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeError,
		Error:    err,
		Metadata: make(map[string]interface{}),
	}
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(promptTokens, completionTokens, totalTokens int) *AgentEvent {
	return &AgentEvent{
		Type: EventTypeTokenUsage,
		TokenUsage: &TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      totalTokens,
		},
		Metadata: make(map[string]interface{}),
	}
}

// NewContextSummarizationStartEvent creates an event indicating summarization has started.
func NewContextSummarizationStartEvent(strategy string, currentTokens, maxTokens int) *AgentEvent {
	return &AgentEvent{
		Type: EventTypeContextSummarizationStart,
		ContextSummarization: &ContextSummarization{
			Strategy:      strategy,
			CurrentTokens: currentTokens,
			MaxTokens:     maxTokens,
		},
		Metadata: make(map[string]interface{}),
	}
}

// NewContextSummarizationCompleteEvent creates an event indicating summarization finished.
func NewContextSummarizationCompleteEvent(strategy string, itemsProcessed, covered int, duration string) *AgentEvent {
	return &AgentEvent{
		Type: EventTypeContextSummarizationComplete,
		ContextSummarization: &ContextSummarization{
			Strategy:       strategy,
			ItemsProcessed: itemsProcessed,
			Covered:        covered,
			Duration:       duration,
		},
		Metadata: make(map[string]interface{}),
	}
}

// NewContextSummarizationErrorEvent creates an event indicating summarization failed.
func NewContextSummarizationErrorEvent(strategy string, err error) *AgentEvent {
	return &AgentEvent{
		Type:  EventTypeContextSummarizationError,
		Error: err,
		ContextSummarization: &ContextSummarization{
			Strategy:     strategy,
			ErrorMessage: err.Error(),
		},
		Metadata: make(map[string]interface{}),
	}
}

// NewMemoryUpdateEvent creates an event describing a memory reconciliation pass.
func NewMemoryUpdateEvent(update *MemoryUpdate) *AgentEvent {
	return &AgentEvent{
		Type:         EventTypeMemoryUpdate,
		MemoryUpdate: update,
		Metadata:     make(map[string]interface{}),
	}
}

// NewMemoryErrorEvent creates an event indicating the memory step failed.
// The turn continues without new facts.
func NewMemoryErrorEvent(err error) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeMemoryError,
		Error:    err,
		Metadata: make(map[string]interface{}),
	}
}

// NewAttachmentLoadedEvent creates an event for an attachment read into the turn.
func NewAttachmentLoadedEvent(name, path string, size int) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeAttachmentLoaded,
		Attachment: &AttachmentInfo{Name: name, Path: path, Bytes: size},
		Metadata:   make(map[string]interface{}),
	}
}

// NewAttachmentSkippedEvent creates an event for a rejected attachment.
func NewAttachmentSkippedEvent(path, reason string) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeAttachmentSkipped,
		Attachment: &AttachmentInfo{Path: path, Reason: reason},
		Metadata:   make(map[string]interface{}),
	}
}

// NewThreadSavedEvent creates an event for a saved thread.
func NewThreadSavedEvent(name string, messages int) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeThreadSaved,
		Thread:   &ThreadInfo{Name: name, Messages: messages},
		Metadata: make(map[string]interface{}),
	}
}

// NewThreadLoadedEvent creates an event for a loaded thread.
func NewThreadLoadedEvent(name string, messages int) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeThreadLoaded,
		Thread:   &ThreadInfo{Name: name, Messages: messages},
		Metadata: make(map[string]interface{}),
	}
}

// WithMetadata adds metadata to the event and returns the event for chaining.
func (e *AgentEvent) WithMetadata(key string, value interface{}) *AgentEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsMessageEvent returns true if this is a message-related event.
func (e *AgentEvent) IsMessageEvent() bool {
	return e.Type == EventTypeMessageStart ||
		e.Type == EventTypeMessageContent ||
		e.Type == EventTypeMessageEnd
}

// IsToolEvent returns true if this is a tool-related event.
func (e *AgentEvent) IsToolEvent() bool {
	return e.Type == EventTypeToolCall ||
		e.Type == EventTypeToolResult ||
		e.Type == EventTypeToolResultError ||
		e.Type == EventTypeNoToolCall
}

// IsErrorEvent returns true if this is an error event.
func (e *AgentEvent) IsErrorEvent() bool {
	return e.Type == EventTypeError ||
		e.Type == EventTypeToolResultError ||
		e.Type == EventTypeMemoryError ||
		e.Type == EventTypeContextSummarizationError
}

// IsContextSummarizationEvent returns true if this is a summarization event.
func (e *AgentEvent) IsContextSummarizationEvent() bool {
	return e.Type == EventTypeContextSummarizationStart ||
		e.Type == EventTypeContextSummarizationComplete ||
		e.Type == EventTypeContextSummarizationError
}

// IsMemoryEvent returns true if this is a long-term memory event.
func (e *AgentEvent) IsMemoryEvent() bool {
	return e.Type == EventTypeMemoryUpdate || e.Type == EventTypeMemoryError
}
