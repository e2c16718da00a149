// Package agent provides the Agent interface and ChatAgent, the chat
// assistant that combines short-term history, a rolling summary of evicted
// turns, long-term memory and file attachments into one prompt per turn.
//
// A ChatAgent is driven entirely through its channels:
//
//	ag := agent.NewChatAgent(provider, agent.WithMemory(controller))
//	_ = ag.Start(ctx)
//	ag.GetChannels().Input <- types.NewUserInput("What is 17 divided by 5?")
//
// Subpackages hold the pieces a turn is assembled from:
//   - memory: the ordered chat history
//   - context: the rolling summary and its strategies
//   - longtermmemory: the versioned fact store, retrieval and capture
//   - prompts: system prompt and message assembly
//   - tools: the XML tool-calling contract and the built-in tools
//   - core: stream processing
package agent

import (
	"context"

	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/types"
)

// Agent interface defines the core capabilities of a chat agent.
// Agents are async event-driven components that process messages through
// an LLM provider and communicate via channels.
type Agent interface {
	// Start begins the agent's event loop in a goroutine.
	//
	// The agent runs until:
	// - The context is canceled
	// - The shutdown channel is closed
	// - The input channel is closed
	Start(ctx context.Context) error

	// Shutdown stops the agent, interrupting any turn in flight.
	// Returns when the agent has fully stopped or the context is canceled.
	Shutdown(ctx context.Context) error

	// GetChannels returns the communication channels for this agent.
	// The executor uses these channels to send input and receive output.
	GetChannels() *types.AgentChannels

	// GetTool retrieves a specific tool by name from the agent's tool registry.
	// Returns nil if the tool is not found.
	GetTool(name string) interface{}

	// GetTools returns every tool the model may call.
	GetTools() []interface{}

	// GetContextInfo returns context statistics for display.
	GetContextInfo() *ContextInfo

	// SetProvider updates the LLM provider used by the agent.
	// The update takes effect on the next model call.
	SetProvider(provider llm.Provider) error
}

// ContextInfo contains agent context statistics
type ContextInfo struct {
	// System prompt
	SystemPromptTokens int
	CustomInstructions bool

	// Tool system
	ToolCount int
	ToolNames []string

	// Message history
	MessageCount      int
	ConversationTurns int

	// Rolling summary
	SummarizedMessages int
	SummaryFolds       int
	SummaryTokens      int

	// Window is what the next prompt carries: summary plus recent messages.
	WindowMessages int
	WindowTokens   int

	// Long-term memory injected into the last turn.
	RecalledFacts int

	// Token usage - current context
	CurrentContextTokens int
	MaxContextTokens     int
	FreeTokens           int
	UsagePercent         float64

	// Token usage - cumulative across all API calls
	TotalPromptTokens     int
	TotalCompletionTokens int
	TotalTokens           int
}
