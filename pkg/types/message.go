package types

import "time"

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Metadata keys used across packages.
const (
	// MetaSummarized marks a system message that stands in for evicted history.
	MetaSummarized = "summarized"
	// MetaSummaryCount records how many folds produced a summary.
	MetaSummaryCount = "summary_count"
	// MetaSummaryCovered records how many history messages a summary covers.
	MetaSummaryCovered = "summary_covered"
	// MetaMemories marks the system message carrying retrieved long-term facts.
	MetaMemories = "memories"
)

// Message is a single role-tagged entry of a conversation.
type Message struct {
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Role      MessageRole            `json:"role"`
	Content   string                 `json:"content"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role MessageRole, content string) *Message {
	return &Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return NewMessage(RoleAssistant, content)
}

// WithMetadata adds metadata to the message and returns it for chaining.
func (m *Message) WithMetadata(key string, value interface{}) *Message {
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	m.Metadata[key] = value
	return m
}

// IsSummary reports whether the message is a history summary.
func (m *Message) IsSummary() bool {
	if m.Metadata == nil {
		return false
	}
	v, ok := m.Metadata[MetaSummarized].(bool)
	return ok && v
}

// Clone returns a copy of the message with its own metadata map.
func (m *Message) Clone() *Message {
	c := *m
	if m.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// ModelInfo describes the capabilities of a chat model.
type ModelInfo struct {
	Metadata          map[string]interface{}
	Name              string
	Provider          string
	MaxTokens         int
	SupportsStreaming bool
}
