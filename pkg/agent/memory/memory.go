// Package memory holds the chat transcript of a session.
package memory

import (
	"sync"

	"github.com/entrhq/recall/pkg/types"
)

// Memory is an ordered, append-only chat transcript.
type Memory interface {
	Add(msg *types.Message)
	AddMultiple(msgs []*types.Message)
	GetAll() []*types.Message
	Len() int
	Clear()
}

// ConversationMemory keeps the full transcript of a conversation. The bounded
// view handed to the model is produced elsewhere; this type never evicts.
type ConversationMemory struct {
	messages []*types.Message
	mu       sync.RWMutex
}

// NewConversationMemory creates an empty transcript.
func NewConversationMemory() *ConversationMemory {
	return &ConversationMemory{}
}

// Add appends a message. Nil messages are ignored.
func (m *ConversationMemory) Add(msg *types.Message) {
	if msg == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// AddMultiple appends msgs in order.
func (m *ConversationMemory) AddMultiple(msgs []*types.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		if msg != nil {
			m.messages = append(m.messages, msg)
		}
	}
}

// GetAll returns a copy of the transcript.
func (m *ConversationMemory) GetAll() []*types.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Range returns a copy of messages[from:to], clamped to the transcript.
func (m *ConversationMemory) Range(from, to int) []*types.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	from, to = clamp(from, len(m.messages)), clamp(to, len(m.messages))
	if from >= to {
		return nil
	}
	out := make([]*types.Message, to-from)
	copy(out, m.messages[from:to])
	return out
}

// Len returns the number of messages.
func (m *ConversationMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Clear drops every message.
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// Replace swaps the transcript for a copy of msgs.
func (m *ConversationMemory) Replace(msgs []*types.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = make([]*types.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg != nil {
			m.messages = append(m.messages, msg)
		}
	}
}

// Split returns the transcript divided into everything before the last keep
// messages and the last keep messages themselves.
func (m *ConversationMemory) Split(keep int) (older, newer []*types.Message) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.messages)
	if keep <= 0 {
		older = make([]*types.Message, n)
		copy(older, m.messages)
		return older, nil
	}
	if keep >= n {
		newer = make([]*types.Message, n)
		copy(newer, m.messages)
		return nil, newer
	}
	older = make([]*types.Message, n-keep)
	copy(older, m.messages[:n-keep])
	newer = make([]*types.Message, keep)
	copy(newer, m.messages[n-keep:])
	return older, newer
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
