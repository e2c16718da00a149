package types

import "sync"

// AgentChannels groups the channels an executor uses to talk to an agent.
type AgentChannels struct {
	// Input carries user messages and cancellations to the agent.
	Input chan *Input

	// Event carries everything the agent emits.
	Event chan *AgentEvent

	// Shutdown is closed to ask the agent to stop.
	Shutdown chan struct{}

	// Done is closed by the agent once it has stopped.
	Done chan struct{}

	closeOnce sync.Once
}

// NewAgentChannels creates a channel set with the given buffer size for
// input and events.
func NewAgentChannels(bufferSize int) *AgentChannels {
	return &AgentChannels{
		Input:    make(chan *Input, bufferSize),
		Event:    make(chan *AgentEvent, bufferSize),
		Shutdown: make(chan struct{}),
		Done:     make(chan struct{}),
	}
}

// Close closes the agent-owned channels. It is safe to call more than once.
func (c *AgentChannels) Close() {
	c.closeOnce.Do(func() {
		close(c.Event)
		close(c.Done)
	})
}
