package llm

// StreamChunk is a single piece of a streamed completion.
type StreamChunk struct {
	// Error is set when the stream failed. No further chunks follow.
	Error error

	// Usage is reported on the final chunk when the API provides it.
	Usage *Usage

	// Role is set on the first chunk of a response.
	Role string

	// Content is the text delta carried by this chunk.
	Content string

	// Finished marks the last chunk of a successful response.
	Finished bool
}

// Usage holds token accounting reported by the API.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c != nil && c.Error != nil
}

// IsLast reports whether no more chunks will follow.
func (c *StreamChunk) IsLast() bool {
	return c != nil && (c.Finished || c.Error != nil)
}
