// Package tokenizer counts tokens client-side so the agent can decide when the
// prompt window needs summarizing before it is sent.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/recall/pkg/types"
)

const (
	// DefaultEncoding is the BPE encoding used by current OpenAI chat models.
	DefaultEncoding = "cl100k_base"

	// perMessageOverhead approximates the role and framing tokens the chat
	// format adds around each message.
	perMessageOverhead = 4

	// replyPriming accounts for the assistant header that primes the reply.
	replyPriming = 3
)

// Tokenizer counts tokens with a tiktoken encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New creates a tokenizer for DefaultEncoding.
func New() (*Tokenizer, error) {
	return NewWithEncoding(DefaultEncoding)
}

// NewWithEncoding creates a tokenizer for the named encoding.
func NewWithEncoding(name string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", name, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessagesTokens returns the token count of a full chat prompt.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, m := range messages {
		total += perMessageOverhead + t.CountTokens(string(m.Role)) + t.CountTokens(m.Content)
	}
	if len(messages) > 0 {
		total += replyPriming
	}
	return total
}

// Estimate approximates a token count at four characters per token. It is
// used when no Tokenizer could be loaded.
func Estimate(messages []*types.Message) int {
	total := 0
	for _, m := range messages {
		total += (len(m.Content)+len(m.Role))/4 + perMessageOverhead
	}
	if len(messages) > 0 {
		total += replyPriming
	}
	return total
}

// Counter counts prompt tokens with t when available and falls back to
// Estimate otherwise. A nil *Tokenizer is valid.
func (t *Tokenizer) Counter(messages []*types.Message) int {
	if t == nil {
		return Estimate(messages)
	}
	return t.CountMessagesTokens(messages)
}
