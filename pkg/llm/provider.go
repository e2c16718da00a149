// Package llm defines the provider abstractions the chat agent and the memory
// subsystem talk to.
//
// Example usage:
//
//	provider, err := openai.NewProvider(os.Getenv("OPENAI_API_KEY"), openai.WithModel("gpt-4.1"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stream, err := provider.StreamCompletion(ctx, []*types.Message{types.NewUserMessage("Hello!")})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for chunk := range stream {
//	    if chunk.IsError() {
//	        log.Fatal(chunk.Error)
//	    }
//	    fmt.Print(chunk.Content)
//	}
package llm

import (
	"context"

	"github.com/entrhq/recall/pkg/types"
)

// ModelCloner is an optional interface for providers that can hand out a copy
// bound to another model. The summarizer and the fact extractor use it to run
// on a cheaper model than the chat loop.
type ModelCloner interface {
	CloneWithModel(model string) Provider
}

// Provider defines the interface for chat model integrations.
//
// Providers only deal with API communication. Turning chunks into agent
// events and managing history is left to the agent.
type Provider interface {
	// StreamCompletion sends messages and streams back response chunks.
	//
	// The channel is closed when streaming completes. Stream-time failures
	// arrive as chunks with Error set; the returned error is only for
	// requests that could not be started.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages and returns the full assistant response.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string

	// GetAPIKey returns the API key being used for authentication.
	GetAPIKey() string
}

// ForModel returns p bound to model when p supports cloning and model is set,
// and p itself otherwise.
func ForModel(p Provider, model string) Provider {
	if model == "" || p == nil || model == p.GetModel() {
		return p
	}
	if cloner, ok := p.(ModelCloner); ok {
		return cloner.CloneWithModel(model)
	}
	return p
}
