// Package llmtest provides test doubles for the llm package.
package llmtest

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/types"
)

// MockProvider is a testify mock implementing llm.Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *llm.StreamChunk), args.Error(1)
}

func (m *MockProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Message), args.Error(1)
}

func (m *MockProvider) GetModelInfo() *types.ModelInfo {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*types.ModelInfo)
}

func (m *MockProvider) GetModel() string {
	return m.Called().String(0)
}

func (m *MockProvider) GetBaseURL() string {
	return m.Called().String(0)
}

func (m *MockProvider) GetAPIKey() string {
	return m.Called().String(0)
}

// Stream returns a closed channel preloaded with one content chunk per part
// followed by a finished chunk.
func Stream(parts ...string) <-chan *llm.StreamChunk {
	ch := make(chan *llm.StreamChunk, len(parts)+1)
	for _, p := range parts {
		ch <- &llm.StreamChunk{Content: p}
	}
	ch <- &llm.StreamChunk{Finished: true}
	close(ch)
	return ch
}

// ScriptedProvider replays canned replies in order. Complete and
// StreamCompletion share the same script. It records every prompt it was sent.
type ScriptedProvider struct {
	Replies []string
	Calls   [][]*types.Message
	Model   string
	Err     error
	mu      sync.Mutex
}

func (p *ScriptedProvider) next(messages []*types.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, messages)
	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Replies) == 0 {
		return "", nil
	}
	reply := p.Replies[0]
	p.Replies = p.Replies[1:]
	return reply, nil
}

func (p *ScriptedProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	reply, err := p.next(messages)
	if err != nil {
		return nil, err
	}
	return Stream(reply), nil
}

func (p *ScriptedProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	reply, err := p.next(messages)
	if err != nil {
		return nil, err
	}
	return types.NewAssistantMessage(reply), nil
}

func (p *ScriptedProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Name: p.GetModel(), Provider: "scripted", MaxTokens: 8192}
}

func (p *ScriptedProvider) GetModel() string {
	if p.Model == "" {
		return "scripted"
	}
	return p.Model
}

func (p *ScriptedProvider) GetBaseURL() string { return "" }
func (p *ScriptedProvider) GetAPIKey() string  { return "" }

var (
	_ llm.Provider = (*MockProvider)(nil)
	_ llm.Provider = (*ScriptedProvider)(nil)
)
