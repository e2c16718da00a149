package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/recall/pkg/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultEmbeddingModel is used when no embedding model is configured.
const DefaultEmbeddingModel = "text-embedding-3-small"

// Embedder implements llm.Embedder on the embeddings endpoint.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*embedderConfig)

type embedderConfig struct {
	baseURL    string
	model      string
	dimensions int
}

// WithEmbeddingModel selects the embedding model.
func WithEmbeddingModel(model string) EmbedderOption {
	return func(c *embedderConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithEmbeddingBaseURL points the embedder at an OpenAI-compatible server.
func WithEmbeddingBaseURL(baseURL string) EmbedderOption {
	return func(c *embedderConfig) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithDimensions requests shortened vectors from models that support it.
func WithDimensions(n int) EmbedderOption {
	return func(c *embedderConfig) {
		c.dimensions = n
	}
}

// NewEmbedder creates an embedder. An empty apiKey falls back to OPENAI_API_KEY.
func NewEmbedder(apiKey string, opts ...EmbedderOption) (*Embedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for embeddings")
	}

	cfg := embedderConfig{baseURL: DefaultBaseURL, model: DefaultEmbeddingModel}
	if env := os.Getenv("OPENAI_BASE_URL"); env != "" {
		cfg.baseURL = strings.TrimRight(env, "/")
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dims := cfg.dimensions
	if dims == 0 {
		dims = defaultDimensions(cfg.model)
	}

	return &Embedder{
		client:     openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(cfg.baseURL)),
		model:      cfg.model,
		dimensions: dims,
	}, nil
}

// Embed returns one vector per text, ordered like the input.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.dimensions > 0 && strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if int(d.Index) < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}

// Dimensions returns the vector length produced by Embed.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func defaultDimensions(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}

var _ llm.Embedder = (*Embedder)(nil)
