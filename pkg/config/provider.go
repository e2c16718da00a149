package config

import (
	"fmt"
	"os"

	"github.com/entrhq/recall/pkg/llm/openai"
)

// ProviderFlags carries LLM settings given on the command line. Empty fields
// are unset.
type ProviderFlags struct {
	Model   string
	BaseURL string
	APIKey  string
}

// resolvedLLM is the outcome of applying precedence to every LLM setting.
type resolvedLLM struct {
	model       string
	baseURL     string
	apiKey      string
	temperature float64
	maxTokens   int
}

// resolveLLM applies CLI flags > environment > config file > defaults.
func resolveLLM(flags ProviderFlags) resolvedLLM {
	r := resolvedLLM{
		model:       flags.Model,
		baseURL:     flags.BaseURL,
		apiKey:      flags.APIKey,
		temperature: defaultTemperature,
	}

	if r.apiKey == "" {
		r.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if r.baseURL == "" {
		r.baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if r.model == "" {
		r.model = os.Getenv("RECALL_MODEL")
	}

	if fromFile := GetLLM(); fromFile != nil {
		if r.model == "" {
			r.model = fromFile.GetModel()
		}
		if r.baseURL == "" {
			r.baseURL = fromFile.GetBaseURL()
		}
		if r.apiKey == "" {
			r.apiKey = fromFile.GetAPIKey()
		}
		r.temperature = fromFile.GetTemperature()
		r.maxTokens = fromFile.GetMaxTokens()
	}

	if r.model == "" {
		r.model = openai.DefaultModel
	}
	return r
}

// BuildProvider creates the chat provider from the resolved configuration.
func BuildProvider(flags ProviderFlags) (*openai.Provider, error) {
	r := resolveLLM(flags)
	if r.apiKey == "" {
		return nil, fmt.Errorf("API key is required. Set OPENAI_API_KEY, use -api-key, or add api_key to the llm section of ~/.recall/config.json")
	}

	opts := []openai.ProviderOption{
		openai.WithModel(r.model),
		openai.WithTemperature(r.temperature),
	}
	if r.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(r.baseURL))
	}
	if r.maxTokens > 0 {
		opts = append(opts, openai.WithMaxTokens(r.maxTokens))
	}

	provider, err := openai.NewProvider(r.apiKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}

// BuildEmbedder creates the embedding client used by the fact index. It
// shares the API key and base URL of the chat provider.
func BuildEmbedder(flags ProviderFlags) (*openai.Embedder, error) {
	r := resolveLLM(flags)
	if r.apiKey == "" {
		return nil, fmt.Errorf("API key is required for embeddings")
	}

	var opts []openai.EmbedderOption
	if r.baseURL != "" {
		opts = append(opts, openai.WithEmbeddingBaseURL(r.baseURL))
	}
	if s := GetLLM(); s != nil && s.GetEmbeddingModel() != "" {
		opts = append(opts, openai.WithEmbeddingModel(s.GetEmbeddingModel()))
	}
	return openai.NewEmbedder(r.apiKey, opts...)
}

// SummaryModel returns the model for the summarizer and memory controller,
// or "" to reuse the chat model.
func SummaryModel() string {
	if s := GetLLM(); s != nil {
		return s.GetSummaryModel()
	}
	return ""
}
