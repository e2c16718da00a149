package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDLLM is the identifier for the LLM settings section
	SectionIDLLM = "llm"

	defaultTemperature = 0.7
)

// LLMSection holds provider settings for chat, summaries and embeddings.
type LLMSection struct {
	Model          string
	BaseURL        string
	APIKey         string
	SummaryModel   string // optional; summaries and fact extraction fall back to Model
	EmbeddingModel string // optional; defaults to the provider's embedding model
	Temperature    float64
	MaxTokens      int // 0 leaves the completion length to the server
	ContextWindow  int // 0 uses the model's known window
	mu             sync.RWMutex
}

// NewLLMSection creates an LLM section with default settings.
func NewLLMSection() *LLMSection {
	return &LLMSection{Temperature: defaultTemperature}
}

// ID returns the section identifier.
func (s *LLMSection) ID() string {
	return SectionIDLLM
}

// Title returns the section title.
func (s *LLMSection) Title() string {
	return "LLM Settings"
}

// Description returns the section description.
func (s *LLMSection) Description() string {
	return "Chat model, endpoint and credentials. summary_model is used for history summaries and memory extraction when set."
}

// Data returns the current configuration data.
func (s *LLMSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"model":           s.Model,
		"base_url":        s.BaseURL,
		"api_key":         s.APIKey,
		"summary_model":   s.SummaryModel,
		"embedding_model": s.EmbeddingModel,
		"temperature":     s.Temperature,
		"max_tokens":      s.MaxTokens,
		"context_window":  s.ContextWindow,
	}
}

// SetData updates the configuration from the provided data.
// "default_model" is accepted as an alias of "model".
func (s *LLMSection) SetData(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "model", "default_model":
			s.Model, err = asString(key, value)
		case "base_url":
			s.BaseURL, err = asString(key, value)
		case "api_key":
			s.APIKey, err = asString(key, value)
		case "summary_model":
			s.SummaryModel, err = asString(key, value)
		case "embedding_model":
			s.EmbeddingModel, err = asString(key, value)
		case "temperature":
			s.Temperature, err = asFloat(key, value)
		case "max_tokens":
			s.MaxTokens, err = asInt(key, value)
		case "context_window":
			s.ContextWindow, err = asInt(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration. Missing credentials are
// reported when the provider is built, not here.
func (s *LLMSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", s.Temperature)
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative")
	}
	if s.ContextWindow < 0 {
		return fmt.Errorf("context_window cannot be negative")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *LLMSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = ""
	s.BaseURL = ""
	s.APIKey = ""
	s.SummaryModel = ""
	s.EmbeddingModel = ""
	s.Temperature = defaultTemperature
	s.MaxTokens = 0
	s.ContextWindow = 0
}

// GetModel returns the configured model name.
func (s *LLMSection) GetModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Model
}

// SetModel sets the model name.
func (s *LLMSection) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = model
}

// GetBaseURL returns the configured base URL.
func (s *LLMSection) GetBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL
}

// GetAPIKey returns the configured API key.
func (s *LLMSection) GetAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.APIKey
}

// SetAPIKey sets the API key.
func (s *LLMSection) SetAPIKey(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.APIKey = apiKey
}

// GetSummaryModel returns the summary model, or "" to reuse the chat model.
func (s *LLMSection) GetSummaryModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SummaryModel
}

// GetEmbeddingModel returns the configured embedding model.
func (s *LLMSection) GetEmbeddingModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.EmbeddingModel
}

// GetTemperature returns the sampling temperature.
func (s *LLMSection) GetTemperature() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Temperature
}

// GetMaxTokens returns the completion cap.
func (s *LLMSection) GetMaxTokens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MaxTokens
}

// GetContextWindow returns the configured prompt budget, 0 meaning unset.
func (s *LLMSection) GetContextWindow() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ContextWindow
}
