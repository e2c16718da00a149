package config

import (
	"fmt"
	"sync"

	"github.com/entrhq/recall/pkg/logging"
)

const (
	// SectionIDUI is the identifier for the UI settings section
	SectionIDUI = "ui"

	defaultLogLevel = "info"
)

// UISection manages terminal rendering and diagnostics.
type UISection struct {
	LogLevel       string
	RenderMarkdown bool
	ShowToolCalls  bool
	mu             sync.RWMutex
}

// NewUISection creates a new UI section with default settings.
func NewUISection() *UISection {
	return &UISection{
		LogLevel:       defaultLogLevel,
		RenderMarkdown: true,
		ShowToolCalls:  true,
	}
}

// ID returns the section identifier.
func (s *UISection) ID() string {
	return SectionIDUI
}

// Title returns the section title.
func (s *UISection) Title() string {
	return "UI Settings"
}

// Description returns the section description.
func (s *UISection) Description() string {
	return "Markdown rendering of replies, tool call display and the log level."
}

// Data returns the current configuration data.
func (s *UISection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"log_level":       s.LogLevel,
		"render_markdown": s.RenderMarkdown,
		"show_tool_calls": s.ShowToolCalls,
	}
}

// SetData updates the configuration from the provided data.
func (s *UISection) SetData(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "log_level":
			s.LogLevel, err = asString(key, value)
		case "render_markdown":
			s.RenderMarkdown, err = asBool(key, value)
		case "show_tool_calls":
			s.ShowToolCalls, err = asBool(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *UISection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.LogLevel {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown log_level %q", s.LogLevel)
	}
}

// Reset resets the section to default configuration.
func (s *UISection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LogLevel = defaultLogLevel
	s.RenderMarkdown = true
	s.ShowToolCalls = true
}

// GetLogLevel returns the parsed log level.
func (s *UISection) GetLogLevel() logging.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return logging.ParseLevel(s.LogLevel)
}

// ShouldRenderMarkdown reports whether replies are rendered as markdown.
func (s *UISection) ShouldRenderMarkdown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RenderMarkdown
}

// ShouldShowToolCalls reports whether tool calls are shown in the transcript.
func (s *UISection) ShouldShowToolCalls() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ShowToolCalls
}
