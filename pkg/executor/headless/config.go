package headless

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Script is a scripted conversation run without a terminal.
type Script struct {
	// Name labels the run in the report.
	Name string `yaml:"name" json:"name"`

	// Remember seeds long-term memory before the first turn.
	Remember []Seed `yaml:"remember" json:"remember,omitempty"`

	// Turns are sent to the agent in order.
	Turns []Turn `yaml:"turns" json:"turns"`

	// SaveAs stores the conversation as a thread after the last turn.
	SaveAs    string `yaml:"save_as" json:"save_as,omitempty"`
	Overwrite bool   `yaml:"overwrite" json:"overwrite,omitempty"`

	// ContinueOnError keeps running later turns after a failed one.
	ContinueOnError bool `yaml:"continue_on_error" json:"continue_on_error,omitempty"`

	// Resource limits
	Limits LimitConfig `yaml:"limits" json:"limits"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`
}

// Turn is one user message and the files attached to it.
type Turn struct {
	Message     string   `yaml:"message" json:"message"`
	Attachments []string `yaml:"attachments" json:"attachments,omitempty"`
}

// Seed is a fact stored verbatim before the conversation starts. A plain
// string is accepted in place of the mapping form.
type Seed struct {
	Content  string `yaml:"content" json:"content"`
	Category string `yaml:"category" json:"category,omitempty"`
}

// UnmarshalYAML accepts either "text" or {content: text, category: c}.
func (s *Seed) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Content = node.Value
		return nil
	}
	type plain Seed
	return node.Decode((*plain)(s))
}

// LimitConfig bounds a headless run.
type LimitConfig struct {
	// Timeout applies to the whole run.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxTokens stops the run after the turn that crosses it. Zero means
	// unlimited.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	// OutputDir receives report.json and transcript.md. Empty disables
	// artifacts; the report is still printed.
	OutputDir string `yaml:"output_dir" json:"output_dir"`
}

// LoadScript reads and validates a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes a YAML script over the defaults and validates it.
func ParseScript(data []byte) (*Script, error) {
	s := DefaultScript()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate validates the script
func (s *Script) Validate() error {
	if len(s.Turns) == 0 {
		return fmt.Errorf("script has no turns")
	}

	for i, turn := range s.Turns {
		if strings.TrimSpace(turn.Message) == "" && len(turn.Attachments) == 0 {
			return fmt.Errorf("turn %d: message or attachments required", i+1)
		}
	}

	for i, seed := range s.Remember {
		if strings.TrimSpace(seed.Content) == "" {
			return fmt.Errorf("remember %d: content is empty", i+1)
		}
	}

	if s.Limits.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if s.Limits.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative")
	}

	// Set default verbosity if not specified
	if s.Logging.Verbosity == "" {
		s.Logging.Verbosity = "normal"
	}

	// Validate log level
	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[s.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", s.Logging.Verbosity)
	}

	return nil
}

// DefaultScript returns the settings a script starts from.
func DefaultScript() *Script {
	return &Script{
		Name: "headless",
		Limits: LimitConfig{
			Timeout: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}
