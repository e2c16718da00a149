package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

const (
	// SectionIDTools is the identifier for the tools settings section
	SectionIDTools = "tools"

	defaultWebMaxResults      = 5
	defaultAttachmentMaxBytes = 512 * 1024
)

// DefaultAttachmentPatterns lists the file names accepted as attachments
// unless configured otherwise.
var DefaultAttachmentPatterns = []string{
	"*.txt", "*.md", "*.json", "*.csv", "*.log", "*.yaml", "*.yml", "*.go", "*.py", "*.pdf",
}

// ToolsSection configures optional tools and attachment limits.
type ToolsSection struct {
	WebEnabled         bool
	WebMaxResults      int
	AttachmentPatterns []string
	AttachmentMaxBytes int
	MCPServers         map[string]string // server name to stdio command line
	mu                 sync.RWMutex
}

// NewToolsSection creates a tools section with default settings.
func NewToolsSection() *ToolsSection {
	s := &ToolsSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *ToolsSection) ID() string {
	return SectionIDTools
}

// Title returns the section title.
func (s *ToolsSection) Title() string {
	return "Tools"
}

// Description returns the section description.
func (s *ToolsSection) Description() string {
	return "Web search and extraction, MCP servers, and which file attachments are accepted."
}

// Data returns the current configuration data.
func (s *ToolsSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"web_enabled":          s.WebEnabled,
		"web_max_results":      s.WebMaxResults,
		"attachment_patterns":  append([]string(nil), s.AttachmentPatterns...),
		"attachment_max_bytes": s.AttachmentMaxBytes,
		"mcp_servers":          copyServers(s.MCPServers),
	}
}

// SetData updates the configuration from the provided data.
func (s *ToolsSection) SetData(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "web_enabled":
			s.WebEnabled, err = asBool(key, value)
		case "web_max_results":
			s.WebMaxResults, err = asInt(key, value)
		case "attachment_patterns":
			s.AttachmentPatterns, err = asStringSlice(key, value)
		case "attachment_max_bytes":
			s.AttachmentMaxBytes, err = asInt(key, value)
		case "mcp_servers":
			s.MCPServers, err = asStringMap(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks limits and that every attachment pattern compiles.
func (s *ToolsSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.WebMaxResults < 1 || s.WebMaxResults > 20 {
		return fmt.Errorf("web_max_results must be between 1 and 20, got %d", s.WebMaxResults)
	}
	if s.AttachmentMaxBytes < 1 {
		return fmt.Errorf("attachment_max_bytes must be positive")
	}
	for _, p := range s.AttachmentPatterns {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid attachment pattern %q: %w", p, err)
		}
	}
	for name, command := range s.MCPServers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("mcp_servers has an entry without a name")
		}
		if strings.TrimSpace(command) == "" {
			return fmt.Errorf("mcp server %s has no command", name)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *ToolsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WebEnabled = true
	s.WebMaxResults = defaultWebMaxResults
	s.AttachmentPatterns = append([]string(nil), DefaultAttachmentPatterns...)
	s.AttachmentMaxBytes = defaultAttachmentMaxBytes
	s.MCPServers = map[string]string{}
}

// IsWebEnabled reports whether the web tools are registered.
func (s *ToolsSection) IsWebEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.WebEnabled
}

// GetWebMaxResults returns the default number of search results.
func (s *ToolsSection) GetWebMaxResults() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.WebMaxResults
}

// GetAttachmentPatterns returns a copy of the attachment allowlist.
func (s *ToolsSection) GetAttachmentPatterns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.AttachmentPatterns...)
}

// GetAttachmentMaxBytes returns the per-file size limit.
func (s *ToolsSection) GetAttachmentMaxBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AttachmentMaxBytes
}

// GetMCPServers returns a copy of the configured MCP servers.
func (s *ToolsSection) GetMCPServers() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyServers(s.MCPServers)
}

func copyServers(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
