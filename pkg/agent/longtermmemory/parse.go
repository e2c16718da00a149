package longtermmemory

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

// Parse deserializes a raw fact file into a Fact.
func Parse(raw []byte) (*Fact, error) {
	s := string(raw)
	if !strings.HasPrefix(s, frontMatterDelimiter) {
		return nil, fmt.Errorf("longtermmemory: missing front-matter delimiter")
	}
	rest := s[len(frontMatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontMatterDelimiter)
	if idx == -1 {
		return nil, fmt.Errorf("longtermmemory: unclosed front-matter block")
	}
	yamlBlock := rest[:idx]
	body := strings.TrimPrefix(rest[idx+len("\n"+frontMatterDelimiter):], "\n")
	body = strings.TrimPrefix(body, "\n")

	var f Fact
	if err := yaml.Unmarshal([]byte(yamlBlock), &f); err != nil {
		return nil, fmt.Errorf("longtermmemory: front-matter parse error: %w", err)
	}
	f.Content = strings.TrimRight(body, "\n")
	return &f, nil
}

// Serialize renders a Fact to its on-disk form.
func Serialize(f *Fact) ([]byte, error) {
	yamlBytes, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("longtermmemory: serialize error: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(frontMatterDelimiter + "\n")
	sb.Write(yamlBytes)
	sb.WriteString(frontMatterDelimiter + "\n\n")
	sb.WriteString(f.Content)
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}
