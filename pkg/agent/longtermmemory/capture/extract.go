package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/types"
)

var (
	// ErrNoFacts is returned by Extract when the message holds nothing worth
	// remembering.
	ErrNoFacts = errors.New("capture: no facts extracted")

	// ErrInvalidResponse is returned when a model reply is not the JSON the
	// prompt asked for.
	ErrInvalidResponse = errors.New("capture: invalid model response")
)

// Extracted is a candidate fact pulled from a message.
type Extracted struct {
	Text     string
	Category longtermmemory.Category
}

// UnmarshalJSON accepts either a bare string or {"text", "category"}.
func (e *Extracted) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Text = strings.TrimSpace(s)
		e.Category = longtermmemory.CategoryMisc
		return nil
	}
	var obj struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.Text = strings.TrimSpace(obj.Text)
	e.Category = longtermmemory.ParseCategory(obj.Category)
	return nil
}

// Extractor asks the model for the facts contained in a message.
type Extractor struct {
	provider llm.Provider
	now      func() time.Time
}

// NewExtractor creates an extractor backed by provider.
func NewExtractor(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider, now: time.Now}
}

// Extract returns the distinct facts in text. It returns ErrNoFacts when there
// are none and wraps ErrInvalidResponse when the reply cannot be parsed.
func (e *Extractor) Extract(ctx context.Context, text string) ([]Extracted, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoFacts
	}

	resp, err := e.provider.Complete(ctx, []*types.Message{
		types.NewSystemMessage(extractionMessage(e.now())),
		types.NewUserMessage("Input: " + text),
	})
	if err != nil {
		return nil, fmt.Errorf("capture: extract: %w", err)
	}

	var out struct {
		Facts []Extracted `json:"facts"`
	}
	if err := decodeJSON(resp.Content, &out); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(out.Facts))
	facts := make([]Extracted, 0, len(out.Facts))
	for _, f := range out.Facts {
		key := longtermmemory.Normalize(f.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		facts = append(facts, f)
	}
	if len(facts) == 0 {
		return nil, ErrNoFacts
	}
	return facts, nil
}

// decodeJSON unmarshals a model reply into v after removing any markdown
// code fence around it.
func decodeJSON(reply string, v interface{}) error {
	body := stripCodeFence(reply)
	if body == "" {
		return fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// stripCodeFence trims a ```json fence and any prose around the outermost
// JSON object.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
