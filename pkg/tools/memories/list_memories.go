package memories

import (
	"context"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/agent/tools"
)

// ListMemoriesTool lists every live remembered fact, optionally filtered by
// category.
type ListMemoriesTool struct {
	source Source
}

// NewListMemoriesTool creates a new ListMemoriesTool.
func NewListMemoriesTool(source Source) *ListMemoriesTool {
	return &ListMemoriesTool{source: source}
}

// Name returns the tool name.
func (t *ListMemoriesTool) Name() string {
	return "list_memories"
}

// Description returns the tool description.
func (t *ListMemoriesTool) Description() string {
	return "List all facts currently remembered about the user, grouped by category."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *ListMemoriesTool) Schema() map[string]interface{} {
	names := make([]string, len(longtermmemory.Categories))
	for i, c := range longtermmemory.Categories {
		names[i] = string(c)
	}
	return tools.BaseToolSchema(
		map[string]interface{}{
			"category": map[string]interface{}{
				"type":        "string",
				"description": "Only list facts in this category: " + strings.Join(names, ", "),
			},
		},
		[]string{},
	)
}

// Execute lists the live facts.
func (t *ListMemoriesTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName  xml.Name `xml:"arguments"`
		Category string   `xml:"category"`
	}
	if len(strings.TrimSpace(string(argsXML))) > 0 {
		if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
			return "", nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}

	facts, err := t.source.List(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list memories: %w", err)
	}

	filter := strings.TrimSpace(input.Category)
	category := longtermmemory.ParseCategory(filter)
	kept := make([]*longtermmemory.Fact, 0, len(facts))
	for _, f := range facts {
		if filter == "" || f.Category == category {
			kept = append(kept, f)
		}
	}
	facts = kept

	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].Category != facts[j].Category {
			return facts[i].Category < facts[j].Category
		}
		return facts[i].CreatedAt.Before(facts[j].CreatedAt)
	})

	var message strings.Builder
	if len(facts) == 0 {
		message.WriteString("No memories stored yet.")
	} else {
		fmt.Fprintf(&message, "%d memory(ies):\n", len(facts))
		var current longtermmemory.Category
		for _, f := range facts {
			if f.Category != current {
				current = f.Category
				fmt.Fprintf(&message, "\n[%s]\n", current)
			}
			fmt.Fprintf(&message, "- %s\n", f.Content)
		}
	}

	return strings.TrimRight(message.String(), "\n"), map[string]interface{}{"result_count": len(facts)}, nil
}

// IsLoopBreaking returns false as this tool doesn't break the agent loop.
func (t *ListMemoriesTool) IsLoopBreaking() bool {
	return false
}
