package memories

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/agent/longtermmemory/retrieval"
	"github.com/entrhq/recall/pkg/agent/tools"
)

const (
	// DefaultLimit is the number of facts returned when no limit is given.
	DefaultLimit = 5
	maxLimit     = 25
)

// Source is the part of the memory controller the tools read from.
type Source interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.Hit, error)
	List(ctx context.Context) ([]*longtermmemory.Fact, error)
}

// SearchMemoriesTool finds remembered facts similar to a query.
type SearchMemoriesTool struct {
	source Source
}

// NewSearchMemoriesTool creates a new SearchMemoriesTool.
func NewSearchMemoriesTool(source Source) *SearchMemoriesTool {
	return &SearchMemoriesTool{source: source}
}

// Name returns the tool name.
func (t *SearchMemoriesTool) Name() string {
	return "search_memories"
}

// Description returns the tool description.
func (t *SearchMemoriesTool) Description() string {
	return "Search facts remembered about the user from earlier conversations. Returns the closest matches with a similarity score."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *SearchMemoriesTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "What to look for, e.g. \"favourite food\" or \"job\"",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Maximum number of facts to return (1-%d). Default: %d", maxLimit, DefaultLimit),
			},
		},
		[]string{"query"},
	)
}

// Execute searches the fact index.
func (t *SearchMemoriesTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Query   string   `xml:"query"`
		Limit   string   `xml:"limit"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid arguments: %w", err)
	}

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return "", nil, fmt.Errorf("query is required")
	}
	limit := DefaultLimit
	if raw := strings.TrimSpace(input.Limit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			return "", nil, fmt.Errorf("limit must be between 1 and %d", maxLimit)
		}
		limit = n
	}

	hits, err := t.source.Retrieve(ctx, query, limit)
	if err != nil {
		return "", nil, fmt.Errorf("memory search failed: %w", err)
	}

	var message strings.Builder
	if len(hits) == 0 {
		fmt.Fprintf(&message, "No memories found for %q.", query)
	} else {
		fmt.Fprintf(&message, "Found %d memory(ies):\n", len(hits))
		for i, h := range hits {
			fmt.Fprintf(&message, "\n%d. [%s] %s (score %.2f)", i+1, h.Fact.Category, h.Fact.Content, h.Score)
		}
	}

	metadata := map[string]interface{}{
		"result_count": len(hits),
		"query":        query,
	}
	return message.String(), metadata, nil
}

// IsLoopBreaking returns false as this tool doesn't break the agent loop.
func (t *SearchMemoriesTool) IsLoopBreaking() bool {
	return false
}
