package web

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/entrhq/recall/pkg/agent/tools"
	"github.com/entrhq/recall/pkg/logging"
)

var webLog *logging.Logger

func init() {
	var err error
	webLog, err = logging.NewLogger("web")
	if err != nil {
		webLog.Warnf("Failed to initialize web logger, using stderr fallback: %v", err)
	}
}

const (
	// DefaultMaxResults is used when web_search is called without max_results.
	DefaultMaxResults = 5
	maxResultsLimit   = 20
)

// SearchTool implements web_search.
type SearchTool struct {
	fetcher    Fetcher
	maxResults int
}

// NewSearchTool creates the web_search tool. maxResults is the default
// result count.
func NewSearchTool(fetcher Fetcher, maxResults int) *SearchTool {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &SearchTool{fetcher: fetcher, maxResults: maxResults}
}

func (t *SearchTool) Name() string {
	return "web_search"
}

func (t *SearchTool) Description() string {
	return "Search the web with DuckDuckGo. Returns result titles, URLs and snippets. " +
		"Use web_extract on a result URL to read the full page."
}

func (t *SearchTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query.",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Maximum number of results to return. Default: %d", t.maxResults),
			},
		},
		[]string{"query"},
	)
}

func (t *SearchTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName    xml.Name `xml:"arguments"`
		Query      string   `xml:"query"`
		MaxResults string   `xml:"max_results"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return "", nil, fmt.Errorf("query is required")
	}
	limit := t.maxResults
	if raw := strings.TrimSpace(input.MaxResults); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxResultsLimit {
			return "", nil, fmt.Errorf("max_results must be between 1 and %d", maxResultsLimit)
		}
		limit = n
	}

	page, err := t.fetcher.Fetch(ctx, SearchURL(query))
	if err != nil {
		return "", nil, fmt.Errorf("search failed: %w", err)
	}
	results, err := ParseSearchResults(page, limit)
	if err != nil {
		return "", nil, err
	}
	webLog.Debugf("web_search %q returned %d results", query, len(results))

	var sb strings.Builder
	if len(results) == 0 {
		fmt.Fprintf(&sb, "No results found for %q.", query)
	} else {
		fmt.Fprintf(&sb, "Search results for %q:\n", query)
		for i, r := range results {
			fmt.Fprintf(&sb, "\n%d. %s\n   %s\n", i+1, r.Title, r.URL)
			if r.Snippet != "" {
				fmt.Fprintf(&sb, "   %s\n", r.Snippet)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n"), map[string]interface{}{"results": len(results)}, nil
}

func (t *SearchTool) IsLoopBreaking() bool {
	return false
}

// ExtractTool implements web_extract.
type ExtractTool struct {
	fetcher   Fetcher
	maxLength int
}

// NewExtractTool creates the web_extract tool. Page text is cut at maxLength
// characters.
func NewExtractTool(fetcher Fetcher, maxLength int) *ExtractTool {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &ExtractTool{fetcher: fetcher, maxLength: maxLength}
}

func (t *ExtractTool) Name() string {
	return "web_extract"
}

func (t *ExtractTool) Description() string {
	return "Load a web page and return its readable text content."
}

func (t *ExtractTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "The http or https URL of the page to read.",
			},
		},
		[]string{"url"},
	)
}

func (t *ExtractTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		URL     string   `xml:"url"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}

	target := strings.TrimSpace(input.URL)
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, fmt.Errorf("url must be an absolute http or https URL, got %q", target)
	}

	raw, err := t.fetcher.Fetch(ctx, target)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load %s: %w", target, err)
	}
	page, err := ExtractText(raw, t.maxLength)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "URL: %s\n", target)
	if page.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", page.Title)
	}
	if page.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", page.Description)
	}
	sb.WriteString("\n")
	sb.WriteString(page.Text)
	if page.Truncated {
		fmt.Fprintf(&sb, "\n\n[Content truncated to %d characters]", t.maxLength)
	}
	return sb.String(), map[string]interface{}{"truncated": page.Truncated}, nil
}

func (t *ExtractTool) IsLoopBreaking() bool {
	return false
}
