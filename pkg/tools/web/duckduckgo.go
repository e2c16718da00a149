package web

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// SearchEndpoint is the JavaScript-free DuckDuckGo results page.
const SearchEndpoint = "https://html.duckduckgo.com/html/"

// SearchResult is one organic search hit.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// SearchURL returns the results page URL for query.
func SearchURL(query string) string {
	return SearchEndpoint + "?q=" + url.QueryEscape(query)
}

// ParseSearchResults reads up to limit results from a DuckDuckGo HTML page.
// Ads are skipped and redirect links are resolved to their target.
func ParseSearchResults(rawHTML string, limit int) ([]SearchResult, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var results []SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if limit > 0 && len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if r, ok := parseResult(n); ok {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func parseResult(n *html.Node) (SearchResult, bool) {
	var r SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a") && r.URL == "":
				r.Title = nodeText(n)
				r.URL = resolveRedirect(attr(n, "href"))
			case hasClass(n, "result__snippet") && r.Snippet == "":
				r.Snippet = nodeText(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return r, r.Title != "" && r.URL != ""
}

// resolveRedirect unwraps //duckduckgo.com/l/?uddg=<target> links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
