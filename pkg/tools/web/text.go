package web

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxLength caps the text returned by web_extract.
const DefaultMaxLength = 8000

// PageText is the readable content of a page.
type PageText struct {
	Title       string
	Description string
	Text        string
	Truncated   bool
}

// ExtractText parses rawHTML and returns its visible text with one line per
// block element. Scripts, styles, navigation chrome and forms are dropped.
func ExtractText(rawHTML string, maxLength int) (*PageText, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &PageText{
		Title:       extractTitle(doc),
		Description: extractMetaDescription(doc),
	}

	w := &textWriter{}
	collectText(findBody(doc), w)
	page.Text = w.String()

	if runes := []rune(page.Text); len(runes) > maxLength {
		page.Text = strings.TrimSpace(string(runes[:maxLength])) + "..."
		page.Truncated = true
	}
	return page, nil
}

// textWriter joins text runs, collapsing whitespace and keeping at most one
// blank line between blocks.
type textWriter struct {
	lines   []string
	current strings.Builder
}

func (w *textWriter) text(s string) {
	for _, f := range strings.Fields(s) {
		if w.current.Len() > 0 {
			w.current.WriteByte(' ')
		}
		w.current.WriteString(f)
	}
}

func (w *textWriter) newline() {
	if w.current.Len() == 0 {
		return
	}
	w.lines = append(w.lines, w.current.String())
	w.current.Reset()
}

func (w *textWriter) String() string {
	w.newline()
	return strings.Join(w.lines, "\n")
}

func collectText(n *html.Node, w *textWriter) {
	if n == nil || n.Type == html.CommentNode {
		return
	}
	if n.Type == html.TextNode {
		w.text(n.Data)
		return
	}
	tag := ""
	if n.Type == html.ElementNode {
		tag = strings.ToLower(n.Data)
		if isSkippedElement(tag) {
			return
		}
		if tag == "br" {
			w.newline()
			return
		}
		if tag == "li" {
			w.newline()
			w.text("-")
		}
	}

	block := isBlockElement(tag)
	if block {
		w.newline()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, w)
	}
	if block {
		w.newline()
	}
}

func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if body == nil {
		return doc
	}
	return body
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
	"svg":      true,
	"nav":      true,
	"form":     true,
	"button":   true,
	"template": true,
	"head":     true,
}

func isSkippedElement(tag string) bool {
	return skippedElements[tag]
}

var blockElements = map[string]bool{
	"div": true, "p": true, "section": true, "article": true, "header": true,
	"footer": true, "main": true, "aside": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "ul": true, "ol": true,
	"li": true, "table": true, "tr": true, "blockquote": true, "pre": true,
	"dl": true, "dt": true, "dd": true, "figure": true, "figcaption": true,
}

func isBlockElement(tag string) bool {
	return blockElements[tag]
}

// extractTitle returns the text of the first <title> element.
func extractTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// extractMetaDescription returns the content of <meta name="description">.
func extractMetaDescription(doc *html.Node) string {
	var description string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if description != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" && attr(n, "name") == "description" {
			description = strings.TrimSpace(attr(n, "content"))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return description
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// nodeText returns the collapsed text under n.
func nodeText(n *html.Node) string {
	w := &textWriter{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			w.text(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return w.current.String()
}
