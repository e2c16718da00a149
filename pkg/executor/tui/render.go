package tui

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	previewBytes    = 2048
	previewMaxLines = 6
)

// replyRenderer turns replies into terminal output, as markdown when
// enabled.
type replyRenderer struct {
	markdown bool
	width    int
	glamour  *glamour.TermRenderer
	syntax   *chroma.Style
}

func newReplyRenderer(markdown bool) *replyRenderer {
	style := styles.Get("dracula")
	if style == nil {
		style = styles.Fallback
	}
	return &replyRenderer{markdown: markdown, syntax: style}
}

// render formats a reply for the given window width. Rendering errors fall
// back to wrapped plain text.
func (r *replyRenderer) render(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if r.markdown {
		if out, err := r.renderMarkdown(content, width); err == nil {
			return out
		}
	}
	return wordWrap(content, width-4)
}

func (r *replyRenderer) renderMarkdown(content string, width int) (string, error) {
	wrap := width - 6
	if wrap <= 0 {
		wrap = 80
	}
	if r.glamour == nil || r.width != wrap {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return "", err
		}
		r.glamour = tr
		r.width = wrap
	}
	out, err := r.glamour.Render(content)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// preview shows the first lines of each staged attachment, highlighted by
// file type.
func (r *replyRenderer) preview(paths []string, width int) string {
	var b strings.Builder
	for i, path := range paths {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(tipsStyle.Render("📎 " + path))
		head, err := readHead(path)
		if err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("\n    %v", err)))
			continue
		}
		if head == "" {
			continue
		}
		for _, line := range strings.Split(r.highlight(path, head), "\n") {
			b.WriteString("\n    ")
			b.WriteString(line)
		}
	}
	return b.String()
}

// highlight colors text with the lexer matching path, or returns it as is.
func (r *replyRenderer) highlight(path, text string) string {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return text
	}
	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}

	var out strings.Builder
	for _, token := range iterator.Tokens() {
		out.WriteString(r.formatToken(token.Value, r.syntax.Get(token.Type)))
	}
	return out.String()
}

func (r *replyRenderer) formatToken(value string, entry chroma.StyleEntry) string {
	style := lipgloss.NewStyle()
	if entry.Colour.IsSet() {
		style = style.Foreground(lipgloss.Color(entry.Colour.String()))
	}
	if entry.Bold == chroma.Yes {
		style = style.Bold(true)
	}
	if entry.Italic == chroma.Yes {
		style = style.Italic(true)
	}
	// Render per line so styling never spans a newline.
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// readHead returns the first few lines of a text file, or "" for binary
// content such as PDFs.
func readHead(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, previewBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	buf = buf[:n]
	if bytes.IndexByte(buf, 0) >= 0 || !utf8.Valid(trimPartialRune(buf)) {
		return "", nil
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if len(lines) > previewMaxLines {
		lines = append(lines[:previewMaxLines], "…")
	}
	return strings.Join(lines, "\n"), nil
}

// trimPartialRune drops a rune cut off by the read limit.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}
