package tui

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var loadingMessages = []string{
	"Thinking...",
	"Remembering...",
	"Recalling what you told me...",
	"Leafing through old notes...",
	"Connecting the dots...",
	"Formulating response...",
	"Consulting my memory palace...",
	"Dusting off the archives...",
	"Organizing thoughts...",
	"Brewing response...",
}

// getRandomLoadingMessage returns a message to show while the agent works.
func getRandomLoadingMessage() string {
	return loadingMessages[rand.Intn(len(loadingMessages))] //nolint:gosec
}

// formatTokenCount formats a token count with K/M suffixes for readability.
func formatTokenCount(count int) string {
	if count >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(count)/1000000)
	}
	if count >= 1000 {
		return fmt.Sprintf("%.1fK", float64(count)/1000)
	}
	return fmt.Sprintf("%d", count)
}

// formatByteCount formats a file size.
func formatByteCount(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

// formatEntry wraps icon+text to the window and styles it. With iconOnly
// only the icon is styled.
func formatEntry(icon string, text string, style lipgloss.Style, width int, iconOnly bool) string {
	wrapWidth := width - 4
	if wrapWidth <= 0 {
		wrapWidth = 80
	}

	wrapped := wordWrap(icon+text, wrapWidth)
	if iconOnly {
		return strings.Replace(wrapped, icon, style.Render(icon), 1)
	}
	return style.Render(wrapped)
}

// wordWrap wraps text to width, keeping paragraph breaks and splitting
// words longer than a line.
func wordWrap(text string, width int) string {
	if width <= 0 {
		width = 80
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		line := ""
		for _, word := range words {
			for len(word) > width {
				if line != "" {
					lines = append(lines, line)
					line = ""
				}
				lines = append(lines, word[:width])
				word = word[width:]
			}
			switch {
			case word == "":
			case line == "":
				line = word
			case len(line)+1+len(word) > width:
				lines = append(lines, line)
				line = word
			default:
				line += " " + word
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// previewLines keeps the first n lines of s.
func previewLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n… %d more lines", len(lines)-n)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// updateTextAreaHeight grows the input box with its content.
func (m *model) updateTextAreaHeight() {
	width := m.textarea.Width() - 2
	if width <= 0 {
		width = 78
	}

	visualLines := 0
	for _, line := range strings.Split(m.textarea.Value(), "\n") {
		wrapped := (len(line) + width - 1) / width
		if wrapped == 0 {
			wrapped = 1
		}
		visualLines += wrapped
	}
	if visualLines > m.textarea.MaxHeight {
		visualLines = m.textarea.MaxHeight
	}

	if visualLines != m.textarea.Height() {
		m.textarea.SetHeight(visualLines)
		m.recalculateLayout()
	}
}
