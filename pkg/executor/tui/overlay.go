package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// toastDuration is how long a toast stays on screen.
const toastDuration = 4 * time.Second

// panel is a scrollable modal showing command output such as /help or
// /memories.
type panel struct {
	title    string
	viewport viewport.Model
}

func newPanel(title, content string, width, height int) *panel {
	p := &panel{title: title, viewport: viewport.New(80, 20)}
	p.viewport.SetContent(content)
	p.resize(width, height)
	return p
}

func (p *panel) resize(width, height int) {
	w := width - 12
	if w < 40 {
		w = 40
	}
	h := height - 10
	if h < 5 {
		h = 5
	}
	p.viewport.Width = w
	p.viewport.Height = h
}

// closes reports whether msg dismisses the panel.
func (p *panel) closes(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter, tea.KeyCtrlC:
		return true
	}
	return msg.String() == "q"
}

func (p *panel) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return cmd
}

func (p *panel) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		overlayTitleStyle.Render(p.title),
		p.viewport.View(),
		overlayHelpStyle.Render("↑/↓ to scroll • Esc or Enter to close"),
	)
	return overlayContainerStyle.Width(p.viewport.Width + 4).Render(content)
}

// renderOverlay renders content centered on a clean background.
func renderOverlay(content string, width, height int) string {
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		content,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("0")),
	)
}

// renderToastOverlay draws toastContent over the lines just above the
// input box without changing the layout.
func renderToastOverlay(baseView string, toastContent string) string {
	if toastContent == "" {
		return baseView
	}

	baseLines := strings.Split(baseView, "\n")
	toastLines := strings.Split(strings.TrimRight(toastContent, "\n"), "\n")

	startLine := len(baseLines) - 5 - len(toastLines)
	if startLine < 0 {
		startLine = 0
	}

	var result strings.Builder
	for i, line := range baseLines {
		if idx := i - startLine; idx >= 0 && idx < len(toastLines) {
			result.WriteString("  ")
			result.WriteString(toastLines[idx])
		} else {
			result.WriteString(line)
		}
		if i < len(baseLines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// showToast displays a toast notification.
func (m *model) showToast(message, details, icon string, isError bool) {
	m.toast = &toastNotification{
		message:   message,
		details:   details,
		icon:      icon,
		isError:   isError,
		showUntil: time.Now().Add(toastDuration),
	}
}

// renderToast renders the active toast, or "" once it expired.
func (m *model) renderToast() string {
	if m.toast == nil || time.Now().After(m.toast.showUntil) {
		return ""
	}

	boxWidth := m.width - 4
	if boxWidth < 40 {
		boxWidth = 40
	}

	body := fmt.Sprintf("%s %s", m.toast.icon, m.toast.message)
	if m.toast.details != "" {
		body += "\n" + m.toast.details
	}

	borderColor := salmonPink
	if m.toast.isError {
		borderColor = errorRed
	}
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(boxWidth)

	return "\n" + boxStyle.Render(body) + "\n"
}
