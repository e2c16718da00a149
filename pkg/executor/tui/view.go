package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const defaultHeader = `
	██████╗ ███████╗ ██████╗ █████╗ ██╗     ██╗
	██╔══██╗██╔════╝██╔════╝██╔══██╗██║     ██║
	██████╔╝█████╗  ██║     ███████║██║     ██║
	██╔══██╗██╔══╝  ██║     ██╔══██║██║     ██║
	██║  ██║███████╗╚██████╗██║  ██║███████╗███████╗
	╚═╝  ╚═╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚══════╝╚══════╝`

// View renders the entire TUI interface.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	sections := []string{
		m.buildHeader(),
		m.buildTips(),
		"",
		m.viewport.View(),
	}
	if status := m.buildStatusLine(); status != "" {
		sections = append(sections, status)
	}
	sections = append(sections, m.buildInputBox(), m.buildBottomBar())

	view := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.panel != nil {
		return renderOverlay(m.panel.View(), m.width, m.height)
	}
	return renderToastOverlay(view, m.renderToast())
}

// buildHeader renders the banner.
func (m *model) buildHeader() string {
	if m.opts.Header != "" {
		return headerStyle.Render(m.opts.Header)
	}
	return headerStyle.Render(defaultHeader)
}

func (m *model) buildTips() string {
	return tipsStyle.Render("  Tips: Enter to send • Alt+Enter for new line • /help for commands • Esc cancels a reply • Ctrl+C to exit")
}

// buildStatusLine shows the spinner while busy, or the pending question.
func (m *model) buildStatusLine() string {
	line := ""
	switch {
	case m.confirm != nil:
		line = fmt.Sprintf("Overwrite thread %q? Press y or n", m.confirm.Thread)
	case m.agentBusy:
		line = fmt.Sprintf("%s %s", m.spinner.View(), m.currentLoadingMessage)
	default:
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(salmonPink).
		Width(m.width-4).
		Padding(0, 2).
		Render(line)
}

func (m *model) buildInputBox() string {
	return inputBoxStyle.Width(m.width - 4).Render(m.textarea.View())
}

// buildBottomBar renders the status bar with staged attachments, recalled
// facts and token usage.
func (m *model) buildBottomBar() string {
	left := "recall"
	if n := len(m.attachments); n > 0 {
		left = fmt.Sprintf("recall • 📎 %d staged", n)
	}
	center := fmt.Sprintf("🧠 %d recalled", m.recalledFacts)
	right := m.buildTokenDisplay()

	used := lipgloss.Width(left) + lipgloss.Width(center) + lipgloss.Width(right)
	gap := (m.width - used) / 2
	if gap < 2 {
		gap = 2
	}
	return statusBarStyle.Width(m.width).Render(
		left + strings.Repeat(" ", gap) + center + strings.Repeat(" ", gap) + right,
	)
}

// buildTokenDisplay renders the token usage statistics.
func (m *model) buildTokenDisplay() string {
	if m.totalTokens == 0 {
		return ""
	}

	contextStr := formatTokenCount(m.currentContextTokens)
	if m.maxContextTokens > 0 {
		contextStr = fmt.Sprintf("%s/%s", contextStr, formatTokenCount(m.maxContextTokens))
		if float64(m.currentContextTokens)/float64(m.maxContextTokens) >= 0.8 {
			contextStr = lipgloss.NewStyle().Foreground(errorRed).Render(contextStr)
		}
	}

	return fmt.Sprintf("◆ Context: %s | Input: %s | Output: %s",
		contextStr,
		formatTokenCount(m.totalPromptTokens),
		formatTokenCount(m.totalCompletionTokens))
}
