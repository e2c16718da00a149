package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/recall/pkg/agent/slash"
	"github.com/entrhq/recall/pkg/types"
)

// Init starts the cursor blink and the spinner.
func (m *model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles all state updates for the TUI model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.shouldQuit {
		return m, tea.Quit
	}

	var spinnerCmd tea.Cmd
	m.spinner, spinnerCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)

	case *types.AgentEvent:
		m.handleAgentEvent(msg)
		return m, spinnerCmd

	case tea.MouseMsg:
		if m.panel != nil {
			return m, m.panel.update(msg)
		}
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, tea.Batch(vpCmd, spinnerCmd)

	case commandResultMsg:
		return m, tea.Batch(m.applyCommandResult(msg), spinnerCmd)

	case tea.KeyMsg:
		return m.handleKeyPress(msg, spinnerCmd)
	}

	return m, spinnerCmd
}

// handleKeyPress routes keys to the open panel, the pending confirmation,
// or the input box.
func (m *model) handleKeyPress(msg tea.KeyMsg, spinnerCmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.panel != nil {
		if m.panel.closes(msg) {
			m.panel = nil
			m.textarea.Focus()
			return m, spinnerCmd
		}
		return m, tea.Batch(m.panel.update(msg), spinnerCmd)
	}

	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		if m.agentBusy {
			m.channels.Input <- types.NewCancelInput()
			m.showToast("Cancelling", "Stopping the current turn", "⏹", false)
			return m, spinnerCmd
		}

	case tea.KeyPgUp, tea.KeyPgDown:
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, tea.Batch(vpCmd, spinnerCmd)

	case tea.KeyEnter:
		if msg.Alt {
			m.textarea.InsertString("\n")
			m.updateTextAreaHeight()
			return m, spinnerCmd
		}
		return m.handleEnter(spinnerCmd)
	}

	var tiCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.updateTextAreaHeight()
	return m, tea.Batch(tiCmd, spinnerCmd)
}

// handleConfirmKey answers the pending overwrite question.
func (m *model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	input := m.confirm
	switch strings.ToLower(msg.String()) {
	case "y":
		m.confirm = nil
		m.send(input)
	case "n", "esc", "ctrl+c":
		m.confirm = nil
		m.appendNotice(fmt.Sprintf("Thread %q was not saved.", input.Thread))
	}
	m.recalculateLayout()
	return m, nil
}

// handleEnter sends the input box to the agent or runs a slash command.
func (m *model) handleEnter(spinnerCmd tea.Cmd) (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, spinnerCmd
	}
	m.textarea.Reset()
	m.updateTextAreaHeight()

	if cmd, ok := slash.Parse(input); ok {
		return m, tea.Batch(m.runCommand(cmd), spinnerCmd)
	}

	if m.agentBusy {
		m.showToast("Busy", "Wait for the current reply or press Esc to cancel", "⏳", true)
		m.textarea.SetValue(input)
		return m, spinnerCmd
	}
	return m, tea.Batch(m.sendMessage(input), spinnerCmd)
}

// sendMessage echoes the user message and hands it to the agent with any
// staged attachments.
func (m *model) sendMessage(text string) tea.Cmd {
	m.appendEntry(formatEntry("You: ", text, userStyle, m.width, true))
	if len(m.attachments) > 0 {
		m.appendEntry(formatEntry("📎 ", strings.Join(m.attachments, ", "), tipsStyle, m.width, false))
	}

	m.agentBusy = true
	m.currentLoadingMessage = getRandomLoadingMessage()
	m.send(types.NewUserInput(text, m.attachments...))
	m.attachments = nil
	m.recalculateLayout()
	return nil
}

func (m *model) send(input *types.Input) {
	debugLog.Debugf("Sending %s input to agent", input.Type)
	m.channels.Input <- input
}

// calculateViewportHeight computes the viewport height from the current layout.
func (m *model) calculateViewportHeight() int {
	headerHeight := lipgloss.Height(m.buildHeader()) + 2 // header + tips + blank line
	inputHeight := m.textarea.Height() + 2
	statusBarHeight := 1
	loadingHeight := 0
	if m.agentBusy || m.confirm != nil {
		loadingHeight = 1
	}

	viewportHeight := m.height - headerHeight - inputHeight - statusBarHeight - loadingHeight
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	return viewportHeight
}

func (m *model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	m.viewport.Width = m.width - 4
	m.viewport.Height = m.calculateViewportHeight()
	m.textarea.SetWidth(m.width - 8)
	if m.panel != nil {
		m.panel.resize(m.width, m.height)
	}
	m.ready = true
	m.recalculateLayout()
	return m, nil
}

// recalculateLayout updates viewport content and scrolls to bottom.
func (m *model) recalculateLayout() {
	m.viewport.Height = m.calculateViewportHeight()
	m.refreshViewport()
}

// refreshViewport shows the committed transcript plus any streaming text.
func (m *model) refreshViewport() {
	view := m.content.String()
	if m.stream.Len() > 0 {
		view += formatEntry("", m.stream.String(), streamStyle, m.width, false)
	}
	m.viewport.SetContent(view)
	m.viewport.GotoBottom()
}

func (m *model) appendEntry(entry string) {
	m.content.WriteString(strings.TrimRight(entry, "\n"))
	m.content.WriteString("\n\n")
	m.refreshViewport()
}

func (m *model) appendNotice(text string) {
	m.appendEntry(formatEntry("", text, noticeStyle, m.width, false))
}
