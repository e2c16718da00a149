package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/recall/pkg/agent/slash"
)

// commandResultMsg carries the outcome of a slash command run off the
// update loop.
type commandResultMsg struct {
	cmd *slash.Command
	res *slash.Result
	err error
}

// runCommand executes a slash command in the background; some commands
// wait for the current turn to finish.
func (m *model) runCommand(cmd *slash.Command) tea.Cmd {
	handler := m.commands
	return func() tea.Msg {
		res, err := handler.Execute(context.Background(), cmd)
		return commandResultMsg{cmd: cmd, res: res, err: err}
	}
}

// applyCommandResult carries out what a finished command asks for.
func (m *model) applyCommandResult(msg commandResultMsg) tea.Cmd {
	if msg.err != nil {
		m.showToast("Command failed", msg.err.Error(), "❌", true)
		return nil
	}
	res := msg.res

	switch res.Action {
	case slash.ActionQuit:
		m.shouldQuit = true
		return tea.Quit

	case slash.ActionSend:
		m.send(res.Input)

	case slash.ActionConfirm:
		m.confirm = res.Input
		m.appendNotice(res.Output)
		m.recalculateLayout()

	case slash.ActionAttach:
		m.attachments = append(m.attachments, res.Paths...)
		m.appendEntry(m.renderer.preview(res.Paths, m.width))
		m.showToast("Attached", res.Output, "📎", false)

	case slash.ActionCopy:
		m.copyLastReply()

	case slash.ActionClear:
		m.content.Reset()
		m.stream.Reset()
		m.lastReply = ""
		m.recalledFacts = 0
		m.appendNotice(res.Output)

	case slash.ActionNone:
		name := msg.cmd.Name
		if name == "help" || strings.Count(res.Output, "\n") > 3 {
			m.panel = newPanel(strings.ToUpper(name[:1])+name[1:], res.Output, m.width, m.height)
			return nil
		}
		m.appendNotice(res.Output)
	}
	return nil
}

func (m *model) copyLastReply() {
	if m.lastReply == "" {
		m.showToast("Nothing to copy", "No reply yet", "📋", true)
		return
	}
	if err := m.copy(m.lastReply); err != nil {
		m.showToast("Copy failed", err.Error(), "📋", true)
		return
	}
	m.showToast("Copied", "Last reply copied to the clipboard", "📋", false)
}
