package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/recall/pkg/agent"
	agentcontext "github.com/entrhq/recall/pkg/agent/context"
	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/agent/slash"
	"github.com/entrhq/recall/pkg/types"
)

func init() {
	initDebugLog()
}

type fakeAgent struct {
	channels *types.AgentChannels
	threads  []string
	cleared  bool
}

func (f *fakeAgent) ThreadExists(_ context.Context, name string) (bool, error) {
	for _, t := range f.threads {
		if t == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAgent) ListThreads(context.Context) ([]string, error) { return f.threads, nil }

func (f *fakeAgent) Memories(context.Context) ([]*longtermmemory.Fact, error) { return nil, nil }

func (f *fakeAgent) Forget(context.Context, string) (*longtermmemory.Fact, error) {
	return nil, longtermmemory.ErrNotFound
}

func (f *fakeAgent) Summary() agentcontext.Summary { return agentcontext.Summary{} }

func (f *fakeAgent) ClearHistory() { f.cleared = true }

func (f *fakeAgent) GetContextInfo() *agent.ContextInfo { return &agent.ContextInfo{} }

func (f *fakeAgent) GetChannels() *types.AgentChannels { return f.channels }

func newTestModel(t *testing.T) (*model, *fakeAgent) {
	t.Helper()
	ag := &fakeAgent{channels: types.NewAgentChannels(10)}
	m := newModel(ag, Options{ShowToolCalls: true})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, ag
}

func nextInput(t *testing.T, m *model) *types.Input {
	t.Helper()
	select {
	case in := <-m.channels.Input:
		return in
	default:
		t.Fatal("no input was sent to the agent")
		return nil
	}
}

func noInput(t *testing.T, m *model) {
	t.Helper()
	select {
	case in := <-m.channels.Input:
		t.Fatalf("unexpected input %s", in.Type)
	default:
	}
}

func enter(m *model, text string) tea.Cmd {
	m.textarea.SetValue(text)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// runSlash executes a command synchronously and applies its result.
func runSlash(t *testing.T, m *model, input string) {
	t.Helper()
	cmd, ok := slash.Parse(input)
	require.True(t, ok)
	m.Update(m.runCommand(cmd)())
}

func TestSendMessageWithAttachments(t *testing.T) {
	m, _ := newTestModel(t)
	m.attachments = []string{"notes.txt"}

	enter(m, "what did I write?")

	in := nextInput(t, m)
	assert.Equal(t, types.InputTypeUserInput, in.Type)
	assert.Equal(t, "what did I write?", in.Content)
	assert.Equal(t, []string{"notes.txt"}, in.Attachments)
	assert.Empty(t, m.attachments)
	assert.True(t, m.agentBusy)
	assert.Contains(t, m.content.String(), "what did I write?")
	assert.Empty(t, m.textarea.Value())
}

func TestBusyKeepsInput(t *testing.T) {
	m, _ := newTestModel(t)
	m.agentBusy = true

	enter(m, "second message")

	noInput(t, m)
	assert.Equal(t, "second message", m.textarea.Value())
	require.NotNil(t, m.toast)
	assert.True(t, m.toast.isError)
}

func TestEscCancelsBusyTurn(t *testing.T) {
	m, _ := newTestModel(t)
	m.agentBusy = true

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, types.InputTypeCancel, nextInput(t, m).Type)
}

func TestFinalReplyReplacesStreamedText(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(types.NewMessageStartEvent())
	m.Update(types.NewMessageContentEvent("Hello there"))
	assert.Contains(t, m.viewport.View(), "Hello there")
	m.Update(types.NewMessageEndEvent())
	m.Update(types.NewFinalReplyEvent("Hello there"))
	m.Update(types.NewTurnEndEvent())

	assert.Equal(t, 1, strings.Count(m.content.String(), "Hello there"))
	assert.Equal(t, "Hello there", m.lastReply)
	assert.Zero(t, m.stream.Len())
	assert.False(t, m.agentBusy)
}

func TestWelcomeIsNotCopyable(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(types.NewFinalReplyEvent("Hi, I'm recall.").WithMetadata("welcome", true))

	assert.Contains(t, m.content.String(), "Hi, I'm recall.")
	assert.Empty(t, m.lastReply)
}

func TestNarrationBeforeToolCallIsKept(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(types.NewMessageContentEvent("Let me work that out."))
	m.Update(types.NewToolCallEvent("long_division", map[string]interface{}{"dividend": "10", "divisor": "4"}))
	m.Update(types.NewToolResultEvent("long_division", "10 / 4 = 2.5"))
	m.Update(types.NewToolCallEvent("converse", map[string]interface{}{"message": "It is 2.5"}))
	m.Update(types.NewFinalReplyEvent("It is 2.5"))

	out := m.content.String()
	assert.Contains(t, out, "Let me work that out.")
	assert.Contains(t, out, "long_division (dividend=10, divisor=4)")
	assert.Contains(t, out, "10 / 4 = 2.5")
	assert.NotContains(t, out, "converse")
}

func TestErrorAndMemoryEvents(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(types.NewErrorEvent(errors.New("turn cancelled")))
	assert.Contains(t, m.content.String(), "turn cancelled")

	m.Update(types.NewMemoryUpdateEvent(&types.MemoryUpdate{Added: 1, Retrieved: 3}))
	assert.Equal(t, 3, m.recalledFacts)
	require.NotNil(t, m.toast)
	assert.Equal(t, "Memory updated", m.toast.message)

	m.Update(types.NewAttachmentSkippedEvent("photo.png", "file type not allowed"))
	assert.Contains(t, m.content.String(), "photo.png skipped: file type not allowed")
}

func TestSaveAsksBeforeOverwriting(t *testing.T) {
	m, ag := newTestModel(t)
	ag.threads = []string{"trip"}

	runSlash(t, m, "/save trip")
	require.NotNil(t, m.confirm)
	noInput(t, m)
	assert.Contains(t, m.View(), `Overwrite thread "trip"?`)

	m.Update(key('n'))
	assert.Nil(t, m.confirm)
	noInput(t, m)
	assert.Contains(t, m.content.String(), `Thread "trip" was not saved.`)

	runSlash(t, m, "/save trip")
	m.Update(key('y'))
	in := nextInput(t, m)
	assert.Equal(t, types.InputTypeSaveThread, in.Type)
	assert.Equal(t, "trip", in.Thread)
	assert.True(t, in.Overwrite)

	runSlash(t, m, "/save fresh")
	in = nextInput(t, m)
	assert.Equal(t, "fresh", in.Thread)
	assert.False(t, in.Overwrite)
}

func TestLoadAndThreadEvents(t *testing.T) {
	m, _ := newTestModel(t)
	m.appendEntry("old transcript")

	runSlash(t, m, "/load trip")
	assert.Equal(t, types.InputTypeLoadThread, nextInput(t, m).Type)

	m.Update(types.NewThreadLoadedEvent("trip", 6))
	assert.NotContains(t, m.content.String(), "old transcript")
	assert.Contains(t, m.content.String(), `Loaded thread "trip" (6 messages).`)

	m.Update(types.NewThreadSavedEvent("trip", 8))
	require.NotNil(t, m.toast)
	assert.Equal(t, "Thread saved", m.toast.message)
}

func TestClearAndCopy(t *testing.T) {
	m, ag := newTestModel(t)
	var copied string
	m.copy = func(s string) error {
		copied = s
		return nil
	}

	runSlash(t, m, "/copy")
	assert.Empty(t, copied)
	assert.True(t, m.toast.isError)

	m.Update(types.NewFinalReplyEvent("Paris"))
	runSlash(t, m, "/copy")
	assert.Equal(t, "Paris", copied)

	runSlash(t, m, "/clear")
	assert.True(t, ag.cleared)
	assert.NotContains(t, m.content.String(), "Paris")
	assert.Empty(t, m.lastReply)
}

func TestAttachStagesFiles(t *testing.T) {
	m, _ := newTestModel(t)
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o644))

	runSlash(t, m, "/attach "+path)

	assert.Equal(t, []string{path}, m.attachments)
	assert.Contains(t, m.content.String(), "main.go")
	assert.Contains(t, m.View(), "1 staged")
}

func TestHelpOpensPanel(t *testing.T) {
	m, _ := newTestModel(t)

	runSlash(t, m, "/help")
	require.NotNil(t, m.panel)
	assert.Contains(t, m.View(), "/save <name>")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.panel)
}

func TestUnknownCommandShowsToast(t *testing.T) {
	m, _ := newTestModel(t)

	runSlash(t, m, "/commit")
	require.NotNil(t, m.toast)
	assert.Equal(t, "Command failed", m.toast.message)
	assert.Contains(t, m.toast.details, "unknown command")
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"fits", "one two", 10, "one two"},
		{"wraps", "one two three", 8, "one two\nthree"},
		{"long word", "abcdefghij", 4, "abcd\nefgh\nij"},
		{"drops blank lines", "a\n\nb", 10, "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wordWrap(tt.text, tt.width))
		})
	}
}

func TestReadHeadSkipsBinary(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(bin, []byte("%PDF\x00\x01"), 0o644))
	head, err := readHead(bin)
	require.NoError(t, err)
	assert.Empty(t, head)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("1\n2\n3\n4\n5\n6\n7\n8\n"), 0o644))
	head, err = readHead(txt)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n4\n5\n6\n…", head)
}

func TestReplyRenderer(t *testing.T) {
	plain := newReplyRenderer(false)
	assert.Equal(t, "**bold** move", plain.render("**bold** move", 80))
	assert.Empty(t, plain.render("   ", 80))

	md := newReplyRenderer(true)
	out := md.render("**bold** move", 80)
	assert.Contains(t, out, "bold")
	assert.NotContains(t, out, "**")
}
