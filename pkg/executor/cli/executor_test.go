package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/recall/pkg/agent"
	agentcontext "github.com/entrhq/recall/pkg/agent/context"
	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/types"
)

// syncBuffer is written by the event goroutine and the input loop.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// echoAgent answers every message with "echo: <message>" after a single
// long_division call, and keeps saved threads in memory.
type echoAgent struct {
	channels *types.AgentChannels
	threads  map[string]bool
	received []*types.Input
	cleared  bool
}

func newEchoAgent() *echoAgent {
	return &echoAgent{channels: types.NewAgentChannels(20), threads: map[string]bool{}}
}

func (a *echoAgent) Start(context.Context) error {
	go a.run()
	return nil
}

func (a *echoAgent) run() {
	defer a.channels.Close()
	a.channels.Event <- types.NewFinalReplyEvent("Hi, I'm recall.").WithMetadata("welcome", true)
	for {
		select {
		case <-a.channels.Shutdown:
			return
		case in := <-a.channels.Input:
			a.received = append(a.received, in)
			a.handle(in)
		}
	}
}

func (a *echoAgent) handle(in *types.Input) {
	emit := func(e *types.AgentEvent) { a.channels.Event <- e }
	switch in.Type {
	case types.InputTypeSaveThread:
		if a.threads[in.Thread] && !in.Overwrite {
			emit(types.NewErrorEvent(fmt.Errorf("thread %q already exists", in.Thread)))
			return
		}
		a.threads[in.Thread] = true
		emit(types.NewThreadSavedEvent(in.Thread, 2))
	case types.InputTypeLoadThread:
		if !a.threads[in.Thread] {
			emit(types.NewErrorEvent(fmt.Errorf("thread %q not found", in.Thread)))
			return
		}
		emit(types.NewThreadLoadedEvent(in.Thread, 2))
	default:
		emit(types.NewUpdateBusyEvent(true))
		emit(types.NewMessageStartEvent())
		emit(types.NewMessageContentEvent("Working it out."))
		emit(types.NewMessageEndEvent())
		emit(types.NewToolCallEvent("long_division", map[string]interface{}{"dividend": "9", "divisor": "3"}))
		emit(types.NewToolResultEvent("long_division", "9 / 3 = 3"))
		emit(types.NewToolCallEvent("converse", map[string]interface{}{"message": "echo: " + in.Content}))
		emit(types.NewFinalReplyEvent("echo: " + in.Content))
		emit(types.NewUpdateBusyEvent(false))
		emit(types.NewTurnEndEvent())
	}
}

func (a *echoAgent) Shutdown(context.Context) error {
	close(a.channels.Shutdown)
	<-a.channels.Done
	return nil
}

func (a *echoAgent) GetChannels() *types.AgentChannels { return a.channels }

func (a *echoAgent) ThreadExists(_ context.Context, name string) (bool, error) {
	return a.threads[name], nil
}

func (a *echoAgent) ListThreads(context.Context) ([]string, error) {
	var names []string
	for name := range a.threads {
		names = append(names, name)
	}
	return names, nil
}

func (a *echoAgent) Memories(context.Context) ([]*longtermmemory.Fact, error) { return nil, nil }

func (a *echoAgent) Forget(context.Context, string) (*longtermmemory.Fact, error) {
	return nil, longtermmemory.ErrNotFound
}

func (a *echoAgent) Summary() agentcontext.Summary { return agentcontext.Summary{} }

func (a *echoAgent) ClearHistory() { a.cleared = true }

func (a *echoAgent) GetContextInfo() *agent.ContextInfo { return &agent.ContextInfo{} }

func run(t *testing.T, ag *echoAgent, script string, opts ...ExecutorOption) string {
	t.Helper()
	out := &syncBuffer{}
	opts = append([]ExecutorOption{WithReader(strings.NewReader(script)), WithWriter(out)}, opts...)
	require.NoError(t, NewExecutor(ag, opts...).Run(context.Background()))
	return out.String()
}

func TestRun_Conversation(t *testing.T) {
	ag := newEchoAgent()
	out := run(t, ag, "hello\n\nsecond\n")

	assert.Contains(t, out, "Recall: Hi, I'm recall.")
	assert.Contains(t, out, "Working it out.")
	assert.Contains(t, out, "Recall: echo: hello")
	assert.Contains(t, out, "Recall: echo: second")
	assert.NotContains(t, out, "🔧")
	assert.Contains(t, out, "Shutting down...")
	require.Len(t, ag.received, 2)
}

func TestRun_ShowToolCalls(t *testing.T) {
	out := run(t, newEchoAgent(), "hello\n", WithShowToolCalls(true))

	assert.Contains(t, out, "🔧 Tool: long_division")
	assert.Contains(t, out, "✅ Result: 9 / 3 = 3")
	assert.NotContains(t, out, "Tool: converse")
}

func TestRun_SaveAndLoad(t *testing.T) {
	ag := newEchoAgent()
	out := run(t, ag, "hi\n/save trip\n/save trip\nn\n/save trip\ny\n/load trip\n/load missing\n/threads\n")

	assert.Contains(t, out, `Saved thread "trip"`)
	assert.Contains(t, out, `Thread "trip" already exists. Overwrite it? (y/n)`)
	assert.Contains(t, out, `Thread "trip" was not saved.`)
	assert.Contains(t, out, `Loaded thread "trip" (2 messages)`)
	assert.Contains(t, out, `thread "missing" not found`)
	assert.Contains(t, out, "Saved threads:\n  trip")

	var saves []*types.Input
	for _, in := range ag.received {
		if in.Type == types.InputTypeSaveThread {
			saves = append(saves, in)
		}
	}
	require.Len(t, saves, 2)
	assert.False(t, saves[0].Overwrite)
	assert.True(t, saves[1].Overwrite)
}

func TestRun_AttachGoesWithNextMessage(t *testing.T) {
	ag := newEchoAgent()
	run(t, ag, "/attach notes.md todo.txt\nsummarize these\nand again\n")

	require.Len(t, ag.received, 2)
	assert.Equal(t, []string{"notes.md", "todo.txt"}, ag.received[0].Attachments)
	assert.Empty(t, ag.received[1].Attachments)
}

func TestRun_CopyAndClear(t *testing.T) {
	ag := newEchoAgent()
	var copied string
	clip := WithClipboard(func(s string) error {
		copied = s
		return nil
	})

	out := run(t, ag, "/copy\nping\n/copy\n/clear\n/copy\n", clip)

	assert.Equal(t, "echo: ping", copied)
	assert.Equal(t, 2, strings.Count(out, "Nothing to copy yet."))
	assert.Contains(t, out, "Copied the last reply to the clipboard.")
	assert.True(t, ag.cleared)
}

func TestRun_QuitAndUnknownCommand(t *testing.T) {
	ag := newEchoAgent()
	out := run(t, ag, "/bogus\n/quit\nnever sent\n")

	assert.Contains(t, out, "unknown command")
	assert.Empty(t, ag.received)
}

func TestRun_Markdown(t *testing.T) {
	out := run(t, newEchoAgent(), "**bold**\n", WithMarkdown(true))

	assert.Contains(t, out, "bold")
	assert.NotContains(t, out, "echo: **bold**")
}
