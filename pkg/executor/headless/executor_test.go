package headless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentcontext "github.com/entrhq/recall/pkg/agent/context"
	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/types"
)

// scriptedAgent replies "ok: <message>". The message "fail" ends the turn
// with an error and "hang" never ends it.
type scriptedAgent struct {
	channels *types.AgentChannels
	facts    []*longtermmemory.Fact
	inputs   []*types.Input
}

func newScriptedAgent() *scriptedAgent {
	return &scriptedAgent{channels: types.NewAgentChannels(32)}
}

func (a *scriptedAgent) Start(context.Context) error {
	go func() {
		defer a.channels.Close()
		a.channels.Event <- types.NewFinalReplyEvent("welcome").WithMetadata("welcome", true)
		for {
			select {
			case <-a.channels.Shutdown:
				return
			case in := <-a.channels.Input:
				a.inputs = append(a.inputs, in)
				a.handle(in)
			}
		}
	}()
	return nil
}

func (a *scriptedAgent) handle(in *types.Input) {
	emit := func(e *types.AgentEvent) { a.channels.Event <- e }
	switch {
	case in.Type == types.InputTypeSaveThread:
		if in.Thread == "taken" && !in.Overwrite {
			emit(types.NewErrorEvent(errors.New("thread already exists")))
			return
		}
		emit(types.NewThreadSavedEvent(in.Thread, 4))
	case in.Type == types.InputTypeCancel:
	case in.Content == "hang":
	case in.Content == "fail":
		emit(types.NewErrorEvent(errors.New("model unavailable")))
		emit(types.NewTurnEndEvent())
	default:
		for _, path := range in.Attachments {
			emit(types.NewAttachmentLoadedEvent(filepath.Base(path), path, 10))
		}
		emit(types.NewMemoryUpdateEvent(&types.MemoryUpdate{Added: 1, Retrieved: 1, Facts: []string{"likes tea"}}))
		emit(types.NewToolCallEvent("long_division", map[string]interface{}{"dividend": "8", "divisor": "2"}))
		emit(types.NewToolResultEvent("long_division", "8 / 2 = 4"))
		emit(types.NewToolCallEvent("converse", map[string]interface{}{"message": "ok: " + in.Content}))
		emit(types.NewTokenUsageEvent(100, 20, 120))
		emit(types.NewFinalReplyEvent("ok: " + in.Content))
		emit(types.NewTurnEndEvent())
	}
}

func (a *scriptedAgent) Shutdown(context.Context) error {
	close(a.channels.Shutdown)
	<-a.channels.Done
	return nil
}

func (a *scriptedAgent) GetChannels() *types.AgentChannels { return a.channels }

func (a *scriptedAgent) Summary() agentcontext.Summary {
	return agentcontext.Summary{Content: "User likes tea.", Covered: 2, Count: 1}
}

func (a *scriptedAgent) Memories(context.Context) ([]*longtermmemory.Fact, error) {
	return a.facts, nil
}

func (a *scriptedAgent) SessionID() string { return "session-1" }

func (a *scriptedAgent) Remember(_ context.Context, text string, category longtermmemory.Category, sessionID string) (*longtermmemory.Fact, error) {
	f := longtermmemory.NewFact(text, longtermmemory.ScopeUser, category, sessionID, longtermmemory.TriggerManual)
	a.facts = append(a.facts, f)
	return f, nil
}

func runScript(t *testing.T, ag *scriptedAgent, yamlText string) (*Report, *Report, error) {
	t.Helper()
	script, err := ParseScript([]byte(yamlText))
	require.NoError(t, err)

	var out bytes.Buffer
	ex, err := NewExecutor(ag, script, WithRememberer(ag), WithOutput(&out), WithProgress(&bytes.Buffer{}))
	require.NoError(t, err)

	report, runErr := ex.Run(context.Background())

	var printed Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	return report, &printed, runErr
}

func TestRun_Success(t *testing.T) {
	ag := newScriptedAgent()
	report, printed, err := runScript(t, ag, `
name: tea
remember:
  - I drink green tea
  - content: I live in Leeds
    category: personal
turns:
  - message: hello
  - message: read this
    attachments: [notes.md]
save_as: tea-chat
`)
	require.NoError(t, err)

	assert.Equal(t, statusSuccess, report.Status)
	require.Len(t, report.Turns, 2)
	assert.Equal(t, "ok: hello", report.Turns[0].Reply)
	assert.Equal(t, []string{"notes.md"}, report.Turns[1].Loaded)
	assert.Equal(t, []string{"likes tea"}, report.Turns[0].Recalled)

	require.Len(t, report.Turns[0].ToolCalls, 1)
	assert.Equal(t, "long_division", report.Turns[0].ToolCalls[0].Name)
	assert.Equal(t, "8 / 2 = 4", report.Turns[0].ToolCalls[0].Output)

	assert.Equal(t, 240, report.Metrics.TokensUsed)
	assert.Equal(t, 2, report.Metrics.MemoryAdds)
	assert.Equal(t, 2, report.Metrics.SeededFacts)
	require.NotNil(t, report.Thread)
	assert.Equal(t, "tea-chat", report.Thread.Name)
	assert.Equal(t, "User likes tea.", report.Summary.Content)

	require.Len(t, report.Memories, 2)
	assert.Equal(t, "personal", report.Memories[1].Category)
	assert.Equal(t, "misc", report.Memories[0].Category)

	assert.Equal(t, report.Status, printed.Status)
	assert.Len(t, printed.Turns, 2)
	assert.Len(t, printed.Memories, 2)
}

func TestRun_FailedTurnStopsScript(t *testing.T) {
	ag := newScriptedAgent()
	report, printed, err := runScript(t, ag, `
turns:
  - message: hello
  - message: fail
  - message: never sent
save_as: skipped
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")

	assert.Equal(t, statusPartialSuccess, report.Status)
	assert.Len(t, report.Turns, 2)
	assert.Equal(t, "model unavailable", report.Turns[1].Error)
	assert.Nil(t, report.Thread)
	assert.Equal(t, 1, report.Metrics.FailedTurns)
	assert.Equal(t, statusPartialSuccess, printed.Status)
	assert.Len(t, ag.inputs, 2)
}

func TestRun_ContinueOnError(t *testing.T) {
	ag := newScriptedAgent()
	report, _, err := runScript(t, ag, `
continue_on_error: true
turns:
  - message: fail
  - message: hello
`)
	require.Error(t, err)
	assert.Len(t, report.Turns, 2)
	assert.Equal(t, "ok: hello", report.Turns[1].Reply)
	assert.Equal(t, statusPartialSuccess, report.Status)
}

func TestRun_AllTurnsFailed(t *testing.T) {
	report, _, err := runScript(t, newScriptedAgent(), "turns:\n  - message: fail\n")
	require.Error(t, err)
	assert.Equal(t, statusFailed, report.Status)
}

func TestRun_SaveConflict(t *testing.T) {
	report, _, err := runScript(t, newScriptedAgent(), "turns:\n  - message: hi\nsave_as: taken\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save thread")
	assert.Nil(t, report.Thread)

	report, _, err = runScript(t, newScriptedAgent(), "turns:\n  - message: hi\nsave_as: taken\noverwrite: true\n")
	require.NoError(t, err)
	require.NotNil(t, report.Thread)
}

func TestRun_Timeout(t *testing.T) {
	ag := newScriptedAgent()
	report, _, err := runScript(t, ag, `
turns:
  - message: hang
limits:
  timeout: 50ms
`)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, statusFailed, report.Status)
	require.Len(t, report.Turns, 1)
	assert.Contains(t, report.Turns[0].Error, "timeout")
}

func TestRun_TokenLimit(t *testing.T) {
	ag := newScriptedAgent()
	report, _, err := runScript(t, ag, `
turns:
  - message: one
  - message: two
limits:
  max_tokens: 100
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token limit exceeded")
	assert.Len(t, report.Turns, 1)
}

func TestRun_WritesArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	_, _, err := runScript(t, newScriptedAgent(), "name: art\nturns:\n  - message: hi\nartifacts:\n  output_dir: "+dir+"\n")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status": "success"`)

	md, err := os.ReadFile(filepath.Join(dir, "transcript.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "**Recall:** ok: hi")
	assert.Contains(t, string(md), "User likes tea.")
}

func TestNewExecutor_RememberNeedsMemory(t *testing.T) {
	script, err := ParseScript([]byte("remember: [x]\nturns:\n  - message: hi\n"))
	require.NoError(t, err)

	_, err = NewExecutor(newScriptedAgent(), script)
	require.Error(t, err)
}

func TestParseScript(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "minimal", yaml: "turns:\n  - message: hi\n"},
		{name: "attachments only", yaml: "turns:\n  - attachments: [a.txt]\n"},
		{name: "no turns", yaml: "name: empty\n", wantErr: "no turns"},
		{name: "empty turn", yaml: "turns:\n  - message: '  '\n", wantErr: "turn 1"},
		{name: "empty seed", yaml: "remember: ['']\nturns:\n  - message: hi\n", wantErr: "remember 1"},
		{name: "bad verbosity", yaml: "turns:\n  - message: hi\nlogging:\n  verbosity: loud\n", wantErr: "verbosity"},
		{name: "negative tokens", yaml: "turns:\n  - message: hi\nlimits:\n  max_tokens: -1\n", wantErr: "max_tokens"},
		{name: "bad yaml", yaml: "turns: [", wantErr: "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.yaml))
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScript_Defaults(t *testing.T) {
	s, err := ParseScript([]byte("turns:\n  - message: hi\nlimits:\n  timeout: 90s\n"))
	require.NoError(t, err)
	assert.Equal(t, "headless", s.Name)
	assert.Equal(t, 90*time.Second, s.Limits.Timeout)
	assert.Equal(t, "normal", s.Logging.Verbosity)
}
