package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentcontext "github.com/entrhq/recall/pkg/agent/context"
	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/agent/longtermmemory/capture"
	"github.com/entrhq/recall/pkg/agent/longtermmemory/retrieval"
	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/llm/llmtest"
	"github.com/entrhq/recall/pkg/threads"
	"github.com/entrhq/recall/pkg/types"
)

// fakeMemory returns a fixed result for every Apply.
type fakeMemory struct {
	result  *capture.Result
	err     error
	applied []string
	facts   []*longtermmemory.Fact
}

func (f *fakeMemory) Apply(ctx context.Context, text, sessionID string) (*capture.Result, error) {
	f.applied = append(f.applied, text)
	return f.result, f.err
}

func (f *fakeMemory) List(ctx context.Context) ([]*longtermmemory.Fact, error) {
	return f.facts, nil
}

func (f *fakeMemory) Forget(ctx context.Context, id string) (*longtermmemory.Fact, error) {
	for _, fact := range f.facts {
		if fact.ID == id {
			return fact, nil
		}
	}
	return nil, longtermmemory.ErrNotFound
}

func hit(content string, score float64) retrieval.Hit {
	return retrieval.Hit{
		Fact:  longtermmemory.NewFact(content, longtermmemory.ScopeUser, longtermmemory.CategoryPreference, "s1", longtermmemory.TriggerExtract),
		Score: score,
	}
}

func TestChatAgent_InjectsMemories(t *testing.T) {
	mem := &fakeMemory{result: &capture.Result{
		Memories:   []retrieval.Hit{hit("Likes green tea", 0.9), hit("Lives in Lisbon", 0.7)},
		Operations: []capture.Applied{{Event: capture.EventAdd}},
	}}
	p := &llmtest.ScriptedProvider{Replies: []string{"Try a Lisbon tea house."}}
	a := newTestAgent(p, WithMemory(mem), WithSessionID("session-1"))

	events := runTurn(t, a, types.NewUserInput("Where should I go tonight?"))

	assert.Equal(t, []string{"Where should I go tonight?"}, mem.applied)

	prompt := p.Calls[0]
	require.Len(t, prompt, 3)
	assert.Equal(t, types.RoleSystem, prompt[1].Role)
	assert.Equal(t, "Likes green tea\nLives in Lisbon", prompt[1].Content)
	assert.Equal(t, 2, prompt[1].Metadata[types.MetaMemories])

	updates := eventsOfType(events, types.EventTypeMemoryUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, 1, updates[0].MemoryUpdate.Added)
	assert.Equal(t, 2, updates[0].MemoryUpdate.Retrieved)

	assert.Equal(t, []string{"Likes green tea", "Lives in Lisbon"}, a.LastMemories())
	assert.Equal(t, "session-1", a.SessionID())

	// Memories never enter history
	assert.Len(t, a.History(), 2)
}

func TestChatAgent_MemoryFailureIsNotFatal(t *testing.T) {
	mem := &fakeMemory{
		result: &capture.Result{Memories: []retrieval.Hit{hit("Likes green tea", 0.9)}},
		err:    errors.New("extraction failed"),
	}
	p := &llmtest.ScriptedProvider{Replies: []string{"Sure."}}
	a := newTestAgent(p, WithMemory(mem))

	events := runTurn(t, a, types.NewUserInput("hello"))

	memErrs := eventsOfType(events, types.EventTypeMemoryError)
	require.Len(t, memErrs, 1)
	assert.Contains(t, memErrs[0].Error.Error(), "extraction failed")

	// Retrieved memories are still used
	assert.Equal(t, "Likes green tea", p.Calls[0][1].Content)
	assert.Equal(t, "assistant: Sure.", contents(a.History())[1])
}

func TestChatAgent_NothingRecalled(t *testing.T) {
	mem := &fakeMemory{result: &capture.Result{}}
	p := &llmtest.ScriptedProvider{Replies: []string{"ok"}}
	a := newTestAgent(p, WithMemory(mem))

	runTurn(t, a, types.NewUserInput("remember this"))

	require.Len(t, mem.applied, 1)
	assert.Len(t, p.Calls[0], 2, "no memories message when nothing was retrieved")
}

func TestChatAgent_LongTermMemoryAcrossSessions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	newController := func(replies ...string) *capture.Controller {
		store, err := longtermmemory.NewFileStore(dir)
		require.NoError(t, err)
		c := capture.NewController(
			&llmtest.ScriptedProvider{Replies: replies},
			store,
			retrieval.NewIndex(retrieval.NewHashEmbedder(256)),
			capture.Options{},
		)
		require.NoError(t, c.Load(ctx))
		return c
	}

	// First session learns a fact
	first := newTestAgent(
		&llmtest.ScriptedProvider{Replies: []string{"Noted!"}},
		WithMemory(newController(`{"facts": ["Likes green tea"]}`)),
	)
	events := runTurn(t, first, types.NewUserInput("I really like green tea"))
	updates := eventsOfType(events, types.EventTypeMemoryUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, 1, updates[0].MemoryUpdate.Added)

	facts, err := first.Memories(ctx)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Likes green tea", facts[0].Content)

	// A new session with an empty history recalls it
	chat := &llmtest.ScriptedProvider{Replies: []string{"Green tea, of course."}}
	second := newTestAgent(chat, WithMemory(newController(`{"facts": []}`)))
	runTurn(t, second, types.NewUserInput("Likes green tea"))

	require.Len(t, chat.Calls, 1)
	prompt := chat.Calls[0]
	require.Len(t, prompt, 3)
	assert.Equal(t, "Likes green tea", prompt[1].Content)

	forgotten, err := second.Forget(ctx, facts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, facts[0].ID, forgotten.ID)
	live, err := second.Memories(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestChatAgent_NoMemory(t *testing.T) {
	a := newTestAgent(&llmtest.ScriptedProvider{})
	_, err := a.Memories(context.Background())
	assert.ErrorIs(t, err, ErrNoMemory)
	_, err = a.Forget(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoMemory)
}

func TestChatAgent_RollingSummary(t *testing.T) {
	summarizer := &llmtest.ScriptedProvider{Replies: []string{"The user said hello."}}
	manager := agentcontext.NewManager(summarizer, 0, agentcontext.NewRecencyStrategy(2, true))

	chat := &llmtest.ScriptedProvider{Replies: []string{"Hi!", "Still here.", "Bye!"}}
	a := newTestAgent(chat, WithContextManager(manager))

	runTurn(t, a, types.NewUserInput("hello"))
	runTurn(t, a, types.NewUserInput("are you there?"))
	events := runTurn(t, a, types.NewUserInput("goodbye"))

	require.Len(t, summarizer.Calls, 1, "only the third turn has history to fold")
	assert.Len(t, eventsOfType(events, types.EventTypeContextSummarizationComplete), 1)

	third := chat.Calls[2]
	require.Len(t, third, 5)
	assert.True(t, third[1].IsSummary())
	assert.Contains(t, third[1].Content, "The user said hello.")
	assert.Equal(t, []string{
		"user: are you there?",
		"assistant: Still here.",
		"user: goodbye",
	}, contents(third[2:]))

	// The summary covers the first turn; history itself is untouched
	assert.Equal(t, 2, a.Summary().Covered)
	assert.Len(t, a.History(), 6)

	info := a.GetContextInfo()
	assert.Equal(t, 6, info.MessageCount)
	assert.Equal(t, 3, info.ConversationTurns)
	assert.Equal(t, 2, info.SummarizedMessages)
	assert.Equal(t, 5, info.WindowMessages, "summary plus the four uncovered messages")
	assert.Positive(t, info.SummaryTokens)
}

func TestChatAgent_SummaryFailureKeepsGoing(t *testing.T) {
	summarizer := &llmtest.ScriptedProvider{Err: errors.New("summarizer down")}
	manager := agentcontext.NewManager(summarizer, 0, agentcontext.NewRecencyStrategy(1, true))

	chat := &llmtest.ScriptedProvider{Replies: []string{"one", "two"}}
	a := newTestAgent(chat, WithContextManager(manager))

	runTurn(t, a, types.NewUserInput("first"))
	events := runTurn(t, a, types.NewUserInput("second"))

	assert.NotEmpty(t, eventsOfType(events, types.EventTypeContextSummarizationError))
	assert.Equal(t, "assistant: two", contents(a.History())[3])
	assert.True(t, a.Summary().IsEmpty())
	assert.Len(t, chat.Calls[1], 4, "full history is sent while nothing is summarized")
}

func TestChatAgent_Threads(t *testing.T) {
	ctx := context.Background()
	store, err := threads.NewFileStore(t.TempDir())
	require.NoError(t, err)

	summarizer := &llmtest.ScriptedProvider{}
	manager := agentcontext.NewManager(summarizer, 0, agentcontext.NewRecencyStrategy(10, true))

	p := &llmtest.ScriptedProvider{Replies: []string{"Paris is lovely."}}
	a := newTestAgent(p, WithThreadStore(store), WithContextManager(manager))

	_, _, err = a.SaveThread(ctx, "trip", false)
	assert.ErrorIs(t, err, ErrNothingToSave)

	runTurn(t, a, types.NewUserInput("Plan a trip to Paris"))

	name, n, err := a.SaveThread(ctx, "trip.json", false)
	require.NoError(t, err)
	assert.Equal(t, "trip", name)
	assert.Equal(t, 2, n)

	_, _, err = a.SaveThread(ctx, "trip", false)
	assert.ErrorIs(t, err, threads.ErrThreadExists)
	_, _, err = a.SaveThread(ctx, "trip", true)
	require.NoError(t, err)

	_, _, err = a.SaveThread(ctx, "../escape", false)
	assert.ErrorIs(t, err, threads.ErrInvalidName)

	exists, err := a.ThreadExists(ctx, "trip")
	require.NoError(t, err)
	assert.True(t, exists)

	a.ClearHistory()
	assert.Empty(t, a.History())
	assert.True(t, a.Summary().IsEmpty())

	manager.Restore(agentcontext.Summary{Content: "stale", Covered: 1, Count: 1})
	name, n, err = a.LoadThread(ctx, "trip")
	require.NoError(t, err)
	assert.Equal(t, "trip", name)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"user: Plan a trip to Paris", "assistant: Paris is lovely."}, contents(a.History()))
	assert.True(t, a.Summary().IsEmpty(), "loading a thread restarts the summary")

	_, _, err = a.LoadThread(ctx, "missing")
	assert.ErrorIs(t, err, threads.ErrNotFound)

	names, err := a.ListThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"trip"}, names)
}

func TestChatAgent_NoThreadStore(t *testing.T) {
	ctx := context.Background()
	a := newTestAgent(&llmtest.ScriptedProvider{})

	_, _, err := a.SaveThread(ctx, "x", false)
	assert.ErrorIs(t, err, ErrNoThreadStore)
	_, _, err = a.LoadThread(ctx, "x")
	assert.ErrorIs(t, err, ErrNoThreadStore)
	_, err = a.ListThreads(ctx)
	assert.ErrorIs(t, err, ErrNoThreadStore)
	_, err = a.ThreadExists(ctx, "x")
	assert.ErrorIs(t, err, ErrNoThreadStore)
}

// nextEvent waits for the first event of one of the given types.
func nextEvent(t *testing.T, ch <-chan *types.AgentEvent, want ...types.AgentEventType) *types.AgentEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-ch:
			require.True(t, ok, "event channel closed")
			for _, w := range want {
				if e.Type == w {
					return e
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v", want)
			return nil
		}
	}
}

func TestChatAgent_ThreadRequestsThroughChannels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := threads.NewFileStore(t.TempDir())
	require.NoError(t, err)
	p := &llmtest.ScriptedProvider{Replies: []string{"Hello!"}}
	a := newTestAgent(p, WithThreadStore(store))
	require.NoError(t, a.Start(ctx))
	ch := a.GetChannels()

	ch.Input <- types.NewUserInput("Hi")
	nextEvent(t, ch.Event, types.EventTypeTurnEnd)

	ch.Input <- types.NewSaveThreadInput("greeting", false)
	saved := nextEvent(t, ch.Event, types.EventTypeThreadSaved, types.EventTypeError)
	require.Equal(t, types.EventTypeThreadSaved, saved.Type)
	assert.Equal(t, "greeting", saved.Thread.Name)
	assert.Equal(t, 2, saved.Thread.Messages)

	ch.Input <- types.NewSaveThreadInput("greeting", false)
	dup := nextEvent(t, ch.Event, types.EventTypeThreadSaved, types.EventTypeError)
	require.Equal(t, types.EventTypeError, dup.Type)
	assert.ErrorIs(t, dup.Error, threads.ErrThreadExists)

	ch.Input <- types.NewLoadThreadInput("greeting")
	loaded := nextEvent(t, ch.Event, types.EventTypeThreadLoaded, types.EventTypeError)
	require.Equal(t, types.EventTypeThreadLoaded, loaded.Type)
	assert.Equal(t, 2, loaded.Thread.Messages)

	go func() {
		for range ch.Event {
		}
	}()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, a.Shutdown(shutdownCtx))
}

// blockingProvider streams nothing until the request is cancelled.
type blockingProvider struct {
	llmtest.ScriptedProvider
	started chan struct{}
}

func (p *blockingProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	ch := make(chan *llm.StreamChunk, 1)
	go func() {
		defer close(ch)
		p.started <- struct{}{}
		<-ctx.Done()
		ch <- &llm.StreamChunk{Error: ctx.Err()}
	}()
	return ch, nil
}

func TestChatAgent_Cancel(t *testing.T) {
	p := &blockingProvider{started: make(chan struct{}, 1)}
	a := newTestAgent(p)
	require.NoError(t, a.Start(context.Background()))
	ch := a.GetChannels()

	ch.Input <- types.NewUserInput("think hard")
	select {
	case <-p.started:
	case <-time.After(5 * time.Second):
		t.Fatal("model was never called")
	}
	ch.Input <- types.NewCancelInput()

	e := nextEvent(t, ch.Event, types.EventTypeError, types.EventTypeFinalReply)
	require.Equal(t, types.EventTypeError, e.Type)
	assert.Contains(t, e.Error.Error(), "cancelled")
	nextEvent(t, ch.Event, types.EventTypeTurnEnd)

	assert.Empty(t, a.History(), "a cancelled turn is not recorded")

	go func() {
		for range ch.Event {
		}
	}()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, a.Shutdown(shutdownCtx))
}
