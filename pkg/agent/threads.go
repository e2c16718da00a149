package agent

import (
	"context"
	"errors"
	"fmt"

	agentcontext "github.com/entrhq/recall/pkg/agent/context"
	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/threads"
	"github.com/entrhq/recall/pkg/types"
)

var (
	// ErrNoThreadStore is returned by thread operations when the agent was
	// built without a thread store.
	ErrNoThreadStore = errors.New("thread storage is not configured")

	// ErrNothingToSave is returned when saving an empty history.
	ErrNothingToSave = errors.New("chat history is empty")

	// ErrNoMemory is returned by memory operations when long-term memory is
	// disabled.
	ErrNoMemory = errors.New("long-term memory is not enabled")
)

func (a *ChatAgent) handleSaveThread(ctx context.Context, input *types.Input) {
	name, n, err := a.SaveThread(ctx, input.Thread, input.Overwrite)
	if err != nil {
		a.emitEvent(types.NewErrorEvent(err))
		return
	}
	a.emitEvent(types.NewThreadSavedEvent(name, n))
}

func (a *ChatAgent) handleLoadThread(ctx context.Context, input *types.Input) {
	name, n, err := a.LoadThread(ctx, input.Thread)
	if err != nil {
		a.emitEvent(types.NewErrorEvent(err))
		return
	}
	a.emitEvent(types.NewThreadLoadedEvent(name, n))
}

// SaveThread stores the chat history under name and returns the stored name
// and message count. Without overwrite an existing thread is left alone and
// threads.ErrThreadExists is returned.
func (a *ChatAgent) SaveThread(ctx context.Context, name string, overwrite bool) (string, int, error) {
	if a.threads == nil {
		return "", 0, ErrNoThreadStore
	}
	clean, err := threads.SanitizeName(name)
	if err != nil {
		return "", 0, err
	}

	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	msgs := a.history.GetAll()
	if len(msgs) == 0 {
		return "", 0, ErrNothingToSave
	}
	if err := a.threads.Save(ctx, clean, msgs, overwrite); err != nil {
		return "", 0, fmt.Errorf("save thread %q: %w", clean, err)
	}
	agentDebugLog.Infof("Saved thread %q (%d messages)", clean, len(msgs))
	return clean, len(msgs), nil
}

// LoadThread replaces the chat history with a saved thread. The rolling
// summary restarts from the loaded history.
func (a *ChatAgent) LoadThread(ctx context.Context, name string) (string, int, error) {
	if a.threads == nil {
		return "", 0, ErrNoThreadStore
	}
	clean, err := threads.SanitizeName(name)
	if err != nil {
		return "", 0, err
	}

	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	msgs, err := a.threads.Load(ctx, clean)
	if err != nil {
		return "", 0, fmt.Errorf("load thread %q: %w", clean, err)
	}
	a.history.Replace(msgs)
	if a.contextManager != nil {
		a.contextManager.Reset()
	}
	agentDebugLog.Infof("Loaded thread %q (%d messages)", clean, len(msgs))
	return clean, len(msgs), nil
}

// ListThreads returns the saved thread names.
func (a *ChatAgent) ListThreads(ctx context.Context) ([]string, error) {
	if a.threads == nil {
		return nil, ErrNoThreadStore
	}
	return a.threads.List(ctx)
}

// ThreadExists reports whether a thread is saved under name.
func (a *ChatAgent) ThreadExists(ctx context.Context, name string) (bool, error) {
	if a.threads == nil {
		return false, ErrNoThreadStore
	}
	clean, err := threads.SanitizeName(name)
	if err != nil {
		return false, err
	}
	return a.threads.Exists(ctx, clean)
}

// ClearHistory starts a new conversation. Long-term memory is kept.
func (a *ChatAgent) ClearHistory() {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	a.history.Clear()
	if a.contextManager != nil {
		a.contextManager.Reset()
	}
	a.setLastFacts(nil)
}

// History returns a copy of the chat history.
func (a *ChatAgent) History() []*types.Message {
	return a.history.GetAll()
}

// Summary returns the rolling summary of evicted history.
func (a *ChatAgent) Summary() agentcontext.Summary {
	if a.contextManager == nil {
		return agentcontext.Summary{}
	}
	return a.contextManager.Summary()
}

// LastMemories returns the facts injected into the most recent turn.
func (a *ChatAgent) LastMemories() []string {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	return append([]string(nil), a.lastFacts...)
}

// Memories returns every live long-term fact.
func (a *ChatAgent) Memories(ctx context.Context) ([]*longtermmemory.Fact, error) {
	if a.longTerm == nil {
		return nil, ErrNoMemory
	}
	return a.longTerm.List(ctx)
}

// Forget deletes the long-term fact with the given ID.
func (a *ChatAgent) Forget(ctx context.Context, id string) (*longtermmemory.Fact, error) {
	if a.longTerm == nil {
		return nil, ErrNoMemory
	}
	return a.longTerm.Forget(ctx, id)
}
