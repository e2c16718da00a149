package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/types"
)

// Event is the reconciliation decision for one fact.
type Event string

const (
	EventAdd    Event = "ADD"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
	EventNone   Event = "NONE"
)

// ParseEvent maps s onto a known event. Unknown values become NONE.
func ParseEvent(s string) Event {
	switch e := Event(strings.ToUpper(strings.TrimSpace(s))); e {
	case EventAdd, EventUpdate, EventDelete:
		return e
	default:
		return EventNone
	}
}

// Operation is a decided change against the fact store. TargetID is a real
// fact ID and is empty for ADD. Trigger defaults to extract.
type Operation struct {
	Event    Event
	TargetID string
	Text     string
	OldText  string
	Category longtermmemory.Category
	Trigger  longtermmemory.Trigger
}

// decisionItem is one entry of the update prompt's reply.
type decisionItem struct {
	ID        json.RawMessage `json:"id"`
	Text      string          `json:"text"`
	Event     string          `json:"event"`
	OldMemory string          `json:"old_memory"`
	Category  string          `json:"category"`
}

// tempID reads the id as either a JSON string or number.
func (d decisionItem) tempID() string {
	var s string
	if err := json.Unmarshal(d.ID, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(d.ID, &n); err == nil {
		return n.String()
	}
	return ""
}

// Decider reconciles new facts against candidate memories.
type Decider struct {
	provider llm.Provider
}

// NewDecider creates a decider backed by provider.
func NewDecider(provider llm.Provider) *Decider {
	return &Decider{provider: provider}
}

// Decide returns the operations that bring candidates in line with facts.
// Candidates are shown to the model under positional temp IDs and mapped
// back afterwards. UPDATE, DELETE and NONE entries naming an unknown ID are
// dropped. With no candidates every fact is an ADD and the model is not called.
func (d *Decider) Decide(ctx context.Context, facts []Extracted, candidates []*longtermmemory.Fact) ([]Operation, error) {
	if len(facts) == 0 {
		return nil, nil
	}
	if len(candidates) == 0 {
		ops := make([]Operation, len(facts))
		for i, f := range facts {
			ops[i] = Operation{Event: EventAdd, Text: f.Text, Category: f.Category}
		}
		return ops, nil
	}

	resp, err := d.provider.Complete(ctx, []*types.Message{
		types.NewSystemMessage(updatePrompt),
		types.NewUserMessage(decisionInput(candidates, facts)),
	})
	if err != nil {
		return nil, fmt.Errorf("capture: decide: %w", err)
	}

	var out struct {
		Memory []decisionItem `json:"memory"`
	}
	if err := decodeJSON(resp.Content, &out); err != nil {
		return nil, err
	}

	categories := make(map[string]longtermmemory.Category, len(facts))
	for _, f := range facts {
		categories[longtermmemory.Normalize(f.Text)] = f.Category
	}

	ops := make([]Operation, 0, len(out.Memory))
	for _, item := range out.Memory {
		op := Operation{
			Event:   ParseEvent(item.Event),
			Text:    strings.TrimSpace(item.Text),
			OldText: strings.TrimSpace(item.OldMemory),
		}

		if op.Event != EventAdd {
			idx, err := strconv.Atoi(item.tempID())
			if err != nil || idx < 0 || idx >= len(candidates) {
				captureLog.Warnf("Dropping %s for unknown memory id %s", op.Event, string(item.ID))
				continue
			}
			target := candidates[idx]
			op.TargetID = target.ID
			op.Category = target.Category
			if op.OldText == "" {
				op.OldText = target.Content
			}
		}

		switch {
		case item.Category != "":
			op.Category = longtermmemory.ParseCategory(item.Category)
		case op.Category == "":
			if c, ok := categories[longtermmemory.Normalize(op.Text)]; ok {
				op.Category = c
			} else {
				op.Category = longtermmemory.CategoryMisc
			}
		}

		if (op.Event == EventAdd || op.Event == EventUpdate) && op.Text == "" {
			continue
		}
		ops = append(ops, op)
	}
	return ops, nil
}
