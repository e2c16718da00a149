package longtermmemory

import (
	"context"
	"fmt"
	"sort"
	"time"
)

var timeNow = time.Now // injected for testability

// NewVersion creates a fact that supersedes prev with new content.
func NewVersion(prev *Fact, content string, trigger Trigger) *Fact {
	now := timeNow()
	prevID := prev.ID
	return &Fact{
		ID:         NewID(),
		CreatedAt:  prev.CreatedAt,
		UpdatedAt:  now,
		Version:    prev.Version + 1,
		Scope:      prev.Scope,
		Category:   prev.Category,
		Supersedes: &prevID,
		SessionID:  prev.SessionID,
		Trigger:    trigger,
		Content:    content,
	}
}

// Tombstone creates a deleted head for prev. The content is kept so the
// chain stays readable.
func Tombstone(prev *Fact) *Fact {
	f := NewVersion(prev, prev.Content, TriggerDelete)
	f.Deleted = true
	return f
}

// VersionChain returns the ancestry of id, oldest first, up to maxDepth.
func VersionChain(ctx context.Context, store Store, id string, maxDepth int) ([]*Fact, error) {
	var chain []*Fact
	current := id
	for i := 0; i < maxDepth && current != ""; i++ {
		f, err := store.Read(ctx, current)
		if err != nil {
			return chain, fmt.Errorf("longtermmemory: version chain read %s: %w", current, err)
		}
		chain = append([]*Fact{f}, chain...)
		if f.Supersedes == nil {
			break
		}
		current = *f.Supersedes
	}
	return chain, nil
}

// LatestVersion follows the supersedes chain forward from id to its head.
func LatestVersion(ctx context.Context, store Store, id string) (string, error) {
	all, err := store.List(ctx)
	if err != nil {
		return id, err
	}
	if head := HeadOf(all, id); head != nil {
		return head.ID, nil
	}
	return id, nil
}

// HeadOf returns the head of the chain containing id, or nil when id is not
// in facts. Cycles stop the walk at the last unvisited fact.
func HeadOf(facts []*Fact, id string) *Fact {
	byID := make(map[string]*Fact, len(facts))
	successor := make(map[string]string, len(facts))
	for _, f := range facts {
		byID[f.ID] = f
		if f.Supersedes != nil {
			successor[*f.Supersedes] = f.ID
		}
	}
	if _, ok := byID[id]; !ok {
		return nil
	}
	current := id
	visited := make(map[string]bool)
	for !visited[current] {
		visited[current] = true
		next, ok := successor[current]
		if !ok || byID[next] == nil {
			break
		}
		current = next
	}
	return byID[current]
}

// Heads returns the facts no other fact supersedes, tombstones included.
func Heads(facts []*Fact) []*Fact {
	superseded := make(map[string]bool, len(facts))
	for _, f := range facts {
		if f.Supersedes != nil {
			superseded[*f.Supersedes] = true
		}
	}
	var out []*Fact
	for _, f := range facts {
		if !superseded[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// Live returns the non-deleted heads, oldest first.
func Live(facts []*Fact) []*Fact {
	var out []*Fact
	for _, f := range Heads(facts) {
		if !f.Deleted {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
