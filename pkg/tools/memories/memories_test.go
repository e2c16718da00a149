package memories

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/agent/longtermmemory/retrieval"
)

type fakeSource struct {
	hits      []retrieval.Hit
	facts     []*longtermmemory.Fact
	err       error
	lastQuery string
	lastK     int
}

func (f *fakeSource) Retrieve(_ context.Context, query string, k int) ([]retrieval.Hit, error) {
	f.lastQuery, f.lastK = query, k
	return f.hits, f.err
}

func (f *fakeSource) List(context.Context) ([]*longtermmemory.Fact, error) {
	return f.facts, f.err
}

func fact(content string, category longtermmemory.Category, age time.Duration) *longtermmemory.Fact {
	f := longtermmemory.NewFact(content, longtermmemory.ScopeUser, category, "s1", longtermmemory.TriggerExtract)
	f.CreatedAt = time.Now().Add(-age)
	return f
}

func TestSearchMemoriesTool_Execute(t *testing.T) {
	src := &fakeSource{hits: []retrieval.Hit{
		{Fact: fact("Likes sushi", longtermmemory.CategoryPreference, 0), Score: 0.91},
	}}
	tool := NewSearchMemoriesTool(src)

	if tool.Name() != "search_memories" {
		t.Errorf("Name() = %q", tool.Name())
	}
	if tool.IsLoopBreaking() {
		t.Error("IsLoopBreaking() should return false")
	}

	result, metadata, err := tool.Execute(context.Background(), []byte(`<arguments><query>food</query><limit>3</limit></arguments>`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := "Found 1 memory(ies):\n\n1. [preference] Likes sushi (score 0.91)"
	if result != want {
		t.Errorf("result = %q, want %q", result, want)
	}
	if src.lastQuery != "food" || src.lastK != 3 {
		t.Errorf("Retrieve called with (%q, %d)", src.lastQuery, src.lastK)
	}
	if metadata["result_count"] != 1 {
		t.Errorf("result_count = %v", metadata["result_count"])
	}
}

func TestSearchMemoriesTool_Validation(t *testing.T) {
	tool := NewSearchMemoriesTool(&fakeSource{})

	tests := []struct {
		name string
		args string
		want string
	}{
		{"missing query", `<arguments><query>  </query></arguments>`, "query is required"},
		{"limit too large", `<arguments><query>x</query><limit>100</limit></arguments>`, "limit must be between"},
		{"limit not a number", `<arguments><query>x</query><limit>many</limit></arguments>`, "limit must be between"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tool.Execute(context.Background(), []byte(tt.args))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Execute() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestSearchMemoriesTool_NoResults(t *testing.T) {
	src := &fakeSource{}
	result, _, err := NewSearchMemoriesTool(src).Execute(context.Background(), []byte(`<arguments><query>pets</query></arguments>`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != `No memories found for "pets".` {
		t.Errorf("result = %q", result)
	}
	if src.lastK != DefaultLimit {
		t.Errorf("default limit = %d, want %d", src.lastK, DefaultLimit)
	}
}

func TestSearchMemoriesTool_SourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("embedder down")}
	_, _, err := NewSearchMemoriesTool(src).Execute(context.Background(), []byte(`<arguments><query>x</query></arguments>`))
	if err == nil || !strings.Contains(err.Error(), "embedder down") {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestListMemoriesTool_Execute(t *testing.T) {
	src := &fakeSource{facts: []*longtermmemory.Fact{
		fact("Has two sisters", longtermmemory.CategoryPersonal, time.Hour),
		fact("Likes sushi", longtermmemory.CategoryPreference, 2*time.Hour),
		fact("Lives in Lisbon", longtermmemory.CategoryPersonal, 2*time.Hour),
	}}
	tool := NewListMemoriesTool(src)

	result, metadata, err := tool.Execute(context.Background(), []byte(`<arguments></arguments>`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := "3 memory(ies):\n\n[personal]\n- Lives in Lisbon\n- Has two sisters\n\n[preference]\n- Likes sushi"
	if result != want {
		t.Errorf("result = %q, want %q", result, want)
	}
	if metadata["result_count"] != 3 {
		t.Errorf("result_count = %v", metadata["result_count"])
	}

	result, _, err = tool.Execute(context.Background(), []byte(`<arguments><category>Preference</category></arguments>`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != "1 memory(ies):\n\n[preference]\n- Likes sushi" {
		t.Errorf("filtered result = %q", result)
	}
	if len(src.facts) != 3 {
		t.Error("filter must not modify the source slice")
	}
}

func TestListMemoriesTool_Empty(t *testing.T) {
	result, _, err := NewListMemoriesTool(&fakeSource{}).Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != "No memories stored yet." {
		t.Errorf("result = %q", result)
	}
}
