package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/entrhq/recall/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(n int) *ConversationMemory {
	m := NewConversationMemory()
	for i := 0; i < n; i++ {
		m.Add(types.NewUserMessage(fmt.Sprintf("m%d", i)))
	}
	return m
}

func contents(msgs []*types.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func TestConversationMemory_AddAndGetAll(t *testing.T) {
	m := NewConversationMemory()
	m.Add(types.NewUserMessage("hi"))
	m.Add(nil)
	m.AddMultiple([]*types.Message{types.NewAssistantMessage("hello"), nil})

	assert.Equal(t, 2, m.Len())
	all := m.GetAll()
	assert.Equal(t, []string{"hi", "hello"}, contents(all))

	all[0] = types.NewUserMessage("mutated")
	assert.Equal(t, "hi", m.GetAll()[0].Content, "GetAll returns a copy")
}

func TestConversationMemory_ClearAndReplace(t *testing.T) {
	m := fill(3)
	m.Clear()
	assert.Zero(t, m.Len())

	m.Replace([]*types.Message{types.NewUserMessage("a"), types.NewAssistantMessage("b")})
	assert.Equal(t, []string{"a", "b"}, contents(m.GetAll()))
}

func TestConversationMemory_Split(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		keep      int
		wantOlder []string
		wantNewer []string
	}{
		{name: "more than keep", n: 7, keep: 5, wantOlder: []string{"m0", "m1"}, wantNewer: []string{"m2", "m3", "m4", "m5", "m6"}},
		{name: "exactly keep", n: 5, keep: 5, wantOlder: []string{}, wantNewer: []string{"m0", "m1", "m2", "m3", "m4"}},
		{name: "fewer than keep", n: 2, keep: 5, wantOlder: []string{}, wantNewer: []string{"m0", "m1"}},
		{name: "keep zero", n: 2, keep: 0, wantOlder: []string{"m0", "m1"}, wantNewer: []string{}},
		{name: "empty", n: 0, keep: 5, wantOlder: []string{}, wantNewer: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			older, newer := fill(tt.n).Split(tt.keep)
			assert.Equal(t, tt.wantOlder, contents(older))
			assert.Equal(t, tt.wantNewer, contents(newer))
		})
	}
}

func TestConversationMemory_Range(t *testing.T) {
	m := fill(5)
	assert.Equal(t, []string{"m1", "m2"}, contents(m.Range(1, 3)))
	assert.Equal(t, []string{"m3", "m4"}, contents(m.Range(3, 99)))
	assert.Empty(t, m.Range(4, 2))
	assert.Equal(t, []string{"m0"}, contents(m.Range(-3, 1)))
}

func TestConversationMemory_Concurrent(t *testing.T) {
	m := NewConversationMemory()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Add(types.NewUserMessage("x"))
			_ = m.GetAll()
		}()
	}
	wg.Wait()
	require.Equal(t, 20, m.Len())
}
