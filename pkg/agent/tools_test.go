package agent

import (
	"strings"
	"testing"

	"github.com/entrhq/recall/pkg/agent/tools"
	"github.com/entrhq/recall/pkg/llm/llmtest"
)

func TestRegisterTool(t *testing.T) {
	a := newTestAgent(&llmtest.ScriptedProvider{})

	if err := a.RegisterTool(&echoTool{}); err != nil {
		t.Fatalf("RegisterTool() error = %v", err)
	}
	if err := a.RegisterTool(tools.NewConverseTool()); err == nil {
		t.Error("expected error when replacing the built-in converse tool")
	}
	if err := a.RegisterTool(nil); err == nil {
		t.Error("expected error for nil tool")
	}

	if a.GetTool("echo") == nil {
		t.Error("GetTool(echo) returned nil")
	}
	if a.GetTool("missing") != nil {
		t.Error("GetTool(missing) should be nil")
	}

	got := a.GetTools()
	want := []string{"ask_question", "converse", "echo"}
	if len(got) != len(want) {
		t.Fatalf("GetTools() returned %d tools, want %d", len(got), len(want))
	}
	for i, tool := range got {
		if name := tool.(tools.Tool).Name(); name != want[i] {
			t.Errorf("tool %d = %s, want %s", i, name, want[i])
		}
	}
}

func TestWithToolsSkipsDuplicates(t *testing.T) {
	a := newTestAgent(&llmtest.ScriptedProvider{}, WithTools(&echoTool{}, &echoTool{}))
	if n := len(a.GetTools()); n != 3 {
		t.Errorf("expected 3 tools, got %d", n)
	}
}

func TestSystemPromptListsTools(t *testing.T) {
	a := newTestAgent(&llmtest.ScriptedProvider{},
		WithTools(&echoTool{}),
		WithCustomInstructions("Answer in French."),
	)

	info := a.GetContextInfo()
	if info.ToolCount != 3 {
		t.Errorf("ToolCount = %d, want 3", info.ToolCount)
	}
	if !info.CustomInstructions {
		t.Error("CustomInstructions should be reported")
	}
	if info.SystemPromptTokens == 0 {
		t.Error("SystemPromptTokens should be counted")
	}
	if info.MaxContextTokens != 8192 {
		t.Errorf("MaxContextTokens = %d, want the provider's 8192", info.MaxContextTokens)
	}
	if info.UsagePercent <= 0 {
		t.Errorf("UsagePercent = %f, want > 0", info.UsagePercent)
	}

	prompt := a.buildSystemPrompt()
	for _, want := range []string{"## echo", "## converse", "## ask_question", "Answer in French."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}
