package prompts

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/entrhq/recall/pkg/agent/tools"
	"github.com/entrhq/recall/pkg/types"
)

func TestFormatToolSchema(t *testing.T) {
	tool := tools.NewConverseTool()

	formatted := FormatToolSchema(tool)

	if !strings.Contains(formatted, "## converse") {
		t.Error("formatted schema should contain tool name")
	}
	if !strings.Contains(formatted, tool.Description()) {
		t.Error("formatted schema should contain description")
	}
	if !strings.Contains(formatted, "Parameters") {
		t.Error("formatted schema should contain parameters section")
	}
	if !strings.Contains(formatted, "loop-breaking") {
		t.Error("formatted schema should indicate loop-breaking tool")
	}
	if !strings.Contains(formatted, "<tool_name>converse</tool_name>") {
		t.Error("formatted schema should include an example call")
	}
	if strings.Contains(formatted, "server_name") {
		t.Error("example call should not include server_name")
	}
}

func TestFormatToolSchemas(t *testing.T) {
	t.Run("MultipleTools", func(t *testing.T) {
		formatted := FormatToolSchemas([]tools.Tool{
			tools.NewAskQuestionTool(),
			tools.NewConverseTool(),
		})

		if !strings.Contains(formatted, "ask_question") {
			t.Error("should contain ask_question")
		}
		if !strings.Contains(formatted, "converse") {
			t.Error("should contain converse")
		}
		if !strings.Contains(formatted, "AVAILABLE TOOLS") {
			t.Error("should contain AVAILABLE TOOLS header")
		}
	})

	t.Run("NoTools", func(t *testing.T) {
		formatted := FormatToolSchemas([]tools.Tool{})

		if !strings.Contains(formatted, "No tools available") {
			t.Error("should indicate no tools available")
		}
	})
}

func TestGenerateXMLExample_RequiredOnlyInOrder(t *testing.T) {
	schema := tools.BaseToolSchema(map[string]interface{}{
		"divisor":  map[string]interface{}{"type": "integer"},
		"dividend": map[string]interface{}{"type": "integer"},
		"note":     map[string]interface{}{"type": "string"},
	}, []string{"divisor", "dividend"})

	got := GenerateXMLExample(schema, "long_division")
	want := "<tool>\n<tool_name>long_division</tool_name>\n<arguments>\n" +
		"  <dividend>1234</dividend>\n  <divisor>7</divisor>\n" +
		"</arguments>\n</tool>"
	if got != want {
		t.Errorf("GenerateXMLExample() =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerateXMLExample_ArraysAndFallbacks(t *testing.T) {
	schema := tools.BaseToolSchema(map[string]interface{}{
		"suggestions": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"mode":        map[string]interface{}{"type": "string", "enum": []interface{}{"fast", "slow"}},
		"ratio":       map[string]interface{}{"type": "number"},
	}, []string{"suggestions", "mode", "ratio"})

	got := GenerateXMLExample(schema, "demo")
	for _, want := range []string{
		"<mode>fast</mode>",
		"<ratio>2.5</ratio>",
		"<suggestions>\n    <suggestion>first</suggestion>\n    <suggestion>second</suggestion>\n  </suggestions>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateXMLExample() missing %q in\n%s", want, got)
		}
	}
}

func TestPromptBuilder(t *testing.T) {
	t.Run("BasicBuild", func(t *testing.T) {
		date := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)
		prompt := NewPromptBuilder().
			WithTools([]tools.Tool{tools.NewConverseTool()}).
			WithDate(date).
			Build()

		if !strings.Contains(prompt, "Friday, March 14, 2025") {
			t.Error("should contain today's date")
		}
		if !strings.Contains(prompt, "<identity>") {
			t.Error("should contain identity section")
		}
		if !strings.Contains(prompt, "<available_tools>") || !strings.Contains(prompt, "converse") {
			t.Error("should contain tool information")
		}
		if !strings.Contains(prompt, "<tool_use_rules>") {
			t.Error("should contain tool use rules")
		}
	})

	t.Run("WithCustomInstructions", func(t *testing.T) {
		customInstructions := "Be extra helpful and friendly."

		prompt := NewPromptBuilder().
			WithCustomInstructions(customInstructions).
			Build()

		if !strings.Contains(prompt, "<custom_instructions>\n"+customInstructions) {
			t.Error("should contain custom instructions")
		}
	})
}

func TestBuildMessages(t *testing.T) {
	t.Run("FullTurnOrder", func(t *testing.T) {
		summary := types.NewSystemMessage("Earlier: user said hi.").WithMetadata(types.MetaSummarized, true)
		memories := MemoriesMessage([]string{"Likes sushi", "Has two sisters"})
		history := []*types.Message{
			types.NewUserMessage("Hello"),
			types.NewAssistantMessage("Hi there!"),
		}
		scratch := []*types.Message{
			types.NewAssistantMessage("<tool>...</tool>"),
			ToolResultMessage("long_division", "ok"),
		}

		messages := BuildMessages(Turn{
			SystemPrompt: "You are helpful",
			Summary:      summary,
			Memories:     memories,
			History:      history,
			Input:        "How are you?",
			Scratchpad:   scratch,
		})

		wantContents := []string{
			"You are helpful",
			"Earlier: user said hi.",
			"Likes sushi\nHas two sisters",
			"Hello",
			"Hi there!",
			"How are you?",
			"<tool>...</tool>",
			"Tool 'long_division' result:\nok",
		}
		if len(messages) != len(wantContents) {
			t.Fatalf("expected %d messages, got %d", len(wantContents), len(messages))
		}
		for i, want := range wantContents {
			if messages[i].Content != want {
				t.Errorf("message %d = %q, want %q", i, messages[i].Content, want)
			}
		}
		if messages[2].Role != types.RoleSystem {
			t.Error("memories should be a system message")
		}
	})

	t.Run("SkipsSystemInHistoryAndEmptyParts", func(t *testing.T) {
		messages := BuildMessages(Turn{
			SystemPrompt: "You are helpful",
			History: []*types.Message{
				types.NewSystemMessage("Old system prompt"),
				types.NewUserMessage("Hello"),
			},
			ErrorContext: "ERROR: retry",
		})

		if len(messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(messages))
		}
		if messages[0].Content != "You are helpful" {
			t.Error("should use new system prompt, not old one from history")
		}
		if messages[2].Content != "ERROR: retry" || messages[2].Role != types.RoleUser {
			t.Error("error context should be the last user message")
		}
	})
}

func TestMemoriesMessage(t *testing.T) {
	if MemoriesMessage(nil) != nil {
		t.Error("no facts should give no message")
	}
	msg := MemoriesMessage([]string{"a", "b"})
	if msg.Metadata[types.MetaMemories] != 2 {
		t.Errorf("memories metadata = %v, want 2", msg.Metadata[types.MetaMemories])
	}
}

func TestBuildErrorRecoveryMessage(t *testing.T) {
	tests := []struct {
		name string
		ctx  ErrorRecoveryContext
		want []string
	}{
		{
			name: "invalid xml",
			ctx:  ErrorRecoveryContext{Type: ErrorTypeInvalidXML, Error: errors.New("unexpected EOF")},
			want: []string{"could not be parsed", "unexpected EOF", "<tool_name>name</tool_name>"},
		},
		{
			name: "unknown tool",
			ctx: ErrorRecoveryContext{
				Type:           ErrorTypeUnknownTool,
				ToolName:       "fly",
				AvailableTools: []tools.Tool{tools.NewConverseTool()},
			},
			want: []string{"'fly' does not exist", "Available tools: converse"},
		},
		{
			name: "tool execution",
			ctx:  ErrorRecoveryContext{Type: ErrorTypeToolExecution, ToolName: "web_search", Error: errors.New("timeout")},
			want: []string{"'web_search' failed: timeout"},
		},
		{
			name: "empty response",
			ctx:  ErrorRecoveryContext{Type: ErrorTypeEmptyResponse},
			want: []string{"response was empty"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildErrorRecoveryMessage(tt.ctx)
			if !strings.HasPrefix(got, "ERROR: ") {
				t.Errorf("message should start with ERROR: got %q", got)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("message %q should contain %q", got, w)
				}
			}
		})
	}
}

func TestSchemaToJSON(t *testing.T) {
	jsonStr, err := SchemaToJSON(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(jsonStr, "object") || !strings.Contains(jsonStr, "name") {
		t.Errorf("unexpected JSON: %s", jsonStr)
	}
}
