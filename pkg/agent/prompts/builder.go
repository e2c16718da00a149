package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/recall/pkg/agent/tools"
	"github.com/entrhq/recall/pkg/types"
)

// DateLayout formats the date shown in the system prompt.
const DateLayout = "Monday, January 2, 2006"

// PromptBuilder constructs the system prompt for a turn.
type PromptBuilder struct {
	now                time.Time
	customInstructions string
	tools              []tools.Tool
}

// NewPromptBuilder creates a builder dated today.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		now:   time.Now(),
		tools: []tools.Tool{},
	}
}

// WithTools sets the tools described in the prompt.
func (pb *PromptBuilder) WithTools(toolsList []tools.Tool) *PromptBuilder {
	pb.tools = toolsList
	return pb
}

// WithCustomInstructions adds user-provided instructions.
func (pb *PromptBuilder) WithCustomInstructions(instructions string) *PromptBuilder {
	pb.customInstructions = instructions
	return pb
}

// WithDate overrides the date shown in the prompt.
func (pb *PromptBuilder) WithDate(t time.Time) *PromptBuilder {
	pb.now = t
	return pb
}

// Build assembles the system prompt.
func (pb *PromptBuilder) Build() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf(IdentityPrompt, pb.now.Format(DateLayout)))
	builder.WriteString("\n\n")

	if pb.customInstructions != "" {
		builder.WriteString("<custom_instructions>\n")
		builder.WriteString(pb.customInstructions)
		builder.WriteString("\n</custom_instructions>\n\n")
	}

	builder.WriteString(ConversationPrompt)
	builder.WriteString("\n\n")

	builder.WriteString(ToolCallingPrompt)
	builder.WriteString("\n\n")

	builder.WriteString("<available_tools>\n")
	builder.WriteString(FormatToolSchemas(pb.tools))
	builder.WriteString("</available_tools>\n\n")

	builder.WriteString(ToolUseRulesPrompt)

	return builder.String()
}

// FormatToolSchema describes one tool with its parameters and an example call.
func FormatToolSchema(tool tools.Tool) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("## %s\n", tool.Name()))
	builder.WriteString(tool.Description())
	builder.WriteString("\n")
	if tool.IsLoopBreaking() {
		builder.WriteString("(loop-breaking: ends the turn)\n")
	}

	schema := tool.Schema()
	if params, err := SchemaToJSON(schema); err == nil {
		builder.WriteString("Parameters:\n")
		builder.WriteString(params)
		builder.WriteString("\n")
	}

	builder.WriteString("Example:\n")
	if p, ok := tool.(XMLExampleProvider); ok {
		builder.WriteString(p.XMLExample())
	} else {
		builder.WriteString(GenerateXMLExample(schema, tool.Name()))
	}
	builder.WriteString("\n")

	return builder.String()
}

// FormatToolSchemas describes every tool.
func FormatToolSchemas(toolsList []tools.Tool) string {
	if len(toolsList) == 0 {
		return "No tools available.\n"
	}

	var builder strings.Builder
	builder.WriteString("# AVAILABLE TOOLS\n\n")
	for _, tool := range toolsList {
		builder.WriteString(FormatToolSchema(tool))
		builder.WriteString("\n")
	}
	return builder.String()
}

// SchemaToJSON renders a tool schema as indented JSON.
func SchemaToJSON(schema map[string]interface{}) (string, error) {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}
	return string(data), nil
}

// Turn holds everything that goes into one model request.
type Turn struct {
	SystemPrompt string

	// Summary stands in for history evicted from the window. May be nil.
	Summary *types.Message

	// Memories carries the facts retrieved for this turn. May be nil.
	Memories *types.Message

	// History is the recent window of the conversation.
	History []*types.Message

	// Input is the user's message, with any attachments rendered in.
	Input string

	// Scratchpad holds this turn's tool calls and results. It is never
	// stored in history.
	Scratchpad []*types.Message

	// ErrorContext is an ephemeral recovery hint for the next request.
	ErrorContext string
}

// BuildMessages orders a turn as system prompt, summary, memories, recent
// history, the user input, then the turn's scratchpad.
func BuildMessages(turn Turn) []*types.Message {
	messages := make([]*types.Message, 0, len(turn.History)+len(turn.Scratchpad)+5)

	messages = append(messages, types.NewSystemMessage(turn.SystemPrompt))
	if turn.Summary != nil {
		messages = append(messages, turn.Summary)
	}
	if turn.Memories != nil {
		messages = append(messages, turn.Memories)
	}

	for _, msg := range turn.History {
		if msg.Role != types.RoleSystem {
			messages = append(messages, msg)
		}
	}

	if turn.Input != "" {
		messages = append(messages, types.NewUserMessage(turn.Input))
	}
	messages = append(messages, turn.Scratchpad...)

	if turn.ErrorContext != "" {
		messages = append(messages, types.NewUserMessage(turn.ErrorContext))
	}
	return messages
}

// MemoriesMessage renders retrieved facts as a system message, one per line.
// It returns nil when there is nothing to show.
func MemoriesMessage(facts []string) *types.Message {
	if len(facts) == 0 {
		return nil
	}
	return types.NewSystemMessage(strings.Join(facts, "\n")).
		WithMetadata(types.MetaMemories, len(facts))
}

// ToolResultMessage formats a tool result for the scratchpad.
func ToolResultMessage(toolName, result string) *types.Message {
	return types.NewUserMessage(fmt.Sprintf("Tool '%s' result:\n%s", toolName, result))
}
