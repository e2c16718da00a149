package agent

import (
	"github.com/entrhq/recall/pkg/agent/prompts"
)

// buildSystemPrompt constructs the system prompt with tool schemas and custom instructions
func (a *ChatAgent) buildSystemPrompt() string {
	builder := prompts.NewPromptBuilder().
		WithTools(a.getToolsList())

	if a.customInstructions != "" {
		builder.WithCustomInstructions(a.customInstructions)
	}

	return builder.Build()
}
