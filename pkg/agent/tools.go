package agent

import (
	"github.com/entrhq/recall/pkg/agent/tools"
)

// getToolsList returns the tools offered to the model, sorted by name.
func (a *ChatAgent) getToolsList() []tools.Tool {
	return a.tools.List()
}

// getTool retrieves a tool by name (thread-safe)
func (a *ChatAgent) getTool(name string) (tools.Tool, bool) {
	return a.tools.Get(name)
}
