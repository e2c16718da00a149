package prompts

import (
	"fmt"
	"strings"

	"github.com/entrhq/recall/pkg/agent/tools"
)

// ErrorType classifies a recoverable failure inside the tool loop.
type ErrorType int

const (
	ErrorTypeInvalidXML ErrorType = iota
	ErrorTypeMissingToolName
	ErrorTypeUnknownTool
	ErrorTypeToolExecution
	ErrorTypeEmptyResponse
)

// ErrorRecoveryContext describes a failure to explain back to the model.
type ErrorRecoveryContext struct {
	Error          error
	ToolName       string
	AvailableTools []tools.Tool
	Type           ErrorType
}

// BuildErrorRecoveryMessage tells the model what went wrong so it can retry.
func BuildErrorRecoveryMessage(ctx ErrorRecoveryContext) string {
	var b strings.Builder
	b.WriteString("ERROR: ")

	switch ctx.Type {
	case ErrorTypeInvalidXML:
		b.WriteString("Your tool call could not be parsed as XML.")
		if ctx.Error != nil {
			fmt.Fprintf(&b, "\nDetails: %v", ctx.Error)
		}
		b.WriteString("\n\nUse this format and escape &, < and > in argument values:\n")
		b.WriteString("<tool>\n<tool_name>name</tool_name>\n<arguments>\n  <param>value</param>\n</arguments>\n</tool>")
	case ErrorTypeMissingToolName:
		b.WriteString("Your tool call is missing <tool_name>. Every call needs the name of a listed tool.")
	case ErrorTypeUnknownTool:
		fmt.Fprintf(&b, "Tool '%s' does not exist.", ctx.ToolName)
		if len(ctx.AvailableTools) > 0 {
			names := make([]string, len(ctx.AvailableTools))
			for i, t := range ctx.AvailableTools {
				names[i] = t.Name()
			}
			fmt.Fprintf(&b, "\nAvailable tools: %s", strings.Join(names, ", "))
		}
	case ErrorTypeToolExecution:
		fmt.Fprintf(&b, "Tool '%s' failed", ctx.ToolName)
		if ctx.Error != nil {
			fmt.Fprintf(&b, ": %v", ctx.Error)
		}
		b.WriteString("\nCheck the arguments and try again, or answer the user without this tool.")
	case ErrorTypeEmptyResponse:
		b.WriteString("Your response was empty. Reply to the user in plain text or call one of the listed tools.")
	}
	return b.String()
}
