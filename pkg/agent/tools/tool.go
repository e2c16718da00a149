// Package tools defines the XML tool-calling contract between the chat model
// and the agent, plus the built-in loop-breaking tools.
package tools

import (
	"context"
	"encoding/xml"
)

// Tool is a capability the model can invoke during a turn.
//
// The model calls a tool by emitting an XML block:
//
//	<tool>
//	<tool_name>long_division</tool_name>
//	<arguments>
//	  <dividend>17</dividend>
//	  <divisor>5</divisor>
//	</arguments>
//	</tool>
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "long_division")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Schema returns the JSON schema of the tool's arguments.
	Schema() map[string]interface{}

	// Execute runs the tool with the raw <arguments> XML and returns the
	// result text and optional metadata for the tool result event.
	Execute(ctx context.Context, argumentsXML []byte) (string, map[string]interface{}, error)

	// IsLoopBreaking reports whether a successful call ends the turn. The
	// result of a loop-breaking tool is the reply shown to the user.
	IsLoopBreaking() bool
}

// ToolCall is a parsed tool invocation from the model's response.
type ToolCall struct {
	XMLName   xml.Name       `xml:"tool"`
	ToolName  string         `xml:"tool_name"`
	Arguments ArgumentsBlock `xml:"arguments"`
}

// ArgumentsBlock holds the raw XML of the arguments element
type ArgumentsBlock struct {
	InnerXML []byte `xml:",innerxml"`
}

// GetArgumentsXML returns the arguments wrapped in <arguments> tags for unmarshaling.
func (tc *ToolCall) GetArgumentsXML() []byte {
	const prefix = "<arguments>"
	const suffix = "</arguments>"

	result := make([]byte, 0, len(prefix)+len(tc.Arguments.InnerXML)+len(suffix))
	result = append(result, prefix...)
	result = append(result, tc.Arguments.InnerXML...)
	result = append(result, suffix...)
	return result
}

// BaseToolSchema creates a JSON schema object with the given properties and
// required fields.
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
