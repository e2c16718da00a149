package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
)

// ConverseToolName is the name of the final-reply tool.
const ConverseToolName = "converse"

// ConverseTool delivers the assistant's reply to the user and ends the turn.
type ConverseTool struct{}

// NewConverseTool creates a new converse tool
func NewConverseTool() *ConverseTool {
	return &ConverseTool{}
}

func (t *ConverseTool) Name() string {
	return ConverseToolName
}

func (t *ConverseTool) Description() string {
	return "Reply to the user. Use this once you have everything you need to answer, " +
		"including after other tools have returned their results. The message is shown to the user as your answer."
}

func (t *ConverseTool) Schema() map[string]interface{} {
	return BaseToolSchema(
		map[string]interface{}{
			"message": map[string]interface{}{
				"type":        "string",
				"description": "The reply to show the user. Markdown is allowed.",
			},
		},
		[]string{"message"},
	)
}

func (t *ConverseTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName xml.Name `xml:"arguments"`
		Message string   `xml:"message"`
	}
	if err := UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return "", nil, fmt.Errorf("invalid arguments for %s: %w", ConverseToolName, err)
	}

	msg := strings.TrimSpace(args.Message)
	if msg == "" {
		return "", nil, fmt.Errorf("message cannot be empty")
	}
	return msg, nil, nil
}

func (t *ConverseTool) IsLoopBreaking() bool {
	return true
}
