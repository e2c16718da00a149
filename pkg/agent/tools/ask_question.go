package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
)

// AskQuestionToolName is the name of the clarification tool.
const AskQuestionToolName = "ask_question"

// AskQuestionTool asks the user a clarifying question and ends the turn so
// the answer arrives as the next message.
type AskQuestionTool struct{}

// NewAskQuestionTool creates a new ask question tool
func NewAskQuestionTool() *AskQuestionTool {
	return &AskQuestionTool{}
}

func (t *AskQuestionTool) Name() string {
	return AskQuestionToolName
}

func (t *AskQuestionTool) Description() string {
	return "Ask the user a clarifying question when the request is ambiguous or is missing information you need. " +
		"The question should be clear and specific."
}

func (t *AskQuestionTool) Schema() map[string]interface{} {
	return BaseToolSchema(
		map[string]interface{}{
			"question": map[string]interface{}{
				"type":        "string",
				"description": "A clear, specific question for the user.",
			},
			"suggestions": map[string]interface{}{
				"type":        "array",
				"description": "Optional list of 2-4 suggested answers.",
				"items": map[string]interface{}{
					"type": "string",
				},
				"maxItems": 4,
			},
		},
		[]string{"question"},
	)
}

func (t *AskQuestionTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName     xml.Name `xml:"arguments"`
		Question    string   `xml:"question"`
		Suggestions []string `xml:"suggestions>suggestion"`
	}
	if err := UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return "", nil, fmt.Errorf("invalid arguments for %s: %w", AskQuestionToolName, err)
	}

	question := strings.TrimSpace(args.Question)
	if question == "" {
		return "", nil, fmt.Errorf("question cannot be empty")
	}

	var sb strings.Builder
	sb.WriteString(question)
	if len(args.Suggestions) > 0 {
		sb.WriteString("\n\nSuggested answers:")
		for i, s := range args.Suggestions {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, strings.TrimSpace(s))
		}
	}
	return sb.String(), map[string]interface{}{"suggestions": len(args.Suggestions)}, nil
}

func (t *AskQuestionTool) IsLoopBreaking() bool {
	return true
}
