package tools

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	maxXMLSize       = 1024 * 1024
	argumentsTagName = "arguments"
)

var (
	// ErrNoToolCall is returned by ParseToolCall when the text holds no <tool> block.
	ErrNoToolCall = errors.New("no tool call found in text")

	// ErrMissingToolName is returned by ParseToolCall when the call has no tool_name.
	ErrMissingToolName = errors.New("tool_name is required in tool call")
)

var toolRegex = regexp.MustCompile(`(?s)<tool>.*?</tool>`)

// ampersandEntityRegex matches ampersands that already start an XML entity.
var ampersandEntityRegex = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);`)

// ParseToolCall extracts the first tool call from a model response. It
// returns the call and the response text with the call removed.
func ParseToolCall(text string) (*ToolCall, string, error) {
	if len(text) > maxXMLSize {
		return nil, text, fmt.Errorf("tool call XML exceeds maximum size of %d bytes", maxXMLSize)
	}

	loc := toolRegex.FindStringIndex(text)
	if loc == nil {
		return nil, text, ErrNoToolCall
	}
	toolXML := strings.TrimSpace(text[loc[0]:loc[1]])

	var call ToolCall
	if err := UnmarshalXMLWithFallback([]byte(toolXML), &call); err != nil {
		snippet := toolXML
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		return nil, text, fmt.Errorf("failed to unmarshal tool call XML: %w\nXML snippet: %s", err, snippet)
	}
	call.ToolName = strings.TrimSpace(call.ToolName)
	if call.ToolName == "" {
		return nil, text, ErrMissingToolName
	}

	remaining := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	return &call, remaining, nil
}

// HasToolCall checks if the text contains a tool call.
func HasToolCall(text string) bool {
	return toolRegex.MatchString(text)
}

// UnmarshalXMLWithFallback unmarshals XML, retrying once with bare
// ampersands escaped. Models often forget to escape them.
func UnmarshalXMLWithFallback(data []byte, v interface{}) error {
	err := xml.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	return xml.Unmarshal(escapeUnescapedAmpersands(data), v)
}

// escapeUnescapedAmpersands replaces bare & with &amp; and leaves existing
// entities alone.
func escapeUnescapedAmpersands(data []byte) []byte {
	text := string(data)

	entityStarts := make(map[int]bool)
	for _, m := range ampersandEntityRegex.FindAllStringIndex(text, -1) {
		entityStarts[m[0]] = true
	}

	var sb strings.Builder
	sb.Grow(len(text) + 20)
	for i := 0; i < len(text); i++ {
		if text[i] == '&' && !entityStarts[i] {
			sb.WriteString("&amp;")
		} else {
			sb.WriteByte(text[i])
		}
	}
	return []byte(sb.String())
}

// XMLToMap flattens the direct children of an <arguments> element into a
// map of trimmed text values. It is used for tool call events.
func XMLToMap(data []byte) (map[string]interface{}, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	result := make(map[string]interface{})

	var path []string
	var text strings.Builder

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			text.Reset()

		case xml.EndElement:
			if len(path) == 0 {
				continue
			}
			name := path[len(path)-1]
			path = path[:len(path)-1]
			if len(path) == 1 && path[0] == argumentsTagName {
				if v := strings.TrimSpace(text.String()); v != "" {
					result[name] = v
				}
			}
			text.Reset()

		case xml.CharData:
			text.Write(t)
		}
	}

	return result, nil
}
