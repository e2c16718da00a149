package mcp

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	protocol "github.com/mark3labs/mcp-go/mcp"

	"github.com/entrhq/recall/pkg/agent/tools"
)

// Tool calls one tool of an MCP server.
type Tool struct {
	server string
	def    protocol.Tool
	client Client
}

func newTool(server string, def protocol.Tool, c Client) *Tool {
	return &Tool{server: server, def: def, client: c}
}

func (t *Tool) Name() string {
	return t.def.Name
}

func (t *Tool) Description() string {
	if t.def.Description == "" {
		return fmt.Sprintf("Tool %s provided by the %s MCP server.", t.def.Name, t.server)
	}
	return t.def.Description
}

func (t *Tool) Schema() map[string]interface{} {
	props := t.def.InputSchema.Properties
	if props == nil {
		props = map[string]interface{}{}
	}
	return tools.BaseToolSchema(props, t.def.InputSchema.Required)
}

func (t *Tool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	args, err := decodeArguments(argsXML, t.def.InputSchema.Properties)
	if err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	for _, name := range t.def.InputSchema.Required {
		if _, ok := args[name]; !ok {
			return "", nil, fmt.Errorf("%s is required", name)
		}
	}

	req := protocol.CallToolRequest{}
	req.Params.Name = t.def.Name
	req.Params.Arguments = args

	mcpLog.Debugf("Calling %s on mcp server %s", t.def.Name, t.server)
	result, err := t.client.CallTool(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("mcp call %s failed: %w", t.def.Name, err)
	}

	text := resultText(result)
	if result.IsError {
		return "", nil, fmt.Errorf("mcp tool %s reported an error: %s", t.def.Name, text)
	}
	return text, map[string]interface{}{"server": t.server}, nil
}

func (t *Tool) IsLoopBreaking() bool {
	return false
}

// resultText joins the text parts of a result. Other content kinds are
// noted by type only.
func resultText(result *protocol.CallToolResult) string {
	parts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		switch v := c.(type) {
		case protocol.TextContent:
			parts = append(parts, v.Text)
		case *protocol.TextContent:
			parts = append(parts, v.Text)
		default:
			parts = append(parts, fmt.Sprintf("[%T content omitted]", c))
		}
	}
	return strings.Join(parts, "\n")
}

// element is a generic XML element of a tool call's arguments.
type element struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []element `xml:",any"`
}

// decodeArguments turns the <arguments> block into a JSON object, typing
// each value by its property schema. Properties the schema does not know
// are passed as strings.
func decodeArguments(argsXML []byte, props map[string]interface{}) (map[string]interface{}, error) {
	var root element
	if err := tools.UnmarshalXMLWithFallback(argsXML, &root); err != nil {
		return nil, err
	}

	args := make(map[string]interface{}, len(root.Children))
	for _, child := range root.Children {
		name := child.XMLName.Local
		prop, _ := props[name].(map[string]interface{}) //nolint:errcheck
		v, err := convert(child, prop)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		args[name] = v
	}
	return args, nil
}

func convert(e element, prop map[string]interface{}) (interface{}, error) {
	text := strings.TrimSpace(e.Text)
	propType, _ := prop["type"].(string) //nolint:errcheck

	switch propType {
	case "integer":
		return strconv.ParseInt(text, 10, 64)
	case "number":
		return strconv.ParseFloat(text, 64)
	case "boolean":
		return strconv.ParseBool(text)
	case "array":
		if len(e.Children) == 0 {
			return decodeJSON(text, []interface{}{})
		}
		items, _ := prop["items"].(map[string]interface{}) //nolint:errcheck
		out := make([]interface{}, 0, len(e.Children))
		for _, child := range e.Children {
			v, err := convert(child, items)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case "object":
		if len(e.Children) == 0 {
			return decodeJSON(text, map[string]interface{}{})
		}
		nested, _ := prop["properties"].(map[string]interface{}) //nolint:errcheck
		out := make(map[string]interface{}, len(e.Children))
		for _, child := range e.Children {
			childProp, _ := nested[child.XMLName.Local].(map[string]interface{}) //nolint:errcheck
			v, err := convert(child, childProp)
			if err != nil {
				return nil, err
			}
			out[child.XMLName.Local] = v
		}
		return out, nil
	default:
		return text, nil
	}
}

// decodeJSON reads an array or object written inline as JSON. An empty
// element yields empty.
func decodeJSON(text string, empty interface{}) (interface{}, error) {
	if text == "" {
		return empty, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("expected JSON or child elements: %w", err)
	}
	return v, nil
}
