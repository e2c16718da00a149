package mcp

import (
	"context"
	"errors"
	"testing"

	protocol "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	tools  []protocol.Tool
	result *protocol.CallToolResult
	err    error
	calls  []protocol.CallToolRequest
	closed bool
}

func (f *fakeClient) ListTools(context.Context, protocol.ListToolsRequest) (*protocol.ListToolsResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &protocol.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeClient) CallTool(_ context.Context, req protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func thinkingTool() protocol.Tool {
	return protocol.Tool{
		Name:        "sequentialthinking",
		Description: "Think step by step.",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"thought":           map[string]interface{}{"type": "string"},
				"nextThoughtNeeded": map[string]interface{}{"type": "boolean"},
				"thoughtNumber":     map[string]interface{}{"type": "integer"},
				"totalThoughts":     map[string]interface{}{"type": "integer"},
				"confidence":        map[string]interface{}{"type": "number"},
				"tags": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"thought", "nextThoughtNeeded", "thoughtNumber", "totalThoughts"},
		},
	}
}

func textResult(text string, isError bool) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.Content{protocol.TextContent{Type: "text", Text: text}},
		IsError: isError,
	}
}

func TestNewServer_WrapsTools(t *testing.T) {
	client := &fakeClient{tools: []protocol.Tool{thinkingTool(), {Name: "bare"}}}
	server, err := NewServer(context.Background(), "sequential_thinking", client)
	require.NoError(t, err)
	assert.Equal(t, "sequential_thinking", server.Name())

	list := server.Tools()
	require.Len(t, list, 2)
	assert.Equal(t, "sequentialthinking", list[0].Name())
	assert.Equal(t, "Think step by step.", list[0].Description())
	assert.False(t, list[0].IsLoopBreaking())

	schema := list[0].Schema()
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["properties"], "thought")
	assert.Equal(t, []string{"thought", "nextThoughtNeeded", "thoughtNumber", "totalThoughts"}, schema["required"])

	assert.Contains(t, list[1].Description(), "sequential_thinking MCP server")
	assert.NotContains(t, list[1].Schema(), "required")

	require.NoError(t, server.Close())
	assert.True(t, client.closed)
}

func TestNewServer_ListError(t *testing.T) {
	_, err := NewServer(context.Background(), "broken", &fakeClient{err: errors.New("pipe closed")})
	assert.ErrorContains(t, err, "mcp server broken: failed to list tools: pipe closed")
}

func TestTool_ExecuteTypesArguments(t *testing.T) {
	client := &fakeClient{
		tools:  []protocol.Tool{thinkingTool()},
		result: textResult(`{"thoughtNumber": 1, "nextThoughtNeeded": true}`, false),
	}
	server, err := NewServer(context.Background(), "sequential_thinking", client)
	require.NoError(t, err)
	tool := server.Tools()[0]

	out, meta, err := tool.Execute(context.Background(), []byte(`<arguments>
  <thought>Split the trip budget & book flights first</thought>
  <nextThoughtNeeded>true</nextThoughtNeeded>
  <thoughtNumber>1</thoughtNumber>
  <totalThoughts>3</totalThoughts>
  <confidence>0.75</confidence>
  <tags>
    <tag>travel</tag>
    <tag>budget</tag>
  </tags>
  <extra>kept as text</extra>
</arguments>`))
	require.NoError(t, err)
	assert.Contains(t, out, `"thoughtNumber": 1`)
	assert.Equal(t, "sequential_thinking", meta["server"])

	require.Len(t, client.calls, 1)
	assert.Equal(t, "sequentialthinking", client.calls[0].Params.Name)
	args, ok := client.calls[0].Params.Arguments.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Split the trip budget & book flights first", args["thought"])
	assert.Equal(t, true, args["nextThoughtNeeded"])
	assert.Equal(t, int64(1), args["thoughtNumber"])
	assert.Equal(t, int64(3), args["totalThoughts"])
	assert.Equal(t, 0.75, args["confidence"])
	assert.Equal(t, []interface{}{"travel", "budget"}, args["tags"])
	assert.Equal(t, "kept as text", args["extra"])
}

func TestTool_ExecuteErrors(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeClient
		args    string
		wantErr string
	}{
		{
			name:    "missing required",
			client:  &fakeClient{},
			args:    `<arguments><thought>x</thought></arguments>`,
			wantErr: "nextThoughtNeeded is required",
		},
		{
			name:    "bad integer",
			client:  &fakeClient{},
			args:    `<arguments><thought>x</thought><nextThoughtNeeded>true</nextThoughtNeeded><thoughtNumber>one</thoughtNumber><totalThoughts>2</totalThoughts></arguments>`,
			wantErr: "invalid parameters: thoughtNumber",
		},
		{
			name:    "call fails",
			client:  &fakeClient{err: errors.New("server exited")},
			args:    `<arguments><thought>x</thought><nextThoughtNeeded>false</nextThoughtNeeded><thoughtNumber>1</thoughtNumber><totalThoughts>1</totalThoughts></arguments>`,
			wantErr: "mcp call sequentialthinking failed: server exited",
		},
		{
			name:    "tool error",
			client:  &fakeClient{result: textResult("thoughtNumber out of range", true)},
			args:    `<arguments><thought>x</thought><nextThoughtNeeded>false</nextThoughtNeeded><thoughtNumber>9</thoughtNumber><totalThoughts>1</totalThoughts></arguments>`,
			wantErr: "reported an error: thoughtNumber out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := newTool("sequential_thinking", thinkingTool(), tt.client)
			_, _, err := tool.Execute(context.Background(), []byte(tt.args))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDecodeArguments_InlineJSON(t *testing.T) {
	props := map[string]interface{}{
		"ids":    map[string]interface{}{"type": "array"},
		"filter": map[string]interface{}{"type": "object"},
		"empty":  map[string]interface{}{"type": "array"},
	}
	args, err := decodeArguments([]byte(`<arguments><ids>[1, 2]</ids><filter>{"city": "Lisbon"}</filter><empty></empty></arguments>`), props)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0, 2.0}, args["ids"])
	assert.Equal(t, map[string]interface{}{"city": "Lisbon"}, args["filter"])
	assert.Equal(t, []interface{}{}, args["empty"])
}

func TestResultText_SkipsNonText(t *testing.T) {
	result := &protocol.CallToolResult{Content: []protocol.Content{
		protocol.TextContent{Type: "text", Text: "first"},
		protocol.ImageContent{Type: "image", Data: "aGk=", MIMEType: "image/png"},
		protocol.TextContent{Type: "text", Text: "second"},
	}}
	out := resultText(result)
	assert.Contains(t, out, "first\n")
	assert.Contains(t, out, "content omitted]\nsecond")
}

func TestConnect_EmptyCommand(t *testing.T) {
	_, err := Connect(context.Background(), "blank", "   ", nil)
	assert.ErrorContains(t, err, "empty command")
}
