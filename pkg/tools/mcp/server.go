package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	protocol "github.com/mark3labs/mcp-go/mcp"

	"github.com/entrhq/recall/pkg/agent/tools"
	"github.com/entrhq/recall/pkg/logging"
)

var mcpLog *logging.Logger

func init() {
	var err error
	mcpLog, err = logging.NewLogger("mcp")
	if err != nil {
		mcpLog.Warnf("Failed to initialize mcp logger, using stderr fallback: %v", err)
	}
}

const (
	clientName    = "recall"
	clientVersion = "1.0.0"
)

// Client is the part of an MCP client session the adapter uses.
type Client interface {
	ListTools(ctx context.Context, request protocol.ListToolsRequest) (*protocol.ListToolsResult, error)
	CallTool(ctx context.Context, request protocol.CallToolRequest) (*protocol.CallToolResult, error)
	Close() error
}

// Server is a connected MCP server and the tools it offers.
type Server struct {
	name   string
	client Client
	tools  []*Tool
}

// Connect starts the server described by commandLine over stdio, performs the
// MCP handshake and lists its tools.
func Connect(ctx context.Context, name, commandLine string, env []string) (*Server, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("mcp server %s: empty command", name)
	}

	c, err := mcpclient.NewStdioMCPClient(fields[0], env, fields[1:]...)
	if err != nil {
		return nil, fmt.Errorf("mcp server %s: failed to start: %w", name, err)
	}

	req := protocol.InitializeRequest{}
	req.Params.ProtocolVersion = protocol.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = protocol.Implementation{Name: clientName, Version: clientVersion}
	if _, err := c.Initialize(ctx, req); err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp server %s: initialize failed: %w", name, err)
	}

	server, err := NewServer(ctx, name, c)
	if err != nil {
		c.Close()
		return nil, err
	}
	return server, nil
}

// NewServer wraps an initialized client session and lists its tools.
func NewServer(ctx context.Context, name string, c Client) (*Server, error) {
	result, err := c.ListTools(ctx, protocol.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp server %s: failed to list tools: %w", name, err)
	}

	s := &Server{name: name, client: c}
	for _, def := range result.Tools {
		s.tools = append(s.tools, newTool(name, def, c))
	}
	mcpLog.Infof("Connected to mcp server %s with %d tools", name, len(s.tools))
	return s, nil
}

// Name returns the configured server name.
func (s *Server) Name() string {
	return s.name
}

// Tools returns the server's tools as agent tools.
func (s *Server) Tools() []tools.Tool {
	out := make([]tools.Tool, len(s.tools))
	for i, t := range s.tools {
		out[i] = t
	}
	return out
}

// Close ends the session and stops the server process.
func (s *Server) Close() error {
	return s.client.Close()
}
