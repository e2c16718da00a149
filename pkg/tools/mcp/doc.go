// Package mcp exposes the tools of Model Context Protocol servers to the chat
// agent.
//
// Each configured server is started as a child process speaking MCP over
// stdio. Its tools are listed once at connect time and wrapped so the model
// calls them with the same XML block as the built-in tools; arguments are
// converted to the JSON types the server's input schema declares.
//
// Servers are configured in the tools section of config.json:
//
//	"mcp_servers": {
//	  "sequential_thinking": "npx -y @modelcontextprotocol/server-sequential-thinking"
//	}
package mcp
