package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

// MCPInvokerOptions configures an MCPInvoker.
type MCPInvokerOptions struct {
	// ClientName identifies this agent to the MCP server.
	ClientName string
	// ClientVersion accompanies ClientName in the MCP handshake.
	ClientVersion string
	// Logger receives invocation diagnostics.
	Logger logging.Logger
}

// MCPInvoker is a core.Invoker that proxies capability calls to an MCP
// server. The tool list is cached locally after the handshake and can be
// refreshed with Refresh. Safe for concurrent use.
type MCPInvoker struct {
	client *client.Client
	logger logging.Logger

	mu    sync.RWMutex
	tools map[string]mcp.Tool
}

// NewStdioMCPInvoker spawns an MCP server subprocess and connects over stdio.
func NewStdioMCPInvoker(ctx context.Context, command string, env []string, args []string, optFns ...func(o *MCPInvokerOptions)) (*MCPInvoker, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("creating MCP client: %w", err)
	}
	return NewMCPInvoker(ctx, c, optFns...)
}

// NewMCPInvoker initializes the MCP session on an existing client and caches
// the advertised tool list.
func NewMCPInvoker(ctx context.Context, c *client.Client, optFns ...func(o *MCPInvokerOptions)) (*MCPInvoker, error) {
	opts := MCPInvokerOptions{ClientName: "agentlink", ClientVersion: "1.0.0"}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting MCP client: %w", err)
	}

	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo:      mcp.Implementation{Name: opts.ClientName, Version: opts.ClientVersion},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing MCP session: %w", err)
	}

	inv := &MCPInvoker{
		client: c,
		logger: logging.Ensure(opts.Logger),
		tools:  make(map[string]mcp.Tool),
	}

	if err := inv.Refresh(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}

	return inv, nil
}

// Close shuts down the MCP connection.
func (inv *MCPInvoker) Close() error { return inv.client.Close() }

// Refresh re-fetches the advertised tool list from the server.
func (inv *MCPInvoker) Refresh(ctx context.Context) error {
	result, err := inv.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.tools = make(map[string]mcp.Tool, len(result.Tools))
	for _, t := range result.Tools {
		inv.tools[t.Name] = t
	}
	return nil
}

// Names returns the cached capability names.
func (inv *MCPInvoker) Names() []string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	names := make([]string, 0, len(inv.tools))
	for name := range inv.tools {
		names = append(names, name)
	}
	return names
}

// Invoke implements core.Invoker. Unknown names yield KindCapabilityNotFound
// without a server round trip; transport faults map to KindNetwork; a tool
// level error result surfaces as a plain error carrying the server's text.
func (inv *MCPInvoker) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	inv.mu.RLock()
	_, known := inv.tools[name]
	inv.mu.RUnlock()

	if !known {
		return "", core.NewError(core.KindCapabilityNotFound, "no MCP tool advertised under %q", name)
	}

	result, err := inv.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		return "", core.WrapError(core.KindNetwork, err, "MCP call to %s failed", name)
	}

	text := renderMCPResult(result)
	if result.IsError {
		inv.logger.Warn("capability.mcp.tool_error", "capability", name, "error", text)
		return "", fmt.Errorf("%s", text)
	}

	inv.logger.Debug("capability.mcp.ok", "capability", name)
	return text, nil
}

// renderMCPResult concatenates the textual content of an MCP result,
// JSON-serializing non-text blocks and any structured payload.
func renderMCPResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	var parts []string
	for _, c := range result.Content {
		switch content := c.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		default:
			if raw, err := json.Marshal(content); err == nil {
				parts = append(parts, string(raw))
			}
		}
	}

	if result.StructuredContent != nil {
		if raw, err := json.Marshal(result.StructuredContent); err == nil {
			parts = append(parts, string(raw))
		}
	}

	return strings.Join(parts, "\n")
}

var _ core.Invoker = (*MCPInvoker)(nil)
