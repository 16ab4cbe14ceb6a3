// Package mcpserver bridges the tool registry onto an MCP stdio
// server. No business logic lives here, only wiring.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hippocampai/memgate/internal/health"
	"github.com/hippocampai/memgate/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Options configures the MCP surface. ConfigSummary is exposed via the
// memory://config resource; callers keep secrets out of it.
type Options struct {
	Name          string
	DefaultUserID string
	HealthProbes  []health.Probe
	ConfigSummary map[string]any
}

// New creates the MCP server with every registered tool exposed and a
// memory://health resource backed by the dependency probes.
func New(reg *tools.Registry, opts Options) *server.MCPServer {
	name := opts.Name
	if name == "" {
		name = "memgate"
	}

	s := server.NewMCPServer(
		name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
	)

	for _, t := range reg.List() {
		s.AddTool(toolDefinition(t), toolHandler(reg, t.Name(), opts.DefaultUserID))
	}

	s.AddResource(mcp.NewResource(
		"memory://health",
		"health",
		mcp.WithResourceDescription("Dependency health report"),
		mcp.WithMIMEType("application/json"),
	), healthHandler(opts.HealthProbes))

	s.AddResource(mcp.NewResource(
		"memory://config",
		"config",
		mcp.WithResourceDescription("Active server configuration"),
		mcp.WithMIMEType("application/json"),
	), configHandler(opts.ConfigSummary))

	return s
}

// ServeStdio runs the server over stdin/stdout until the client
// disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func toolDefinition(t tools.Tool) mcp.Tool {
	raw, _ := json.Marshal(t.Parameters())
	return mcp.NewToolWithRawSchema(t.Name(), t.Description(), raw)
}

func toolHandler(reg *tools.Registry, name, defaultUserID string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		userID := defaultUserID
		if v, ok := args["user_id"].(string); ok && v != "" {
			userID = v
		}

		res := reg.Execute(ctx, name, args, userID)
		if res.IsError {
			return mcp.NewToolResultError(res.Payload), nil
		}
		return mcp.NewToolResultText(res.Payload), nil
	}
}

func configHandler(summary map[string]any) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if summary == nil {
			summary = map[string]any{}
		}
		data, err := json.Marshal(summary)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}

func healthHandler(probes []health.Probe) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		report := health.Run(ctx, probes)
		data, err := json.Marshal(report)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
