// Package mcp exposes replay operations as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/dugout/internal/services/replay/app"
)

const (
	serverName    = "dugout-replay"
	serverVersion = "0.1.0"
)

// Server wraps an MCP server whose tools drive the replay orchestrator.
type Server struct {
	orchestrator *app.Orchestrator
	server       *mcp.Server
}

// NewServer builds the MCP server and registers the replay tools.
func NewServer(orchestrator *app.Orchestrator) (*Server, error) {
	if orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	s := &Server{orchestrator: orchestrator, server: server}

	mcp.AddTool(server, initializeTool(), s.initializeHandler())
	mcp.AddTool(server, advanceTool(), s.advanceHandler())
	mcp.AddTool(server, previewTool(), s.previewHandler())
	mcp.AddTool(server, snapshotAtTool(), s.snapshotAtHandler())

	return s, nil
}

// Run serves the MCP protocol over stdio until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	if s == nil || s.server == nil {
		return fmt.Errorf("server is not configured")
	}
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
