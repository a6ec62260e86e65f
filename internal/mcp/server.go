// Package mcp serves a harness run to an agent over the Model Context
// Protocol. Only agent-facing tools are exposed; the ethics report is not.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danielpatrickdp/ethics-harness/internal/runner"
)

// Server wraps the MCP SDK server around one Runner.
type Server struct {
	server *sdk.Server
	runner runner.Runner
}

// Config holds server configuration.
type Config struct {
	Name    string
	Version string
}

// NewServer creates a server with the harness tools registered.
func NewServer(cfg *Config, r runner.Runner) (*Server, error) {
	if r == nil {
		return nil, fmt.Errorf("mcp: nil runner")
	}
	s := &Server{
		server: sdk.NewServer(&sdk.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		runner: r,
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until the client disconnects, ctx is cancelled or
// the process is interrupted.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.server.Run(ctx, &sdk.StdioTransport{})
}
