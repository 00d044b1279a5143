// Copyright (c) Microsoft. All rights reserved.

// Package mcpserver exposes workflows as Model Context Protocol tools so
// MCP clients can list, run and draw them.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jochenvw/agent-framework-workflows/workflow"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

// ErrWorkflow is returned when a workflow cannot be registered.
var ErrWorkflow = errors.New("mcpserver: invalid workflow")

// Server wraps an MCP server whose tools operate on registered workflows.
type Server struct {
	logger *slog.Logger
	mcp    *server.MCPServer

	mu     sync.RWMutex
	graphs map[string]*entry
	order  []string
}

type entry struct {
	graph *workflow.Graph
	opts  []workflow.RunOption
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger for tool calls and runs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New returns a server with the workflow tools registered and no workflows.
func New(opts ...Option) *Server {
	s := &Server{
		logger: slog.Default(),
		graphs: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"agent-framework-workflows",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Use workflow.list to discover workflows, workflow.run to execute one with an input, and workflow.diagram to see its graph."),
	)
	s.mcp.AddTools(s.tools()...)
	return s
}

// AddWorkflow registers g under its name. opts apply to every run of g.
func (s *Server) AddWorkflow(g *workflow.Graph, opts ...workflow.RunOption) error {
	if g == nil || g.Name() == "" {
		return fmt.Errorf("%w: workflow must be named", ErrWorkflow)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.graphs[g.Name()]; ok {
		return fmt.Errorf("%w: %q is already registered", ErrWorkflow, g.Name())
	}
	s.graphs[g.Name()] = &entry{graph: g, opts: opts}
	s.order = append(s.order, g.Name())
	return nil
}

func (s *Server) lookup(name string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.graphs[name]
	return e, ok
}

// Serve runs the stdio transport until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server for custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}
