// Copyright (c) Microsoft. All rights reserved.

package workflow

import (
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

// DefaultMaxSupersteps bounds runs that do not set [WithMaxSupersteps].
const DefaultMaxSupersteps = 100

const tracerName = "github.com/jochenvw/agent-framework-workflows/workflow"

// RunOption configures a single [Graph.Run] or [Graph.RunStream] call.
type RunOption func(*runConfig)

type runConfig struct {
	maxSupersteps  int
	maxConcurrency int
	logger         *slog.Logger
	tracer         trace.Tracer
	runID          string
	sessions       SessionFunc
}

// WithMaxSupersteps caps how many hops a message may travel from the start
// executor. Cyclic graphs rely on it to terminate; exceeding it fails the
// run with [ErrMaxSupersteps].
func WithMaxSupersteps(n int) RunOption {
	return func(c *runConfig) { c.maxSupersteps = n }
}

// WithMaxConcurrency bounds how many handlers run at once. Zero means
// unbounded.
func WithMaxConcurrency(n int) RunOption {
	return func(c *runConfig) { c.maxConcurrency = n }
}

// WithRunLogger overrides the graph's logger for one run.
func WithRunLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// WithTracer sets the tracer for run, superstep and executor spans.
func WithTracer(t trace.Tracer) RunOption {
	return func(c *runConfig) { c.tracer = t }
}

// WithRunID sets the run id instead of generating one.
func WithRunID(id string) RunOption {
	return func(c *runConfig) { c.runID = id }
}

// SessionFunc picks the session an agent executor runs in. Returning nil
// runs the agent without memory.
type SessionFunc func(executorID string) *af.Session

// WithAgentSessions gives agent executors memory across runs: each agent
// call sees the history of the session sessions returns for its executor.
func WithAgentSessions(sessions SessionFunc) RunOption {
	return func(c *runConfig) { c.sessions = sessions }
}

func (g *Graph) runConfig(opts []RunOption) *runConfig {
	cfg := &runConfig{maxSupersteps: DefaultMaxSupersteps, logger: g.logger}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.maxSupersteps <= 0 {
		cfg.maxSupersteps = DefaultMaxSupersteps
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}
	return cfg
}
