// Copyright (c) Microsoft. All rights reserved.

package workflow

import (
	"fmt"
	"log/slog"
)

// Builder assembles a [Graph]. Reference errors surface from the method
// that introduces them; structural problems surface from [Builder.Build].
//
//	b := workflow.NewBuilder(workflow.WithName("text-pipeline"))
//	_ = b.AddExecutor(upper)
//	_ = b.AddExecutor(reverse)
//	_ = b.AddEdge("upper", "reverse")
//	_ = b.SetStartExecutor("upper")
//	g, err := b.Build()
type Builder struct {
	name        string
	description string
	logger      *slog.Logger

	executors map[string]Executor
	order     []string
	edges     []Edge
	fanIns    []FanIn
	start     string
}

// BuilderOption configures a [Builder].
type BuilderOption func(*Builder)

// WithName sets the workflow name.
func WithName(name string) BuilderOption {
	return func(b *Builder) { b.name = name }
}

// WithDescription sets the workflow description.
func WithDescription(desc string) BuilderOption {
	return func(b *Builder) { b.description = desc }
}

// WithLogger sets the logger used by the builder and, by default, by runs
// of the built graph.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{executors: make(map[string]Executor)}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// AddExecutor declares e. Ids must be unique and non-empty.
func (b *Builder) AddExecutor(e Executor) error {
	if e.ID == "" {
		return &ValidationError{Problems: []string{"executor id is empty"}}
	}
	if e.Handler == nil {
		return &ValidationError{Problems: []string{fmt.Sprintf("executor %q has no handler", e.ID)}}
	}
	if _, ok := b.executors[e.ID]; ok {
		return &DuplicateIDError{ID: e.ID}
	}
	b.executors[e.ID] = e
	b.order = append(b.order, e.ID)
	return nil
}

// AddEdge connects src to dst. dst must not be a fan-in target; [Builder.Build]
// rejects edges that would bypass a join.
func (b *Builder) AddEdge(src, dst string, opts ...EdgeOption) error {
	if err := b.known(src, "edge source"); err != nil {
		return err
	}
	if err := b.known(dst, "edge target"); err != nil {
		return err
	}
	e := Edge{Source: src, Target: dst, Kind: EdgeDirect}
	for _, opt := range opts {
		opt(&e)
	}
	b.edges = append(b.edges, e)
	return nil
}

// AddFanOutEdges connects src to every target unconditionally. The targets
// are dispatched together and run concurrently.
func (b *Builder) AddFanOutEdges(src string, targets ...string) error {
	if err := b.known(src, "fan-out source"); err != nil {
		return err
	}
	for _, t := range targets {
		if err := b.known(t, "fan-out target"); err != nil {
			return err
		}
	}
	for _, t := range targets {
		b.edges = append(b.edges, Edge{Source: src, Target: t, Kind: EdgeFanOut})
	}
	return nil
}

// AddFanInEdges makes target a join over sources. The target fires once per
// round with a [TypeJoin] message holding one entry per delivered message,
// ordered by the position of its source in sources.
func (b *Builder) AddFanInEdges(sources []string, target string) error {
	if err := b.known(target, "fan-in target"); err != nil {
		return err
	}
	for _, s := range sources {
		if err := b.known(s, "fan-in source"); err != nil {
			return err
		}
	}
	for _, f := range b.fanIns {
		if f.Target == target {
			return &ValidationError{Problems: []string{fmt.Sprintf("%q is already a fan-in target", target)}}
		}
	}
	b.fanIns = append(b.fanIns, FanIn{Target: target, Sources: append([]string(nil), sources...)})
	for _, s := range sources {
		b.edges = append(b.edges, Edge{Source: s, Target: target, Kind: EdgeFanIn})
	}
	return nil
}

// SetStartExecutor sets the executor that receives the run input.
func (b *Builder) SetStartExecutor(id string) error {
	if err := b.known(id, "start"); err != nil {
		return err
	}
	b.start = id
	return nil
}

// Build validates the declaration and returns an immutable [Graph].
func (b *Builder) Build() (*Graph, error) {
	var problems []string
	if b.start == "" {
		problems = append(problems, "start executor is not set")
	}
	for _, e := range b.edges {
		if _, ok := b.executors[e.Source]; !ok {
			problems = append(problems, fmt.Sprintf("edge source %q is not declared", e.Source))
		}
		if _, ok := b.executors[e.Target]; !ok {
			problems = append(problems, fmt.Sprintf("edge target %q is not declared", e.Target))
		}
	}
	joins := make(map[string]bool, len(b.fanIns))
	for _, f := range b.fanIns {
		joins[f.Target] = true
	}
	for _, e := range b.edges {
		if e.Kind != EdgeFanIn && joins[e.Target] {
			problems = append(problems, fmt.Sprintf("edge %s -> %s bypasses the fan-in of %q", e.Source, e.Target, e.Target))
		}
	}
	for _, f := range b.fanIns {
		if len(f.Sources) == 0 {
			problems = append(problems, fmt.Sprintf("fan-in %q has no sources", f.Target))
		}
		seen := make(map[string]bool, len(f.Sources))
		for _, s := range f.Sources {
			if seen[s] {
				problems = append(problems, fmt.Sprintf("fan-in %q lists source %q twice", f.Target, s))
			}
			seen[s] = true
		}
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	g := newGraph(b)
	for _, id := range b.order {
		if _, ok := g.reach[b.start][id]; !ok && id != b.start {
			b.logger.Warn("executor unreachable from start", "workflow", b.name, "executor_id", id)
		}
	}
	return g, nil
}

func (b *Builder) known(id, ref string) error {
	if _, ok := b.executors[id]; !ok {
		return &UnknownExecutorError{ID: id, Ref: ref}
	}
	return nil
}
