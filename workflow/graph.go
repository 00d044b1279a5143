// Copyright (c) Microsoft. All rights reserved.

package workflow

import (
	"log/slog"
	"slices"
)

// Graph is a validated, immutable workflow. It holds no run state and may
// be run any number of times, concurrently.
type Graph struct {
	name        string
	description string
	start       string
	logger      *slog.Logger

	executors map[string]Executor
	order     []string
	edges     []Edge
	outgoing  map[string][]Edge
	fanIns    []FanIn
	joinIndex map[string]int

	// reach[a] holds every executor reachable from a, including a.
	reach map[string]map[string]struct{}
}

func newGraph(b *Builder) *Graph {
	g := &Graph{
		name:        b.name,
		description: b.description,
		start:       b.start,
		logger:      b.logger,
		executors:   make(map[string]Executor, len(b.executors)),
		order:       slices.Clone(b.order),
		edges:       slices.Clone(b.edges),
		outgoing:    make(map[string][]Edge),
		joinIndex:   make(map[string]int, len(b.fanIns)),
	}
	for id, e := range b.executors {
		g.executors[id] = e
	}
	for _, e := range g.edges {
		g.outgoing[e.Source] = append(g.outgoing[e.Source], e)
	}
	for i, f := range b.fanIns {
		g.fanIns = append(g.fanIns, FanIn{Target: f.Target, Sources: slices.Clone(f.Sources)})
		g.joinIndex[f.Target] = i
	}
	g.reach = make(map[string]map[string]struct{}, len(g.order))
	for _, id := range g.order {
		g.reach[id] = g.closure(id)
	}
	return g
}

// closure walks edges from id ignoring predicates.
func (g *Graph) closure(id string) map[string]struct{} {
	seen := map[string]struct{}{id: {}}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.outgoing[cur] {
			if _, ok := seen[e.Target]; !ok {
				seen[e.Target] = struct{}{}
				queue = append(queue, e.Target)
			}
		}
	}
	return seen
}

// Name returns the workflow name.
func (g *Graph) Name() string { return g.name }

// Description returns the workflow description.
func (g *Graph) Description() string { return g.description }

// StartExecutorID returns the id of the start executor.
func (g *Graph) StartExecutorID() string { return g.start }

// Executors returns the executors in declaration order.
func (g *Graph) Executors() []Executor {
	out := make([]Executor, len(g.order))
	for i, id := range g.order {
		out[i] = g.executors[id]
	}
	return out
}

// Executor looks up an executor by id.
func (g *Graph) Executor(id string) (Executor, bool) {
	e, ok := g.executors[id]
	return e, ok
}

// Edges returns a copy of the edges in declaration order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// FanIns returns the joins in declaration order.
func (g *Graph) FanIns() []FanIn {
	out := make([]FanIn, len(g.fanIns))
	for i, f := range g.fanIns {
		out[i] = FanIn{Target: f.Target, Sources: slices.Clone(f.Sources)}
	}
	return out
}

// IsTerminal reports whether id has no outgoing edges.
func (g *Graph) IsTerminal(id string) bool { return len(g.outgoing[id]) == 0 }

// IsJoin reports whether id is a fan-in target.
func (g *Graph) IsJoin(id string) bool {
	_, ok := g.joinIndex[id]
	return ok
}

func (g *Graph) reachable(from, to string) bool {
	_, ok := g.reach[from][to]
	return ok
}
