// Copyright (c) Microsoft. All rights reserved.

package devui

import (
	"net/http"

	"github.com/jochenvw/agent-framework-workflows/workflow"
)

// EntityType tells workflows and agents apart in listings.
type EntityType string

const (
	TypeWorkflow EntityType = "workflow"
	TypeAgent    EntityType = "agent"
)

// Entity is the listing form of a registered workflow or agent.
type Entity struct {
	ID              string     `json:"id"`
	Type            EntityType `json:"type"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Instructions    string     `json:"instructions,omitempty"`
	StartExecutorID string     `json:"start_executor_id"`
	Executors       []string   `json:"executors"`
}

// EntityDetail adds the graph's edges to an [Entity].
type EntityDetail struct {
	Entity
	Edges []EdgeInfo `json:"edges"`
}

// EdgeInfo describes one edge. A join appears as one fan-in edge per source.
type EdgeInfo struct {
	Kind        workflow.EdgeKind `json:"kind"`
	Source      string            `json:"source"`
	Target      string            `json:"target"`
	Label       string            `json:"label,omitempty"`
	Conditional bool              `json:"conditional,omitempty"`
}

type entity struct {
	info  Entity
	graph *workflow.Graph
	opts  []workflow.RunOption
}

func (e *entity) detail() EntityDetail {
	d := EntityDetail{Entity: e.info, Edges: []EdgeInfo{}}
	for _, edge := range e.graph.Edges() {
		d.Edges = append(d.Edges, EdgeInfo{
			Kind:        edge.Kind,
			Source:      edge.Source,
			Target:      edge.Target,
			Label:       edge.Label,
			Conditional: edge.Conditional(),
		})
	}
	return d
}

// entity resolves the {id} path value or writes a 404 problem.
func (s *Server) entity(w http.ResponseWriter, r *http.Request) (*entity, bool) {
	id := r.PathValue("id")
	e, ok := s.lookup(id)
	if !ok {
		writeNotFound(w, r, s.logger, "entity "+id+" not found")
	}
	return e, ok
}
