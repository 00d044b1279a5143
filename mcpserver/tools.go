// Copyright (c) Microsoft. All rights reserved.

package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jochenvw/agent-framework-workflows/workflow"
	"github.com/jochenvw/agent-framework-workflows/workflow/viz"
)

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: listTool(), Handler: s.handleList},
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}

func listTool() mcp.Tool {
	return mcp.NewTool("workflow.list",
		mcp.WithDescription("List the registered workflows"),
	)
}

func runTool() mcp.Tool {
	return mcp.NewTool("workflow.run",
		mcp.WithDescription("Run a workflow to completion and return its outputs"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the workflow to run")),
		mcp.WithString("input", mcp.Description("Text input for the start executor")),
		mcp.WithString("input_json", mcp.Description("JSON input for the start executor; takes the place of input")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("workflow.diagram",
		mcp.WithDescription("Draw a workflow as a Mermaid flowchart, Graphviz DOT or SVG"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the workflow to draw")),
		mcp.WithString("format",
			mcp.Enum("mermaid", "dot", "svg"),
			mcp.Description("Output format (default: mermaid)"),
		),
	)
}

// WorkflowInfo is one entry of the workflow.list result.
type WorkflowInfo struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	StartExecutorID string   `json:"start_executor_id"`
	Executors       []string `json:"executors"`
}

// RunResult is the workflow.run result.
type RunResult struct {
	RunID   string            `json:"run_id"`
	State   workflow.RunState `json:"state"`
	Outputs []any             `json:"outputs"`
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.RLock()
	out := make([]WorkflowInfo, 0, len(s.order))
	for _, name := range s.order {
		g := s.graphs[name].graph
		info := WorkflowInfo{Name: name, Description: g.Description(), StartExecutorID: g.StartExecutorID()}
		for _, e := range g.Executors() {
			info.Executors = append(info.Executors, e.ID)
		}
		out = append(out, info)
	}
	s.mu.RUnlock()
	return marshalResult(out)
}

func (s *Server) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	e, ok := s.lookup(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("workflow %q not found", name)), nil
	}

	var input any = req.GetString("input", "")
	if raw := req.GetString("input_json", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("input_json is not valid JSON: %v", err)), nil
		}
	}

	runID := uuid.NewString()
	opts := append([]workflow.RunOption{workflow.WithRunLogger(s.logger)}, e.opts...)
	opts = append(opts, workflow.WithRunID(runID))
	s.logger.InfoContext(ctx, "mcp workflow run", "workflow", name, "run_id", runID)

	res, err := e.graph.Run(ctx, input, opts...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("workflow %q run %s %s: %v", name, runID, res.FinalState(), err)), nil
	}

	out := RunResult{RunID: runID, State: res.FinalState(), Outputs: res.Outputs()}
	if out.Outputs == nil {
		out.Outputs = []any{}
	}
	return marshalResult(out)
}

func (s *Server) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	e, ok := s.lookup(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("workflow %q not found", name)), nil
	}

	v := viz.New(e.graph)
	switch format := req.GetString("format", "mermaid"); format {
	case "mermaid":
		return mcp.NewToolResultText(v.Mermaid()), nil
	case "dot", "svg":
		var buf bytes.Buffer
		if err := v.Render(ctx, viz.Format(format), &buf); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	default:
		return mcp.NewToolResultError("format must be mermaid, dot, or svg"), nil
	}
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
