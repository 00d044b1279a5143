// Copyright (c) Microsoft. All rights reserved.

package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jochenvw/agent-framework-workflows/workflow"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	s := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	b := workflow.NewBuilder(workflow.WithName("shout"), workflow.WithDescription("upper-cases text"))
	require.NoError(t, b.AddExecutor(workflow.NewFunc("upper", func(ctx context.Context, in string, wc *workflow.Context) error {
		return wc.YieldOutput(strings.ToUpper(in))
	})))
	require.NoError(t, b.SetStartExecutor("upper"))
	g, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, s.AddWorkflow(g))

	b = workflow.NewBuilder(workflow.WithName("count"))
	require.NoError(t, b.AddExecutor(workflow.NewFunc("count", func(ctx context.Context, in map[string]any, wc *workflow.Context) error {
		items, _ := in["items"].([]any)
		return wc.YieldOutput(len(items))
	})))
	require.NoError(t, b.SetStartExecutor("count"))
	g, err = b.Build()
	require.NoError(t, err)
	require.NoError(t, s.AddWorkflow(g))

	b = workflow.NewBuilder(workflow.WithName("broken"))
	require.NoError(t, b.AddExecutor(workflow.NewFunc("bad", func(ctx context.Context, in string, wc *workflow.Context) error {
		return errors.New("boom")
	})))
	require.NoError(t, b.SetStartExecutor("bad"))
	g, err = b.Build()
	require.NoError(t, err)
	require.NoError(t, s.AddWorkflow(g))
	return s
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(extractText(t, result)), target))
}

func TestListTool(t *testing.T) {
	s := testServer(t)

	result, err := s.handleList(context.Background(), buildRequest("workflow.list", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var infos []WorkflowInfo
	unmarshalResult(t, result, &infos)
	require.Len(t, infos, 3)
	assert.Equal(t, WorkflowInfo{
		Name:            "shout",
		Description:     "upper-cases text",
		StartExecutorID: "upper",
		Executors:       []string{"upper"},
	}, infos[0])
	assert.Equal(t, "count", infos[1].Name)
}

func TestRunTool(t *testing.T) {
	s := testServer(t)

	result, err := s.handleRun(context.Background(), buildRequest("workflow.run", map[string]any{
		"name":  "shout",
		"input": "hello",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out RunResult
	unmarshalResult(t, result, &out)
	assert.Equal(t, workflow.StateIdle, out.State)
	assert.Equal(t, []any{"HELLO"}, out.Outputs)
	assert.NotEmpty(t, out.RunID)
}

func TestRunTool_InputJSON(t *testing.T) {
	s := testServer(t)

	result, err := s.handleRun(context.Background(), buildRequest("workflow.run", map[string]any{
		"name":       "count",
		"input_json": `{"items": ["a", "b", "c"]}`,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out RunResult
	unmarshalResult(t, result, &out)
	assert.Equal(t, []any{float64(3)}, out.Outputs)
}

func TestRunTool_Errors(t *testing.T) {
	s := testServer(t)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing name", map[string]any{"input": "x"}, "name is required"},
		{"unknown workflow", map[string]any{"name": "ghost"}, `workflow "ghost" not found`},
		{"bad json", map[string]any{"name": "count", "input_json": "{"}, "input_json is not valid JSON"},
		{"failed run", map[string]any{"name": "broken", "input": "x"}, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleRun(context.Background(), buildRequest("workflow.run", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractText(t, result), tt.want)
		})
	}
}

func TestDiagramTool(t *testing.T) {
	s := testServer(t)

	result, err := s.handleDiagram(context.Background(), buildRequest("workflow.diagram", map[string]any{"name": "shout"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, extractText(t, result), `upper["upper (Start)"]`)

	result, err = s.handleDiagram(context.Background(), buildRequest("workflow.diagram", map[string]any{"name": "shout", "format": "dot"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, extractText(t, result), "digraph")

	result, err = s.handleDiagram(context.Background(), buildRequest("workflow.diagram", map[string]any{"name": "shout", "format": "gif"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAddWorkflow_Duplicate(t *testing.T) {
	s := testServer(t)

	b := workflow.NewBuilder(workflow.WithName("shout"))
	require.NoError(t, b.AddExecutor(workflow.NewFunc("x", func(context.Context, string, *workflow.Context) error { return nil })))
	require.NoError(t, b.SetStartExecutor("x"))
	g, err := b.Build()
	require.NoError(t, err)

	assert.ErrorIs(t, s.AddWorkflow(g), ErrWorkflow)
}

func TestToolsAreRegistered(t *testing.T) {
	s := testServer(t)

	require.Len(t, s.MCPServer().ListTools(), 3)
	for _, name := range []string{"workflow.list", "workflow.run", "workflow.diagram"} {
		assert.NotNil(t, s.MCPServer().GetTool(name), "tool %s should be registered", name)
	}
}
