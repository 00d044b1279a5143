// Copyright (c) Microsoft. All rights reserved.

package devui_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/devui"
	"github.com/jochenvw/agent-framework-workflows/workflow"
)

type cannedClient struct{ reply string }

func (c cannedClient) Response(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	return &af.ChatResponse{Messages: []af.Message{af.NewAssistantMessage(c.reply)}}, nil
}

func (c cannedClient) StreamResponse(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	return nil, errors.New("not supported")
}

func textGraph(t *testing.T) *workflow.Graph {
	t.Helper()
	b := workflow.NewBuilder(workflow.WithName("text"), workflow.WithDescription("upper then reverse"))
	require.NoError(t, b.AddExecutor(workflow.NewFunc("upper", func(ctx context.Context, s string, wc *workflow.Context) error {
		return wc.SendMessage(strings.ToUpper(s))
	})))
	require.NoError(t, b.AddExecutor(workflow.NewFunc("reverse", func(ctx context.Context, s string, wc *workflow.Context) error {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return wc.YieldOutput(string(r))
	})))
	require.NoError(t, b.AddEdge("upper", "reverse", workflow.WithLabel("shout")))
	require.NoError(t, b.SetStartExecutor("upper"))
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func failingGraph(t *testing.T) *workflow.Graph {
	t.Helper()
	b := workflow.NewBuilder(workflow.WithName("broken"))
	require.NoError(t, b.AddExecutor(workflow.NewFunc("bad", func(ctx context.Context, s string, wc *workflow.Context) error {
		return errors.New("boom")
	})))
	require.NoError(t, b.SetStartExecutor("bad"))
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := devui.New(devui.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, srv.AddWorkflow(textGraph(t)))
	require.NoError(t, srv.AddWorkflow(failingGraph(t)))
	require.NoError(t, srv.AddAgent(af.NewAgent(cannedClient{reply: "Hi there."},
		af.WithName("greeter"),
		af.WithDescription("says hello"),
		af.WithInstructions("Be brief."),
	)))

	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		require.NoError(t, srv.Close())
	})
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

type sseEvent struct {
	name string
	data string
}

// readSSE reads events until one named last arrives.
func readSSE(t *testing.T, r *bufio.Reader, last string) []sseEvent {
	t.Helper()
	var out []sseEvent
	var cur sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "" && cur.name != "":
			out = append(out, cur)
			if cur.name == last {
				return out
			}
			cur = sseEvent{}
		}
	}
}

func names(events []sseEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.name
	}
	return out
}

func TestHealth(t *testing.T) {
	ts := newServer(t)

	resp := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp.Body))
}

func TestEntities_List(t *testing.T) {
	ts := newServer(t)

	resp := get(t, ts.URL+"/v1/entities")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct{ Entities []devui.Entity }](t, resp.Body)

	require.Len(t, body.Entities, 3)
	assert.Equal(t, "text", body.Entities[0].ID)
	assert.Equal(t, devui.TypeWorkflow, body.Entities[0].Type)
	assert.Equal(t, "upper", body.Entities[0].StartExecutorID)
	assert.Equal(t, []string{"upper", "reverse"}, body.Entities[0].Executors)

	agent := body.Entities[2]
	assert.Equal(t, "greeter", agent.ID)
	assert.Equal(t, devui.TypeAgent, agent.Type)
	assert.Equal(t, "says hello", agent.Description)
	assert.Equal(t, "Be brief.", agent.Instructions)
}

func TestEntities_Get(t *testing.T) {
	ts := newServer(t)

	resp := get(t, ts.URL+"/v1/entities/text")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode[devui.EntityDetail](t, resp.Body)
	assert.Equal(t, "upper then reverse", d.Description)
	require.Len(t, d.Edges, 1)
	assert.Equal(t, devui.EdgeInfo{Kind: workflow.EdgeDirect, Source: "upper", Target: "reverse", Label: "shout"}, d.Edges[0])
}

func TestEntities_NotFoundIsProblem(t *testing.T) {
	ts := newServer(t)

	resp := get(t, ts.URL+"/v1/entities/ghost")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

	p := decode[map[string]any](t, resp.Body)
	assert.Equal(t, "not_found", p["type"])
	assert.Equal(t, "/v1/entities/ghost", p["instance"])
	assert.Contains(t, p["detail"], "ghost")
}

func TestDiagram(t *testing.T) {
	ts := newServer(t)

	t.Run("mermaid by default", func(t *testing.T) {
		resp := get(t, ts.URL+"/v1/entities/text/diagram")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), "flowchart TD\n"))
		assert.Contains(t, string(b), "upper -->|shout| reverse")
	})

	t.Run("svg", func(t *testing.T) {
		resp := get(t, ts.URL+"/v1/entities/text/diagram?format=svg")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(b), "<svg")
	})

	t.Run("unknown format", func(t *testing.T) {
		resp := get(t, ts.URL+"/v1/entities/text/diagram?format=gif")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRun_Workflow(t *testing.T) {
	ts := newServer(t)

	const runID = "6f1c2f3e-8f7d-4b6a-9a53-3c1e0d7b2a11"
	resp := post(t, ts.URL+"/v1/entities/text/run", `{"input": "hello world", "run_id": "`+runID+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[devui.RunResponse](t, resp.Body)

	assert.Equal(t, runID, out.RunID)
	assert.Equal(t, workflow.StateIdle, out.State)
	assert.Equal(t, []any{"DLROW OLLEH"}, out.Outputs)
	assert.Empty(t, out.Error)
	require.NotEmpty(t, out.Events)
	assert.Equal(t, workflow.KindRunStarted, out.Events[0].Type)
	assert.Equal(t, runID, out.Events[0].RunID)
	assert.Equal(t, workflow.KindRunCompleted, out.Events[len(out.Events)-1].Type)
}

func TestRun_FailureIsReportedInBody(t *testing.T) {
	ts := newServer(t)

	resp := post(t, ts.URL+"/v1/entities/broken/run", `{"input": "x"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[devui.RunResponse](t, resp.Body)

	assert.Equal(t, workflow.StateFailed, out.State)
	assert.Equal(t, []any{}, out.Outputs)
	assert.Contains(t, out.Error, "boom")
}

func TestRun_Agent(t *testing.T) {
	ts := newServer(t)

	resp := post(t, ts.URL+"/v1/entities/greeter/run", `{"input": "hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[devui.RunResponse](t, resp.Body)

	assert.Equal(t, []any{"Hi there."}, out.Outputs)
	var agentRuns int
	for _, ev := range out.Events {
		if ev.Type == workflow.KindAgentRun {
			agentRuns++
			assert.Equal(t, "Hi there.", ev.Text)
		}
	}
	assert.Equal(t, 1, agentRuns)
}

func TestRun_BadRequests(t *testing.T) {
	ts := newServer(t)

	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"not json", `{`, "invalid request body"},
		{"unknown field", `{"inputs": "x"}`, "unknown field"},
		{"bad run id", `{"input": "x", "run_id": "nope"}`, "run_id must be a valid uuid"},
		{"negative supersteps", `{"input": "x", "max_supersteps": -1}`, "max_supersteps must be gte 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/v1/entities/text/run", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

			p := decode[map[string]any](t, resp.Body)
			assert.Equal(t, "validation_error", p["type"])
			assert.Contains(t, p["detail"], tt.detail)
		})
	}
}

func TestStream(t *testing.T) {
	ts := newServer(t)

	resp := post(t, ts.URL+"/v1/entities/text/stream", `{"input": "go"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readSSE(t, bufio.NewReader(resp.Body), string(workflow.KindRunCompleted))
	assert.Equal(t, []string{
		"run_started",
		"superstep_started", "executor_invoked", "executor_completed", "superstep_completed",
		"superstep_started", "executor_invoked", "output", "executor_completed", "superstep_completed",
		"run_completed",
	}, names(events))

	var out workflow.EventJSON
	require.NoError(t, json.Unmarshal([]byte(events[7].data), &out))
	assert.Equal(t, "OG", out.Value)
}

func TestEventFeed(t *testing.T) {
	ts := newServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/events", nil)
	require.NoError(t, err)
	feed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer feed.Body.Close()

	r := bufio.NewReader(feed.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": subscribed\n", line)

	resp := post(t, ts.URL+"/v1/entities/text/run", `{"input": "feed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := readSSE(t, r, string(workflow.KindRunCompleted))
	require.NotEmpty(t, events)
	assert.Equal(t, "run_started", events[0].name)

	var first devui.FeedEvent
	require.NoError(t, json.Unmarshal([]byte(events[0].data), &first))
	assert.Equal(t, "text", first.Entity)
	assert.Equal(t, workflow.KindRunStarted, first.Type)
}

func TestAddEntity_Errors(t *testing.T) {
	srv := devui.New()
	defer srv.Close()

	require.NoError(t, srv.AddWorkflow(textGraph(t)))
	assert.ErrorIs(t, srv.AddWorkflow(textGraph(t)), devui.ErrEntity)

	b := workflow.NewBuilder()
	require.NoError(t, b.AddExecutor(workflow.NewFunc("a", func(context.Context, string, *workflow.Context) error { return nil })))
	require.NoError(t, b.SetStartExecutor("a"))
	unnamed, err := b.Build()
	require.NoError(t, err)
	assert.ErrorIs(t, srv.AddWorkflow(unnamed), devui.ErrEntity)

	assert.ErrorIs(t, srv.AddAgent(af.NewAgent(cannedClient{})), devui.ErrEntity)
}
