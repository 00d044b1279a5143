// Copyright (c) Microsoft. All rights reserved.

package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/workflow"
)

// scriptedClient replies with fixed text and records what it was sent.
type scriptedClient struct {
	reply string
	err   error

	mu    sync.Mutex
	seen  [][]af.Message
	forms []*af.ResponseFormat
}

func (c *scriptedClient) Response(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	c.mu.Lock()
	c.seen = append(c.seen, msgs)
	if opts != nil {
		c.forms = append(c.forms, opts.ResponseFormat)
	}
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return &af.ChatResponse{
		Messages: []af.Message{af.NewAssistantMessage(c.reply)},
		Usage:    af.UsageDetails{InputTokens: 3, OutputTokens: 2, TotalTokens: 5},
	}, nil
}

func (c *scriptedClient) StreamResponse(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	return nil, errors.New("streaming not scripted")
}

func agentNamed(name string, client af.ChatClient) *af.Agent {
	return af.NewAgent(client, af.WithName(name))
}

func TestAgentExecutor_ConversationFlowsDownstream(t *testing.T) {
	writerClient := &scriptedClient{reply: "Go fast, stay simple."}
	reviewerClient := &scriptedClient{reply: "Approved."}

	b := workflow.NewBuilder()
	require.NoError(t, b.AddExecutor(workflow.NewAgentExecutor("writer", agentNamed("writer", writerClient))))
	require.NoError(t, b.AddExecutor(workflow.NewAgentExecutor("reviewer", agentNamed("reviewer", reviewerClient))))
	require.NoError(t, b.AddEdge("writer", "reviewer"))
	require.NoError(t, b.SetStartExecutor("writer"))
	g, err := b.Build()
	require.NoError(t, err)

	res, err := g.Run(context.Background(), "Write a slogan for Go.")
	require.NoError(t, err)

	assert.Equal(t, []any{"Approved."}, res.Outputs())

	require.Len(t, reviewerClient.seen, 1)
	conv := reviewerClient.seen[0]
	require.Len(t, conv, 2)
	assert.Equal(t, af.RoleUser, conv[0].Role)
	assert.Equal(t, "Write a slogan for Go.", conv[0].Text())
	assert.Equal(t, af.RoleAssistant, conv[1].Role)
	assert.Equal(t, "Go fast, stay simple.", conv[1].Text())

	runs := res.AgentRuns()
	require.Len(t, runs, 2)
	assert.Equal(t, "writer", runs[0].ExecutorID)
	assert.Equal(t, "writer", runs[0].Response.AgentName)
	assert.Equal(t, "reviewer", runs[1].ExecutorID)
	assert.Equal(t, 5, runs[1].Response.Usage.TotalTokens)
	assert.Equal(t, af.UsageDetails{InputTokens: 6, OutputTokens: 4, TotalTokens: 10}, res.Usage())
}

func TestAgentExecutor_JoinSharesThePrompt(t *testing.T) {
	judgeClient := &scriptedClient{reply: "Both have a point."}

	b := workflow.NewBuilder()
	require.NoError(t, b.AddExecutor(workflow.NewFunc("ask", func(ctx context.Context, s string, wc *workflow.Context) error {
		return wc.SendMessage(s)
	})))
	require.NoError(t, b.AddExecutor(workflow.NewAgentExecutor("optimist", agentNamed("optimist", &scriptedClient{reply: "Yes."}))))
	require.NoError(t, b.AddExecutor(workflow.NewAgentExecutor("skeptic", agentNamed("skeptic", &scriptedClient{reply: "No."}))))
	require.NoError(t, b.AddExecutor(workflow.NewAgentExecutor("judge", agentNamed("judge", judgeClient))))
	require.NoError(t, b.AddFanOutEdges("ask", "optimist", "skeptic"))
	require.NoError(t, b.AddFanInEdges([]string{"optimist", "skeptic"}, "judge"))
	require.NoError(t, b.SetStartExecutor("ask"))
	g, err := b.Build()
	require.NoError(t, err)

	res, err := g.Run(context.Background(), "Is Go simple?")
	require.NoError(t, err)
	assert.Equal(t, []any{"Both have a point."}, res.Outputs())

	require.Len(t, judgeClient.seen, 1)
	var texts []string
	for _, m := range judgeClient.seen[0] {
		texts = append(texts, m.Text())
	}
	assert.Equal(t, []string{"Is Go simple?", "Yes.", "No."}, texts)
}

func TestAgentExecutor_ClientErrorFailsRun(t *testing.T) {
	client := &scriptedClient{err: af.ErrAuth}

	b := workflow.NewBuilder()
	require.NoError(t, b.AddExecutor(workflow.NewAgentExecutor("writer", agentNamed("writer", client))))
	require.NoError(t, b.SetStartExecutor("writer"))
	g, err := b.Build()
	require.NoError(t, err)

	res, err := g.Run(context.Background(), "hi")
	require.ErrorIs(t, err, af.ErrAuth)
	assert.ErrorIs(t, err, af.ErrExecution)
	assert.Equal(t, workflow.StateFailed, res.FinalState())
}

func TestAgentExecutor_SessionsCarryHistoryAcrossRuns(t *testing.T) {
	writerClient := &scriptedClient{reply: "draft"}
	reviewerClient := &scriptedClient{reply: "ok"}

	b := workflow.NewBuilder()
	require.NoError(t, b.AddExecutor(workflow.NewAgentExecutor("writer", agentNamed("writer", writerClient))))
	require.NoError(t, b.AddExecutor(workflow.NewAgentExecutor("reviewer", agentNamed("reviewer", reviewerClient))))
	require.NoError(t, b.AddEdge("writer", "reviewer"))
	require.NoError(t, b.SetStartExecutor("writer"))
	g, err := b.Build()
	require.NoError(t, err)

	sessions := map[string]*af.Session{"writer": af.NewSession()}
	opt := workflow.WithAgentSessions(func(id string) *af.Session { return sessions[id] })

	for _, prompt := range []string{"first", "second"} {
		_, err := g.Run(context.Background(), prompt, opt)
		require.NoError(t, err)
	}

	require.Len(t, writerClient.seen, 2)
	second := writerClient.seen[1]
	require.Len(t, second, 3, "history of the first turn precedes the new prompt")
	assert.Equal(t, "first", second[0].Text())
	assert.Equal(t, "draft", second[1].Text())
	assert.Equal(t, "second", second[2].Text())

	// The reviewer has no session, so it only sees the current conversation.
	require.Len(t, reviewerClient.seen, 2)
	assert.Len(t, reviewerClient.seen[1], 2)

	history, err := sessions["writer"].History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestAgentExecutor_RejectsUnknownInput(t *testing.T) {
	b := workflow.NewBuilder()
	require.NoError(t, b.AddExecutor(workflow.NewAgentExecutor("writer", agentNamed("writer", &scriptedClient{}))))
	require.NoError(t, b.SetStartExecutor("writer"))
	g, err := b.Build()
	require.NoError(t, err)

	_, err = g.Run(context.Background(), 42)
	assert.ErrorIs(t, err, workflow.ErrUnexpectedInput)
}

type review struct {
	Score int    `json:"score" jsonschema:"required"`
	Notes string `json:"notes"`
}

func structuredGraph(t *testing.T, reply string) (*workflow.Graph, *scriptedClient) {
	t.Helper()
	client := &scriptedClient{reply: reply}

	b := workflow.NewBuilder()
	require.NoError(t, b.AddExecutor(workflow.NewStructuredAgentExecutor[review]("grader", agentNamed("grader", client))))
	require.NoError(t, b.AddExecutor(workflow.NewFunc("accept", func(ctx context.Context, r review, wc *workflow.Context) error {
		return wc.YieldOutput("accepted")
	})))
	require.NoError(t, b.AddExecutor(workflow.NewFunc("revise", func(ctx context.Context, r review, wc *workflow.Context) error {
		return wc.YieldOutput("revise")
	})))
	require.NoError(t, b.AddExecutor(workflow.NewFunc("retry", func(ctx context.Context, f workflow.ParseFailure, wc *workflow.Context) error {
		return wc.YieldOutput("retry: " + f.Raw)
	})))
	passing := workflow.When(func(r review) bool { return r.Score >= 80 })
	require.NoError(t, b.AddEdge("grader", "accept", workflow.WithCondition(passing)))
	require.NoError(t, b.AddEdge("grader", "revise", workflow.WithCondition(workflow.When(func(r review) bool { return r.Score < 80 }))))
	require.NoError(t, b.AddEdge("grader", "retry", workflow.WithCondition(workflow.ParseFailed())))
	require.NoError(t, b.SetStartExecutor("grader"))
	g, err := b.Build()
	require.NoError(t, err)
	return g, client
}

func TestStructuredAgentExecutor_Routes(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"passing", `{"score": 91, "notes": "tight"}`, "accepted"},
		{"failing", `{"score": 40, "notes": "vague"}`, "revise"},
		{"fenced", "```json\n{\"score\": 80, \"notes\": \"ok\"}\n```", "accepted"},
		{"not json", "I think it is great", "retry: I think it is great"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, client := structuredGraph(t, tt.reply)

			res, err := g.Run(context.Background(), "grade this")
			require.NoError(t, err)
			assert.Equal(t, []any{tt.want}, res.Outputs())

			require.Len(t, client.forms, 1)
			require.NotNil(t, client.forms[0])
			assert.Equal(t, "grader", client.forms[0].Name)
		})
	}
}

func TestStructuredAgentExecutor_TerminalParseErrorFails(t *testing.T) {
	client := &scriptedClient{reply: "no json here"}

	b := workflow.NewBuilder()
	require.NoError(t, b.AddExecutor(workflow.NewStructuredAgentExecutor[review]("grader", agentNamed("grader", client))))
	require.NoError(t, b.SetStartExecutor("grader"))
	g, err := b.Build()
	require.NoError(t, err)

	res, err := g.Run(context.Background(), "grade this")

	var perr *af.StructuredOutputParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "no json here", perr.Raw)
	assert.ErrorIs(t, err, af.ErrStructuredOutput)
	assert.Equal(t, workflow.StateFailed, res.FinalState())
}

func TestStructuredAgentExecutor_TerminalYieldsValue(t *testing.T) {
	client := &scriptedClient{reply: `{"score": 77, "notes": "fine"}`}

	b := workflow.NewBuilder()
	require.NoError(t, b.AddExecutor(workflow.NewStructuredAgentExecutor[review]("grader", agentNamed("grader", client))))
	require.NoError(t, b.SetStartExecutor("grader"))
	g, err := b.Build()
	require.NoError(t, err)

	res, err := g.Run(context.Background(), "grade this")
	require.NoError(t, err)
	assert.Equal(t, []any{review{Score: 77, Notes: "fine"}}, res.Outputs())
}
