// Copyright (c) Microsoft. All rights reserved.

package expression_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jochenvw/agent-framework-workflows/workflow"
	"github.com/jochenvw/agent-framework-workflows/workflow/expression"
)

type grade struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

func msg(source string, data any) workflow.Message {
	return workflow.Message{Type: "grade", Data: data, Source: source}
}

func TestNormalize(t *testing.T) {
	out, err := expression.Normalize(grade{Score: 80, Reason: "ok"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"score": float64(80), "reason": "ok"}, out)

	out, err = expression.Normalize("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	_, err = expression.Normalize(make(chan int))
	assert.ErrorIs(t, err, expression.ErrExpression)
}

func TestCEL_Predicate(t *testing.T) {
	c, err := expression.NewCEL()
	require.NoError(t, err)

	tests := []struct {
		name string
		expr string
		m    workflow.Message
		want bool
	}{
		{"field at threshold", "msg.score >= 80", msg("grader", grade{Score: 80}), true},
		{"field below", "msg.score >= 80", msg("grader", grade{Score: 79}), false},
		{"type and source", `msg_type == "grade" && source == "grader"`, msg("grader", grade{}), true},
		{"string payload", `msg.startsWith("urgent")`, workflow.Message{Type: "string", Data: "urgent: fix"}, true},
		{"map payload", `"spam" in msg.labels`, msg("x", map[string]any{"labels": []string{"spam"}}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.Predicate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p(tt.m))
		})
	}
}

func TestCEL_RuntimeErrorIsFalseAndLogged(t *testing.T) {
	var buf bytes.Buffer
	c, err := expression.NewCEL(expression.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, err)

	p, err := c.Predicate("msg.missing > 1")
	require.NoError(t, err)

	assert.False(t, p(msg("grader", grade{Score: 90})))
	assert.Contains(t, buf.String(), "edge condition failed")

	_, err = c.Eval("msg.missing > 1", msg("grader", grade{}))
	assert.ErrorIs(t, err, expression.ErrEvaluate)
}

func TestCEL_CompileErrors(t *testing.T) {
	c, err := expression.NewCEL()
	require.NoError(t, err)

	_, err = c.Predicate("msg.score >=")
	assert.ErrorIs(t, err, expression.ErrCompile)

	_, err = c.Predicate(`"not a bool"`)
	assert.ErrorIs(t, err, expression.ErrCompile)

	_, err = c.Predicate("")
	assert.ErrorIs(t, err, expression.ErrEmpty)
}

func TestCEL_ConcurrentUse(t *testing.T) {
	c, err := expression.NewCEL()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.Eval("msg.score > 10", msg("g", grade{Score: i}))
			assert.NoError(t, err)
			assert.Equal(t, i > 10, ok)
		}()
	}
	wg.Wait()
}

func TestExpr_Evaluate(t *testing.T) {
	e := expression.NewExpr()
	ctx := context.Background()

	out, err := e.Evaluate(ctx, `upper(input) + "!"`, map[string]any{"input": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "HI!", out)

	out, err = e.Evaluate(ctx, `input.score >= 80 ? "pass" : "fail"`, map[string]any{
		"input": map[string]any{"score": 85},
	})
	require.NoError(t, err)
	assert.Equal(t, "pass", out)

	out, err = e.Evaluate(ctx, `missing ?? "default"`, nil)
	require.NoError(t, err)
	assert.Equal(t, "default", out)

	assert.ErrorIs(t, e.Compile("1 +"), expression.ErrCompile)
	_, err = e.Evaluate(ctx, "", nil)
	assert.ErrorIs(t, err, expression.ErrEmpty)
}

func TestJQ_Evaluate(t *testing.T) {
	j := expression.NewJQ()
	ctx := context.Background()

	out, err := j.Evaluate(ctx, ".score", grade{Score: 42})
	require.NoError(t, err)
	assert.Equal(t, float64(42), out)

	out, err = j.Evaluate(ctx, ".[] | .name", []map[string]string{{"name": "a"}, {"name": "b"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out)

	out, err = j.Evaluate(ctx, "empty", nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = j.Evaluate(ctx, `error("bad")`, nil)
	assert.ErrorIs(t, err, expression.ErrEvaluate)

	assert.ErrorIs(t, j.Compile(".["), expression.ErrCompile)

	out, err = j.Evaluate(ctx, `$ENV | length`, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out)
}
