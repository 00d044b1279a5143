// Copyright (c) Microsoft. All rights reserved.

package definition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jochenvw/agent-framework-workflows/workflow"
	"github.com/jochenvw/agent-framework-workflows/workflow/expression"
)

// Env supplies what a definition cannot carry as data.
type Env struct {
	// Agents resolves the agent named by an agent executor.
	Agents map[string]workflow.AgentRunner

	// Logger receives build warnings and failing edge conditions.
	// Nil means slog.Default().
	Logger *slog.Logger
}

// Build compiles every expression and returns the graph. Compile errors,
// unknown agents and dangling references are reported here rather than
// during a run.
func (d *Definition) Build(env Env) (*workflow.Graph, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cel, err := expression.NewCEL(expression.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	c := &compiler{env: env, expr: expression.NewExpr(), jq: expression.NewJQ()}

	b := workflow.NewBuilder(
		workflow.WithName(d.Name),
		workflow.WithDescription(d.Description),
		workflow.WithLogger(logger),
	)
	for _, ed := range d.Executors {
		ex, err := c.executor(ed)
		if err != nil {
			return nil, fmt.Errorf("executor %q: %w", ed.ID, err)
		}
		if err := b.AddExecutor(ex); err != nil {
			return nil, err
		}
	}

	for _, e := range d.Edges {
		var opts []workflow.EdgeOption
		if e.When != "" {
			p, err := cel.Predicate(e.When)
			if err != nil {
				return nil, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
			}
			opts = append(opts, workflow.WithCondition(p))
		}
		label := e.Label
		if label == "" {
			label = e.When
		}
		if label != "" {
			opts = append(opts, workflow.WithLabel(label))
		}
		if err := b.AddEdge(e.From, e.To, opts...); err != nil {
			return nil, err
		}
	}
	for _, f := range d.FanOut {
		if err := b.AddFanOutEdges(f.From, f.To...); err != nil {
			return nil, err
		}
	}
	for _, f := range d.FanIn {
		if err := b.AddFanInEdges(f.From, f.To); err != nil {
			return nil, err
		}
	}
	if err := b.SetStartExecutor(d.Start); err != nil {
		return nil, err
	}
	return b.Build()
}

type compiler struct {
	env  Env
	expr *expression.Expr
	jq   *expression.JQ
}

func (c *compiler) executor(ed ExecutorDef) (workflow.Executor, error) {
	switch ed.Kind {
	case KindIdentity:
		return compute(ed.ID, func(ctx context.Context, in workflow.Message) (any, error) {
			return payload(in), nil
		}), nil

	case KindExpr:
		if err := c.expr.Compile(ed.Expr); err != nil {
			return workflow.Executor{}, err
		}
		return compute(ed.ID, func(ctx context.Context, in workflow.Message) (any, error) {
			input, err := expression.Normalize(payload(in))
			if err != nil {
				return nil, err
			}
			return c.expr.Evaluate(ctx, ed.Expr, map[string]any{
				"input":    input,
				"source":   in.Source,
				"msg_type": in.Type,
			})
		}), nil

	case KindJQ:
		if err := c.jq.Compile(ed.Query); err != nil {
			return workflow.Executor{}, err
		}
		return compute(ed.ID, func(ctx context.Context, in workflow.Message) (any, error) {
			return c.jq.Evaluate(ctx, ed.Query, payload(in))
		}), nil

	case KindAgent:
		agent, ok := c.env.Agents[ed.Agent]
		if !ok || agent == nil {
			return workflow.Executor{}, fmt.Errorf("%w: %q", ErrUnknownAgent, ed.Agent)
		}
		return workflow.NewAgentExecutor(ed.ID, agent), nil
	}
	return workflow.Executor{}, fmt.Errorf("%w: unknown kind %q", ErrInvalid, ed.Kind)
}

// compute wraps fn as an executor that yields when terminal and sends
// otherwise.
func compute(id string, fn func(ctx context.Context, in workflow.Message) (any, error)) workflow.Executor {
	return workflow.NewExecutor(id, workflow.HandlerFunc(func(ctx context.Context, in workflow.Message, wc *workflow.Context) error {
		out, err := fn(ctx, in)
		if err != nil {
			return err
		}
		if wc.IsTerminal() {
			return wc.YieldOutput(out)
		}
		return wc.SendMessage(out)
	}))
}

// payload returns the message data, or the list of joined payloads for a
// fan-in delivery.
func payload(in workflow.Message) any {
	if in.Type != workflow.TypeJoin {
		return in.Data
	}
	batch := in.Batch()
	items := make([]any, len(batch))
	for i, m := range batch {
		items[i] = m.Data
	}
	return items
}
