// Copyright (c) Microsoft. All rights reserved.

package expression

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/jochenvw/agent-framework-workflows/workflow"
)

// CEL compiles edge conditions written in the Common Expression Language.
// A condition sees three variables:
//
//	msg       the payload, normalized to JSON values
//	msg_type  the message type
//	source    the id of the sending executor
//
// For example `msg.score >= 80 && source == "grader"`.
type CEL struct {
	env    *cel.Env
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// CELOption configures a [CEL] engine.
type CELOption func(*CEL)

// WithLogger sets the logger used to report conditions that fail at run time.
func WithLogger(l *slog.Logger) CELOption {
	return func(c *CEL) { c.logger = l }
}

// NewCEL creates a CEL engine.
func NewCEL(opts ...CELOption) (*CEL, error) {
	env, err := cel.NewEnv(
		cel.Variable("msg", cel.DynType),
		cel.Variable("msg_type", cel.StringType),
		cel.Variable("source", cel.StringType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create CEL environment: %w", ErrExpression, err)
	}
	c := &CEL{env: env, logger: slog.Default(), cache: make(map[string]cel.Program)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compile checks that expression is a valid boolean condition.
func (c *CEL) Compile(expression string) error {
	_, err := c.program(expression)
	return err
}

// Eval evaluates expression against m.
func (c *CEL) Eval(expression string, m workflow.Message) (bool, error) {
	prg, err := c.program(expression)
	if err != nil {
		return false, err
	}
	data, err := Normalize(m.Data)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		"msg":      data,
		"msg_type": m.Type,
		"source":   m.Source,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrEvaluate, expression, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T, want bool", ErrEvaluate, expression, out.Value())
	}
	return b, nil
}

// Predicate compiles expression once and returns it as an edge condition.
// Evaluation errors, such as a missing field, are logged and count as false.
func (c *CEL) Predicate(expression string) (workflow.Predicate, error) {
	if _, err := c.program(expression); err != nil {
		return nil, err
	}
	return func(m workflow.Message) bool {
		ok, err := c.Eval(expression, m)
		if err != nil {
			c.logger.Warn("edge condition failed", "condition", expression, "source", m.Source, "error", err)
			return false
		}
		return ok
	}, nil
}

func (c *CEL) program(expression string) (cel.Program, error) {
	if expression == "" {
		return nil, ErrEmpty
	}
	c.mu.RLock()
	prg, ok := c.cache[expression]
	c.mu.RUnlock()
	if ok {
		return prg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prg, ok := c.cache[expression]; ok {
		return prg, nil
	}

	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrCompile, expression, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: %q has type %s, want bool", ErrCompile, expression, out)
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrCompile, expression, err)
	}
	c.cache[expression] = prg
	return prg, nil
}
