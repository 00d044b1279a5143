// Copyright (c) Microsoft. All rights reserved.

package expression

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expr evaluates expr-lang expressions. Keys of the env map are top-level
// variables; unknown names evaluate to nil.
//
//	upper(input.name) + "!"
type Expr struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExpr creates an expr engine.
func NewExpr() *Expr {
	return &Expr{cache: make(map[string]*vm.Program)}
}

// Compile checks that expression parses.
func (e *Expr) Compile(expression string) error {
	_, err := e.program(expression)
	return err
}

// Evaluate runs expression against env.
func (e *Expr) Evaluate(ctx context.Context, expression string, env map[string]any) (any, error) {
	prg, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	if env == nil {
		env = map[string]any{}
	}
	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrEvaluate, expression, err)
	}
	return out, nil
}

func (e *Expr) program(expression string) (*vm.Program, error) {
	if expression == "" {
		return nil, ErrEmpty
	}
	e.mu.RLock()
	prg, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrCompile, expression, err)
	}
	e.cache[expression] = prg
	return prg, nil
}
