// Copyright (c) Microsoft. All rights reserved.

package workflow

import (
	"context"
	"fmt"
)

// Handler processes one message delivered to an executor. Effects go
// through wc: messages sent with [Context.SendMessage] are routed after the
// handler returns.
type Handler interface {
	Handle(ctx context.Context, in Message, wc *Context) error
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(ctx context.Context, in Message, wc *Context) error

func (f HandlerFunc) Handle(ctx context.Context, in Message, wc *Context) error {
	return f(ctx, in, wc)
}

// Executor is a named node in a workflow graph.
type Executor struct {
	ID      string
	Handler Handler
}

// NewExecutor pairs id with h. Struct-based handlers work the same as
// closures:
//
//	type upper struct{}
//	func (upper) Handle(ctx context.Context, in workflow.Message, wc *workflow.Context) error { ... }
//
//	workflow.NewExecutor("upper", upper{})
func NewExecutor(id string, h Handler) Executor {
	return Executor{ID: id, Handler: h}
}

// NewFunc builds an executor whose handler receives the payload as In.
// Any other payload fails the handler with [ErrUnexpectedInput].
//
//	upper := workflow.NewFunc("upper", func(ctx context.Context, s string, wc *workflow.Context) error {
//	    return wc.SendMessage(strings.ToUpper(s))
//	})
func NewFunc[In any](id string, fn func(ctx context.Context, in In, wc *Context) error) Executor {
	return NewExecutor(id, HandlerFunc(func(ctx context.Context, m Message, wc *Context) error {
		v, ok := m.Data.(In)
		if !ok {
			return unexpected[In](m)
		}
		return fn(ctx, v, wc)
	}))
}

// NewJoinFunc builds a fan-in executor whose handler receives the joined
// payloads as []In, in source declaration order. A plain message is
// treated as a batch of one.
func NewJoinFunc[In any](id string, fn func(ctx context.Context, in []In, wc *Context) error) Executor {
	return NewExecutor(id, HandlerFunc(func(ctx context.Context, m Message, wc *Context) error {
		batch := m.Batch()
		items := make([]In, 0, len(batch))
		for _, item := range batch {
			v, ok := item.Data.(In)
			if !ok {
				return unexpected[In](item)
			}
			items = append(items, v)
		}
		return fn(ctx, items, wc)
	}))
}

func unexpected[In any](m Message) error {
	var want In
	return fmt.Errorf("%w: want %T, got %s from %q", ErrUnexpectedInput, want, m.Type, m.Source)
}
