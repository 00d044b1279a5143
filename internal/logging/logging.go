// Copyright (c) Microsoft. All rights reserved.

// Package logging carries run correlation ids on the context and injects
// them into slog records.
package logging

import (
	"context"
	"io"
	"log/slog"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	executorIDKey
)

// WithRunID returns a context carrying the workflow run id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithExecutorID returns a context carrying the executor id.
func WithExecutorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, executorIDKey, id)
}

// RunID extracts the run id from ctx, or "" if absent.
func RunID(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey).(string)
	return v
}

// ExecutorID extracts the executor id from ctx, or "" if absent.
func ExecutorID(ctx context.Context) string {
	v, _ := ctx.Value(executorIDKey).(string)
	return v
}

// CorrelationHandler wraps an slog.Handler and adds run_id and executor_id
// from the record's context.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps inner.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := RunID(ctx); v != "" {
		r.AddAttrs(slog.String("run_id", v))
	}
	if v := ExecutorID(ctx); v != "" {
		r.AddAttrs(slog.String("executor_id", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}

// New returns a text logger writing to w at info level, or debug when debug is set.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(NewCorrelationHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
