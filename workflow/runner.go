// Copyright (c) Microsoft. All rights reserved.

package workflow

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/internal/logging"
)

// unit is one pending handler invocation. depth is the number of hops from
// the start executor and is what [WithMaxSupersteps] bounds.
type unit struct {
	id    string
	in    Message
	depth int
}

// Run executes the graph to completion and returns every event.
// When the run fails, the returned error is the same [*ExecutorError]
// (or [ErrMaxSupersteps]) reported by [RunResult.Err].
func (g *Graph) Run(ctx context.Context, input any, opts ...RunOption) (*RunResult, error) {
	stream := g.RunStream(ctx, input, opts...)
	defer stream.Close()

	// Cancellation reaches the producer through the stream's own context,
	// so collection waits for it to unwind instead of racing it.
	events, err := stream.Collect(context.WithoutCancel(ctx))
	res := &RunResult{Events: events, streamErr: err}
	return res, res.Err()
}

// RunStream starts the graph and returns its events as they happen.
// Closing the stream cancels the run: nothing further is dispatched
// and running handlers see their context cancelled.
//
//	stream := g.RunStream(ctx, "hello world")
//	defer stream.Close()
//	for ev, err := range stream.All(ctx) { ... }
func (g *Graph) RunStream(ctx context.Context, input any, opts ...RunOption) *af.ResponseStream[Event] {
	cfg := g.runConfig(opts)
	return af.NewResponseStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		r := &runner{
			g:       g,
			cfg:     cfg,
			ch:      ch,
			joins:   newJoins(g),
			results: make(chan result),
			running: make(map[string]int),
		}
		if cfg.maxConcurrency > 0 {
			r.sem = semaphore.NewWeighted(int64(cfg.maxConcurrency))
		}
		return r.run(ctx, input)
	})
}

// batch is the set of units one completion dispatched together. It is
// reported as a superstep.
type batch struct {
	step    int
	pending int
	failed  bool
	span    trace.Span
}

// result is what a worker hands back to the run loop.
type result struct {
	u       unit
	b       *batch
	wc      *Context
	err     error
	skipped bool
}

// runner owns the state of one run. Only the run loop touches joins,
// running and inflight; workers report through results.
type runner struct {
	g     *Graph
	cfg   *runConfig
	ch    chan<- Event
	joins *joins

	results  chan result
	running  map[string]int
	inflight int
	sem      *semaphore.Weighted
	stop     atomic.Bool
	workers  errgroup.Group
}

func (r *runner) emit(ctx context.Context, ev Event) error {
	select {
	case r.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run dispatches every unit as soon as its input exists. A unit's messages
// are routed when it completes, so one slow branch never holds back the
// successors of another.
func (r *runner) run(ctx context.Context, input any) error {
	ctx = logging.WithRunID(ctx, r.cfg.runID)
	ctx, span := r.cfg.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("workflow.name", r.g.name),
		attribute.String("workflow.run_id", r.cfg.runID),
	))
	defer span.End()

	if err := r.emit(ctx, RunStarted{RunID: r.cfg.runID, Workflow: r.g.name}); err != nil {
		return err
	}
	r.cfg.logger.DebugContext(ctx, "workflow run started", "workflow", r.g.name, "start", r.g.start)

	r.dispatch(ctx, 1, []unit{{id: r.g.start, in: wrap(input, "")}})

	var failure error
	for r.inflight > 0 {
		res := <-r.results
		r.settle(ctx, res)

		switch {
		case res.err != nil:
			if failure == nil {
				failure = &ExecutorError{ExecutorID: res.u.id, Err: res.err}
				r.stop.Store(true)
			}
			continue
		case res.skipped || failure != nil || ctx.Err() != nil:
			continue
		}

		next := r.route(ctx, res.wc)
		next = append(next, r.joins.release(r.frontier(next))...)
		if len(next) == 0 {
			continue
		}
		step := res.u.depth + 1
		if step > r.cfg.maxSupersteps {
			failure = fmt.Errorf("%w: limit is %d", ErrMaxSupersteps, r.cfg.maxSupersteps)
			r.stop.Store(true)
			continue
		}
		r.dispatch(ctx, step, next)
	}
	_ = r.workers.Wait()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		r.cfg.logger.DebugContext(ctx, "workflow run cancelled")
		return err
	}
	return r.finish(ctx, span, failure)
}

func (r *runner) finish(ctx context.Context, span trace.Span, err error) error {
	state := StateIdle
	if err != nil {
		state = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.cfg.logger.WarnContext(ctx, "workflow run failed", "workflow", r.g.name, "error", err)
	} else {
		r.cfg.logger.DebugContext(ctx, "workflow run completed", "workflow", r.g.name)
	}
	return r.emit(ctx, RunCompleted{State: state, Err: err})
}

// dispatch starts one worker per unit. Workers wait for a concurrency slot
// and skip their handler once the run has failed or been cancelled.
func (r *runner) dispatch(ctx context.Context, step int, units []unit) {
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.id
	}
	bctx, span := r.cfg.tracer.Start(ctx, "workflow.superstep", trace.WithAttributes(
		attribute.Int("workflow.step", step),
		attribute.StringSlice("workflow.executors", ids),
	))
	b := &batch{step: step, pending: len(units), span: span}
	_ = r.emit(ctx, SuperStepStarted{Step: step, Executors: ids})

	emit := func(ev Event) error { return r.emit(ctx, ev) }
	for _, u := range units {
		u.depth = step
		r.inflight++
		r.running[u.id]++
		wc := newContext(u.id, r.cfg, r.g.IsTerminal(u.id), emit)
		r.workers.Go(func() error {
			res := result{u: u, b: b, wc: wc}
			if r.acquire(bctx) {
				res.err = r.invoke(bctx, u, wc)
				if r.sem != nil {
					r.sem.Release(1)
				}
			} else {
				res.skipped = true
			}
			r.results <- res
			return nil
		})
	}
}

func (r *runner) acquire(ctx context.Context) bool {
	if r.stop.Load() || ctx.Err() != nil {
		return false
	}
	if r.sem == nil {
		return true
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	if r.stop.Load() {
		r.sem.Release(1)
		return false
	}
	return true
}

// settle books a finished unit and closes its batch when it was the last.
func (r *runner) settle(ctx context.Context, res result) {
	r.inflight--
	if r.running[res.u.id]--; r.running[res.u.id] == 0 {
		delete(r.running, res.u.id)
	}
	b := res.b
	if res.err != nil && !b.failed {
		b.failed = true
		b.span.SetStatus(codes.Error, res.err.Error())
	}
	if b.pending--; b.pending == 0 {
		b.span.End()
		if ctx.Err() == nil {
			_ = r.emit(ctx, SuperStepCompleted{Step: b.step})
		}
	}
}

// frontier is every executor running or about to run.
func (r *runner) frontier(next []unit) []string {
	ids := make([]string, 0, len(r.running)+len(next))
	for id := range r.running {
		ids = append(ids, id)
	}
	for _, u := range next {
		ids = append(ids, u.id)
	}
	return ids
}

func (r *runner) invoke(ctx context.Context, u unit, wc *Context) error {
	step := u.depth
	ctx = logging.WithExecutorID(ctx, u.id)
	ctx, span := r.cfg.tracer.Start(ctx, "workflow.executor", trace.WithAttributes(
		attribute.String("workflow.run_id", r.cfg.runID),
		attribute.Int("workflow.step", step),
		attribute.String("workflow.executor_id", u.id),
		attribute.String("workflow.message_type", u.in.Type),
	))
	defer span.End()

	if err := r.emit(ctx, ExecutorInvoked{ExecutorID: u.id, Step: step, Input: u.in}); err != nil {
		return err
	}

	start := time.Now()
	err := safeHandle(ctx, r.g.executors[u.id].Handler, u.in, wc)
	if err == nil {
		err = wc.err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.cfg.logger.DebugContext(ctx, "executor failed", "step", step, "error", err)
		_ = r.emit(ctx, ExecutorFailed{ExecutorID: u.id, Step: step, Err: err})
		return err
	}

	d := time.Since(start)
	r.cfg.logger.DebugContext(ctx, "executor completed", "step", step, "duration", d)
	return r.emit(ctx, ExecutorCompleted{ExecutorID: u.id, Step: step, Duration: d})
}

func safeHandle(ctx context.Context, h Handler, in Message, wc *Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
	}()
	return h.Handle(ctx, in, wc)
}

// route delivers a completed unit's messages in emission order. Fan-in
// edges buffer into their join; every other edge schedules its target.
func (r *runner) route(ctx context.Context, wc *Context) []unit {
	var next []unit
	src := wc.executorID
	edges := r.g.outgoing[src]
	for _, m := range wc.messages() {
		if len(edges) == 0 {
			r.cfg.logger.DebugContext(ctx, "message dropped from terminal executor", "executor_id", src, "type", m.Type)
			continue
		}
		delivered := false
		for _, e := range edges {
			if !r.accepts(ctx, e, m) {
				continue
			}
			delivered = true
			if e.Kind == EdgeFanIn {
				r.joins.deliver(e.Target, src, m)
			} else {
				next = append(next, unit{id: e.Target, in: m})
			}
		}
		if !delivered {
			r.cfg.logger.DebugContext(ctx, "message dropped, no edge condition matched", "executor_id", src, "type", m.Type)
		}
	}
	return next
}

func (r *runner) accepts(ctx context.Context, e Edge, m Message) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.cfg.logger.WarnContext(ctx, "edge condition panicked", "source", e.Source, "target", e.Target, "panic", p)
			ok = false
		}
	}()
	return e.accepts(m)
}
