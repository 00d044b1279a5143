// Copyright (c) Microsoft. All rights reserved.

package workflow

import af "github.com/jochenvw/agent-framework-workflows/agentframework"

// RunResult is the buffered outcome of [Graph.Run].
type RunResult struct {
	Events []Event

	streamErr error
}

// NewRunResult wraps events collected from [Graph.RunStream].
func NewRunResult(events []Event) *RunResult {
	return &RunResult{Events: events}
}

// Outputs returns every yielded value in event order.
func (r *RunResult) Outputs() []any {
	var out []any
	for _, ev := range r.Events {
		if o, ok := ev.(OutputProduced); ok {
			out = append(out, o.Value)
		}
	}
	return out
}

// OutputEvents returns the [OutputProduced] events, keeping the producer id.
func (r *RunResult) OutputEvents() []OutputProduced {
	var out []OutputProduced
	for _, ev := range r.Events {
		if o, ok := ev.(OutputProduced); ok {
			out = append(out, o)
		}
	}
	return out
}

// AgentRuns returns the agent calls made during the run.
func (r *RunResult) AgentRuns() []AgentRun {
	var out []AgentRun
	for _, ev := range r.Events {
		if a, ok := ev.(AgentRun); ok {
			out = append(out, a)
		}
	}
	return out
}

// Usage sums the token usage of every agent call in the run.
func (r *RunResult) Usage() af.UsageDetails {
	var total af.UsageDetails
	for _, run := range r.AgentRuns() {
		if run.Response != nil {
			total = total.Add(run.Response.Usage)
		}
	}
	return total
}

// FinalState returns the state reported by [RunCompleted]. A run that ended
// without one was cancelled.
func (r *RunResult) FinalState() RunState {
	if c, ok := r.completion(); ok {
		return c.State
	}
	return StateCancelled
}

// Err returns the failure cause, the cancellation error, or nil.
func (r *RunResult) Err() error {
	if c, ok := r.completion(); ok {
		return c.Err
	}
	return r.streamErr
}

func (r *RunResult) completion() (RunCompleted, bool) {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if c, ok := r.Events[i].(RunCompleted); ok {
			return c, true
		}
	}
	return RunCompleted{}, false
}
