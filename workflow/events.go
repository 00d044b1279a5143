// Copyright (c) Microsoft. All rights reserved.

package workflow

import (
	"time"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

// EventKind identifies an [Event].
type EventKind string

const (
	KindRunStarted         EventKind = "run_started"
	KindSuperStepStarted   EventKind = "superstep_started"
	KindSuperStepCompleted EventKind = "superstep_completed"
	KindExecutorInvoked    EventKind = "executor_invoked"
	KindExecutorCompleted  EventKind = "executor_completed"
	KindExecutorFailed     EventKind = "executor_failed"
	KindOutputProduced     EventKind = "output"
	KindAgentRun           EventKind = "agent_run"
	KindCustom             EventKind = "custom"
	KindRunCompleted       EventKind = "run_completed"
)

// RunState is the lifecycle state of a run.
type RunState string

const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateIdle      RunState = "idle"
	StateFailed    RunState = "failed"
	StateCancelled RunState = "cancelled"
)

// Event is a sealed interface for everything a run reports. Use a type
// switch to inspect the concrete type; [CustomEvent] carries user data.
type Event interface {
	Kind() EventKind
	event()
}

type eventBase struct{}

func (eventBase) event() {}

// RunStarted is the first event of every run.
type RunStarted struct {
	eventBase
	RunID    string
	Workflow string
}

// SuperStepStarted lists executors dispatched together, either the start
// executor or the targets one completed executor made ready. Step is their
// distance from the start; sibling branches may report the same Step.
type SuperStepStarted struct {
	eventBase
	Step      int
	Executors []string
}

// SuperStepCompleted is emitted once every executor of the matching
// [SuperStepStarted] has finished. It is not a barrier: successors of a
// finished executor may already be running.
type SuperStepCompleted struct {
	eventBase
	Step int
}

// ExecutorInvoked is emitted before a handler runs.
type ExecutorInvoked struct {
	eventBase
	ExecutorID string
	Step       int
	Input      Message
}

// ExecutorCompleted is emitted after a handler returns successfully.
type ExecutorCompleted struct {
	eventBase
	ExecutorID string
	Step       int
	Duration   time.Duration
}

// ExecutorFailed is emitted when a handler returns an error or panics.
type ExecutorFailed struct {
	eventBase
	ExecutorID string
	Step       int
	Err        error
}

// OutputProduced carries a value yielded by a terminal executor.
type OutputProduced struct {
	eventBase
	ExecutorID string
	Value      any
}

// AgentRun reports a completed agent call inside an executor.
type AgentRun struct {
	eventBase
	ExecutorID string
	Response   *af.AgentResponse
}

// CustomEvent carries handler-defined data through [Context.AddEvent].
type CustomEvent struct {
	eventBase
	ExecutorID string
	Name       string
	Data       any
}

// RunCompleted is the last event of every run that is not cancelled.
// Err is set when State is [StateFailed].
type RunCompleted struct {
	eventBase
	State RunState
	Err   error
}

func (RunStarted) Kind() EventKind         { return KindRunStarted }
func (SuperStepStarted) Kind() EventKind   { return KindSuperStepStarted }
func (SuperStepCompleted) Kind() EventKind { return KindSuperStepCompleted }
func (ExecutorInvoked) Kind() EventKind    { return KindExecutorInvoked }
func (ExecutorCompleted) Kind() EventKind  { return KindExecutorCompleted }
func (ExecutorFailed) Kind() EventKind     { return KindExecutorFailed }
func (OutputProduced) Kind() EventKind     { return KindOutputProduced }
func (AgentRun) Kind() EventKind           { return KindAgentRun }
func (CustomEvent) Kind() EventKind        { return KindCustom }
func (RunCompleted) Kind() EventKind       { return KindRunCompleted }
