// Copyright (c) Microsoft. All rights reserved.

package workflow

import (
	"fmt"
	"sync"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

// Context is the effect surface handed to a handler for one invocation.
// It is safe for concurrent use by goroutines the handler starts, but
// must not be retained after the handler returns.
type Context struct {
	executorID string
	runID      string
	terminal   bool
	emit       func(Event) error
	sessions   SessionFunc

	mu        sync.Mutex
	sent      []Message
	violation error
}

func newContext(executorID string, cfg *runConfig, terminal bool, emit func(Event) error) *Context {
	return &Context{executorID: executorID, runID: cfg.runID, terminal: terminal, emit: emit, sessions: cfg.sessions}
}

// ExecutorID returns the id of the executor being invoked.
func (c *Context) ExecutorID() string { return c.executorID }

// RunID returns the id of the current run.
func (c *Context) RunID() string { return c.runID }

// IsTerminal reports whether the executor has no outgoing edges, i.e.
// whether [Context.YieldOutput] is allowed.
func (c *Context) IsTerminal() bool { return c.terminal }

// SendMessage queues v for delivery along the executor's outgoing edges.
// Values that are not a [Message] are wrapped and typed automatically.
// Delivery happens after the handler returns, in call order.
func (c *Context) SendMessage(v any) error {
	m := wrap(v, c.executorID)
	c.mu.Lock()
	c.sent = append(c.sent, m)
	c.mu.Unlock()
	return nil
}

// YieldOutput publishes v as a workflow output. Only terminal executors may
// yield; elsewhere it returns [ErrOutputNotAllowed] and the run fails.
func (c *Context) YieldOutput(v any) error {
	if !c.terminal {
		err := fmt.Errorf("%w: %q has outgoing edges", ErrOutputNotAllowed, c.executorID)
		c.mu.Lock()
		if c.violation == nil {
			c.violation = err
		}
		c.mu.Unlock()
		return err
	}
	return c.emit(OutputProduced{ExecutorID: c.executorID, Value: v})
}

// AddEvent publishes an event, such as [AgentRun] or [CustomEvent], on the
// run stream. An empty ExecutorID is filled in.
func (c *Context) AddEvent(e Event) error {
	switch v := e.(type) {
	case AgentRun:
		if v.ExecutorID == "" {
			v.ExecutorID = c.executorID
		}
		e = v
	case CustomEvent:
		if v.ExecutorID == "" {
			v.ExecutorID = c.executorID
		}
		e = v
	}
	return c.emit(e)
}

// agentSession is the session for this executor's agent calls, if any.
func (c *Context) agentSession() *af.Session {
	if c.sessions == nil {
		return nil
	}
	return c.sessions(c.executorID)
}

func (c *Context) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

func (c *Context) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.violation
}
