// Copyright (c) Microsoft. All rights reserved.

package workflow

import (
	"encoding/json"
	"fmt"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

// EventJSON is the wire form of an [Event], discriminated by Type.
type EventJSON struct {
	Type       EventKind        `json:"type"`
	RunID      string           `json:"run_id,omitempty"`
	Workflow   string           `json:"workflow,omitempty"`
	Step       int              `json:"step,omitempty"`
	ExecutorID string           `json:"executor_id,omitempty"`
	Executors  []string         `json:"executors,omitempty"`
	InputType  string           `json:"input_type,omitempty"`
	DurationMS int64            `json:"duration_ms,omitempty"`
	Value      any              `json:"value,omitempty"`
	Name       string           `json:"name,omitempty"`
	Text       string           `json:"text,omitempty"`
	Usage      *af.UsageDetails `json:"usage,omitempty"`
	State      RunState         `json:"state,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// ToJSON converts ev into its wire form. Payloads are carried as-is, so
// they must be JSON-marshalable for [MarshalEvent] to succeed.
func ToJSON(ev Event) EventJSON {
	w := EventJSON{Type: ev.Kind()}
	switch v := ev.(type) {
	case RunStarted:
		w.RunID, w.Workflow = v.RunID, v.Workflow
	case SuperStepStarted:
		w.Step, w.Executors = v.Step, v.Executors
	case SuperStepCompleted:
		w.Step = v.Step
	case ExecutorInvoked:
		w.ExecutorID, w.Step, w.InputType = v.ExecutorID, v.Step, v.Input.Type
	case ExecutorCompleted:
		w.ExecutorID, w.Step, w.DurationMS = v.ExecutorID, v.Step, v.Duration.Milliseconds()
	case ExecutorFailed:
		w.ExecutorID, w.Step = v.ExecutorID, v.Step
		if v.Err != nil {
			w.Error = v.Err.Error()
		}
	case OutputProduced:
		w.ExecutorID, w.Value = v.ExecutorID, v.Value
	case AgentRun:
		w.ExecutorID = v.ExecutorID
		if v.Response != nil {
			w.Name = v.Response.AgentName
			w.Text = v.Response.Text()
			u := v.Response.Usage
			w.Usage = &u
		}
	case CustomEvent:
		w.ExecutorID, w.Name, w.Value = v.ExecutorID, v.Name, v.Data
	case RunCompleted:
		w.State = v.State
		if v.Err != nil {
			w.Error = v.Err.Error()
		}
	}
	return w
}

// MarshalEvent encodes ev as JSON.
func MarshalEvent(ev Event) ([]byte, error) {
	b, err := json.Marshal(ToJSON(ev))
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Kind(), err)
	}
	return b, nil
}
