// Copyright (c) Microsoft. All rights reserved.

package devui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/workflow"
	"github.com/jochenvw/agent-framework-workflows/workflow/viz"
)

// RunRequest is the body of the run and stream endpoints. Input is handed
// to the start executor as decoded JSON; null is a valid input. Naming a
// conversation gives the entity's agents their history from earlier runs.
type RunRequest struct {
	Input          any    `json:"input"`
	RunID          string `json:"run_id,omitempty" validate:"omitempty,uuid"`
	ConversationID string `json:"conversation_id,omitempty" validate:"omitempty,uuid"`
	MaxSupersteps  int    `json:"max_supersteps,omitempty" validate:"gte=0,lte=10000"`
}

// RunResponse is the buffered result of a run.
type RunResponse struct {
	RunID          string               `json:"run_id"`
	ConversationID string               `json:"conversation_id,omitempty"`
	State          workflow.RunState    `json:"state"`
	Outputs        []any                `json:"outputs"`
	Usage          af.UsageDetails      `json:"usage"`
	Error          string               `json:"error,omitempty"`
	Events         []workflow.EventJSON `json:"events"`
}

// jsonName makes validation messages use the wire field names.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// decode reads and validates a JSON body, writing a 400 problem on failure.
func decode[T any](s *Server, w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeBadRequest(w, r, s.logger, "invalid request body: "+err.Error())
		return req, false
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeInternal(w, r, s.logger, err)
			return req, false
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				msgs = append(msgs, fe.Field()+" is required")
				continue
			}
			if fe.Param() == "" {
				msgs = append(msgs, fmt.Sprintf("%s must be a valid %s", fe.Field(), fe.Tag()))
				continue
			}
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
		}
		writeBadRequest(w, r, s.logger, strings.Join(msgs, "; "))
		return req, false
	}
	return req, true
}

func (req RunRequest) runID() string {
	if req.RunID != "" {
		return req.RunID
	}
	return uuid.NewString()
}

func (s *Server) runOptions(e *entity, req RunRequest, runID string, conv *conversation) []workflow.RunOption {
	opts := append([]workflow.RunOption{workflow.WithRunLogger(s.logger)}, e.opts...)
	opts = append(opts, workflow.WithRunID(runID))
	if req.MaxSupersteps > 0 {
		opts = append(opts, workflow.WithMaxSupersteps(req.MaxSupersteps))
	}
	if conv != nil {
		opts = append(opts, workflow.WithAgentSessions(conv.session))
	}
	return opts
}

// prepareRun decodes the request and resolves its entity and conversation.
func (s *Server) prepareRun(w http.ResponseWriter, r *http.Request) (*entity, RunRequest, *conversation, bool) {
	e, ok := s.entity(w, r)
	if !ok {
		return nil, RunRequest{}, nil, false
	}
	req, ok := decode[RunRequest](s, w, r)
	if !ok {
		return nil, req, nil, false
	}
	conv, ok := s.runConversation(w, r, e, req.ConversationID)
	if !ok {
		return nil, req, nil, false
	}
	return e, req, conv, true
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	e, req, conv, ok := s.prepareRun(w, r)
	if !ok {
		return
	}

	runID := req.runID()
	stream := e.graph.RunStream(r.Context(), req.Input, s.runOptions(e, req, runID, conv)...)
	var events []workflow.Event
	for ev, err := range stream.All(r.Context()) {
		if err != nil {
			writeInternal(w, r, s.logger, fmt.Errorf("run %s: %w", runID, err))
			return
		}
		events = append(events, ev)
		s.publish(e.info.ID, ev)
	}

	res := workflow.NewRunResult(events)
	resp := RunResponse{
		RunID:          runID,
		ConversationID: req.ConversationID,
		State:          res.FinalState(),
		Outputs:        res.Outputs(),
		Usage:          res.Usage(),
		Events:         make([]workflow.EventJSON, 0, len(events)),
	}
	if resp.Outputs == nil {
		resp.Outputs = []any{}
	}
	if err := res.Err(); err != nil {
		resp.Error = err.Error()
	}
	for _, ev := range events {
		resp.Events = append(resp.Events, workflow.ToJSON(ev))
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	e, req, conv, ok := s.prepareRun(w, r)
	if !ok {
		return
	}

	runID := req.runID()
	stream := e.graph.RunStream(r.Context(), req.Input, s.runOptions(e, req, runID, conv)...)
	defer stream.Close()

	sse := newSSE(w)
	for ev, err := range stream.All(r.Context()) {
		if err != nil {
			s.logger.DebugContext(r.Context(), "stream ended", "run_id", runID, "error", err)
			return
		}
		s.publish(e.info.ID, ev)
		data, err := workflow.MarshalEvent(ev)
		if err != nil {
			data, _ = json.Marshal(map[string]string{"error": err.Error()})
			if werr := sse.event("error", data); werr != nil {
				return
			}
			continue
		}
		if err := sse.event(string(ev.Kind()), data); err != nil {
			s.logger.DebugContext(r.Context(), "client went away", "run_id", runID, "error", err)
			return
		}
	}
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("format")
	if name == "" || name == "mermaid" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(viz.New(e.graph).Mermaid()))
		return
	}
	format, err := viz.ParseFormat(name)
	if err != nil {
		writeBadRequest(w, r, s.logger, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := viz.New(e.graph).Render(r.Context(), format, &buf); err != nil {
		writeInternal(w, r, s.logger, err)
		return
	}
	w.Header().Set("Content-Type", diagramContentTypes[format])
	_, _ = w.Write(buf.Bytes())
}

var diagramContentTypes = map[viz.Format]string{
	viz.FormatDOT: "text/vnd.graphviz",
	viz.FormatSVG: "image/svg+xml",
	viz.FormatPNG: "image/png",
}
