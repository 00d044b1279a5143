// Copyright (c) Microsoft. All rights reserved.

package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

// AgentRunner is the part of [agentframework.Agent] an executor needs.
type AgentRunner interface {
	Run(ctx context.Context, messages []af.Message, opts ...af.RunOption) (*af.AgentResponse, error)
}

// AgentExecutorResponse is what a non-terminal agent executor sends on.
// Conversation holds the messages the agent saw plus its reply, so the
// next agent continues the same conversation.
type AgentExecutorResponse struct {
	ExecutorID   string
	Response     *af.AgentResponse
	Conversation []af.Message
}

func (AgentExecutorResponse) MessageType() string { return "agent_response" }

// Text returns the agent's reply text.
func (r AgentExecutorResponse) Text() string {
	if r.Response == nil {
		return ""
	}
	return r.Response.Text()
}

// ParseFailure is sent by a structured agent executor when the model reply
// does not decode into the requested type. Route it with [ParseFailed].
type ParseFailure struct {
	ExecutorID string
	Raw        string
	Err        error
}

func (ParseFailure) MessageType() string { return "parse_failure" }

// NewAgentExecutor wraps agent as an executor. It accepts a string, an
// [af.Message], a []af.Message, an [AgentExecutorResponse] or a fan-in
// batch of those. Each call is reported as an [AgentRun] event. A terminal
// executor yields the reply text; otherwise it sends an
// [AgentExecutorResponse].
func NewAgentExecutor(id string, agent AgentRunner) Executor {
	return NewExecutor(id, HandlerFunc(func(ctx context.Context, in Message, wc *Context) error {
		msgs, err := toConversation(in)
		if err != nil {
			return err
		}
		resp, err := runAgent(ctx, agent, msgs, wc)
		if err != nil {
			return err
		}
		if wc.IsTerminal() {
			return wc.YieldOutput(resp.Text())
		}
		return wc.SendMessage(AgentExecutorResponse{
			ExecutorID:   wc.ExecutorID(),
			Response:     resp,
			Conversation: slices.Concat(msgs, resp.Messages),
		})
	}))
}

// NewStructuredAgentExecutor asks agent for a JSON reply shaped like T.
// A valid reply is sent on (or yielded, when terminal) as a T. An invalid
// one is sent as a [ParseFailure]; a terminal executor fails instead.
//
//	b.AddEdge("grader", "retry", workflow.WithCondition(workflow.ParseFailed()))
//	b.AddEdge("grader", "accept", workflow.WithCondition(
//	    workflow.When(func(g Grade) bool { return g.Score >= 80 }),
//	))
func NewStructuredAgentExecutor[T any](id string, agent AgentRunner) Executor {
	format := af.ResponseFormatFor[T](id)
	return NewExecutor(id, HandlerFunc(func(ctx context.Context, in Message, wc *Context) error {
		msgs, err := toConversation(in)
		if err != nil {
			return err
		}
		resp, err := runAgent(ctx, agent, msgs, wc,
			af.WithRunOptions(&af.ChatOptions{ResponseFormat: format}))
		if err != nil {
			return err
		}

		v, err := af.ParseStructured[T](resp.Text(), format)
		var perr *af.StructuredOutputParseError
		switch {
		case errors.As(err, &perr) && !wc.IsTerminal():
			return wc.SendMessage(ParseFailure{ExecutorID: wc.ExecutorID(), Raw: perr.Raw, Err: perr})
		case err != nil:
			return err
		case wc.IsTerminal():
			return wc.YieldOutput(v)
		default:
			return wc.SendMessage(v)
		}
	}))
}

func runAgent(ctx context.Context, agent AgentRunner, msgs []af.Message, wc *Context, opts ...af.RunOption) (*af.AgentResponse, error) {
	if s := wc.agentSession(); s != nil {
		opts = append(opts, af.WithSession(s))
	}
	resp, err := agent.Run(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	if err := wc.AddEvent(AgentRun{ExecutorID: wc.ExecutorID(), Response: resp}); err != nil {
		return nil, err
	}
	return resp, nil
}

// toConversation turns an incoming payload into agent input messages.
// Join items usually share the conversation that was fanned out, so each
// item after the first contributes only what follows that shared prefix.
func toConversation(in Message) ([]af.Message, error) {
	if in.Type == TypeJoin {
		var out, first []af.Message
		for i, item := range in.Batch() {
			msgs, err := toConversation(item)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				first = msgs
			} else {
				msgs = msgs[sharedPrefix(first, msgs):]
			}
			out = append(out, msgs...)
		}
		return out, nil
	}

	switch v := in.Data.(type) {
	case string:
		return []af.Message{af.NewUserMessage(v)}, nil
	case af.Message:
		return []af.Message{v}, nil
	case []af.Message:
		return v, nil
	case AgentExecutorResponse:
		return append([]af.Message(nil), v.Conversation...), nil
	default:
		return nil, fmt.Errorf("%w: agent executor cannot take %s", ErrUnexpectedInput, in.Type)
	}
}

func sharedPrefix(a, b []af.Message) int {
	n := 0
	for n < len(a) && n < len(b) && sameMessage(a[n], b[n]) {
		n++
	}
	return n
}

func sameMessage(a, b af.Message) bool {
	return a.Role == b.Role && a.AuthorName == b.AuthorName && a.Text() == b.Text()
}
