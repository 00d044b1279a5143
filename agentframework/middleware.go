// Copyright (c) Microsoft. All rights reserved.

package agentframework

import "context"

// AgentHandler runs one agent request.
type AgentHandler func(ctx context.Context, req *AgentRequest) (*AgentResponse, error)

// AgentRequest is what flows through the agent middleware chain. Messages
// are the caller's, without history or instructions.
type AgentRequest struct {
	Messages []Message
	Session  *Session
	Options  *ChatOptions
}

// AgentMiddleware wraps a non-streaming run. Returning without calling
// next short-circuits the model call.
type AgentMiddleware func(next AgentHandler) AgentHandler

// chain wraps h so that mws[0] runs first.
func chain[H any, M ~func(H) H](h H, mws []M) H {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
