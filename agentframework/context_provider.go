// Copyright (c) Microsoft. All rights reserved.

package agentframework

import "context"

// ContextProvider adds per-call context to an agent run, e.g. retrieved
// documents or remembered facts.
type ContextProvider interface {
	// Invoking runs before the model call and sees the full conversation,
	// history included. Returned instructions are appended to the system
	// prompt and returned messages are placed before the conversation.
	Invoking(ctx context.Context, messages []Message) (*InvocationContext, error)

	// Invoked runs after a successful call with the caller's messages and
	// the reply.
	Invoked(ctx context.Context, request, response []Message) error
}

// InvocationContext is what [ContextProvider.Invoking] contributes.
type InvocationContext struct {
	Instructions string
	Messages     []Message
}

// NoOpContextProvider implements [ContextProvider] with empty hooks.
// Embed it and override the hook you need.
type NoOpContextProvider struct{}

func (NoOpContextProvider) Invoking(context.Context, []Message) (*InvocationContext, error) {
	return &InvocationContext{}, nil
}

func (NoOpContextProvider) Invoked(context.Context, []Message, []Message) error { return nil }

// StaticContext always adds the same instructions.
type StaticContext struct {
	NoOpContextProvider
	Instructions string
}

func (c StaticContext) Invoking(context.Context, []Message) (*InvocationContext, error) {
	return &InvocationContext{Instructions: c.Instructions}, nil
}
