// Copyright (c) Microsoft. All rights reserved.

package agentframework

import "context"

// ChatClient talks to a model. The openai package implements it for
// OpenAI and Azure OpenAI.
type ChatClient interface {
	Response(ctx context.Context, messages []Message, opts *ChatOptions) (*ChatResponse, error)
	StreamResponse(ctx context.Context, messages []Message, opts *ChatOptions) (*ResponseStream[ChatResponseUpdate], error)
}

// ChatHandler is one non-streaming model call.
type ChatHandler func(ctx context.Context, messages []Message, opts *ChatOptions) (*ChatResponse, error)

// ChatMiddleware wraps the model call of every non-streaming run.
type ChatMiddleware func(next ChatHandler) ChatHandler
