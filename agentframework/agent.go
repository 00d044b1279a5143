// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Agent is the top-level conversational agent. It composes a [ChatClient] with
// middleware, session management, and context providers.
//
// Create one with [NewAgent] and functional options:
//
//	agent := agentframework.NewAgent(client,
//	    agentframework.WithName("writer"),
//	    agentframework.WithInstructions("You are an excellent content writer."),
//	)
type Agent struct {
	id                  string
	name                string
	description         string
	client              ChatClient
	instructions        string
	defaultOptions      *ChatOptions
	messageStoreFactory func() MessageStore
	contextProvider     ContextProvider
	agentMiddleware     []AgentMiddleware
	chatMiddleware      []ChatMiddleware
}

// AgentOption configures an [Agent] via [NewAgent].
type AgentOption func(*Agent)

// WithName sets the agent's display name.
func WithName(name string) AgentOption {
	return func(a *Agent) { a.name = name }
}

// WithDescription sets the agent's description.
func WithDescription(desc string) AgentOption {
	return func(a *Agent) { a.description = desc }
}

// WithInstructions sets the system instructions for the agent.
func WithInstructions(instructions string) AgentOption {
	return func(a *Agent) { a.instructions = instructions }
}

// WithDefaultOptions sets default [ChatOptions] for all requests.
func WithDefaultOptions(opts *ChatOptions) AgentOption {
	return func(a *Agent) { a.defaultOptions = opts }
}

// WithMessageStoreFactory sets how [Agent.NewSession] creates stores.
func WithMessageStoreFactory(f func() MessageStore) AgentOption {
	return func(a *Agent) { a.messageStoreFactory = f }
}

// WithContextProvider attaches a [ContextProvider] for dynamic context injection.
func WithContextProvider(cp ContextProvider) AgentOption {
	return func(a *Agent) { a.contextProvider = cp }
}

// WithAgentMiddleware adds [AgentMiddleware] to the agent pipeline.
func WithAgentMiddleware(mws ...AgentMiddleware) AgentOption {
	return func(a *Agent) { a.agentMiddleware = append(a.agentMiddleware, mws...) }
}

// WithChatMiddleware adds [ChatMiddleware] around the model call.
func WithChatMiddleware(mws ...ChatMiddleware) AgentOption {
	return func(a *Agent) { a.chatMiddleware = append(a.chatMiddleware, mws...) }
}

// NewAgent creates an Agent with the given [ChatClient] and options.
func NewAgent(client ChatClient, opts ...AgentOption) *Agent {
	a := &Agent{
		id:     newUUID(),
		client: client,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the agent's unique identifier.
func (a *Agent) ID() string { return a.id }

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.description }

// Instructions returns the agent's system instructions.
func (a *Agent) Instructions() string { return a.instructions }

// RunOption configures a single [Agent.Run] or [Agent.RunStream] call.
type RunOption func(*runConfig)

type runConfig struct {
	session *Session
	options *ChatOptions
}

// WithSession attaches a [Session] for multi-turn conversation.
func WithSession(s *Session) RunOption {
	return func(c *runConfig) { c.session = s }
}

// WithRunOptions provides per-call [ChatOptions] overrides.
func WithRunOptions(opts *ChatOptions) RunOption {
	return func(c *runConfig) { c.options = opts }
}

// Run sends messages to the agent and returns a complete response.
func (a *Agent) Run(ctx context.Context, messages []Message, opts ...RunOption) (*AgentResponse, error) {
	cfg := a.buildRunConfig(opts)
	handler := chain(a.buildHandler(cfg), a.agentMiddleware)

	return handler(ctx, &AgentRequest{
		Messages: messages,
		Session:  cfg.session,
		Options:  cfg.options,
	})
}

// RunStream sends messages to the agent and returns a streaming response.
// Chat middleware is not applied to the streaming path.
func (a *Agent) RunStream(ctx context.Context, messages []Message, opts ...RunOption) (*AgentResponseStream, error) {
	cfg := a.buildRunConfig(opts)

	chatOpts := a.prepareChatOptions(cfg)
	allMessages, err := a.prepareMessages(ctx, messages, cfg, chatOpts)
	if err != nil {
		return nil, err
	}

	chatStream, err := a.client.StreamResponse(ctx, allMessages, chatOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}

	agentStream := MapStream(ctx, chatStream, func(u ChatResponseUpdate) AgentResponseUpdate {
		return AgentResponseUpdate{
			Contents:   u.Contents,
			Role:       u.Role,
			AgentID:    a.id,
			ResponseID: u.ResponseID,
			Usage:      u.Usage,
			Raw:        u.Raw,
		}
	})

	stream := NewAgentResponseStream(agentStream)
	stream.done = func(ctx context.Context, resp *AgentResponse) {
		a.afterRun(ctx, cfg, messages, resp.Messages)
	}
	return stream, nil
}

// NewSession creates a session backed by the agent's store factory.
func (a *Agent) NewSession(opts ...SessionOption) *Session {
	if a.messageStoreFactory != nil {
		opts = append([]SessionOption{WithSessionStore(a.messageStoreFactory())}, opts...)
	}
	return NewSession(opts...)
}

func (a *Agent) buildRunConfig(opts []RunOption) *runConfig {
	cfg := &runConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (a *Agent) prepareChatOptions(cfg *runConfig) *ChatOptions {
	opts := MergeChatOptions(a.defaultOptions, cfg.options)
	opts.Instructions = joinNonEmpty(a.instructions, opts.Instructions)
	return opts
}

func (a *Agent) contextProviderFor(cfg *runConfig) ContextProvider {
	if cfg.session != nil && cfg.session.ContextProvider() != nil {
		return cfg.session.ContextProvider()
	}
	return a.contextProvider
}

func (a *Agent) prepareMessages(ctx context.Context, messages []Message, cfg *runConfig, opts *ChatOptions) ([]Message, error) {
	var allMessages []Message

	if cfg.session != nil {
		history, err := cfg.session.History(ctx)
		if err != nil {
			return nil, err
		}
		allMessages = append(allMessages, history...)
	}

	allMessages = append(allMessages, messages...)

	if cp := a.contextProviderFor(cfg); cp != nil {
		invCtx, err := cp.Invoking(ctx, allMessages)
		if err != nil {
			return nil, fmt.Errorf("context provider: %w", err)
		}
		if invCtx != nil {
			opts.Instructions = joinNonEmpty(opts.Instructions, invCtx.Instructions)
			allMessages = slices.Concat(invCtx.Messages, allMessages)
		}
	}

	return PrependInstructions(allMessages, opts.Instructions), nil
}

func (a *Agent) buildHandler(cfg *runConfig) AgentHandler {
	chat := chain(ChatHandler(a.client.Response), a.chatMiddleware)

	return func(ctx context.Context, req *AgentRequest) (*AgentResponse, error) {
		chatOpts := a.prepareChatOptions(cfg)
		allMessages, err := a.prepareMessages(ctx, req.Messages, cfg, chatOpts)
		if err != nil {
			return nil, err
		}

		slog.DebugContext(ctx, "agent run",
			"agent_id", a.id,
			"agent_name", a.name,
			"message_count", len(allMessages),
			"structured", chatOpts.ResponseFormat != nil,
		)

		chatResp, err := chat(ctx, allMessages, chatOpts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecution, err)
		}

		a.afterRun(ctx, cfg, req.Messages, chatResp.Messages)

		return &AgentResponse{
			Messages:   chatResp.Messages,
			ResponseID: chatResp.ResponseID,
			AgentID:    a.id,
			AgentName:  a.name,
			Usage:      chatResp.Usage,
			Raw:        chatResp.Raw,
		}, nil
	}
}

// afterRun records the turn in the session and notifies the context
// provider. Failures are only logged.
func (a *Agent) afterRun(ctx context.Context, cfg *runConfig, request, reply []Message) {
	if cfg.session != nil {
		if err := cfg.session.record(ctx, request, reply); err != nil {
			slog.WarnContext(ctx, "failed to update session", "session_id", cfg.session.ID(), "error", err)
		}
	}
	if cp := a.contextProviderFor(cfg); cp != nil {
		if err := cp.Invoked(ctx, request, reply); err != nil {
			slog.WarnContext(ctx, "context provider invoked hook failed", "error", err)
		}
	}
}
