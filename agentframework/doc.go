// Copyright (c) Microsoft. All rights reserved.

// Package agentframework provides the core types and abstractions for building
// AI agents in Go: a composable Agent, middleware pipelines, session
// management, structured output and streaming support.
//
// # Quick Start
//
// Create a ChatClient (e.g., from the openai package) and build an Agent:
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"), openai.WithModel("gpt-4o"))
//
//	agent := agentframework.NewAgent(client,
//	    agentframework.WithName("writer"),
//	    agentframework.WithInstructions("You are an excellent content writer."),
//	)
//
//	resp, err := agent.Run(ctx, []agentframework.Message{
//	    agentframework.NewUserMessage("Create a slogan for a new electric SUV."),
//	})
//
// # Architecture
//
//   - [Agent]: composes a client with middleware, sessions and context providers.
//   - [ChatClient]: interface for LLM backends (implemented by provider packages).
//   - [Content]: sealed interface for message parts (text, data, uri, error, usage).
//   - [Session]: multi-turn conversation memory backed by a [MessageStore].
//   - [ResponseStream]: generic pull-based iterator for streaming responses.
//   - [Registry]: named agent specs persisted to a JSON file.
//
// Agents are composed into multi-step graphs by the workflow package.
//
// # Structured Output
//
// [RunStructured] requests a JSON reply shaped like a Go type and decodes it:
//
//	type Verdict struct {
//	    Score  int    `json:"score"  jsonschema:"required"`
//	    Reason string `json:"reason"`
//	}
//
//	v, _, err := agentframework.RunStructured[Verdict](ctx, agent, "verdict", msgs)
//	var perr *agentframework.StructuredOutputParseError
//	if errors.As(err, &perr) {
//	    // the model replied, but not with a valid Verdict
//	}
//
// # Middleware
//
// Agent middleware wraps the whole run; chat middleware wraps the model call:
//
//	agent := agentframework.NewAgent(client,
//	    agentframework.WithAgentMiddleware(agentframework.LoggingMiddleware(logger)),
//	    agentframework.WithChatMiddleware(agentframework.ChatLoggingMiddleware(logger)),
//	)
//
// # Sessions
//
//	session := agent.NewSession()
//	resp1, _ := agent.Run(ctx, msgs1, agentframework.WithSession(session))
//	resp2, _ := agent.Run(ctx, msgs2, agentframework.WithSession(session))
package agentframework
