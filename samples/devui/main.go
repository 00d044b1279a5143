// Copyright (c) Microsoft. All rights reserved.

// Command devui serves a weather agent, a writer/reviewer workflow and a
// plain text workflow on the dev server. Without a configured chat client
// only the text workflow is served.
//
//	go run ./samples/devui
//	curl localhost:8090/v1/entities
//	curl -d '{"input": "hello"}' localhost:8090/v1/entities/shout/run
//	curl -N localhost:8090/v1/events
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/devui"
	"github.com/jochenvw/agent-framework-workflows/internal/config"
	"github.com/jochenvw/agent-framework-workflows/internal/logging"
	"github.com/jochenvw/agent-framework-workflows/workflow"
)

func shout() (*workflow.Graph, error) {
	b := workflow.NewBuilder(
		workflow.WithName("shout"),
		workflow.WithDescription("Upper-case the input and add an exclamation mark"),
	)
	if err := b.AddExecutor(workflow.NewFunc("upper", func(ctx context.Context, s string, wc *workflow.Context) error {
		return wc.SendMessage(strings.ToUpper(s))
	})); err != nil {
		return nil, err
	}
	if err := b.AddExecutor(workflow.NewFunc("exclaim", func(ctx context.Context, s string, wc *workflow.Context) error {
		return wc.YieldOutput(s + "!")
	})); err != nil {
		return nil, err
	}
	if err := b.AddEdge("upper", "exclaim"); err != nil {
		return nil, err
	}
	if err := b.SetStartExecutor("upper"); err != nil {
		return nil, err
	}
	return b.Build()
}

func writerReviewer(client af.ChatClient, logger *slog.Logger) (*workflow.Graph, error) {
	mw := af.WithAgentMiddleware(af.LoggingMiddleware(logger))
	writer := af.NewAgent(client, af.WithName("writer"), mw,
		af.WithInstructions("You are an excellent content writer. You create new content and edit contents based on the feedback."))
	reviewer := af.NewAgent(client, af.WithName("reviewer"), mw,
		af.WithInstructions("You are an excellent content reviewer. Provide concise, actionable feedback."))

	b := workflow.NewBuilder(
		workflow.WithName("writer_reviewer"),
		workflow.WithDescription("A writer drafts, a reviewer critiques"),
		workflow.WithLogger(logger),
	)
	if err := b.AddExecutor(workflow.NewAgentExecutor("writer", writer)); err != nil {
		return nil, err
	}
	if err := b.AddExecutor(workflow.NewAgentExecutor("reviewer", reviewer)); err != nil {
		return nil, err
	}
	if err := b.AddEdge("writer", "reviewer"); err != nil {
		return nil, err
	}
	if err := b.SetStartExecutor("writer"); err != nil {
		return nil, err
	}
	return b.Build()
}

func weatherAgent(client af.ChatClient, logger *slog.Logger) *af.Agent {
	return af.NewAgent(client,
		af.WithName("WeatherAgent"),
		af.WithDescription("A helpful agent that provides weather information and forecasts"),
		af.WithInstructions("You are a weather assistant. You provide current weather information "+
			"and forecasts for any location. Always be helpful and detailed."),
		af.WithAgentMiddleware(af.LoggingMiddleware(logger)),
	)
}

// register adds everything that can be served with the given client.
// A nil client serves the text workflow alone.
func register(srv *devui.Server, client af.ChatClient, logger *slog.Logger) error {
	g, err := shout()
	if err != nil {
		return err
	}
	if err := srv.AddWorkflow(g); err != nil {
		return err
	}
	if client == nil {
		return nil
	}

	wr, err := writerReviewer(client, logger)
	if err != nil {
		return err
	}
	if err := srv.AddWorkflow(wr); err != nil {
		return err
	}
	return srv.AddAgent(weatherAgent(client, logger))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(os.Stderr, cfg.Debug)
	slog.SetDefault(logger)

	client, err := cfg.NewChatClient()
	if errors.Is(err, config.ErrNoChatClient) {
		logger.Warn("no chat client configured, serving the text workflow only")
		client = nil
	} else if err != nil {
		log.Fatal(err)
	}

	srv := devui.New(devui.WithLogger(logger))
	defer srv.Close()
	if err := register(srv, client, logger); err != nil {
		log.Fatal(err)
	}

	addr := fmt.Sprintf(":%d", cfg.DevUIPort)
	logger.Info("dev server starting", "url", fmt.Sprintf("http://localhost%s", addr))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		log.Fatal(err)
	}
}
