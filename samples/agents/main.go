// Copyright (c) Microsoft. All rights reserved.

// Command agents wires chat agents into workflows: a writer hands its
// draft to a reviewer, and a longer pipeline puts a researcher in front.
// Both workflows are exported as Mermaid and SVG before they run.
//
//	go run ./samples/agents             # writer -> reviewer
//	go run ./samples/agents research    # researcher -> writer -> reviewer
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/internal/config"
	"github.com/jochenvw/agent-framework-workflows/internal/logging"
	"github.com/jochenvw/agent-framework-workflows/workflow"
	"github.com/jochenvw/agent-framework-workflows/workflow/viz"
)

type role struct {
	name         string
	instructions string
}

var (
	researcher = role{"researcher", "You are a research specialist. Gather factual information on the given topic. Provide sources and key insights."}
	writer     = role{"writer", "You are an excellent content writer. You create new content and edit contents based on the feedback."}
	reviewer   = role{"reviewer", "You are an excellent content reviewer. Provide actionable feedback to the writer about the provided content. Be concise."}
)

// pipeline chains one agent executor per role in order.
func pipeline(name string, client af.ChatClient, logger *slog.Logger, roles ...role) (*workflow.Graph, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("pipeline %s has no agents", name)
	}
	b := workflow.NewBuilder(workflow.WithName(name), workflow.WithLogger(logger))
	for i, r := range roles {
		agent := af.NewAgent(client,
			af.WithName(r.name),
			af.WithInstructions(r.instructions),
			af.WithAgentMiddleware(af.LoggingMiddleware(logger)),
			af.WithChatMiddleware(af.ChatLoggingMiddleware(logger)),
		)
		if err := b.AddExecutor(workflow.NewAgentExecutor(r.name, agent)); err != nil {
			return nil, err
		}
		if i > 0 {
			if err := b.AddEdge(roles[i-1].name, r.name); err != nil {
				return nil, err
			}
		}
	}
	if err := b.SetStartExecutor(roles[0].name); err != nil {
		return nil, err
	}
	return b.Build()
}

func export(ctx context.Context, g *workflow.Graph) {
	v := viz.New(g)
	fmt.Println("Mermaid diagram (paste into https://mermaid.live):")
	fmt.Println(v.Mermaid())

	path := g.Name() + "_workflow.svg"
	if err := v.SaveSVG(ctx, path); err != nil {
		log.Printf("Could not export SVG: %v", err)
		return
	}
	fmt.Printf("SVG saved: %s\n\n", path)
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(os.Stderr, cfg.Debug)
	client, err := cfg.NewChatClient()
	if err != nil {
		log.Fatal(err)
	}

	var g *workflow.Graph
	prompt := "Create a slogan for a new electric SUV that is affordable and fun to drive."
	if len(os.Args) > 1 && os.Args[1] == "research" {
		g, err = pipeline("researcher_writer_reviewer", client, logger, researcher, writer, reviewer)
		prompt = "Write a blog post about the benefits of AI agents in enterprise"
	} else {
		g, err = pipeline("writer_reviewer", client, logger, writer, reviewer)
	}
	if err != nil {
		log.Fatal(err)
	}
	export(ctx, g)

	res, err := g.Run(ctx, prompt, workflow.WithRunLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	for _, run := range res.AgentRuns() {
		fmt.Printf("==== %s ====\n%s\n\n", strings.ToUpper(run.ExecutorID), run.Response.Text())
	}
	fmt.Printf("Workflow outputs: %v\nFinal state: %s\n", res.Outputs(), res.FinalState())
}
