// Copyright (c) Microsoft. All rights reserved.

// Command branching routes submissions by score: a grader sends each
// Grade to either the approve or the review executor depending on which
// edge condition holds.
//
//	go run ./samples/branching
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jochenvw/agent-framework-workflows/internal/logging"
	"github.com/jochenvw/agent-framework-workflows/workflow"
	"github.com/jochenvw/agent-framework-workflows/workflow/viz"
)

const passMark = 80

// Submission is the workflow input.
type Submission struct {
	Student string
	Answers []bool
}

// Grade is the grader's verdict, routed on Score.
type Grade struct {
	Student string
	Score   int
}

// MessageType names Grade on the wire and in diagrams.
func (Grade) MessageType() string { return "grade" }

func grade(s Submission) Grade {
	if len(s.Answers) == 0 {
		return Grade{Student: s.Student}
	}
	right := 0
	for _, ok := range s.Answers {
		if ok {
			right++
		}
	}
	return Grade{Student: s.Student, Score: right * 100 / len(s.Answers)}
}

func passed(g Grade) bool { return g.Score >= passMark }

func scoreRouter() (*workflow.Graph, error) {
	grader := workflow.NewFunc("grader", func(ctx context.Context, s Submission, wc *workflow.Context) error {
		return wc.SendMessage(grade(s))
	})
	approve := workflow.NewFunc("approve", func(ctx context.Context, g Grade, wc *workflow.Context) error {
		return wc.YieldOutput(fmt.Sprintf("%s passed with %d", g.Student, g.Score))
	})
	review := workflow.NewFunc("review", func(ctx context.Context, g Grade, wc *workflow.Context) error {
		return wc.YieldOutput(fmt.Sprintf("%s needs review (%d < %d)", g.Student, g.Score, passMark))
	})

	b := workflow.NewBuilder(
		workflow.WithName("score_router"),
		workflow.WithDescription("Approve passing grades and send the rest to review"),
	)
	for _, e := range []workflow.Executor{grader, approve, review} {
		if err := b.AddExecutor(e); err != nil {
			return nil, err
		}
	}
	pass := workflow.When(passed)
	if err := b.AddEdge("grader", "approve", workflow.WithCondition(pass), workflow.WithLabel("score >= 80")); err != nil {
		return nil, err
	}
	if err := b.AddEdge("grader", "review", workflow.WithCondition(workflow.Not(pass)), workflow.WithLabel("score < 80")); err != nil {
		return nil, err
	}
	if err := b.SetStartExecutor("grader"); err != nil {
		return nil, err
	}
	return b.Build()
}

func main() {
	ctx := context.Background()
	logger := logging.New(os.Stderr, os.Getenv("DEBUG") != "")

	g, err := scoreRouter()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(viz.New(g).Mermaid())

	for _, s := range []Submission{
		{"alice", []bool{true, true, true, true, false}},
		{"bob", []bool{true, false, false, true}},
	} {
		res, err := g.Run(ctx, s, workflow.WithRunLogger(logger))
		if err != nil {
			log.Fatal(err)
		}
		var path []string
		for _, ev := range res.Events {
			if inv, ok := ev.(workflow.ExecutorInvoked); ok {
				path = append(path, inv.ExecutorID)
			}
		}
		fmt.Printf("%s: %v\n", strings.Join(path, " -> "), res.Outputs()[0])
	}
}
