// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	cli "github.com/urfave/cli/v3"

	"github.com/jochenvw/agent-framework-workflows/workflow"
)

func (a *app) runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a workflow and print its outputs",
		ArgsUsage: "<workflow.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Text input for the start executor"},
			&cli.StringFlag{Name: "input-json", Usage: "JSON input for the start executor"},
			&cli.BoolFlag{Name: "stream", Usage: "Print every event as a JSON line while the run progresses"},
			&cli.IntFlag{Name: "max-supersteps", Usage: "Override the superstep limit"},
			registryFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("run takes exactly one workflow file")
			}
			l, err := a.load(cmd.Args().First(), cmd.String("registry"))
			if err != nil {
				return err
			}
			input, err := parseInput(cmd)
			if err != nil {
				return err
			}

			opts := append([]workflow.RunOption{workflow.WithRunLogger(a.logger)}, l.opts...)
			if n := cmd.Int("max-supersteps"); n > 0 {
				opts = append(opts, workflow.WithMaxSupersteps(n))
			}

			if cmd.Bool("stream") {
				return streamRun(ctx, cmd.Root().Writer, l.graph, input, opts)
			}
			res, err := l.graph.Run(ctx, input, opts...)
			if err != nil {
				return fmt.Errorf("workflow %s: %w", l.graph.Name(), err)
			}
			for _, out := range res.Outputs() {
				if err := printValue(cmd.Root().Writer, out); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func streamRun(ctx context.Context, w io.Writer, g *workflow.Graph, input any, opts []workflow.RunOption) error {
	stream := g.RunStream(ctx, input, opts...)
	var events []workflow.Event
	for ev, err := range stream.All(ctx) {
		if err != nil {
			return err
		}
		events = append(events, ev)
		line, err := workflow.MarshalEvent(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(line)); err != nil {
			return err
		}
	}
	if err := workflow.NewRunResult(events).Err(); err != nil {
		return fmt.Errorf("workflow %s: %w", g.Name(), err)
	}
	return nil
}

// printValue writes strings as-is and anything else as JSON.
func printValue(w io.Writer, v any) error {
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
