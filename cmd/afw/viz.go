// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/jochenvw/agent-framework-workflows/workflow/viz"
)

func (a *app) vizCommand() *cli.Command {
	return &cli.Command{
		Name:      "viz",
		Usage:     "Draw a workflow",
		ArgsUsage: "<workflow.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "mermaid", Usage: "mermaid, dot, svg or png"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
			registryFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("viz takes exactly one workflow file")
			}
			l, err := a.load(cmd.Args().First(), cmd.String("registry"))
			if err != nil {
				return err
			}

			v, format := viz.New(l.graph), cmd.String("format")
			out := cmd.String("out")
			if out == "" {
				return draw(ctx, v, format, cmd.Root().Writer)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := draw(ctx, v, format, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.logger.InfoContext(ctx, "diagram written", "path", out, "format", format)
			return nil
		},
	}
}

func draw(ctx context.Context, v *viz.Viz, format string, w io.Writer) error {
	if format == "mermaid" {
		_, err := io.WriteString(w, v.Mermaid())
		return err
	}
	f, err := viz.ParseFormat(format)
	if err != nil {
		return err
	}
	return v.Render(ctx, f, w)
}
