// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/jochenvw/agent-framework-workflows/workflow"
)

// Schedules accept an optional leading seconds field and descriptors such
// as @hourly or @every 30s.
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *app) scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "schedule",
		Usage:     "Run a workflow on a cron schedule until interrupted",
		ArgsUsage: "<workflow.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cron", Required: true, Usage: `Schedule, e.g. "*/5 * * * *" or "@every 1m"`},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Text input for the start executor"},
			&cli.StringFlag{Name: "input-json", Usage: "JSON input for the start executor"},
			registryFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("schedule takes exactly one workflow file")
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

			return runOnSchedule(ctx, a.logger, cmd.String("cron"), func(ctx context.Context) {
				res, err := l.graph.Run(ctx, input, opts...)
				if err != nil {
					a.logger.ErrorContext(ctx, "scheduled run failed", "workflow", l.graph.Name(), "error", err)
					return
				}
				for _, out := range res.Outputs() {
					if err := printValue(cmd.Root().Writer, out); err != nil {
						a.logger.WarnContext(ctx, "cannot print output", "error", err)
					}
				}
			})
		},
	}
}

// runOnSchedule calls job on every tick of spec until ctx is done. A tick
// that arrives while the previous job is still running is skipped.
func runOnSchedule(ctx context.Context, logger *slog.Logger, spec string, job func(context.Context)) error {
	if _, err := scheduleParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	logger.InfoContext(ctx, "schedule started", "cron", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.InfoContext(ctx, "schedule stopped", "cron", spec)
	return nil
}
