// Copyright (c) Microsoft. All rights reserved.

// Command afw runs, draws, serves and schedules workflows declared in YAML.
//
//	afw run samples/workflows/triage.yaml --input-json '{"severity": 5, "text": "db down"}'
//	afw viz samples/workflows/prices.yaml --format svg --out prices.svg
//	afw serve samples/workflows/*.yaml
//	afw agents register writer --instructions "You write slogans."
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/jochenvw/agent-framework-workflows/internal/config"
	"github.com/jochenvw/agent-framework-workflows/internal/logging"
	"github.com/jochenvw/agent-framework-workflows/internal/telemetry"
)

const serviceName = "afw"

// app holds what every subcommand shares. Before fills it in.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	shutdown telemetry.Shutdown
}

func newCommand() *cli.Command {
	a := &app{}
	return &cli.Command{
		Name:                  "afw",
		Usage:                 "Run and inspect agent workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log at debug level (also enabled by DEBUG)",
			},
		},
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			a.runCommand(),
			a.vizCommand(),
			a.serveCommand(),
			a.mcpCommand(),
			a.scheduleCommand(),
			a.agentsCommand(),
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("env-file"))
	if err != nil {
		return ctx, err
	}
	a.cfg = cfg
	a.logger = logging.New(cmd.Root().ErrWriter, cfg.Debug || cmd.Bool("debug"))
	slog.SetDefault(a.logger)

	a.shutdown, err = telemetry.Setup(ctx, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		return ctx, err
	}
	return ctx, nil
}

func (a *app) after(ctx context.Context, _ *cli.Command) error {
	if a.shutdown == nil {
		return nil
	}
	if err := a.shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger.ErrorContext(ctx, "failed to shut down tracing", "error", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "afw:", err)
		os.Exit(1)
	}
}
