// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	cli "github.com/urfave/cli/v3"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/devui"
	"github.com/jochenvw/agent-framework-workflows/internal/config"
	"github.com/jochenvw/agent-framework-workflows/mcpserver"
)

func (a *app) serveCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve workflows and registered agents on the dev server",
		ArgsUsage: "<workflow.yaml>...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default DEVUI_PORT or 8090)"},
			registryFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			workflows, err := a.loadAll(cmd.Args().Slice(), cmd.String("registry"))
			if err != nil {
				return err
			}

			srv := devui.New(devui.WithLogger(a.logger))
			defer srv.Close()
			for _, l := range workflows {
				if err := srv.AddWorkflow(l.graph, l.opts...); err != nil {
					return err
				}
			}

			agents, err := a.registeredAgents(cmd.String("registry"))
			if err != nil {
				return err
			}
			for _, agent := range agents {
				if err := srv.AddAgent(agent); err != nil {
					return err
				}
			}

			port := a.cfg.DevUIPort
			if cmd.IsSet("port") {
				port = cmd.Int("port")
			}
			return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
		},
	}
}

// registeredAgents returns the registry's agents in name order. Without a
// configured chat client the registry is skipped with a warning.
func (a *app) registeredAgents(path string) ([]*af.Agent, error) {
	byName, err := a.agents(path)
	if errors.Is(err, config.ErrNoChatClient) {
		a.logger.Warn("no chat client configured, serving workflows only")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]*af.Agent, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}
	return out, nil
}

func (a *app) mcpCommand() *cli.Command {
	return &cli.Command{
		Name:      "mcp",
		Usage:     "Serve workflows as MCP tools over stdio",
		ArgsUsage: "<workflow.yaml>...",
		Flags:     []cli.Flag{registryFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			workflows, err := a.loadAll(cmd.Args().Slice(), cmd.String("registry"))
			if err != nil {
				return err
			}
			srv := mcpserver.New(mcpserver.WithLogger(a.logger))
			for _, l := range workflows {
				if err := srv.AddWorkflow(l.graph, l.opts...); err != nil {
					return err
				}
			}
			return srv.Serve(ctx)
		},
	}
}
