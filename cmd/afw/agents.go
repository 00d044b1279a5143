// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

func (a *app) agentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "agents",
		Usage: "Manage the agent registry",
		Flags: []cli.Flag{registryFlag()},
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List registered agents",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					reg, err := af.LoadRegistry(cmd.String("registry"))
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "NAME\tTYPE\tSTATUS\tDESCRIPTION")
					for _, name := range reg.Names() {
						spec, err := reg.Lookup(name)
						if err != nil {
							return err
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, spec.Type, spec.Status, spec.Description)
					}
					return tw.Flush()
				},
			},
			{
				Name:      "register",
				Usage:     "Add or replace an agent",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "instructions", Usage: "System instructions"},
					&cli.StringFlag{Name: "description", Usage: "What the agent is for"},
					&cli.StringFlag{Name: "type", Value: "chat", Usage: "Free-form agent type"},
					&cli.StringFlag{Name: "status", Value: "active", Usage: "Only active agents are loaded"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("register takes exactly one agent name")
					}
					path := cmd.String("registry")
					reg, err := af.LoadRegistry(path)
					if err != nil {
						return err
					}
					spec := af.AgentSpec{
						Name:         cmd.Args().First(),
						Type:         cmd.String("type"),
						Instructions: cmd.String("instructions"),
						Description:  cmd.String("description"),
						Status:       cmd.String("status"),
					}
					if err := reg.Register(spec); err != nil {
						return err
					}
					if err := reg.Save(); err != nil {
						return err
					}
					a.logger.InfoContext(ctx, "agent registered", "name", spec.Name, "registry", path)
					return nil
				},
			},
		},
	}
}
