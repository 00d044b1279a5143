// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"

	cli "github.com/urfave/cli/v3"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/workflow"
	"github.com/jochenvw/agent-framework-workflows/workflow/definition"
)

const defaultRegistry = "agents_registry.json"

func registryFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "registry",
		Usage:   "Agent registry file used by agent executors",
		Value:   defaultRegistry,
		Sources: cli.EnvVars("AFW_REGISTRY"),
	}
}

// loaded is a built workflow and the run options its definition implies.
type loaded struct {
	graph *workflow.Graph
	opts  []workflow.RunOption
}

// load reads the definition at path and builds it. A chat client is only
// created when the definition uses agent executors.
func (a *app) load(path, registry string) (*loaded, error) {
	def, err := definition.LoadFile(path)
	if err != nil {
		return nil, err
	}

	env := definition.Env{Logger: a.logger}
	if len(def.AgentNames()) > 0 {
		agents, err := a.agents(registry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		env.Agents = make(map[string]workflow.AgentRunner, len(agents))
		for name, agent := range agents {
			env.Agents[name] = agent
		}
	}

	g, err := def.Build(env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &loaded{graph: g, opts: def.RunOptions()}, nil
}

func (a *app) loadAll(paths []string, registry string) ([]*loaded, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one workflow file is required")
	}
	out := make([]*loaded, 0, len(paths))
	for _, p := range paths {
		l, err := a.load(p, registry)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// agents materializes the active agents of the registry at path.
func (a *app) agents(path string) (map[string]*af.Agent, error) {
	reg, err := af.LoadRegistry(path)
	if err != nil {
		return nil, err
	}
	if len(reg.Names()) == 0 {
		return map[string]*af.Agent{}, nil
	}
	client, err := a.cfg.NewChatClient()
	if err != nil {
		return nil, err
	}
	return reg.Agents(client, af.WithAgentMiddleware(af.LoggingMiddleware(a.logger))), nil
}

// parseInput returns --input-json decoded when set, else --input as text.
func parseInput(cmd *cli.Command) (any, error) {
	raw := cmd.String("input-json")
	if raw == "" {
		return cmd.String("input"), nil
	}
	if cmd.IsSet("input") {
		return nil, fmt.Errorf("--input and --input-json are mutually exclusive")
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("--input-json: %w", err)
	}
	return v, nil
}
