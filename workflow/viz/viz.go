// Copyright (c) Microsoft. All rights reserved.

// Package viz draws workflow graphs as Mermaid flowcharts and Graphviz
// diagrams.
package viz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/jochenvw/agent-framework-workflows/workflow"
)

// Format is an output format for [Viz.Render].
type Format string

const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ErrFormat is returned for an unsupported output format.
var ErrFormat = errors.New("viz: unsupported format")

// ParseFormat maps a name such as "svg" to a [Format].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatSVG, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrFormat, s)
}

// Viz renders one graph.
type Viz struct {
	g *workflow.Graph
}

// New returns a renderer for g.
func New(g *workflow.Graph) *Viz {
	return &Viz{g: g}
}

// Mermaid returns a top-down flowchart. The start executor is marked,
// conditional edges are dashed and fan-in sources meet in a join node.
func (v *Viz) Mermaid() string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	if v.g.Name() != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", v.g.Name())
	}

	for _, e := range v.g.Executors() {
		label := e.ID
		if e.ID == v.g.StartExecutorID() {
			label += " (Start)"
		}
		fmt.Fprintf(&b, "    %s[%q]\n", safeID(e.ID), label)
	}
	for _, f := range v.g.FanIns() {
		fmt.Fprintf(&b, "    %s((join))\n", joinID(f.Target))
	}

	for _, e := range v.g.Edges() {
		to := safeID(e.Target)
		if e.Kind == workflow.EdgeFanIn {
			to = joinID(e.Target)
		}
		fmt.Fprintf(&b, "    %s %s %s\n", safeID(e.Source), mermaidArrow(e), to)
	}
	for _, f := range v.g.FanIns() {
		fmt.Fprintf(&b, "    %s --> %s\n", joinID(f.Target), safeID(f.Target))
	}
	return b.String()
}

func mermaidArrow(e workflow.Edge) string {
	switch {
	case e.Conditional() && e.Label != "":
		return fmt.Sprintf("-. %s .->", e.Label)
	case e.Conditional():
		return "-.->"
	case e.Label != "":
		return fmt.Sprintf("-->|%s|", e.Label)
	default:
		return "-->"
	}
}

// Digraph returns the graph in Graphviz DOT syntax.
func (v *Viz) Digraph(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	if err := v.Render(ctx, FormatDOT, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render lays the graph out with Graphviz and writes it to w.
func (v *Viz) Render(ctx context.Context, format Format, w io.Writer) error {
	if _, err := ParseFormat(string(format)); err != nil {
		return err
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("viz: create graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return fmt.Errorf("viz: create graph: %w", err)
	}
	defer graph.Close()

	if err := v.build(graph); err != nil {
		return err
	}
	if err := gv.Render(ctx, graph, graphviz.Format(format), w); err != nil {
		return fmt.Errorf("viz: render %s: %w", format, err)
	}
	return nil
}

func (v *Viz) build(graph *cgraph.Graph) error {
	graph.SetRankDir(cgraph.TBRank)
	if v.g.Name() != "" {
		graph.SetLabel(v.g.Name())
	}

	nodes := make(map[string]*cgraph.Node)
	for _, e := range v.g.Executors() {
		n, err := graph.CreateNodeByName(e.ID)
		if err != nil {
			return fmt.Errorf("viz: create node %s: %w", e.ID, err)
		}
		n.SetShape(cgraph.BoxShape)
		n.SetLabel(e.ID)
		if e.ID == v.g.StartExecutorID() {
			n.SetLabel(e.ID + " (Start)")
			n.SetStyle(cgraph.BoldNodeStyle)
		}
		nodes[e.ID] = n
	}
	for _, f := range v.g.FanIns() {
		id := joinID(f.Target)
		n, err := graph.CreateNodeByName(id)
		if err != nil {
			return fmt.Errorf("viz: create node %s: %w", id, err)
		}
		n.SetShape(cgraph.CircleShape)
		n.SetLabel("join")
		nodes[id] = n
	}

	for _, e := range v.g.Edges() {
		to := e.Target
		if e.Kind == workflow.EdgeFanIn {
			to = joinID(e.Target)
		}
		edge, err := graph.CreateEdgeByName("", nodes[e.Source], nodes[to])
		if err != nil {
			return fmt.Errorf("viz: create edge %s -> %s: %w", e.Source, to, err)
		}
		if e.Label != "" {
			edge.SetLabel(e.Label)
		}
		if e.Conditional() {
			edge.SetStyle(cgraph.DashedEdgeStyle)
		}
	}
	for _, f := range v.g.FanIns() {
		if _, err := graph.CreateEdgeByName("", nodes[joinID(f.Target)], nodes[f.Target]); err != nil {
			return fmt.Errorf("viz: create join edge %s: %w", f.Target, err)
		}
	}
	return nil
}

// SaveSVG writes an SVG rendering to path.
func (v *Viz) SaveSVG(ctx context.Context, path string) error {
	return v.save(ctx, FormatSVG, path)
}

// SavePNG writes a PNG rendering to path.
func (v *Viz) SavePNG(ctx context.Context, path string) error {
	return v.save(ctx, FormatPNG, path)
}

func (v *Viz) save(ctx context.Context, format Format, path string) error {
	var buf bytes.Buffer
	if err := v.Render(ctx, format, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("viz: write %s: %w", path, err)
	}
	return nil
}

func safeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, id)
}

func joinID(target string) string {
	return "join_" + safeID(target)
}
