// Copyright (c) Microsoft. All rights reserved.

// Package workflow runs directed graphs of executors. Executors are named
// handlers that pass typed messages along edges. A graph is declared with a
// [Builder], validated once, and then run any number of times.
//
// # Execution model
//
// Every executor with a pending message is dispatched at once and runs
// concurrently with the rest. When a handler returns, the messages it sent
// are routed in emission order and their targets start right away, so a
// slow branch never delays a sibling's successors. An edge fires when its
// predicate is nil or true, and every matching edge fires.
//
// A fan-in target declared with [Builder.AddFanInEdges] waits for all of
// its sources and receives a single [TypeJoin] message whose items are in
// source declaration order, whatever order the sources finished in. If a
// source can no longer produce a message (for example, a router took the
// other branch) the join fires with what it has.
//
// Only terminal executors, those without outgoing edges, may call
// [Context.YieldOutput].
//
// # Example
//
//	upper := workflow.NewFunc("upper", func(ctx context.Context, s string, wc *workflow.Context) error {
//	    return wc.SendMessage(strings.ToUpper(s))
//	})
//	reverse := workflow.NewFunc("reverse", func(ctx context.Context, s string, wc *workflow.Context) error {
//	    return wc.YieldOutput(reverseString(s))
//	})
//
//	b := workflow.NewBuilder()
//	_ = b.AddExecutor(upper)
//	_ = b.AddExecutor(reverse)
//	_ = b.AddEdge("upper", "reverse")
//	_ = b.SetStartExecutor("upper")
//	g, _ := b.Build()
//
//	res, err := g.Run(ctx, "hello world")
//	fmt.Println(res.Outputs()) // [DLROW OLLEH]
//
// # Streaming
//
// [Graph.RunStream] returns events as they happen. Closing the stream
// cancels the run.
//
// # Agents
//
// [NewAgentExecutor] and [NewStructuredAgentExecutor] put an
// [agentframework.Agent] into a graph.
package workflow
