// Copyright (c) Microsoft. All rights reserved.

package workflow

// EdgeKind distinguishes how an edge was declared.
type EdgeKind string

const (
	EdgeDirect EdgeKind = "direct"
	EdgeFanOut EdgeKind = "fan-out"
	EdgeFanIn  EdgeKind = "fan-in"
)

// Predicate gates an edge. A nil predicate always fires.
type Predicate func(Message) bool

// Edge connects two executors.
type Edge struct {
	Source    string
	Target    string
	Condition Predicate
	Label     string
	Kind      EdgeKind
}

// Conditional reports whether the edge carries a predicate.
func (e Edge) Conditional() bool { return e.Condition != nil }

func (e Edge) accepts(m Message) bool {
	return e.Condition == nil || e.Condition(m)
}

// FanIn is a join: Target fires with one message per contributing source.
type FanIn struct {
	Target  string
	Sources []string
}

// EdgeOption configures an edge added with [Builder.AddEdge].
type EdgeOption func(*Edge)

// WithCondition gates the edge on p.
func WithCondition(p Predicate) EdgeOption {
	return func(e *Edge) { e.Condition = p }
}

// WithLabel sets a display label, used by diagrams.
func WithLabel(label string) EdgeOption {
	return func(e *Edge) { e.Label = label }
}

// IsType matches messages whose Type is typ.
func IsType(typ string) Predicate {
	return func(m Message) bool { return m.Type == typ }
}

// When matches messages carrying a T for which fn returns true.
// Payloads of any other type never match.
//
//	b.AddEdge("grader", "approve", workflow.WithCondition(
//	    workflow.When(func(g Grade) bool { return g.Score >= 80 }),
//	))
func When[T any](fn func(T) bool) Predicate {
	return func(m Message) bool {
		v, ok := m.Data.(T)
		return ok && fn(v)
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(m Message) bool { return !p(m) }
}

// ParseFailed matches the [ParseFailure] a structured agent executor sends
// when the model reply does not fit the requested schema.
func ParseFailed() Predicate {
	return func(m Message) bool {
		_, ok := m.Data.(ParseFailure)
		return ok
	}
}
