// Copyright (c) Microsoft. All rights reserved.

package workflow

import "fmt"

// TypeJoin is the Type of the message a fan-in target receives.
const TypeJoin = "workflow.join"

// Message is the envelope passed along edges. Type is the discriminant
// predicates match on; Source is the executor that sent it, empty for the
// run input.
type Message struct {
	Type   string
	Data   any
	Source string
}

// Typed lets a payload name its own message type.
type Typed interface {
	MessageType() string
}

// NewMessage builds an envelope with an explicit type.
func NewMessage(typ string, data any) Message {
	return Message{Type: typ, Data: data}
}

// Batch returns the joined messages of a fan-in delivery in source
// declaration order, or m itself for a plain message.
func (m Message) Batch() []Message {
	if m.Type == TypeJoin {
		if items, ok := m.Data.([]Message); ok {
			return items
		}
	}
	return []Message{m}
}

// wrap converts a sent value into an envelope stamped with source.
func wrap(v any, source string) Message {
	if m, ok := v.(Message); ok {
		if m.Type == "" {
			m.Type = typeOf(m.Data)
		}
		m.Source = source
		return m
	}
	return Message{Type: typeOf(v), Data: v, Source: source}
}

func typeOf(v any) string {
	if t, ok := v.(Typed); ok {
		return t.MessageType()
	}
	return fmt.Sprintf("%T", v)
}
