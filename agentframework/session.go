// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Session is the memory of one conversation. A run given the session with
// [WithSession] sees the stored history before its own messages, and the
// request and reply are appended once the model answers.
//
// A Session is safe for concurrent use when its [MessageStore] is. Runs
// that share a session concurrently interleave their turns.
type Session struct {
	id              string
	store           MessageStore
	contextProvider ContextProvider
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithSessionID sets the session id instead of generating one.
func WithSessionID(id string) SessionOption {
	return func(s *Session) { s.id = id }
}

// WithSessionStore sets where the history is kept. The default is an
// unbounded [InMemoryStore].
func WithSessionStore(store MessageStore) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithSessionContextProvider attaches a context provider that overrides the
// agent's own for runs in this session.
func WithSessionContextProvider(cp ContextProvider) SessionOption {
	return func(s *Session) { s.contextProvider = cp }
}

// NewSession creates a session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = newUUID()
	}
	if s.store == nil {
		s.store = NewInMemoryStore(0)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Store() MessageStore { return s.store }

// ContextProvider returns the session's context provider, if any.
func (s *Session) ContextProvider() ContextProvider { return s.contextProvider }

// History returns the stored conversation, oldest first.
func (s *Session) History(ctx context.Context) ([]Message, error) {
	msgs, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSession, s.id, err)
	}
	return msgs, nil
}

// record appends one turn.
func (s *Session) record(ctx context.Context, request, reply []Message) error {
	turn := make([]Message, 0, len(request)+len(reply))
	turn = append(turn, request...)
	turn = append(turn, reply...)
	if err := s.store.AddMessages(ctx, turn); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSession, s.id, err)
	}
	return nil
}

func newUUID() string { return uuid.NewString() }
