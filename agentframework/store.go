// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"sync"
)

// MessageStore persists conversation messages for a [Session].
type MessageStore interface {
	// ListMessages returns the stored messages in order.
	ListMessages(ctx context.Context) ([]Message, error)

	// AddMessages appends msgs in order.
	AddMessages(ctx context.Context, msgs []Message) error
}

// InMemoryStore keeps messages in memory. It is safe for concurrent use.
type InMemoryStore struct {
	mu       sync.Mutex
	limit    int
	messages []Message
}

// NewInMemoryStore creates an empty store. A positive limit keeps only the
// most recent messages, dropped from the front so the history still opens
// with a user message. Zero keeps everything.
func NewInMemoryStore(limit int) *InMemoryStore {
	return &InMemoryStore{limit: max(limit, 0)}
}

func (s *InMemoryStore) ListMessages(_ context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...), nil
}

func (s *InMemoryStore) AddMessages(_ context.Context, msgs []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
	if s.limit == 0 || len(s.messages) <= s.limit {
		return nil
	}
	drop := len(s.messages) - s.limit
	for drop < len(s.messages) && s.messages[drop].Role != RoleUser {
		drop++
	}
	s.messages = append([]Message(nil), s.messages[drop:]...)
	return nil
}

// Len returns the number of stored messages.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
