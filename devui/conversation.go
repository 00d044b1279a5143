// Copyright (c) Microsoft. All rights reserved.

package devui

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

// ConversationRequest starts a conversation with an entity. MaxMessages
// bounds each agent's remembered history; zero keeps everything.
type ConversationRequest struct {
	EntityID    string `json:"entity_id" validate:"required"`
	MaxMessages int    `json:"max_messages,omitempty" validate:"gte=0,lte=1000"`
}

// Conversation is the wire form of a conversation. History maps each
// agent executor that has run in it to its remembered messages.
type Conversation struct {
	ID       string                   `json:"id"`
	EntityID string                   `json:"entity_id"`
	History  map[string][]ChatMessage `json:"history"`
}

// ChatMessage is the text form of one remembered message.
type ChatMessage struct {
	Role af.Role `json:"role"`
	Text string  `json:"text"`
}

// conversation holds one session per agent executor. Sessions are created
// on first use so workflows without agents cost nothing.
type conversation struct {
	id          string
	entityID    string
	maxMessages int

	mu       sync.Mutex
	sessions map[string]*af.Session
}

func newConversation(entityID string, maxMessages int) *conversation {
	return &conversation{
		id:          uuid.NewString(),
		entityID:    entityID,
		maxMessages: maxMessages,
		sessions:    make(map[string]*af.Session),
	}
}

// session implements [workflow.SessionFunc].
func (c *conversation) session(executorID string) *af.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[executorID]
	if !ok {
		s = af.NewSession(
			af.WithSessionID(c.id+"/"+executorID),
			af.WithSessionStore(af.NewInMemoryStore(c.maxMessages)),
		)
		c.sessions[executorID] = s
	}
	return s
}

func (c *conversation) snapshot(ctx context.Context) (Conversation, error) {
	c.mu.Lock()
	sessions := make(map[string]*af.Session, len(c.sessions))
	for id, s := range c.sessions {
		sessions[id] = s
	}
	c.mu.Unlock()

	out := Conversation{ID: c.id, EntityID: c.entityID, History: make(map[string][]ChatMessage, len(sessions))}
	for id, s := range sessions {
		msgs, err := s.History(ctx)
		if err != nil {
			return Conversation{}, err
		}
		history := make([]ChatMessage, len(msgs))
		for i := range msgs {
			history[i] = ChatMessage{Role: msgs[i].Role, Text: msgs[i].Text()}
		}
		out.History[id] = history
	}
	return out, nil
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[ConversationRequest](s, w, r)
	if !ok {
		return
	}
	if _, ok := s.lookup(req.EntityID); !ok {
		writeNotFound(w, r, s.logger, "entity "+req.EntityID+" not found")
		return
	}

	c := newConversation(req.EntityID, req.MaxMessages)
	s.mu.Lock()
	s.conversations[c.id] = c
	s.mu.Unlock()
	s.logger.InfoContext(r.Context(), "conversation started", "conversation_id", c.id, "entity", c.entityID)

	writeJSON(w, s.logger, http.StatusCreated, Conversation{ID: c.id, EntityID: c.entityID, History: map[string][]ChatMessage{}})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	c, ok := s.conversationByPath(w, r)
	if !ok {
		return
	}
	snap, err := c.snapshot(r.Context())
	if err != nil {
		writeInternal(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, snap)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	_, ok := s.conversations[id]
	delete(s.conversations, id)
	s.mu.Unlock()
	if !ok {
		writeNotFound(w, r, s.logger, "conversation "+id+" not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) conversationByPath(w http.ResponseWriter, r *http.Request) (*conversation, bool) {
	id := r.PathValue("id")
	s.mu.RLock()
	c, ok := s.conversations[id]
	s.mu.RUnlock()
	if !ok {
		writeNotFound(w, r, s.logger, "conversation "+id+" not found")
	}
	return c, ok
}

// runConversation resolves the conversation a run asked for. A run without
// one gets nil.
func (s *Server) runConversation(w http.ResponseWriter, r *http.Request, e *entity, id string) (*conversation, bool) {
	if id == "" {
		return nil, true
	}
	s.mu.RLock()
	c, ok := s.conversations[id]
	s.mu.RUnlock()
	switch {
	case !ok:
		writeNotFound(w, r, s.logger, "conversation "+id+" not found")
		return nil, false
	case c.entityID != e.info.ID:
		writeBadRequest(w, r, s.logger, fmt.Sprintf("conversation %s belongs to %s", id, c.entityID))
		return nil, false
	}
	return c, true
}
