// Copyright (c) Microsoft. All rights reserved.

package devui

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/jochenvw/agent-framework-workflows/workflow"
)

const (
	feedTopic  = "workflow.events"
	feedBuffer = 256
)

// FeedEvent is one event on the /v1/events feed, tagged with the entity
// whose run produced it.
type FeedEvent struct {
	Entity string `json:"entity"`
	workflow.EventJSON
}

type feedItem struct {
	entity string
	ev     workflow.Event
}

// publish queues ev for the feed. Runs never wait on feed subscribers; when
// the queue is full the event is dropped.
func (s *Server) publish(entity string, ev workflow.Event) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.feed <- feedItem{entity: entity, ev: ev}:
	default:
		s.logger.Warn("event feed full, dropping event", "entity", entity, "type", ev.Kind())
	}
}

// pump publishes queued events in order. Publishing blocks until every
// subscriber has acked, so subscribers see events in run order.
func (s *Server) pump() {
	defer s.pumped.Done()
	for {
		select {
		case <-s.done:
			return
		case it := <-s.feed:
			payload, err := json.Marshal(FeedEvent{Entity: it.entity, EventJSON: workflow.ToJSON(it.ev)})
			if err != nil {
				s.logger.Warn("cannot encode feed event", "entity", it.entity, "type", it.ev.Kind(), "error", err)
				continue
			}
			msg := message.NewMessage(watermill.NewULID(), payload)
			msg.Metadata.Set("type", string(it.ev.Kind()))
			msg.Metadata.Set("entity", it.entity)
			if err := s.pubsub.Publish(feedTopic, msg); err != nil {
				s.logger.Warn("cannot publish feed event", "error", err)
			}
		}
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.pubsub.Subscribe(r.Context(), feedTopic)
	if err != nil {
		writeInternal(w, r, s.logger, fmt.Errorf("subscribe to feed: %w", err))
		return
	}

	sse := newSSE(w)
	if err := sse.comment("subscribed"); err != nil {
		return
	}
	for msg := range msgs {
		err := sse.event(msg.Metadata.Get("type"), msg.Payload)
		msg.Ack()
		if err != nil {
			return
		}
	}
}

// sseWriter writes server-sent events and flushes after each one.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSE(w http.ResponseWriter) *sseWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) event(name string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.rc.Flush()
}
