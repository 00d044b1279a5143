// Copyright (c) Microsoft. All rights reserved.

// Package devui serves workflows and agents over HTTP for local
// development: listing entities, drawing graphs, running them and
// streaming their events.
//
//	srv := devui.New(devui.WithLogger(logger))
//	_ = srv.AddWorkflow(graph)
//	_ = srv.AddAgent(agent)
//	err := srv.ListenAndServe(ctx, ":8090")
package devui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/workflow"
)

// DefaultPort is the port the dev server listens on unless told otherwise.
const DefaultPort = 8090

// ErrEntity is returned when an entity cannot be registered.
var ErrEntity = errors.New("devui: invalid entity")

// Server is the dev server's HTTP handler.
type Server struct {
	logger   *slog.Logger
	mux      *http.ServeMux
	validate *validator.Validate

	mu            sync.RWMutex
	entities      map[string]*entity
	order         []string
	conversations map[string]*conversation

	pubsub *gochannel.GoChannel
	feed   chan feedItem
	done   chan struct{}
	once   sync.Once
	pumped sync.WaitGroup
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger for requests and runs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New returns a server with no entities. Call [Server.Close] to stop the
// event feed.
func New(opts ...Option) *Server {
	s := &Server{
		logger:   slog.Default(),
		mux:      http.NewServeMux(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		entities: make(map[string]*entity),
		feed:     make(chan feedItem, feedBuffer),
		done:     make(chan struct{}),

		conversations: make(map[string]*conversation),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validate.RegisterTagNameFunc(jsonName)
	s.pubsub = gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            feedBuffer,
		Persistent:                     false,
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NewSlogLogger(s.logger))

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /v1/entities", s.handleList)
	s.mux.HandleFunc("GET /v1/entities/{id}", s.handleGet)
	s.mux.HandleFunc("GET /v1/entities/{id}/diagram", s.handleDiagram)
	s.mux.HandleFunc("POST /v1/entities/{id}/run", s.handleRun)
	s.mux.HandleFunc("POST /v1/entities/{id}/stream", s.handleStream)
	s.mux.HandleFunc("GET /v1/events", s.handleEvents)
	s.mux.HandleFunc("POST /v1/conversations", s.handleCreateConversation)
	s.mux.HandleFunc("GET /v1/conversations/{id}", s.handleGetConversation)
	s.mux.HandleFunc("DELETE /v1/conversations/{id}", s.handleDeleteConversation)

	s.pumped.Add(1)
	go s.pump()
	return s
}

// AddWorkflow registers g under its name. opts apply to every run of g.
func (s *Server) AddWorkflow(g *workflow.Graph, opts ...workflow.RunOption) error {
	if g == nil || g.Name() == "" {
		return fmt.Errorf("%w: workflow must be named", ErrEntity)
	}
	return s.add(&entity{
		info:  Entity{ID: g.Name(), Type: TypeWorkflow, Name: g.Name(), Description: g.Description()},
		graph: g,
		opts:  opts,
	})
}

// AddAgent registers a as a one-executor workflow under its name, so it
// runs, streams and draws like any other entity.
func (s *Server) AddAgent(a *af.Agent) error {
	if a == nil || a.Name() == "" {
		return fmt.Errorf("%w: agent must be named", ErrEntity)
	}
	b := workflow.NewBuilder(
		workflow.WithName(a.Name()),
		workflow.WithDescription(a.Description()),
		workflow.WithLogger(s.logger),
	)
	if err := b.AddExecutor(workflow.NewAgentExecutor(a.Name(), a)); err != nil {
		return err
	}
	if err := b.SetStartExecutor(a.Name()); err != nil {
		return err
	}
	g, err := b.Build()
	if err != nil {
		return err
	}
	return s.add(&entity{
		info: Entity{
			ID:           a.Name(),
			Type:         TypeAgent,
			Name:         a.Name(),
			Description:  a.Description(),
			Instructions: a.Instructions(),
		},
		graph: g,
	})
}

func (s *Server) add(e *entity) error {
	e.info.StartExecutorID = e.graph.StartExecutorID()
	for _, ex := range e.graph.Executors() {
		e.info.Executors = append(e.info.Executors, ex.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[e.info.ID]; ok {
		return fmt.Errorf("%w: %q is already registered", ErrEntity, e.info.ID)
	}
	s.entities[e.info.ID] = e
	s.order = append(s.order, e.info.ID)
	return nil
}

func (s *Server) lookup(id string) (*entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	return e, ok
}

func (s *Server) list() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entities[id].info)
	}
	return out
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.DebugContext(r.Context(), "http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and closes the event feed.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.InfoContext(ctx, "dev server listening", "addr", addr)

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("devui: shutdown: %w", err)
	}
	return nil
}

// Close stops the event feed. It is safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.pumped.Wait()
		err = s.pubsub.Close()
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"entities": s.list()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.logger, http.StatusOK, e.detail())
}
