// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// AgentSpec describes a registered agent.
type AgentSpec struct {
	Name         string    `json:"-"`
	Type         string    `json:"type"`
	Instructions string    `json:"instructions,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Status       string    `json:"status"`
}

// Registry maps agent names to their specs and persists them to a JSON file.
// Registering an existing name replaces it, so repeated setup is idempotent.
type Registry struct {
	mu    sync.RWMutex
	path  string
	specs map[string]AgentSpec
	now   func() time.Time
}

// NewRegistry returns an empty registry that saves to path.
// An empty path keeps the registry in memory only.
func NewRegistry(path string) *Registry {
	return &Registry{path: path, specs: make(map[string]AgentSpec), now: time.Now}
}

// LoadRegistry reads the registry at path. A missing file yields an empty registry.
func LoadRegistry(path string) (*Registry, error) {
	r := NewRegistry(path)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrRegistry, path, err)
	}
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.specs); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrRegistry, path, err)
	}
	for name, spec := range r.specs {
		spec.Name = name
		r.specs[name] = spec
	}
	return r, nil
}

// Save writes the registry to its file. It is a no-op for in-memory registries.
func (r *Registry) Save() error {
	if r.path == "" {
		return nil
	}
	r.mu.RLock()
	data, err := json.MarshalIndent(r.specs, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrRegistry, err)
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrRegistry, err)
		}
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrRegistry, r.path, err)
	}
	return nil
}

// Register adds or replaces spec. CreatedAt and Status default to now and "active".
func (r *Registry) Register(spec AgentSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: agent name is required", ErrRegistry)
	}
	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = r.now().UTC()
	}
	if spec.Status == "" {
		spec.Status = "active"
	}
	r.mu.Lock()
	r.specs[spec.Name] = spec
	r.mu.Unlock()
	return nil
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (AgentSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	if !ok {
		return AgentSpec{}, fmt.Errorf("%w: %q", ErrAgentNotRegistered, name)
	}
	return spec, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Agents builds an [Agent] for every active spec, keyed by name.
func (r *Registry) Agents(client ChatClient, opts ...AgentOption) map[string]*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Agent, len(r.specs))
	for name, spec := range r.specs {
		if spec.Status != "active" {
			continue
		}
		agentOpts := append([]AgentOption{
			WithName(name),
			WithDescription(spec.Description),
			WithInstructions(spec.Instructions),
		}, opts...)
		out[name] = NewAgent(client, agentOpts...)
	}
	return out
}
