// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"maps"
	"strings"
)

// ChatOptions configures one model call. Nil pointers and zero values
// leave the provider default in place.
type ChatOptions struct {
	ModelID          string
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	Stop             []string
	Seed             *int
	FrequencyPenalty *float64
	PresencePenalty  *float64
	ResponseFormat   *ResponseFormat
	Metadata         map[string]string
	User             string
	Instructions     string
	Store            *bool
}

// MergeChatOptions overlays the set fields of override onto base and
// returns a new value. Metadata keys from override win and instructions
// are joined with a newline. Neither argument is modified.
func MergeChatOptions(base, override *ChatOptions) *ChatOptions {
	switch {
	case base == nil && override == nil:
		return &ChatOptions{}
	case base == nil:
		cp := *override
		return &cp
	case override == nil:
		cp := *base
		return &cp
	}

	m := *base
	m.ModelID = orZero(override.ModelID, m.ModelID)
	m.User = orZero(override.User, m.User)
	m.Temperature = orNil(override.Temperature, m.Temperature)
	m.TopP = orNil(override.TopP, m.TopP)
	m.MaxTokens = orNil(override.MaxTokens, m.MaxTokens)
	m.Seed = orNil(override.Seed, m.Seed)
	m.FrequencyPenalty = orNil(override.FrequencyPenalty, m.FrequencyPenalty)
	m.PresencePenalty = orNil(override.PresencePenalty, m.PresencePenalty)
	m.ResponseFormat = orNil(override.ResponseFormat, m.ResponseFormat)
	m.Store = orNil(override.Store, m.Store)
	if len(override.Stop) > 0 {
		m.Stop = override.Stop
	}
	m.Instructions = joinNonEmpty(m.Instructions, override.Instructions)
	if len(override.Metadata) > 0 {
		m.Metadata = maps.Clone(base.Metadata)
		if m.Metadata == nil {
			m.Metadata = make(map[string]string, len(override.Metadata))
		}
		maps.Copy(m.Metadata, override.Metadata)
	}
	return &m
}

func orZero[T comparable](v, fallback T) T {
	var zero T
	if v != zero {
		return v
	}
	return fallback
}

func orNil[T any](v, fallback *T) *T {
	if v != nil {
		return v
	}
	return fallback
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
