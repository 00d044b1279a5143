// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"encoding/json"
	"strings"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

// chatRequest is the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model            string            `json:"model,omitempty"`
	Messages         []chatMessage     `json:"messages"`
	Temperature      *float64          `json:"temperature,omitempty"`
	TopP             *float64          `json:"top_p,omitempty"`
	MaxTokens        *int              `json:"max_completion_tokens,omitempty"`
	Stop             []string          `json:"stop,omitempty"`
	Seed             *int              `json:"seed,omitempty"`
	FrequencyPenalty *float64          `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64          `json:"presence_penalty,omitempty"`
	User             string            `json:"user,omitempty"`
	Stream           bool              `json:"stream,omitempty"`
	StreamOptions    *streamOptions    `json:"stream_options,omitempty"`
	ResponseFormat   *responseFormat   `json:"response_format,omitempty"`
	Store            *bool             `json:"store,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content,omitempty"` // string or []contentPart
	Name    string `json:"name,omitempty"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// buildRequest converts framework types into an OpenAI API request.
func buildRequest(messages []af.Message, opts *af.ChatOptions, defaultModel string) *chatRequest {
	req := &chatRequest{
		Model: defaultModel,
	}
	if opts != nil {
		if opts.ModelID != "" {
			req.Model = opts.ModelID
		}
		req.Temperature = opts.Temperature
		req.TopP = opts.TopP
		req.MaxTokens = opts.MaxTokens
		req.Stop = opts.Stop
		req.Seed = opts.Seed
		req.FrequencyPenalty = opts.FrequencyPenalty
		req.PresencePenalty = opts.PresencePenalty
		req.User = opts.User
		req.Store = opts.Store
		req.Metadata = opts.Metadata
		req.ResponseFormat = convertResponseFormat(opts.ResponseFormat)
	}

	req.Messages = convertMessages(messages)
	return req
}

// convertResponseFormat maps a framework format onto the json_schema
// response format. A format without a schema falls back to json_object.
func convertResponseFormat(f *af.ResponseFormat) *responseFormat {
	if f == nil {
		return nil
	}
	if len(f.Schema) == 0 {
		return &responseFormat{Type: "json_object"}
	}
	name := f.Name
	if name == "" {
		name = "response"
	}
	return &responseFormat{
		Type:       "json_schema",
		JSONSchema: &jsonSchema{Name: name, Schema: f.Schema, Strict: f.Strict},
	}
}

// convertMessages translates framework Messages into OpenAI chat messages.
func convertMessages(messages []af.Message) []chatMessage {
	result := make([]chatMessage, 0, len(messages))

	for _, msg := range messages {
		cm := chatMessage{
			Role: string(msg.Role),
			Name: msg.AuthorName,
		}

		switch msg.Role {
		case af.RoleAssistant, af.RoleSystem:
			// Only text is meaningful for these roles.
			var sb strings.Builder
			for _, c := range msg.Contents {
				if v, ok := c.(*af.TextContent); ok {
					sb.WriteString(v.Text)
				}
			}
			if sb.Len() > 0 {
				cm.Content = sb.String()
			}

		default:
			parts := convertContentParts(msg.Contents)
			if len(parts) == 1 && parts[0].Type == "text" {
				cm.Content = parts[0].Text
			} else if len(parts) > 0 {
				cm.Content = parts
			}
		}

		result = append(result, cm)
	}

	return result
}

// convertContentParts converts framework Content items into OpenAI content parts.
func convertContentParts(contents af.Contents) []contentPart {
	var parts []contentPart
	for _, c := range contents {
		switch v := c.(type) {
		case *af.TextContent:
			parts = append(parts, contentPart{Type: "text", Text: v.Text})
		case *af.DataContent:
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: v.URI}})
		case *af.URIContent:
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: v.URI}})
		}
	}
	return parts
}
