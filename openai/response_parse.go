// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

// completion is a Chat Completions reply. Streamed chunks share the shape,
// with delta in place of message.
type completion struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Choices []choice  `json:"choices"`
	Usage   *usage    `json:"usage,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Message      turn    `json:"message"`
	Delta        turn    `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type turn struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
	Refusal *string `json:"refusal,omitempty"`
}

// contents turns text into a TextContent and a refusal into an
// ErrorContent with code "refusal".
func (t turn) contents() af.Contents {
	var cs af.Contents
	if t.Content != nil && *t.Content != "" {
		cs = append(cs, &af.TextContent{Text: *t.Content})
	}
	if t.Refusal != nil && *t.Refusal != "" {
		cs = append(cs, &af.ErrorContent{Message: *t.Refusal, ErrorCode: "refusal"})
	}
	return cs
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u *usage) details() af.UsageDetails {
	if u == nil {
		return af.UsageDetails{}
	}
	return af.UsageDetails{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
}

// apiError is the error object of a failed request or of an error event
// in a stream.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// err maps the error to the framework sentinels by code, then by status.
func (e *apiError) err(status int) *af.ServiceError {
	svcErr := &af.ServiceError{StatusCode: status, Message: e.Message, Code: e.Code}
	switch {
	case e.Code == "content_filter":
		svcErr.Err = af.ErrContentFilter
	case status == 401 || status == 403:
		svcErr.Err = af.ErrAuth
	case status == 400 || status == 404:
		svcErr.Err = af.ErrInvalidRequest
	default:
		svcErr.Err = af.ErrService
	}
	return svcErr
}

func (c *completion) response() *af.ChatResponse {
	resp := &af.ChatResponse{ResponseID: c.ID, ModelID: c.Model, Usage: c.Usage.details(), Raw: c}
	if len(c.Choices) == 0 {
		return resp
	}
	ch := c.Choices[0]
	resp.FinishReason = finishReason(ch.FinishReason)
	resp.Messages = []af.Message{{Role: af.Role(ch.Message.Role), Contents: ch.Message.contents()}}
	return resp
}

func (c *completion) update() af.ChatResponseUpdate {
	u := af.ChatResponseUpdate{ResponseID: c.ID, ModelID: c.Model, Usage: c.Usage.details(), Raw: c}
	if len(c.Choices) == 0 {
		return u
	}
	ch := c.Choices[0]
	u.Role = af.Role(ch.Delta.Role)
	u.FinishReason = finishReason(ch.FinishReason)
	u.Contents = ch.Delta.contents()
	return u
}

func finishReason(s *string) af.FinishReason {
	if s == nil {
		return ""
	}
	switch *s {
	case "stop":
		return af.FinishReasonStop
	case "length":
		return af.FinishReasonLength
	case "content_filter":
		return af.FinishReasonContentFilter
	}
	return af.FinishReason(*s)
}
