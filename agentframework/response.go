// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"cmp"
	"strings"
)

// UsageDetails counts the tokens a model call consumed.
type UsageDetails struct {
	InputTokens  int `json:"inputTokenCount,omitempty"`
	OutputTokens int `json:"outputTokenCount,omitempty"`
	TotalTokens  int `json:"totalTokenCount,omitempty"`
}

// Add returns the sum of u and o.
func (u UsageDetails) Add(o UsageDetails) UsageDetails {
	return UsageDetails{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
	}
}

// ChatResponse is a complete reply from a [ChatClient].
type ChatResponse struct {
	Messages     []Message
	ResponseID   string
	ModelID      string
	FinishReason FinishReason
	Usage        UsageDetails
	Raw          any
}

func (r *ChatResponse) Text() string { return joinText(r.Messages) }

// ChatResponseUpdate is one streamed chunk from a [ChatClient].
type ChatResponseUpdate struct {
	Contents     Contents
	Role         Role
	ResponseID   string
	ModelID      string
	FinishReason FinishReason
	Usage        UsageDetails
	Raw          any
}

func (u *ChatResponseUpdate) Text() string { return u.Contents.Text() }

// AgentResponse is the reply of one [Agent] run.
type AgentResponse struct {
	Messages   []Message
	ResponseID string
	AgentID    string
	AgentName  string
	Usage      UsageDetails
	Raw        any
}

func (r *AgentResponse) Text() string { return joinText(r.Messages) }

// AgentResponseUpdate is one streamed chunk of an [Agent] run.
type AgentResponseUpdate struct {
	Contents   Contents
	Role       Role
	AgentID    string
	ResponseID string
	Usage      UsageDetails
	Raw        any
}

func (u *AgentResponseUpdate) Text() string { return u.Contents.Text() }

// ChatResponseFromUpdates folds streamed updates into one response. The
// last non-empty id, model, finish reason and usage win.
func ChatResponseFromUpdates(updates []ChatResponseUpdate) *ChatResponse {
	resp := &ChatResponse{}
	var m merger
	for _, u := range updates {
		m.add(u.Role, u.Contents)
		resp.ResponseID = cmp.Or(u.ResponseID, resp.ResponseID)
		resp.ModelID = cmp.Or(u.ModelID, resp.ModelID)
		resp.FinishReason = cmp.Or(u.FinishReason, resp.FinishReason)
		if u.Usage.TotalTokens > 0 {
			resp.Usage = u.Usage
		}
	}
	resp.Messages = m.messages()
	return resp
}

// AgentResponseFromUpdates folds streamed agent updates into one response.
func AgentResponseFromUpdates(updates []AgentResponseUpdate) *AgentResponse {
	resp := &AgentResponse{}
	var m merger
	for _, u := range updates {
		m.add(u.Role, u.Contents)
		resp.AgentID = cmp.Or(u.AgentID, resp.AgentID)
		resp.ResponseID = cmp.Or(u.ResponseID, resp.ResponseID)
		if u.Usage.TotalTokens > 0 {
			resp.Usage = u.Usage
		}
	}
	resp.Messages = m.messages()
	return resp
}

// merger collects streamed contents into a single message. Adjacent text
// deltas become one [TextContent]; other contents pass through in order.
type merger struct {
	role     Role
	contents Contents
}

func (m *merger) add(role Role, cs Contents) {
	if m.role == "" {
		m.role = role
	}
	for _, c := range cs {
		tc, ok := c.(*TextContent)
		if !ok {
			m.contents = append(m.contents, c)
			continue
		}
		if n := len(m.contents); n > 0 {
			if last, ok := m.contents[n-1].(*TextContent); ok {
				m.contents[n-1] = &TextContent{Text: last.Text + tc.Text}
				continue
			}
		}
		m.contents = append(m.contents, &TextContent{Text: tc.Text})
	}
}

func (m *merger) messages() []Message {
	if len(m.contents) == 0 {
		return nil
	}
	return []Message{{Role: cmp.Or(m.role, RoleAssistant), Contents: m.contents}}
}

func joinText(msgs []Message) string {
	var b strings.Builder
	for i := range msgs {
		b.WriteString(msgs[i].Text())
	}
	return b.String()
}
