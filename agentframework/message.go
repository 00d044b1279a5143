// Copyright (c) Microsoft. All rights reserved.

package agentframework

// Role identifies the author of a [Message].
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FinishReason says why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// Message is one turn of a conversation.
type Message struct {
	Role       Role     `json:"role"`
	Contents   Contents `json:"contents,omitempty"`
	AuthorName string   `json:"authorName,omitempty"`

	// Raw is the provider's own form of the message, if any.
	Raw any `json:"-"`
}

// Text joins the text contents of m.
func (m *Message) Text() string { return m.Contents.Text() }

// NewMessage creates a single-text message.
func NewMessage(role Role, text string) Message {
	return Message{Role: role, Contents: Contents{&TextContent{Text: text}}}
}

func NewUserMessage(text string) Message      { return NewMessage(RoleUser, text) }
func NewAssistantMessage(text string) Message { return NewMessage(RoleAssistant, text) }
func NewSystemMessage(text string) Message    { return NewMessage(RoleSystem, text) }

// PrependInstructions puts instructions in front of messages as a system
// message. Empty instructions, or messages that already carry a system
// message, leave messages unchanged.
func PrependInstructions(messages []Message, instructions string) []Message {
	if instructions == "" {
		return messages
	}
	for _, m := range messages {
		if m.Role == RoleSystem {
			return messages
		}
	}
	return append([]Message{NewSystemMessage(instructions)}, messages...)
}
