// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ContentType identifies the kind of content within a message.
type ContentType string

const (
	ContentTypeText          ContentType = "text"
	ContentTypeTextReasoning ContentType = "reasoning"
	ContentTypeData          ContentType = "data"
	ContentTypeURI           ContentType = "uri"
	ContentTypeError         ContentType = "error"
	ContentTypeUsage         ContentType = "usage"
)

// Content is a sealed interface representing a piece of content within a [Message].
// Each concrete type carries data specific to its [ContentType].
// Use a type switch to inspect the underlying type.
type Content interface {
	// Type returns the discriminator for this content item.
	Type() ContentType

	sealed()
}

type base struct{}

func (base) sealed() {}

// TextContent holds plain text.
type TextContent struct {
	base
	Text string
}

func (c *TextContent) Type() ContentType { return ContentTypeText }

// TextReasoningContent holds chain-of-thought / reasoning text.
type TextReasoningContent struct {
	base
	Text string
}

func (c *TextReasoningContent) Type() ContentType { return ContentTypeTextReasoning }

// DataContent holds binary data represented as a data URI.
type DataContent struct {
	base
	URI       string // data URI (e.g. data:image/png;base64,...)
	MediaType string
}

func (c *DataContent) Type() ContentType { return ContentTypeData }

// URIContent holds an external URI reference.
type URIContent struct {
	base
	URI       string
	MediaType string
}

func (c *URIContent) Type() ContentType { return ContentTypeURI }

// ErrorContent represents an error returned as message content.
type ErrorContent struct {
	base
	Message   string
	ErrorCode string
	Details   any
}

func (c *ErrorContent) Type() ContentType { return ContentTypeError }

// UsageContent carries token usage information.
type UsageContent struct {
	base
	Usage UsageDetails
}

func (c *UsageContent) Type() ContentType { return ContentTypeUsage }

// contentWire is the JSON form of every content type, keyed by $type.
type contentWire struct {
	Type      ContentType   `json:"$type"`
	Text      string        `json:"text,omitempty"`
	URI       string        `json:"uri,omitempty"`
	MediaType string        `json:"mediaType,omitempty"`
	Message   string        `json:"message,omitempty"`
	ErrorCode string        `json:"errorCode,omitempty"`
	Details   any           `json:"details,omitempty"`
	Usage     *UsageDetails `json:"usage,omitempty"`
}

// MarshalContentJSON marshals a single Content value into its JSON envelope.
func MarshalContentJSON(c Content) ([]byte, error) {
	w := contentWire{Type: c.Type()}
	switch v := c.(type) {
	case *TextContent:
		w.Text = v.Text
	case *TextReasoningContent:
		w.Text = v.Text
	case *DataContent:
		w.URI, w.MediaType = v.URI, v.MediaType
	case *URIContent:
		w.URI, w.MediaType = v.URI, v.MediaType
	case *ErrorContent:
		w.Message, w.ErrorCode, w.Details = v.Message, v.ErrorCode, v.Details
	case *UsageContent:
		u := v.Usage
		w.Usage = &u
	default:
		return nil, fmt.Errorf("unsupported content %T", c)
	}
	return json.Marshal(w)
}

// UnmarshalContentJSON unmarshals a single Content value from its JSON envelope.
func UnmarshalContentJSON(data []byte) (Content, error) {
	var w contentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal content envelope: %w", err)
	}
	switch w.Type {
	case ContentTypeText:
		return &TextContent{Text: w.Text}, nil
	case ContentTypeTextReasoning:
		return &TextReasoningContent{Text: w.Text}, nil
	case ContentTypeData:
		return &DataContent{URI: w.URI, MediaType: w.MediaType}, nil
	case ContentTypeURI:
		return &URIContent{URI: w.URI, MediaType: w.MediaType}, nil
	case ContentTypeError:
		return &ErrorContent{Message: w.Message, ErrorCode: w.ErrorCode, Details: w.Details}, nil
	case ContentTypeUsage:
		c := &UsageContent{}
		if w.Usage != nil {
			c.Usage = *w.Usage
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown content $type: %q", w.Type)
	}
}

// Contents is a typed slice enabling JSON marshal/unmarshal of polymorphic Content arrays.
type Contents []Content

// Text joins the [TextContent] items, skipping everything else.
func (cs Contents) Text() string {
	var b strings.Builder
	for _, c := range cs {
		if tc, ok := c.(*TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// MarshalJSON serializes each Content item using its $type discriminator.
func (cs Contents) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, len(cs))
	for i, c := range cs {
		b, err := MarshalContentJSON(c)
		if err != nil {
			return nil, fmt.Errorf("marshal content[%d]: %w", i, err)
		}
		items[i] = b
	}
	return json.Marshal(items)
}

// UnmarshalJSON deserializes a JSON array of Content items using the $type discriminator.
func (cs *Contents) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]Content, len(raw))
	for i, r := range raw {
		c, err := UnmarshalContentJSON(r)
		if err != nil {
			return fmt.Errorf("unmarshal content[%d]: %w", i, err)
		}
		result[i] = c
	}
	*cs = result
	return nil
}
