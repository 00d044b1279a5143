// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ResponseFormat asks the model for a JSON reply matching Schema.
// Providers that support structured outputs forward it as a json_schema
// response format; others only see the instructions.
type ResponseFormat struct {
	Name   string
	Schema json.RawMessage
	Strict bool

	once     sync.Once
	compiled *jsonschema.Schema
	compErr  error
}

// ResponseFormatFor builds a [ResponseFormat] from the Go type T.
func ResponseFormatFor[T any](name string) *ResponseFormat {
	return &ResponseFormat{Name: name, Schema: GenerateSchema[T]()}
}

// Validate checks an already-decoded JSON document against the schema.
func (f *ResponseFormat) Validate(doc any) error {
	sch, err := f.schema()
	if err != nil {
		return err
	}
	if sch == nil {
		return nil
	}
	return sch.Validate(doc)
}

func (f *ResponseFormat) schema() (*jsonschema.Schema, error) {
	f.once.Do(func() {
		if len(f.Schema) == 0 {
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(f.Schema))
		if err != nil {
			f.compErr = fmt.Errorf("unmarshal schema: %w", err)
			return
		}
		url := "agentframework://response-format/" + f.Name
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, doc); err != nil {
			f.compErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		f.compiled, f.compErr = c.Compile(url)
	})
	return f.compiled, f.compErr
}

// ParseStructured decodes model text into T. Markdown code fences and any
// prose around the outermost JSON value are tolerated. When format is
// non-nil the document is validated against its schema first.
//
// Every failure is a [*StructuredOutputParseError].
func ParseStructured[T any](text string, format *ResponseFormat) (T, error) {
	var out T
	name := ""
	if format != nil {
		name = format.Name
	}
	fail := func(err error) (T, error) {
		return out, &StructuredOutputParseError{Format: name, Raw: text, Err: err}
	}

	payload := ExtractJSON(text)
	if payload == "" {
		return fail(fmt.Errorf("no JSON value in response"))
	}

	if format != nil {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(payload))
		if err != nil {
			return fail(err)
		}
		if err := format.Validate(doc); err != nil {
			return fail(err)
		}
	}

	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return fail(err)
	}
	return out, nil
}

// ExtractJSON returns the first JSON object or array in s, stripping code
// fences. It returns "" when none is found.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}

// RunStructured runs agent with a response format for T and decodes the reply.
// The raw response is returned alongside the error so callers can inspect it.
func RunStructured[T any](ctx context.Context, agent *Agent, name string, messages []Message, opts ...RunOption) (T, *AgentResponse, error) {
	var zero T
	format := ResponseFormatFor[T](name)
	opts = append(opts, WithRunOptions(&ChatOptions{ResponseFormat: format}))

	resp, err := agent.Run(ctx, messages, opts...)
	if err != nil {
		return zero, nil, err
	}
	v, err := ParseStructured[T](resp.Text(), format)
	return v, resp, err
}
