// Copyright (c) Microsoft. All rights reserved.

// Package openai provides a [ChatClient] implementation backed by the
// OpenAI Chat Completions API.
//
// Create a client with [New] and pass it to [agentframework.NewAgent]:
//
//	client := openai.New(apiKey, openai.WithModel("gpt-4o"))
//	agent  := agentframework.NewAgent(client)
package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

// DefaultAzureAPIVersion is the Azure OpenAI data-plane version used by [NewAzure].
const DefaultAzureAPIVersion = "2024-10-21"

const completionsPath = "/chat/completions"

// Client implements [agentframework.ChatClient] over Chat Completions.
type Client struct {
	tp      transport
	model   string
	handler af.ChatHandler
}

var _ af.ChatClient = (*Client)(nil)

// New creates a client for the OpenAI API, or for any compatible endpoint
// given [WithBaseURL].
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"), openai.WithModel("gpt-4o"))
func New(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	c := &Client{tp: newHTTPTransport(apiKey, cfg), model: cfg.model}
	c.handler = c.complete
	for i := len(cfg.chatMiddleware) - 1; i >= 0; i-- {
		c.handler = cfg.chatMiddleware[i](c.handler)
	}
	return c
}

// NewAzure creates a [Client] for an Azure OpenAI deployment. Authenticate
// with [WithAPIKey] or [WithAzureCredential]; the deployment doubles as
// the model name.
//
//	cred, _ := azidentity.NewDefaultAzureCredential(nil)
//	client := openai.NewAzure(endpoint, "gpt-4o-mini", openai.WithAzureCredential(cred))
func NewAzure(endpoint, deployment string, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(strings.TrimRight(endpoint, "/") + "/openai/deployments/" + url.PathEscape(deployment)),
		WithAPIVersion(DefaultAzureAPIVersion),
		WithModel(deployment),
	}
	return New("", append(base, opts...)...)
}

// Response runs the chat middleware and then one completion request.
func (c *Client) Response(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	return c.handler(ctx, messages, opts)
}

func (c *Client) complete(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	resp, err := c.tp.do(ctx, http.MethodPost, completionsPath, buildRequest(messages, opts, c.model))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out completion
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", af.ErrService, err)
	}
	return out.response(), nil
}

// StreamResponse requests a streamed completion with usage reporting on.
// Chat middleware does not apply.
func (c *Client) StreamResponse(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	req := buildRequest(messages, opts, c.model)
	req.Stream = true
	req.StreamOptions = &streamOptions{IncludeUsage: true}

	resp, err := c.tp.do(ctx, http.MethodPost, completionsPath, req)
	if err != nil {
		return nil, err
	}
	return af.NewResponseStream(ctx, func(ctx context.Context, ch chan<- af.ChatResponseUpdate) error {
		defer resp.Body.Close()
		return readEvents(ctx, resp.Body, ch)
	}), nil
}

// readEvents forwards the data lines of a server-sent event stream until
// [DONE]. Unparseable chunks are skipped; an error object ends the stream
// with that error.
func readEvents(ctx context.Context, r io.Reader, ch chan<- af.ChatResponseUpdate) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return nil
		}

		var chunk completion
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return chunk.Error.err(http.StatusOK)
		}

		select {
		case ch <- chunk.update():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read event stream: %v", af.ErrService, err)
	}
	return nil
}
