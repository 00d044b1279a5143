// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"
)

// transport sends one JSON request. Tests swap the http.Client underneath.
type transport interface {
	do(ctx context.Context, method, path string, body any) (*http.Response, error)
}

type httpTransport struct {
	client  *http.Client
	baseURL string
	query   url.Values
	headers http.Header
	// bearer is the static key sent as a bearer token, if any.
	bearer     string
	credential azcore.TokenCredential
}

func newHTTPTransport(apiKey string, cfg *clientConfig) *httpTransport {
	t := &httpTransport{
		client:     cfg.httpClient,
		baseURL:    cfg.baseURL,
		headers:    http.Header{"Content-Type": {"application/json"}},
		credential: cfg.azureCredential,
	}
	if t.client == nil {
		t.client = http.DefaultClient
	}
	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	if cfg.apiVersion != "" {
		t.query = url.Values{"api-version": {cfg.apiVersion}}
	}
	if cfg.organization != "" {
		t.headers.Set("OpenAI-Organization", cfg.organization)
	}
	for k, v := range cfg.headers {
		t.headers.Set(k, v)
	}
	// An api-key header is Azure key auth and replaces the bearer key.
	if t.headers.Get("api-key") == "" {
		t.bearer = apiKey
	}
	return t
}

func (t *httpTransport) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(b)
	}

	target := t.baseURL + path
	if len(t.query) > 0 {
		target += "?" + t.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	maps.Copy(req.Header, t.headers.Clone())
	if err := t.authorize(ctx, req); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "openai request", "method", method, "path", path)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %w", af.ErrService, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, readError(resp)
	}
	return resp, nil
}

// authorize sets the bearer token from the Azure credential or the key.
func (t *httpTransport) authorize(ctx context.Context, req *http.Request) error {
	if t.credential == nil {
		if t.bearer != "" {
			req.Header.Set("Authorization", "Bearer "+t.bearer)
		}
		return nil
	}
	token, err := t.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{cognitiveServicesScope}})
	if err != nil {
		return fmt.Errorf("%w: get azure token: %w", af.ErrAuth, err)
	}
	slog.DebugContext(ctx, "using Azure AD token", "expires_on", token.ExpiresOn)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	return nil
}

// readError turns a failed response into an [af.ServiceError]. A body
// that is not an OpenAI error object becomes the message as is.
func readError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var wrapped struct {
		Error apiError `json:"error"`
	}
	_ = json.Unmarshal(body, &wrapped)
	if wrapped.Error.Message == "" {
		wrapped.Error.Message = string(body)
	}
	return wrapped.Error.err(resp.StatusCode)
}
