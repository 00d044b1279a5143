// Copyright (c) Microsoft. All rights reserved.

package openai_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/openai"
)

// mockTransportFunc is a RoundTripper that delegates to a function.
type mockTransportFunc func(*http.Request) (*http.Response, error)

func (f mockTransportFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newMockHTTPClient(fn func(*http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{Transport: mockTransportFunc(fn)}
}

func jsonResponse(status int, body any) *http.Response {
	b, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func TestClient_Response_Basic(t *testing.T) {
	content := "Hello, I'm an AI assistant!"
	apiResp := map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message": map[string]any{
				"role":    "assistant",
				"content": content,
			},
		}},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}

	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		// Verify request
		if req.Method != "POST" {
			t.Errorf("method = %q", req.Method)
		}
		if !strings.HasSuffix(req.URL.Path, "/chat/completions") {
			t.Errorf("path = %q", req.URL.Path)
		}
		if req.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("auth = %q", req.Header.Get("Authorization"))
		}

		// Verify request body has correct structure
		body, _ := io.ReadAll(req.Body)
		var reqBody map[string]any
		json.Unmarshal(body, &reqBody)
		if reqBody["model"] != "gpt-4o" {
			t.Errorf("request model = %v", reqBody["model"])
		}

		return jsonResponse(200, apiResp), nil
	})

	client := openai.New("test-key",
		openai.WithModel("gpt-4o"),
		openai.WithHTTPClient(httpClient),
	)

	resp, err := client.Response(context.Background(),
		[]af.Message{af.NewUserMessage("hi")},
		nil,
	)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}

	if resp.ResponseID != "chatcmpl-123" {
		t.Errorf("ResponseID = %q", resp.ResponseID)
	}
	if resp.ModelID != "gpt-4o" {
		t.Errorf("ModelID = %q", resp.ModelID)
	}
	if resp.FinishReason != af.FinishReasonStop {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
	if resp.Usage.InputTokens != 10 {
		t.Errorf("InputTokens = %d", resp.Usage.InputTokens)
	}
	if resp.Usage.OutputTokens != 8 {
		t.Errorf("OutputTokens = %d", resp.Usage.OutputTokens)
	}
	if resp.Text() != content {
		t.Errorf("Text = %q", resp.Text())
	}
}

func TestClient_Response_Refusal(t *testing.T) {
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, map[string]any{
			"id": "chatcmpl-2", "model": "gpt-4o",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": nil, "refusal": "I can't help with that."},
			}},
		}), nil
	})

	client := openai.New("test-key", openai.WithHTTPClient(httpClient))
	resp, err := client.Response(context.Background(), []af.Message{af.NewUserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}

	msg := resp.Messages[0]
	if len(msg.Contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(msg.Contents))
	}
	ec, ok := msg.Contents[0].(*af.ErrorContent)
	if !ok {
		t.Fatalf("content type = %T, want *ErrorContent", msg.Contents[0])
	}
	if ec.ErrorCode != "refusal" || ec.Message != "I can't help with that." {
		t.Errorf("error content = %+v", ec)
	}
	if resp.Text() != "" {
		t.Errorf("Text = %q, want empty", resp.Text())
	}
}

func TestClient_Response_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     map[string]any
		checkErr func(t *testing.T, err error)
	}{
		{
			name:   "401 Unauthorized",
			status: 401,
			body: map[string]any{
				"error": map[string]any{
					"message": "Invalid API key",
					"type":    "authentication_error",
				},
			},
			checkErr: func(t *testing.T, err error) {
				if err == nil {
					t.Fatal("expected error")
				}
				var svcErr *af.ServiceError
				if !errors.As(err, &svcErr) {
					t.Fatal("expected ServiceError")
				}
				if svcErr.StatusCode != 401 {
					t.Errorf("StatusCode = %d", svcErr.StatusCode)
				}
			},
		},
		{
			name:   "Content Filter",
			status: 400,
			body: map[string]any{
				"error": map[string]any{
					"message": "content filtered",
					"code":    "content_filter",
				},
			},
			checkErr: func(t *testing.T, err error) {
				if !errors.Is(err, af.ErrContentFilter) {
					t.Errorf("err = %v, want ErrContentFilter", err)
				}
			},
		},
		{
			name:   "404 Unknown Deployment",
			status: 404,
			body: map[string]any{
				"error": map[string]any{"message": "deployment not found", "code": "DeploymentNotFound"},
			},
			checkErr: func(t *testing.T, err error) {
				if !errors.Is(err, af.ErrInvalidRequest) {
					t.Errorf("err = %v, want ErrInvalidRequest", err)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
				return jsonResponse(tc.status, tc.body), nil
			})

			client := openai.New("bad-key",
				openai.WithModel("gpt-4o"),
				openai.WithHTTPClient(httpClient),
			)

			_, err := client.Response(context.Background(),
				[]af.Message{af.NewUserMessage("hi")},
				nil,
			)
			tc.checkErr(t, err)
		})
	}
}

func TestClient_StreamResponse(t *testing.T) {
	sseData := strings.Join([]string{
		`data: {"id":"chatcmpl-1","model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":"Hello"},"finish_reason":null}]}`,
		``,
		`data: {"id":"chatcmpl-1","model":"gpt-4o","choices":[{"index":0,"delta":{"content":", world!"},"finish_reason":null}]}`,
		``,
		`data: {"id":"chatcmpl-1","model":"gpt-4o","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")

	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		// Verify stream flag
		body, _ := io.ReadAll(req.Body)
		var reqBody map[string]any
		json.Unmarshal(body, &reqBody)
		if reqBody["stream"] != true {
			t.Errorf("stream = %v", reqBody["stream"])
		}

		return &http.Response{
			StatusCode: 200,
			Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
			Body:       io.NopCloser(strings.NewReader(sseData)),
		}, nil
	})

	client := openai.New("test-key",
		openai.WithModel("gpt-4o"),
		openai.WithHTTPClient(httpClient),
	)

	stream, err := client.StreamResponse(context.Background(),
		[]af.Message{af.NewUserMessage("hi")},
		nil,
	)
	if err != nil {
		t.Fatalf("StreamResponse: %v", err)
	}
	defer stream.Close()

	updates, err := stream.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if len(updates) < 2 {
		t.Fatalf("updates = %d, want >= 2", len(updates))
	}

	// First update should have role + content
	if updates[0].Role != af.RoleAssistant {
		t.Errorf("[0].Role = %q", updates[0].Role)
	}
	if updates[0].Text() != "Hello" {
		t.Errorf("[0].Text = %q", updates[0].Text())
	}

	// Second update should have content continuation
	if updates[1].Text() != ", world!" {
		t.Errorf("[1].Text = %q", updates[1].Text())
	}

	// Merge updates into a complete response
	resp := af.ChatResponseFromUpdates(updates)
	if resp.Text() != "Hello, world!" {
		t.Errorf("merged text = %q", resp.Text())
	}
}

func TestClient_StreamResponse_ErrorEvent(t *testing.T) {
	sseData := strings.Join([]string{
		`data: {"id":"chatcmpl-2","choices":[{"index":0,"delta":{"role":"assistant","content":"Once"},"finish_reason":null}]}`,
		`data: {"error":{"message":"output filtered","code":"content_filter"}}`,
		`data: [DONE]`,
	}, "\n")
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 200,
			Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
			Body:       io.NopCloser(strings.NewReader(sseData)),
		}, nil
	})
	client := openai.New("test-key", openai.WithHTTPClient(httpClient))

	stream, err := client.StreamResponse(context.Background(), []af.Message{af.NewUserMessage("tell a story")}, nil)
	if err != nil {
		t.Fatalf("StreamResponse: %v", err)
	}
	defer stream.Close()

	updates, err := stream.Collect(context.Background())
	if !errors.Is(err, af.ErrContentFilter) {
		t.Fatalf("err = %v, want ErrContentFilter", err)
	}
	if len(updates) != 1 || updates[0].Text() != "Once" {
		t.Errorf("updates before the error = %+v", updates)
	}
}

func TestClient_WithOptions(t *testing.T) {
	var sentOrg string
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		sentOrg = req.Header.Get("OpenAI-Organization")
		return jsonResponse(200, map[string]any{
			"id": "chatcmpl-1", "model": "gpt-4o",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": "ok"},
			}},
		}), nil
	})

	client := openai.New("test-key",
		openai.WithModel("gpt-4o"),
		openai.WithOrganization("org-abc"),
		openai.WithHTTPClient(httpClient),
	)

	_, err := client.Response(context.Background(),
		[]af.Message{af.NewUserMessage("hi")},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}

	if sentOrg != "org-abc" {
		t.Errorf("org header = %q", sentOrg)
	}
}

func TestClient_ChatOptions_PassedThrough(t *testing.T) {
	var sentBody map[string]any
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		json.Unmarshal(body, &sentBody)
		return jsonResponse(200, map[string]any{
			"id": "chatcmpl-1", "model": "gpt-4o",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": "ok"},
			}},
		}), nil
	})

	temp := 0.3
	maxTok := 100
	client := openai.New("test-key",
		openai.WithModel("gpt-4o"),
		openai.WithHTTPClient(httpClient),
	)

	_, err := client.Response(context.Background(),
		[]af.Message{af.NewUserMessage("hi")},
		&af.ChatOptions{
			Temperature:    &temp,
			MaxTokens:      &maxTok,
			ResponseFormat: af.ResponseFormatFor[struct{ Score int `json:"score"` }]("grade"),
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	if sentBody["temperature"] != 0.3 {
		t.Errorf("temperature = %v", sentBody["temperature"])
	}
	// max_completion_tokens in OpenAI API
	if sentBody["max_completion_tokens"] != float64(100) {
		t.Errorf("max_completion_tokens = %v", sentBody["max_completion_tokens"])
	}
	if _, ok := sentBody["tool_choice"]; ok {
		t.Error("tool_choice should not be sent")
	}

	rf, ok := sentBody["response_format"].(map[string]any)
	if !ok {
		t.Fatalf("response_format = %v", sentBody["response_format"])
	}
	if rf["type"] != "json_schema" {
		t.Errorf("response_format.type = %v", rf["type"])
	}
	js := rf["json_schema"].(map[string]any)
	if js["name"] != "grade" {
		t.Errorf("json_schema.name = %v", js["name"])
	}
	schema := js["schema"].(map[string]any)
	if schema["type"] != "object" {
		t.Errorf("schema.type = %v", schema["type"])
	}
}

func TestNewAzure_DeploymentURLAndKey(t *testing.T) {
	var gotURL, gotKey, gotAuth string
	var sentBody map[string]any
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		gotKey = req.Header.Get("api-key")
		gotAuth = req.Header.Get("Authorization")
		body, _ := io.ReadAll(req.Body)
		json.Unmarshal(body, &sentBody)
		return jsonResponse(200, map[string]any{
			"id": "chatcmpl-az", "model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": "ok"},
			}},
		}), nil
	})

	client := openai.NewAzure("https://contoso.openai.azure.com/", "gpt-4o-mini",
		openai.WithAPIKey("az-key"),
		openai.WithHTTPClient(httpClient),
	)
	if _, err := client.Response(context.Background(), []af.Message{af.NewUserMessage("hi")}, nil); err != nil {
		t.Fatal(err)
	}

	want := "https://contoso.openai.azure.com/openai/deployments/gpt-4o-mini/chat/completions?api-version=" + openai.DefaultAzureAPIVersion
	if gotURL != want {
		t.Errorf("url = %q, want %q", gotURL, want)
	}
	if gotKey != "az-key" {
		t.Errorf("api-key = %q", gotKey)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
	if sentBody["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", sentBody["model"])
	}
}

func TestNewAzure_APIVersionOverride(t *testing.T) {
	var gotVersion string
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		gotVersion = req.URL.Query().Get("api-version")
		return jsonResponse(200, map[string]any{"id": "x", "choices": []map[string]any{}}), nil
	})

	client := openai.NewAzure("https://contoso.openai.azure.com", "dep",
		openai.WithAPIKey("k"),
		openai.WithAPIVersion("2025-01-01-preview"),
		openai.WithHTTPClient(httpClient),
	)
	if _, err := client.Response(context.Background(), []af.Message{af.NewUserMessage("hi")}, nil); err != nil {
		t.Fatal(err)
	}
	if gotVersion != "2025-01-01-preview" {
		t.Errorf("api-version = %q", gotVersion)
	}
}

func TestClient_ChatMiddlewareWrapsCall(t *testing.T) {
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, map[string]any{
			"id": "chatcmpl-1",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": "inner"},
			}},
		}), nil
	})

	var saw string
	mw := af.ChatMiddleware(func(next af.ChatHandler) af.ChatHandler {
		return func(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
			resp, err := next(ctx, msgs, opts)
			if err == nil {
				saw = resp.Text()
			}
			return resp, err
		}
	})

	client := openai.New("k", openai.WithHTTPClient(httpClient), openai.WithChatMiddleware(mw))
	if _, err := client.Response(context.Background(), []af.Message{af.NewUserMessage("hi")}, nil); err != nil {
		t.Fatal(err)
	}
	if saw != "inner" {
		t.Errorf("middleware saw %q", saw)
	}
}
