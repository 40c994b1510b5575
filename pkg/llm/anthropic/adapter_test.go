package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/palaver/pkg/llm"
)

func TestAnthropicChatRoundTrip(t *testing.T) {
	t.Setenv(APIKeyEnv, "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("expected path '/v1/messages', got %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("missing or invalid x-api-key header")
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("unexpected anthropic-version %q", r.Header.Get("anthropic-version"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("anthropic requests must not carry a Bearer token")
		}

		body, _ := io.ReadAll(r.Body)
		var reqBody map[string]any
		if err := json.Unmarshal(body, &reqBody); err != nil {
			t.Fatalf("request body: %v", err)
		}
		if reqBody["model"] != "claude-3-haiku-20240307" {
			t.Errorf("expected expanded model, got %v", reqBody["model"])
		}
		if reqBody["max_tokens"] != float64(DefaultMaxTokens) {
			t.Errorf("expected default max_tokens, got %v", reqBody["max_tokens"])
		}
		if reqBody["system"] != "you are terse" {
			t.Errorf("expected top-level system, got %v", reqBody["system"])
		}
		messages, ok := reqBody["messages"].([]any)
		if !ok || len(messages) != 1 {
			t.Fatalf("expected 1 message, got %v", reqBody["messages"])
		}

		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"content": [
				{"type": "text", "text": "Hello"},
				{"type": "text", "text": ", world"}
			],
			"usage": {"input_tokens": 1000, "output_tokens": 2000}
		}`))
	}))
	defer server.Close()

	adapter := New(WithBaseURL(server.URL + "/v1/"))
	client, err := llm.NewClient(adapter, llm.Options{
		"model":  "haiku",
		"system": "you are terse",
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := client.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatal(err)
	}

	text, err := adapter.ExtractText(raw)
	if err != nil {
		t.Fatal(err)
	}
	if text != "Hello, world" {
		t.Errorf("expected 'Hello, world', got %q", text)
	}

	usage, err := adapter.ExtractUsage(raw)
	if err != nil {
		t.Fatal(err)
	}
	cost, err := llm.CalculateCost(adapter, client.Model(), usage)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(cost-0.00275) > 1e-12 {
		t.Errorf("expected cost 0.00275, got %v", cost)
	}
}

func TestAnthropicMissingKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	client, err := llm.NewClient(New(WithBaseURL("http://127.0.0.1:0")), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if !errors.Is(err, llm.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestAnthropicExtractMalformed(t *testing.T) {
	a := New()

	if _, err := a.ExtractText([]byte(`{"content":[{"type":"tool_use","id":"x"}]}`)); !errors.Is(err, llm.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse for no text block, got %v", err)
	}
	if _, err := a.ExtractText([]byte(`not json`)); !errors.Is(err, llm.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse for invalid JSON, got %v", err)
	}
	if _, err := a.ExtractUsage([]byte(`{"usage":{"input_tokens":3}}`)); !errors.Is(err, llm.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse for partial usage, got %v", err)
	}
}

func TestAnthropicOptionProcessors(t *testing.T) {
	a := New()

	client, err := llm.NewClient(a, llm.Options{"maxTokens": 42.0, "top_k": 5})
	if err != nil {
		t.Fatal(err)
	}
	opts := client.Options()
	if opts["max_tokens"] != 42 {
		t.Errorf("expected max_tokens 42, got %v (%T)", opts["max_tokens"], opts["max_tokens"])
	}
	if opts["top_k"] != 5 {
		t.Error("unrecognized options must pass through")
	}
	if _, ok := opts["system"]; ok {
		t.Error("absent system must not be injected")
	}
	if opts.Model() != DefaultModel {
		t.Errorf("expected default model, got %q", opts.Model())
	}

	for _, bad := range []llm.Options{
		{"model": 7},
		{"maxTokens": "lots"},
		{"maxTokens": 1.5},
		{"system": []string{"x"}},
		{"temperature": "hot"},
	} {
		if _, err := llm.NewClient(a, bad); !errors.Is(err, llm.ErrInvalidOption) {
			t.Errorf("options %v: expected ErrInvalidOption, got %v", bad, err)
		}
	}
}

func TestAnthropicEndpointOverride(t *testing.T) {
	a := New()
	if a.ChatEndpoint() != "/messages" {
		t.Errorf("expected /messages, got %q", a.ChatEndpoint())
	}
	if a.BaseURL() != "https://api.anthropic.com/v1" {
		t.Errorf("unexpected base URL %q", a.BaseURL())
	}
}
