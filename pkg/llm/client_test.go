package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/user/palaver/pkg/llm"
	"github.com/user/palaver/pkg/llm/anthropic"
	"github.com/user/palaver/pkg/llm/llmtest"
	"github.com/user/palaver/pkg/llm/openai"
)

func TestNewClientNilAdapter(t *testing.T) {
	if _, err := llm.NewClient(nil, nil); err == nil {
		t.Fatal("expected error for nil adapter")
	}
}

func TestClientOptionsAreImmutable(t *testing.T) {
	raw := llm.Options{"model": "haiku"}
	client, err := llm.NewClient(anthropic.New(), raw)
	if err != nil {
		t.Fatal(err)
	}

	raw["model"] = "opus"
	opts := client.Options()
	opts["model"] = "changed"

	if client.Model() != "claude-3-haiku-20240307" {
		t.Errorf("resolved options changed after creation: %q", client.Model())
	}
}

func TestClientDisplayName(t *testing.T) {
	client, err := llm.NewClient(openai.New(), llm.Options{"model": "4o"})
	if err != nil {
		t.Fatal(err)
	}
	if got := client.DisplayName(); got != "openai (gpt-4o)" {
		t.Errorf("unexpected display name %q", got)
	}
}

func TestClientRequestBody(t *testing.T) {
	client, err := llm.NewClient(openai.New(), llm.Options{"system": "sys", "temperature": 0.2})
	if err != nil {
		t.Fatal(err)
	}

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "one"},
		{Role: llm.RoleAssistant, Content: "two"},
	}
	data, err := client.RequestBody(history)
	if err != nil {
		t.Fatal(err)
	}

	var body struct {
		Model       string        `json:"model"`
		Temperature float64       `json:"temperature"`
		Messages    []llm.Message `json:"messages"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatal(err)
	}
	if body.Model != openai.DefaultModel || body.Temperature != 0.2 {
		t.Errorf("unexpected body %+v", body)
	}
	if len(body.Messages) != 3 || body.Messages[0].Role != llm.RoleSystem || body.Messages[2].Content != "two" {
		t.Errorf("expected system prefix followed by history, got %+v", body.Messages)
	}

	// Building a second body must not grow the stored prefix.
	data, _ = client.RequestBody(history[:1])
	json.Unmarshal(data, &body)
	if len(body.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(body.Messages))
	}
}

func TestClientChatErrors(t *testing.T) {
	t.Setenv(anthropic.APIKeyEnv, "k")
	history := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}

	dialErr := errors.New("connection refused")
	transport := &llmtest.Transport{PostFunc: llmtest.Fail(dialErr)}
	client, _ := llm.NewClient(anthropic.New(), nil, llm.WithTransport(transport))

	_, err := client.Chat(context.Background(), history)
	if !errors.Is(err, llm.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if !errors.Is(err, dialErr) {
		t.Error("transport error should wrap the underlying cause")
	}
	if _, ok := llm.AsProviderError(err); ok {
		t.Error("transport failure must not look like a provider error")
	}

	transport.PostFunc = llmtest.Respond(http.StatusTooManyRequests, `{"error":"slow down"}`)
	_, err = client.Chat(context.Background(), history)
	pe, ok := llm.AsProviderError(err)
	if !ok {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.StatusCode != 429 || string(pe.Body) != `{"error":"slow down"}` {
		t.Errorf("unexpected provider error %+v", pe)
	}
	if !llm.IsRateLimit(err) || llm.IsAuth(err) {
		t.Error("429 should classify as rate limit only")
	}

	reqs := transport.Requests()
	if len(reqs) != 2 || reqs[0].Endpoint != "https://api.anthropic.com/v1/messages" {
		t.Errorf("unexpected requests %+v", reqs)
	}
}

func TestClientChatSpans(t *testing.T) {
	t.Setenv(openai.APIKeyEnv, "k")

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	transport := &llmtest.Transport{PostFunc: llmtest.Respond(http.StatusInternalServerError, "boom")}
	client, err := llm.NewClient(openai.New(), nil,
		llm.WithTransport(transport),
		llm.WithTracer(tp.Tracer("test")),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Chat(context.Background(), nil); err == nil {
		t.Fatal("expected provider error")
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "llm.chat" {
		t.Errorf("unexpected span name %q", span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", span.Status())
	}

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["llm.provider"] != "openai" || attrs["llm.model"] != openai.DefaultModel || attrs["http.status_code"] != "500" {
		t.Errorf("unexpected span attributes %v", attrs)
	}
}
