package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/user/palaver/pkg/llm"

// Client pairs an adapter with its resolved options. It is immutable after
// NewClient and safe for concurrent use.
type Client struct {
	adapter   Adapter
	options   Options
	transport Transport
	tracer    trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport overrides the default HTTP transport.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) { c.transport = t }
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) { c.tracer = t }
}

// NewClient resolves raw through the adapter's option processors. Options of
// an unsupported type are rejected here with ErrInvalidOption.
func NewClient(adapter Adapter, raw Options, opts ...ClientOption) (*Client, error) {
	if adapter == nil {
		return nil, errors.New("nil adapter")
	}

	resolved, err := Resolve(raw, adapter.OptionProcessors())
	if err != nil {
		return nil, fmt.Errorf("%s: resolving options: %w", adapter.Name(), err)
	}

	c := &Client{
		adapter:   adapter,
		options:   resolved,
		transport: NewHTTPTransport(60 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c, nil
}

// Adapter returns the client's adapter.
func (c *Client) Adapter() Adapter { return c.adapter }

// Options returns a copy of the resolved options.
func (c *Client) Options() Options { return c.options.Clone() }

// Model returns the resolved model identifier.
func (c *Client) Model() string { return c.options.Model() }

// DisplayName returns a label such as "anthropic (claude-3-haiku-20240307)".
func (c *Client) DisplayName() string {
	if model := c.Model(); model != "" {
		return fmt.Sprintf("%s (%s)", c.adapter.Name(), model)
	}
	return c.adapter.Name()
}

// Endpoint returns the full chat completion URL.
func (c *Client) Endpoint() string {
	return c.adapter.BaseURL() + c.adapter.ChatEndpoint()
}

// RequestBody builds the JSON payload for history: the resolved options with
// any option-supplied messages followed by history under KeyMessages.
func (c *Client) RequestBody(history []Message) ([]byte, error) {
	prefix, err := MessagesOf(c.options[KeyMessages])
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(prefix)+len(history))
	msgs = append(msgs, prefix...)
	msgs = append(msgs, history...)

	body := c.options.Clone()
	body[KeyMessages] = msgs

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	return data, nil
}

// Chat sends history to the provider and returns the raw success payload.
// Connection failures wrap ErrTransport; non-200 responses are returned as
// *ProviderError.
func (c *Client) Chat(ctx context.Context, history []Message) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "llm.chat", trace.WithAttributes(
		attribute.String("llm.provider", c.adapter.Name()),
		attribute.String("llm.model", c.Model()),
		attribute.Int("llm.request.messages", len(history)),
	))
	defer span.End()

	raw, err := c.chat(ctx, span, history)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return raw, nil
}

func (c *Client) chat(ctx context.Context, span trace.Span, history []Message) (json.RawMessage, error) {
	body, err := c.RequestBody(history)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", c.adapter.Name(), err)
	}

	headers, err := c.adapter.AuthHeaders()
	if err != nil {
		return nil, fmt.Errorf("%s: building headers: %w", c.adapter.Name(), err)
	}

	endpoint := c.Endpoint()
	resp, err := c.transport.Post(ctx, endpoint, body, headers)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider:   c.adapter.Name(),
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
		}
	}
	return json.RawMessage(resp.Body), nil
}
