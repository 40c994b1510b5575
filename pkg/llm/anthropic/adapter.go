// Package anthropic implements llm.Adapter for Anthropic's Messages API.
package anthropic

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/user/palaver/pkg/llm"
)

const (
	// Name is the provider name used in registries and display names.
	Name = "anthropic"

	// APIKeyEnv holds the API key read at header-construction time.
	APIKeyEnv = "ANTHROPIC_API_KEY"

	defaultBaseURL   = "https://api.anthropic.com/v1"
	messagesEndpoint = "/messages"

	// anthropicVersion pins the response format independently of the URL.
	anthropicVersion = "2023-06-01"

	// DefaultModel is used when no model option is supplied.
	DefaultModel = "claude-3-5-sonnet-20241022"

	// DefaultMaxTokens is sent when no maxTokens option is supplied; the
	// Messages API requires max_tokens on every request.
	DefaultMaxTokens = 1024
)

// Aliases maps short model names to canonical identifiers.
var Aliases = map[string]string{
	"opus":       "claude-3-opus-20240229",
	"sonnet":     "claude-3-5-sonnet-20241022",
	"haiku":      "claude-3-haiku-20240307",
	"3.5-sonnet": "claude-3-5-sonnet-20241022",
	"3.5-haiku":  "claude-3-5-haiku-20241022",
}

var pricing = llm.PricingTable{
	"claude-3-opus-20240229":     {InputPerMillion: 15, OutputPerMillion: 75},
	"claude-3-sonnet-20240229":   {InputPerMillion: 3, OutputPerMillion: 15},
	"claude-3-haiku-20240307":    {InputPerMillion: 0.25, OutputPerMillion: 1.25},
	"claude-3-5-sonnet-20240620": {InputPerMillion: 3, OutputPerMillion: 15},
	"claude-3-5-sonnet-20241022": {InputPerMillion: 3, OutputPerMillion: 15},
	"claude-3-5-haiku-20241022":  {InputPerMillion: 0.80, OutputPerMillion: 4},
}

// Adapter implements llm.Adapter for Anthropic.
type Adapter struct {
	baseURL string
}

var _ llm.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURL overrides the API base URL, e.g. for a proxy.
func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(baseURL, "/") }
}

// New returns an Anthropic adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) BaseURL() string { return a.baseURL }

// ChatEndpoint returns the Messages API path.
func (a *Adapter) ChatEndpoint() string { return messagesEndpoint }

// AuthHeaders returns x-api-key and anthropic-version. Anthropic does not
// use Bearer tokens.
func (a *Adapter) AuthHeaders() ([]llm.Header, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: %s is not set", llm.ErrMissingCredential, APIKeyEnv)
	}
	return []llm.Header{
		{Key: "x-api-key", Value: key},
		{Key: "anthropic-version", Value: anthropicVersion},
	}, nil
}

// OptionProcessors keeps system as a top-level field, since the Messages
// API does not accept system-role messages.
func (a *Adapter) OptionProcessors() []llm.KeyProcessor {
	return []llm.KeyProcessor{
		{Key: llm.KeyModel, Process: llm.Model(DefaultModel, Aliases)},
		{Key: llm.KeyMaxTokens, Process: llm.MaxTokens("max_tokens", DefaultMaxTokens)},
		{Key: llm.KeySystem, Process: llm.TransformValue(llm.KeySystem, func(v any) (any, error) {
			return llm.RequireString(v)
		})},
		{Key: llm.KeyTemperature, Process: llm.Temperature()},
	}
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseUsage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   *responseUsage `json:"usage"`
}

func decode(raw []byte) (*messagesResponse, error) {
	var resp messagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, llm.Malformedf("anthropic: parsing response: %v", err)
	}
	return &resp, nil
}

// ExtractText concatenates the text blocks of the response content.
func (a *Adapter) ExtractText(raw []byte) (string, error) {
	resp, err := decode(raw)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	found := false
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		found = true
		b.WriteString(block.Text)
	}
	if !found {
		return "", llm.Malformedf("anthropic: no text content block")
	}
	return b.String(), nil
}

// ExtractUsage reads usage.input_tokens and usage.output_tokens.
func (a *Adapter) ExtractUsage(raw []byte) (llm.Usage, error) {
	resp, err := decode(raw)
	if err != nil {
		return llm.Usage{}, err
	}
	u := resp.Usage
	if u == nil || u.InputTokens == nil || u.OutputTokens == nil {
		return llm.Usage{}, llm.Malformedf("anthropic: missing usage")
	}
	if *u.InputTokens < 0 || *u.OutputTokens < 0 {
		return llm.Usage{}, llm.Malformedf("anthropic: negative token count")
	}
	return llm.Usage{InputTokens: *u.InputTokens, OutputTokens: *u.OutputTokens}, nil
}

func (a *Adapter) Pricing() llm.PricingTable { return pricing }
