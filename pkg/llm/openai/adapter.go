// Package openai implements llm.Adapter for OpenAI-compatible chat
// completion APIs.
package openai

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/user/palaver/pkg/llm"
)

const (
	// Name is the provider name used in registries and display names.
	Name = "openai"

	// APIKeyEnv holds the API key read at header-construction time.
	APIKeyEnv = "OPENAI_API_KEY"

	// OrgIDEnv optionally selects an organization.
	OrgIDEnv = "OPENAI_ORG_ID"

	defaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model option is supplied.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxTokens is sent when no maxTokens option is supplied.
	DefaultMaxTokens = 1024
)

// Aliases maps short model names to canonical identifiers.
var Aliases = map[string]string{
	"4o":      "gpt-4o",
	"4o-mini": "gpt-4o-mini",
	"4-turbo": "gpt-4-turbo",
	"4":       "gpt-4",
	"3.5":     "gpt-3.5-turbo",
}

var pricing = llm.PricingTable{
	"gpt-4o":        {InputPerMillion: 2.50, OutputPerMillion: 10},
	"gpt-4o-mini":   {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4-turbo":   {InputPerMillion: 10, OutputPerMillion: 30},
	"gpt-4":         {InputPerMillion: 30, OutputPerMillion: 60},
	"gpt-3.5-turbo": {InputPerMillion: 0.50, OutputPerMillion: 1.50},
	"o1":            {InputPerMillion: 15, OutputPerMillion: 60},
	"o1-mini":       {InputPerMillion: 3, OutputPerMillion: 12},
}

// Adapter implements llm.Adapter for OpenAI.
type Adapter struct {
	llm.BaseAdapter
	baseURL string
}

var _ llm.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURL overrides the API base URL. The URL should include the
// version prefix, e.g. "http://localhost:8080/v1".
func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(baseURL, "/") }
}

// New returns an OpenAI adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) BaseURL() string { return a.baseURL }

// AuthHeaders returns a Bearer Authorization header, plus
// OpenAI-Organization when OPENAI_ORG_ID is set.
func (a *Adapter) AuthHeaders() ([]llm.Header, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: %s is not set", llm.ErrMissingCredential, APIKeyEnv)
	}
	headers := []llm.Header{{Key: "Authorization", Value: "Bearer " + key}}
	if org := os.Getenv(OrgIDEnv); org != "" {
		headers = append(headers, llm.Header{Key: "OpenAI-Organization", Value: org})
	}
	return headers, nil
}

// OptionProcessors turns the system option into a leading system message.
func (a *Adapter) OptionProcessors() []llm.KeyProcessor {
	return []llm.KeyProcessor{
		{Key: llm.KeyModel, Process: llm.Model(DefaultModel, Aliases)},
		{Key: llm.KeyMaxTokens, Process: llm.MaxTokens("max_completion_tokens", DefaultMaxTokens)},
		{Key: llm.KeySystem, Process: llm.PrependSystem(llm.KeySystem)},
		{Key: llm.KeyTemperature, Process: llm.Temperature()},
	}
}

// chatResponse is the OpenAI chat completions response body.
type chatResponse struct {
	Choices []choice       `json:"choices"`
	Usage   *responseUsage `json:"usage"`
}

type choice struct {
	Message *responseMessage `json:"message"`
}

type responseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type responseUsage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
}

func decode(raw []byte) (*chatResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, llm.Malformedf("openai: parsing response: %v", err)
	}
	return &resp, nil
}

// ExtractText returns choices[0].message.content.
func (a *Adapter) ExtractText(raw []byte) (string, error) {
	resp, err := decode(raw)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", llm.Malformedf("openai: no choices in response")
	}
	msg := resp.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", llm.Malformedf("openai: choice has no message content")
	}
	return *msg.Content, nil
}

// ExtractUsage reads usage.prompt_tokens and usage.completion_tokens.
func (a *Adapter) ExtractUsage(raw []byte) (llm.Usage, error) {
	resp, err := decode(raw)
	if err != nil {
		return llm.Usage{}, err
	}
	u := resp.Usage
	if u == nil || u.PromptTokens == nil || u.CompletionTokens == nil {
		return llm.Usage{}, llm.Malformedf("openai: missing usage")
	}
	if *u.PromptTokens < 0 || *u.CompletionTokens < 0 {
		return llm.Usage{}, llm.Malformedf("openai: negative token count")
	}
	return llm.Usage{InputTokens: *u.PromptTokens, OutputTokens: *u.CompletionTokens}, nil
}

func (a *Adapter) Pricing() llm.PricingTable { return pricing }
