// Package tokens estimates prompt sizes before a request is sent.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/palaver/pkg/llm"
)

// fallbackEncoding is used for models tiktoken does not know, which
// includes every non-OpenAI model.
const fallbackEncoding = "cl100k_base"

// Per-message framing overhead of the chat format: every message costs
// messageOverhead tokens on top of its content and the reply is primed with
// replyPriming tokens.
const (
	messageOverhead = 4
	replyPriming    = 3
)

// Estimator counts tokens with a tiktoken encoding. Counts are exact for
// OpenAI models and an approximation for other providers.
type Estimator struct {
	enc   *tiktoken.Tiktoken
	exact bool
}

// New creates an estimator for model.
func New(model string) (*Estimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return &Estimator{enc: enc, exact: true}, nil
	}
	enc, err = tiktoken.GetEncoding(fallbackEncoding)
	if err != nil {
		return nil, fmt.Errorf("get tokenizer: %w", err)
	}
	return &Estimator{enc: enc}, nil
}

// Exact reports whether the encoding is the model's own.
func (e *Estimator) Exact() bool { return e.exact }

// Count returns the token count for text.
func (e *Estimator) Count(text string) int {
	return len(e.enc.Encode(text, nil, nil))
}

// CountMessages returns the prompt token count for msgs including the chat
// framing overhead.
func (e *Estimator) CountMessages(msgs []llm.Message) int {
	if len(msgs) == 0 {
		return 0
	}
	n := replyPriming
	for _, m := range msgs {
		n += messageOverhead + e.Count(string(m.Role)) + e.Count(m.Content)
	}
	return n
}

// Estimate is a pre-flight input cost estimate.
type Estimate struct {
	Model       string  `json:"model"`
	InputTokens int     `json:"input_tokens"`
	InputCost   float64 `json:"input_cost"`
	Exact       bool    `json:"exact"`
}

// EstimateInput counts the input tokens of msgs and prices them for model
// with the adapter's pricing table. Output tokens are unknown before the
// call and are not included. A model without pricing returns an error
// wrapping llm.ErrUnknownModel.
func (e *Estimator) EstimateInput(a llm.Adapter, model string, msgs []llm.Message) (Estimate, error) {
	n := e.CountMessages(msgs)
	cost, err := llm.CalculateCost(a, model, llm.Usage{InputTokens: n})
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Model: model, InputTokens: n, InputCost: cost, Exact: e.exact}, nil
}
