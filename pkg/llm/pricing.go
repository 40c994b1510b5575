package llm

import (
	"fmt"
	"sort"
)

// PricingEntry is a model's price in USD per million tokens.
type PricingEntry struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// Cost returns the USD cost of usage at this entry's prices.
func (p PricingEntry) Cost(usage Usage) float64 {
	in := float64(usage.InputTokens) / 1_000_000.0 * p.InputPerMillion
	out := float64(usage.OutputTokens) / 1_000_000.0 * p.OutputPerMillion
	return in + out
}

// String returns a formatted representation of the prices.
func (p PricingEntry) String() string {
	return fmt.Sprintf("Input: $%.2f/M, Output: $%.2f/M", p.InputPerMillion, p.OutputPerMillion)
}

// PricingTable maps canonical model identifiers to prices.
type PricingTable map[string]PricingEntry

// Lookup returns the entry for model. A missing entry is ErrUnknownModel,
// never a zero price.
func (t PricingTable) Lookup(model string) (PricingEntry, error) {
	entry, ok := t[model]
	if !ok {
		return PricingEntry{}, fmt.Errorf("%w: no pricing for %q", ErrUnknownModel, model)
	}
	return entry, nil
}

// Models returns the priced model identifiers, sorted.
func (t PricingTable) Models() []string {
	models := make([]string, 0, len(t))
	for m := range t {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}
