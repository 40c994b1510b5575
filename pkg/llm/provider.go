package llm

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultChatEndpoint is the chat completion path used by adapters that
// follow the OpenAI layout.
const DefaultChatEndpoint = "/chat/completions"

// Adapter defines the contract every LLM provider implements.
// Implementations isolate everything provider-specific: endpoint,
// authentication, request field names, response envelope and pricing.
// Adapters are stateless and safe to share between sessions.
type Adapter interface {
	// Name identifies the provider, e.g. "anthropic".
	Name() string

	// BaseURL returns the provider's API base URL.
	BaseURL() string

	// ChatEndpoint returns the path appended to BaseURL for chat calls.
	ChatEndpoint() string

	// AuthHeaders builds auth and version headers. Credentials are read from
	// the environment on every call.
	AuthHeaders() ([]Header, error)

	// OptionProcessors returns the ordered processors applied to raw options.
	OptionProcessors() []KeyProcessor

	// ExtractText pulls the assistant text out of a success payload.
	ExtractText(raw []byte) (string, error)

	// ExtractUsage pulls token usage out of a success payload.
	ExtractUsage(raw []byte) (Usage, error)

	// Pricing returns the per-model pricing table.
	Pricing() PricingTable
}

// BaseAdapter supplies defaults shared across adapters. Embed it and
// override what differs.
type BaseAdapter struct{}

// ChatEndpoint returns DefaultChatEndpoint.
func (BaseAdapter) ChatEndpoint() string { return DefaultChatEndpoint }

// CalculateCost prices usage for model using the adapter's pricing table.
func CalculateCost(a Adapter, model string, usage Usage) (float64, error) {
	entry, err := a.Pricing().Lookup(model)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", a.Name(), err)
	}
	return entry.Cost(usage), nil
}

// Factory constructs an adapter.
type Factory func() Adapter

// Registry maps provider names to adapter factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New constructs the adapter registered under name.
func (r *Registry) New(name string) (Adapter, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, r.Names())
	}
	return f(), nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
