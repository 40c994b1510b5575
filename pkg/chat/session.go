// Package chat implements a multi-turn conversation session with per-turn
// cost accounting on top of package llm.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/palaver/pkg/llm"
)

var (
	// ErrNoInteractions is returned by LatestCost before the first
	// successful turn. It is an expected condition; callers check for it.
	ErrNoInteractions = errors.New("no interactions yet")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// State is the lifecycle state of a Session.
type State int

const (
	StateOpen State = iota
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Interaction records one successful turn. Interactions are never edited
// or removed once appended.
type Interaction struct {
	Messages [2]llm.Message  `json:"messages"`
	Raw      json.RawMessage `json:"raw"`
	Usage    llm.Usage       `json:"usage"`
	Cost     float64         `json:"cost"`
	At       time.Time       `json:"at"`
}

// Session is a conversation against one Client. Send calls on the same
// session are serialized; every other method is safe to call concurrently.
type Session struct {
	id     string
	client *llm.Client
	logger *slog.Logger
	now    func() time.Time

	// turn serializes Send for the whole round trip.
	turn sync.Mutex

	mu           sync.RWMutex
	state        State
	history      []llm.Message
	interactions []Interaction
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for per-turn records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithClock overrides the time source used to stamp interactions.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Open starts an empty session against client.
func Open(client *llm.Client, opts ...Option) (*Session, error) {
	if client == nil {
		return nil, errors.New("nil client")
	}
	s := &Session{
		id:     uuid.New().String(),
		client: client,
		logger: slog.Default(),
		now:    time.Now,
		state:  StateOpen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Client returns the client the session was opened against.
func (s *Session) Client() *llm.Client { return s.client }

// DisplayName returns the client's display name.
func (s *Session) DisplayName() string { return s.client.DisplayName() }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Send appends text as a user turn, sends the full history to the provider
// and returns the assistant's reply. On any failure the session is left
// exactly as it was before the call.
//
// When the reply was received but its model has no pricing entry, the text
// is returned together with an error wrapping llm.ErrUnknownModel and the
// turn is not recorded.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.RLock()
	if s.state == StateClosed {
		s.mu.RUnlock()
		return "", ErrClosed
	}
	candidate := make([]llm.Message, 0, len(s.history)+1)
	candidate = append(candidate, s.history...)
	s.mu.RUnlock()

	user := llm.Message{Role: llm.RoleUser, Content: text}
	candidate = append(candidate, user)

	log := s.logger.With("session_id", s.id, "provider", s.client.Adapter().Name(), "model", s.client.Model())

	raw, err := s.client.Chat(ctx, candidate)
	if err != nil {
		log.Warn("chat call failed", "error", err)
		return "", err
	}

	adapter := s.client.Adapter()
	reply, err := adapter.ExtractText(raw)
	if err != nil {
		log.Warn("extracting response text", "error", err)
		return "", err
	}
	usage, err := adapter.ExtractUsage(raw)
	if err != nil {
		log.Warn("extracting usage", "error", err)
		return "", err
	}
	cost, err := llm.CalculateCost(adapter, s.client.Model(), usage)
	if err != nil {
		log.Warn("pricing turn", "error", err)
		return reply, err
	}

	assistant := llm.Message{Role: llm.RoleAssistant, Content: reply}
	interaction := Interaction{
		Messages: [2]llm.Message{user, assistant},
		Raw:      raw,
		Usage:    usage,
		Cost:     cost,
		At:       s.now(),
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	s.history = append(s.history, user, assistant)
	s.interactions = append(s.interactions, interaction)
	turns := len(s.interactions)
	s.mu.Unlock()

	log.Debug("turn completed",
		"turn", turns,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cost", cost,
	)
	return reply, nil
}

// History returns a copy of the conversation in chronological order.
func (s *Session) History() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Interactions returns a copy of the interaction log.
func (s *Session) Interactions() []Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Interaction, len(s.interactions))
	copy(out, s.interactions)
	return out
}

// LatestCost returns the cost of the most recent successful turn, or
// ErrNoInteractions if there is none.
func (s *Session) LatestCost() (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.interactions) == 0 {
		return 0, ErrNoInteractions
	}
	return s.interactions[len(s.interactions)-1].Cost, nil
}

// TotalCost returns the sum of all recorded turn costs; 0 when empty.
func (s *Session) TotalCost() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, in := range s.interactions {
		total += in.Cost
	}
	return total
}

// TotalUsage returns the summed token usage of all recorded turns.
func (s *Session) TotalUsage() llm.Usage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total llm.Usage
	for _, in := range s.interactions {
		total = total.Add(in.Usage)
	}
	return total
}

// Close ends the session. A Send already waiting on the provider finishes
// its call but records nothing.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrClosed
	}
	s.state = StateClosed
	s.logger.Debug("session closed", "session_id", s.id, "turns", len(s.interactions))
	return nil
}
