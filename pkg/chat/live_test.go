//go:build integration

package chat

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/user/palaver/pkg/llm"
	"github.com/user/palaver/pkg/llm/anthropic"
	"github.com/user/palaver/pkg/llm/openai"
)

// TestLiveProviders holds a two-turn conversation against each provider
// whose API key is set. Run with: go test -tags integration ./pkg/chat
func TestLiveProviders(t *testing.T) {
	adapters := []struct {
		env     string
		adapter llm.Adapter
		model   string
	}{
		{anthropic.APIKeyEnv, anthropic.New(), "haiku"},
		{openai.APIKeyEnv, openai.New(), "4o-mini"},
	}

	for _, a := range adapters {
		t.Run(a.adapter.Name(), func(t *testing.T) {
			if os.Getenv(a.env) == "" {
				t.Skipf("%s not set", a.env)
			}
			client, err := llm.NewClient(a.adapter, llm.Options{
				"model":     a.model,
				"maxTokens": 32,
				"system":    "Reply with a single word.",
			})
			if err != nil {
				t.Fatal(err)
			}
			s, err := Open(client)
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			for _, prompt := range []string{"Name a color.", "Name another."} {
				reply, err := s.Send(ctx, prompt)
				if err != nil {
					t.Fatal(err)
				}
				if reply == "" {
					t.Error("expected non-empty reply")
				}
			}

			if n := len(s.History()); n != 4 {
				t.Errorf("expected 4 messages, got %d", n)
			}
			if s.TotalCost() <= 0 {
				t.Errorf("expected positive cost, got %v", s.TotalCost())
			}
			t.Logf("%s: %d tokens, $%.6f", s.DisplayName(), s.TotalUsage().Total(), s.TotalCost())
		})
	}
}
