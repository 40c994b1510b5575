package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/palaver/internal/config"
	"github.com/user/palaver/pkg/llm"
	"github.com/user/palaver/pkg/llm/anthropic"
	"github.com/user/palaver/pkg/llm/openai"
)

// newRegistry registers every built-in adapter, applying base URL
// overrides from cfg.
func newRegistry(cfg *config.Config) *llm.Registry {
	r := llm.NewRegistry()
	r.Register(anthropic.Name, func() llm.Adapter {
		var opts []anthropic.Option
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		return anthropic.New(opts...)
	})
	r.Register(openai.Name, func() llm.Adapter {
		var opts []openai.Option
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return openai.New(opts...)
	})
	return r
}

// requestFlags are per-invocation overrides of the config section.
type requestFlags struct {
	model       string
	maxTokens   int
	system      string
	temperature float64
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "model name or alias")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "maximum response tokens")
	cmd.Flags().StringVar(&f.system, "system", "", "system prompt")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "sampling temperature")
}

// options merges the config section with the flags set on cmd.
func (f *requestFlags) options(cmd *cobra.Command, section config.ProviderConfig) llm.Options {
	opts := section.Options()
	if cmd.Flags().Changed("model") {
		opts[llm.KeyModel] = f.model
	}
	if cmd.Flags().Changed("max-tokens") {
		opts[llm.KeyMaxTokens] = f.maxTokens
	}
	if cmd.Flags().Changed("system") {
		opts[llm.KeySystem] = f.system
	}
	if cmd.Flags().Changed("temperature") {
		opts[llm.KeyTemperature] = f.temperature
	}
	return opts
}

// newClient builds a client for the named provider.
func newClient(cmd *cobra.Command, cfg *config.Config, registry *llm.Registry, name string, flags *requestFlags) (*llm.Client, error) {
	adapter, err := registry.New(name)
	if err != nil {
		return nil, err
	}
	section, err := cfg.Section(name)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(adapter, flags.options(cmd, section))
	if err != nil {
		return nil, fmt.Errorf("configure %s: %w", name, err)
	}
	return client, nil
}
