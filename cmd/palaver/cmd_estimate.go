package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/palaver/internal/tokens"
	"github.com/user/palaver/pkg/llm"
)

var estimateFlags requestFlags

func init() {
	rootCmd.AddCommand(estimateCmd)
	estimateFlags.register(estimateCmd)
}

var estimateCmd = &cobra.Command{
	Use:   "estimate <prompt>",
	Short: "Estimate input tokens and cost without sending",
	Long: `Count the input tokens of a prompt and price them for each selected
provider. Counts are exact for OpenAI models and approximate elsewhere.
Output tokens are not known until the model replies and are not included.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry := newRegistry(cfg)
		prompt := strings.Join(args, " ")

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tMODEL\tTOKENS\tINPUT COST")
		for _, name := range selectedProviders(cfg) {
			client, err := newClient(cmd, cfg, registry, name, &estimateFlags)
			if err != nil {
				return err
			}
			msgs, err := promptMessages(client, prompt)
			if err != nil {
				return err
			}
			est, err := tokens.New(client.Model())
			if err != nil {
				return err
			}
			e, err := est.EstimateInput(client.Adapter(), client.Model(), msgs)
			if err != nil {
				return err
			}
			approx := "~"
			if e.Exact {
				approx = ""
			}
			fmt.Fprintf(w, "%s\t%s\t%s%d\t$%.6f\n", name, e.Model, approx, e.InputTokens, e.InputCost)
		}
		return w.Flush()
	},
}

// promptMessages returns the messages a first turn with prompt would send,
// including any system prompt from the resolved options.
func promptMessages(client *llm.Client, prompt string) ([]llm.Message, error) {
	opts := client.Options()
	prefix, err := llm.MessagesOf(opts[llm.KeyMessages])
	if err != nil {
		return nil, err
	}
	msgs := make([]llm.Message, 0, len(prefix)+2)
	if system, ok := opts[llm.KeySystem].(string); ok && system != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	msgs = append(msgs, prefix...)
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt}), nil
}
