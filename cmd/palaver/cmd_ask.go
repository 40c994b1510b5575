package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/palaver/pkg/chat"
	"github.com/user/palaver/pkg/llm"
)

var askFlags requestFlags

func init() {
	rootCmd.AddCommand(askCmd)
	askFlags.register(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Send one prompt to one or more providers",
	Long: `Send one prompt and print the reply with its cost.

Repeat --provider to ask several providers at once; replies are printed in
flag order.`,
	Example: `  palaver ask "What is a monad?"
  palaver ask -p anthropic -p openai --model haiku "Name three rivers"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry := newRegistry(cfg)

		var clients []*llm.Client
		for _, name := range selectedProviders(cfg) {
			client, err := newClient(cmd, cfg, registry, name, &askFlags)
			if err != nil {
				return err
			}
			clients = append(clients, client)
		}

		results := fanOut(cmd.Context(), clients, strings.Join(args, " "), cfg.MaxConcurrent)
		return printAnswers(cmd.OutOrStdout(), results)
	},
}

// answer is the outcome of one provider's turn.
type answer struct {
	name  string
	reply string
	usage llm.Usage
	cost  float64
	err   error
}

// fanOut asks every client the same prompt, each in its own session, with
// at most limit calls in flight. A failing provider does not cancel the
// others. Results are in client order.
func fanOut(ctx context.Context, clients []*llm.Client, prompt string, limit int) []answer {
	results := make([]answer, len(clients))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, client := range clients {
		g.Go(func() error {
			results[i] = ask(ctx, client, prompt)
			return nil
		})
	}
	g.Wait()

	return results
}

func ask(ctx context.Context, client *llm.Client, prompt string) answer {
	a := answer{name: client.DisplayName()}

	session, err := chat.Open(client)
	if err != nil {
		a.err = err
		return a
	}
	defer session.Close()

	a.reply, a.err = session.Send(ctx, prompt)
	if a.err != nil {
		slog.Debug("ask failed", "provider", a.name, "error", a.err)
		return a
	}
	a.usage = session.TotalUsage()
	a.cost = session.TotalCost()
	return a
}

// printAnswers writes each answer and returns an error when any failed.
func printAnswers(w io.Writer, results []answer) error {
	failed := 0
	var total float64
	for i, a := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "== %s ==\n", a.name)
		}
		if a.reply != "" {
			fmt.Fprintln(w, a.reply)
		}
		if a.err != nil {
			failed++
			fmt.Fprintln(w, "Error:", describeError(a.err))
			continue
		}
		total += a.cost
		fmt.Fprintf(w, "  [%d in / %d out tokens, $%.6f]\n", a.usage.InputTokens, a.usage.OutputTokens, a.cost)
	}
	if len(results) > 1 {
		fmt.Fprintf(w, "\nTotal: $%.6f\n", total)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d providers failed", failed, len(results))
	}
	return nil
}
