package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/palaver/internal/tokens"
	"github.com/user/palaver/pkg/chat"
)

var chatFlags requestFlags

func init() {
	rootCmd.AddCommand(chatCmd)
	chatFlags.register(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with one provider.

Lines starting with "/" are commands:
  /cost      show the latest and total cost
  /history   print the conversation so far
  /estimate  estimate the input cost of the next turn
  /exit      end the session`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		names := selectedProviders(cfg)
		if len(names) > 1 {
			return fmt.Errorf("chat takes a single provider, got %d", len(names))
		}
		client, err := newClient(cmd, cfg, newRegistry(cfg), names[0], &chatFlags)
		if err != nil {
			return err
		}
		session, err := chat.Open(client)
		if err != nil {
			return err
		}
		defer session.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Chatting with %s. Type /exit to quit.\n", session.DisplayName())
		return runREPL(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// repl reads user lines and prints replies with per-turn costs.
type repl struct {
	session *chat.Session
	out     io.Writer
	errOut  io.Writer
}

func runREPL(ctx context.Context, session *chat.Session, in io.Reader, out, errOut io.Writer) error {
	r := &repl{session: session, out: out, errOut: errOut}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := r.meta(line); done {
				break
			}
			continue
		}

		if err := r.turn(ctx, line); err != nil {
			return err
		}
	}
	r.summary()
	return scanner.Err()
}

// turn sends one line. Provider failures are printed and the REPL goes on;
// only cancellation ends it.
func (r *repl) turn(ctx context.Context, line string) error {
	reply, err := r.session.Send(ctx, line)
	if reply != "" {
		fmt.Fprintln(r.out, reply)
	}
	if err != nil {
		fmt.Fprintln(r.errOut, "Error:", describeError(err))
		return ctx.Err()
	}
	latest, _ := r.session.LatestCost()
	fmt.Fprintf(r.out, "  [$%.6f this turn, $%.6f total]\n", latest, r.session.TotalCost())
	return nil
}

// meta handles a slash command and reports whether the REPL should end.
func (r *repl) meta(line string) bool {
	switch strings.Fields(line)[0] {
	case "/exit", "/quit":
		return true
	case "/cost":
		latest, err := r.session.LatestCost()
		if errors.Is(err, chat.ErrNoInteractions) {
			fmt.Fprintln(r.out, "No turns yet.")
			return false
		}
		u := r.session.TotalUsage()
		fmt.Fprintf(r.out, "Latest: $%.6f  Total: $%.6f  Tokens: %d in / %d out\n",
			latest, r.session.TotalCost(), u.InputTokens, u.OutputTokens)
	case "/history":
		for _, m := range r.session.History() {
			fmt.Fprintf(r.out, "%s: %s\n", m.Role, m.Content)
		}
	case "/estimate":
		r.estimate()
	default:
		fmt.Fprintf(r.out, "Unknown command %s\n", line)
	}
	return false
}

func (r *repl) estimate() {
	client := r.session.Client()
	est, err := tokens.New(client.Model())
	if err != nil {
		fmt.Fprintln(r.errOut, "Error:", err)
		return
	}
	e, err := est.EstimateInput(client.Adapter(), client.Model(), r.session.History())
	if err != nil {
		fmt.Fprintln(r.errOut, "Error:", describeError(err))
		return
	}
	fmt.Fprintf(r.out, "History is ~%d input tokens (~$%.6f) before your next message.\n", e.InputTokens, e.InputCost)
}

func (r *repl) summary() {
	n := len(r.session.Interactions())
	if n == 0 {
		return
	}
	u := r.session.TotalUsage()
	fmt.Fprintf(r.out, "%d turns, %d tokens, $%.6f total.\n", n, u.Total(), r.session.TotalCost())
}
