package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/palaver/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Env overrides are left out so they are not persisted.
		cfg, err := config.LoadFile(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		out := cmd.OutOrStdout()
		scanner := bufio.NewScanner(cmd.InOrStdin())

		fmt.Fprintln(out, "palaver setup")
		fmt.Fprintln(out, "Press Enter to accept the default value shown in brackets, or enter - to clear it.")
		fmt.Fprintln(out, "API keys are read from ANTHROPIC_API_KEY and OPENAI_API_KEY, not stored here.")
		fmt.Fprintln(out)

		runSetup(scanner, out, cfg)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Configuration saved to", cfgPath)
		return nil
	},
}

func runSetup(scanner *bufio.Scanner, out io.Writer, cfg *config.Config) {
	cfg.Provider = prompt(scanner, out, "Default provider (anthropic, openai)", cfg.Provider)
	setupSection(scanner, out, "Anthropic", &cfg.Anthropic)
	setupSection(scanner, out, "OpenAI", &cfg.OpenAI)

	n := prompt(scanner, out, "Max concurrent requests for ask", strconv.Itoa(cfg.MaxConcurrent))
	if v, err := strconv.Atoi(n); err == nil && v > 0 {
		cfg.MaxConcurrent = v
	}
}

func setupSection(scanner *bufio.Scanner, out io.Writer, label string, p *config.ProviderConfig) {
	p.Model = prompt(scanner, out, label+" model", p.Model)

	n := prompt(scanner, out, label+" max output tokens", strconv.Itoa(p.MaxTokens))
	if v, err := strconv.Atoi(n); err == nil {
		p.MaxTokens = v
	}

	p.BaseURL = prompt(scanner, out, label+" base URL (optional)", p.BaseURL)
	p.System = prompt(scanner, out, label+" system prompt (optional)", p.System)
}

// clearValue entered at a prompt empties the field.
const clearValue = "-"

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned; clearValue returns "".
func prompt(scanner *bufio.Scanner, out io.Writer, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	if scanner.Scan() {
		switch input := strings.TrimSpace(scanner.Text()); input {
		case "":
		case clearValue:
			return ""
		default:
			return input
		}
	}
	return defaultVal
}
