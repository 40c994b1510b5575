package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/palaver/pkg/llm"
	"github.com/user/palaver/pkg/llm/anthropic"
	"github.com/user/palaver/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(modelsCmd)
}

// aliasTables lists the short names each built-in adapter accepts.
var aliasTables = map[string]map[string]string{
	anthropic.Name: anthropic.Aliases,
	openai.Name:    openai.Aliases,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List priced models and their aliases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry := newRegistry(cfg)

		names := providers
		if len(names) == 0 {
			names = registry.Names()
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tMODEL\tINPUT $/M\tOUTPUT $/M\tALIASES")
		for _, name := range names {
			adapter, err := registry.New(name)
			if err != nil {
				return err
			}
			writeModels(w, adapter, aliasTables[name])
		}
		return w.Flush()
	},
}

func writeModels(w io.Writer, adapter llm.Adapter, aliases map[string]string) {
	byModel := make(map[string][]string)
	for alias, model := range aliases {
		byModel[model] = append(byModel[model], alias)
	}

	pricing := adapter.Pricing()
	for _, model := range pricing.Models() {
		entry := pricing[model]
		names := byModel[model]
		sort.Strings(names)
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%s\n",
			adapter.Name(), model, entry.InputPerMillion, entry.OutputPerMillion, joinOrDash(names))
	}
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}
