package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skillet-ai/skillet/pkg/presenter"
	"github.com/skillet-ai/skillet/pkg/skills"
)

var listCmd = &cobra.Command{
	Use:   "list <skill-root> [skill-root...]",
	Short: "List skills discovered under the given roots",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		registry := skills.NewRegistry()
		if err := registry.Discover(ctx, args, false); err != nil {
			presenter.Error(err, "discovery failed")
			os.Exit(1)
		}

		catalog := registry.ListMetadata()
		if len(catalog) == 0 {
			presenter.Info("no skills found")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, meta := range catalog {
			fmt.Fprintf(w, "%s\t%s\n", meta.Name, meta.Description)
		}
		w.Flush()
	},
}
