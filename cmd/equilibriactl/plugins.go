package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"equilibria/pkg/equilibria"
)

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List registered games, strategies and algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd, "")
			if err != nil {
				return err
			}
			defer client.Close()

			catalog := client.Plugins()
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"plugins":   catalog,
					"sweepable": equilibria.SweepableParameters(),
				})
			}
			kinds := make([]string, 0, len(catalog))
			for kind := range catalog {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			out := cmd.OutOrStdout()
			for _, kind := range kinds {
				fmt.Fprintf(out, "%s: %s\n", kind, strings.Join(catalog[kind], ", "))
			}
			fmt.Fprintf(out, "sweepable: %s\n", strings.Join(equilibria.SweepableParameters(), ", "))
			return nil
		},
	}
}
