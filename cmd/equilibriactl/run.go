package main

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"equilibria/pkg/equilibria"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation described by a request file",
		Example: `  equilibriactl run -c study.yaml
  equilibriactl run -c study.yaml --iterations 50 --artifacts out/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("request")
			artifacts, _ := cmd.Flags().GetString("artifacts")
			quiet, _ := cmd.Flags().GetBool("quiet")

			user, err := equilibria.LoadConfiguration(path)
			if err != nil {
				return err
			}
			if n, _ := cmd.Flags().GetInt("iterations"); n > 0 {
				user.Iterations = n
			}
			if seed, _ := cmd.Flags().GetUint64("seed"); seed > 0 {
				user.Seed = seed
			}

			client, err := openClient(cmd, artifacts)
			if err != nil {
				return err
			}
			defer client.Close()

			var progress func(equilibria.Progress)
			if !quiet && !jsonOutput(cmd) {
				var mu sync.Mutex
				progress = func(p equilibria.Progress) {
					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintf(cmd.ErrOrStderr(), "\r%s/%s iterations",
						humanize.Comma(int64(p.Finished)), humanize.Comma(int64(p.Total)))
				}
			}

			record, err := client.Run(cmd.Context(), user, progress)
			if progress != nil {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if err != nil && record.ID == "" {
				return err
			}
			if jsonOutput(cmd) {
				if werr := writeJSON(cmd.OutOrStdout(), record); werr != nil {
					return werr
				}
				return err
			}
			printRecord(cmd.OutOrStdout(), record)
			return err
		},
	}
	cmd.Flags().StringP("request", "c", "run.yaml", "simulation request (yaml or json)")
	cmd.Flags().Int("iterations", 0, "override iterations per configuration")
	cmd.Flags().Uint64("seed", 0, "override the request seed")
	cmd.Flags().String("artifacts", "", "directory for json and csv artifacts")
	cmd.Flags().BoolP("quiet", "q", false, "suppress progress output")
	return cmd
}
