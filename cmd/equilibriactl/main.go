package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"equilibria/internal/config"
	"equilibria/internal/logging"
	"equilibria/pkg/equilibria"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "equilibriactl",
		Short: "Run iterated-game simulations and inspect their results",
		Long: `equilibriactl runs populations of agents through repeated two-player
games, adapts their strategies between steps and reports how efficiency and
strategy shares settle.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "settings file (yaml)")
	flags.String("log-level", "", "log level: debug|info|warn|error")
	flags.Int("workers", 0, "concurrent iterations")
	flags.String("store", "", "store backend: memory|sqlite")
	flags.String("db-path", "", "sqlite database path")
	flags.Bool("json", false, "output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newRunsCmd(),
		newShowCmd(),
		newPluginsCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "equilibriactl version %s\n", version)
			return nil
		},
	}
}

// loadSettings merges the settings file, the environment and the global
// flags, in that order.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		cfg.Workers = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Kind = v
	}
	if v, _ := cmd.Flags().GetString("db-path"); v != "" {
		cfg.Store.Path = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openClient(cmd *cobra.Command, artifactsDir string) (*equilibria.Client, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	return equilibria.New(cmd.Context(), equilibria.Options{
		StoreKind:    cfg.Store.Kind,
		DBPath:       cfg.Store.Path,
		Workers:      cfg.Workers,
		Seed:         cfg.Seed,
		ArtifactsDir: artifactsDir,
		Logger:       logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()),
	})
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
