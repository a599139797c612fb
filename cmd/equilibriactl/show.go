package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"equilibria/internal/model"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted simulations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			client, err := openClient(cmd, "")
			if err != nil {
				return err
			}
			defer client.Close()

			records, err := client.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				if records == nil {
					records = []model.SimulationRecord{}
				}
				return writeJSON(cmd.OutOrStdout(), records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "no simulations")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tITERATIONS\tCREATED")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%s\n",
					r.ID, r.Name, r.Status,
					humanize.Comma(int64(r.Finished)), humanize.Comma(int64(r.Iterations)),
					relativeTime(r.CreatedAtUTC))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "maximum simulations to list")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the summary of a persisted simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd, "")
			if err != nil {
				return err
			}
			defer client.Close()

			record, err := client.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), record)
			}
			printRecord(cmd.OutOrStdout(), record)
			return nil
		},
	}
}

func printRecord(out io.Writer, r model.SimulationRecord) {
	fmt.Fprintf(out, "simulation %s (%s)\n", r.ID, r.Name)
	fmt.Fprintf(out, "status:     %s\n", r.Status)
	fmt.Fprintf(out, "iterations: %s of %s\n", humanize.Comma(int64(r.Finished)), humanize.Comma(int64(r.Iterations)))
	if r.CreatedAtUTC != "" {
		fmt.Fprintf(out, "created:    %s\n", relativeTime(r.CreatedAtUTC))
	}
	if r.Parameter != "" {
		fmt.Fprintf(out, "sweep:      %s\n", r.Parameter)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(out, "error:      %s\n", e)
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONFIGURATION\tRUNS\tEFFICIENCY\tSTDDEV\tEQUILIBRIUM\tADAPTS\tFINAL SHARES")
	for _, s := range r.Configurations {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s%%\t%s\t%s\n",
			s.Label, s.Iterations,
			humanize.FtoaWithDigits(s.MeanEfficiency, 4),
			humanize.FtoaWithDigits(s.StdDevEfficiency, 4),
			humanize.FtoaWithDigits(100*s.EquilibriumRate, 1),
			humanize.FtoaWithDigits(s.MeanAdapts, 2),
			formatShares(s.FinalPortions))
	}
	_ = w.Flush()
}

func formatShares(shares map[string]float64) string {
	names := make([]string, 0, len(shares))
	for name := range shares {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, humanize.FtoaWithDigits(shares[name], 3)))
	}
	return strings.Join(parts, " ")
}

func relativeTime(stamp string) string {
	t, err := time.Parse(model.TimeLayout, stamp)
	if err != nil {
		return stamp
	}
	return humanize.Time(t)
}
