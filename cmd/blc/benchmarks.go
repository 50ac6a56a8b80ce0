package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/analysis"
)

func newBenchmarksCmd(root *rootOptions) *cobra.Command {
	var (
		vertical string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "benchmarks",
		Short: "Print the effective benchmark table",
		Long: `Benchmarks prints the per-tier reference values used for a vertical: the
built-in table merged with <data-dir>/benchmarks/<vertical>.json|yaml when an
override file exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			if vertical == "" {
				vertical = cfg.DefaultVertical
			}

			store := analysis.NewBenchmarkStore(cfg.BenchmarkDir())
			table, err := store.LoadBenchmarks(vertical)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), table)
			}

			overrides, err := store.Verticals()
			if err != nil {
				return err
			}
			printBenchmarks(cmd.OutOrStdout(), vertical, table, overrides)
			return nil
		},
	}

	cmd.Flags().StringVar(&vertical, "vertical", "", "Benchmark vertical (defaults to DEFAULT_VERTICAL)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the table as JSON")

	return cmd
}

func printBenchmarks(w io.Writer, vertical string, table analysis.BenchmarkTable, overrides []string) {
	styles := newPrintStyles()

	fmt.Fprintln(w, styles.header.Render("Benchmarks: "+vertical))
	fmt.Fprintf(w, "%-16s %14s %14s %12s %12s %14s\n",
		"TIER", "ENG/1K", "VIEWS/DAY", "DEMAND", "PROBLEM", "VIDEOS/WEEK")
	for _, tier := range analysis.Tiers {
		b := table[tier]
		fmt.Fprintf(w, "%-16s %14.2f %14.1f %12.3f %12.3f %14.2f\n",
			tier, b.EngagementPer1K, b.ViewsPerDay, b.DemandIndex, b.ProblemRate, b.VideosPerWeek)
	}

	if len(overrides) > 0 {
		fmt.Fprintln(w, styles.dim.Render(fmt.Sprintf("Override files: %v", overrides)))
	}
}
