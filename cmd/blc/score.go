package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/types"
)

func newScoreCmd(root *rootOptions) *cobra.Command {
	var (
		vertical string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "score <bundle.json>",
		Short: "Score a channel bundle file",
		Long: `Score reads a channel bundle ({"channel": {...}, "videos": [...]}) or an
analyze request ({"bundle": {...}, "vertical": "..."}) and prints the report.
Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}

			req, err := readAnalyzeRequest(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if vertical != "" {
				req.Vertical = vertical
			}

			analyzer := analysis.NewAnalyzer(cfg.BenchmarkDir(),
				analysis.WithDefaultVertical(cfg.DefaultVertical),
				analysis.WithLogger(logger.Logger),
			)

			report, err := analyzer.AnalyzeBundle(req.Bundle, req.Vertical)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&vertical, "vertical", "", "Benchmark vertical (defaults to DEFAULT_VERTICAL)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")

	return cmd
}

func readAnalyzeRequest(stdin io.Reader, path string) (*types.AnalyzeRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading bundle: %w", err)
	}

	var req types.AnalyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("error parsing bundle %s: %w", path, err)
	}
	return &req, nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
