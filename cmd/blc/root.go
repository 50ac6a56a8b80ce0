package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/config"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/monitoring"
)

// rootOptions are the persistent flags shared by every subcommand
type rootOptions struct {
	configFile string
	envFile    string
	dataDir    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "blc",
		Short: "BLC-o-meter - score YouTube channels for brand collaboration fit",
		Long: `blc scores a YouTube channel bundle against the benchmarks of its
subscriber tier and prints the BLC score, its six components and the
collaboration verdict.

Bundles can be collected straight from the YouTube Data API with
"blc collect" (requires YOUTUBE_API_KEY) or supplied as JSON files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", os.Getenv(config.ConfigFileEnv), "Config file (YAML or JSON)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Dotenv file to read if present")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Override DATA_DIR (benchmark overrides live in <data-dir>/benchmarks)")
	flags.StringVar(&opts.logLevel, "log-level", "error", "Log level (debug|info|warn|error)")

	cmd.AddCommand(
		newScoreCmd(opts),
		newCollectCmd(opts),
		newBenchmarksCmd(opts),
	)

	return cmd
}

// load resolves configuration and installs the CLI logger. Logs go to
// stderr so JSON output on stdout stays clean.
func (o *rootOptions) load() (*config.Config, *monitoring.Logger, error) {
	cfg, err := config.LoadFrom(o.envFile, o.configFile)
	if err != nil {
		return nil, nil, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}

	logger := &monitoring.Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: monitoring.ParseLevel(o.logLevel),
		})),
	}
	slog.SetDefault(logger.Logger)

	return cfg, logger, nil
}
