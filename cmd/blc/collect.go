package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/adapters"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/monitoring"
)

func newCollectCmd(root *rootOptions) *cobra.Command {
	var (
		outFile    string
		maxVideos  int
		monthsBack int
	)

	cmd := &cobra.Command{
		Use:   "collect <channel>",
		Short: "Collect a channel bundle from the YouTube Data API",
		Long: `Collect resolves a channel (UC id, @handle, name or youtube.com URL),
fetches its profile, recent videos and their top-level comments and writes
the bundle as JSON. The output can be passed to "blc score".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if maxVideos <= 0 {
				maxVideos = cfg.MaxVideos
			}
			if monthsBack <= 0 {
				monthsBack = cfg.MonthsBack
			}

			youtube, err := adapters.NewYouTubeAdapter(cmd.Context(), adapters.YouTubeConfig{
				APIKey:         cfg.YouTubeAPIKey,
				MaxComments:    cfg.MaxComments,
				CommentWorkers: cfg.CommentWorkers,
			}, monitoring.NewMetrics(), logger)
			if err != nil {
				return err
			}

			bundle, err := youtube.CollectBundle(cmd.Context(), args[0], maxVideos, monthsBack)
			if err != nil {
				return err
			}

			if outFile == "" {
				return writeJSON(cmd.OutOrStdout(), bundle)
			}

			f, err := os.Create(outFile)
			if err != nil {
				return fmt.Errorf("error creating %s: %w", outFile, err)
			}
			defer f.Close()

			if err := writeJSON(f, bundle); err != nil {
				return fmt.Errorf("error writing %s: %w", outFile, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Collected %d videos for %s into %s\n", len(bundle.Videos), bundle.Channel.ChannelName, outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Write the bundle to a file instead of stdout")
	cmd.Flags().IntVar(&maxVideos, "max-videos", 0, "Maximum number of recent videos (defaults to MAX_VIDEOS)")
	cmd.Flags().IntVar(&monthsBack, "months-back", 0, "Only include videos from the last N months (defaults to MONTHS_BACK)")

	return cmd
}
