package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/japaniel/kaikki/pkg/feed"
	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the feed if it is not already present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := feed.NewDownloader(a.logger).EnsureFeed(ctx, a.cfg.Feed, a.cfg.FeedURL); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Feed available at %s\n", a.cfg.Feed)
			return nil
		},
	}
	cmd.Flags().String("feed", "", "destination path (overrides feed)")
	cmd.Flags().String("url", "", "source URL (overrides feed_url)")
	return cmd
}
