package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/japaniel/kaikki/pkg/feed"
	"github.com/japaniel/kaikki/pkg/ingest"
	"github.com/japaniel/kaikki/pkg/metrics"
	"github.com/japaniel/kaikki/pkg/reading"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCmd(a *app) *cobra.Command {
	var fetch bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the feed, resuming after the last committed line",
		Long: `Ingest reads the feed one line at a time and writes each entry, with all
of its nested data, in its own transaction. Lines at or below the highest
committed line number are skipped, so an interrupted run can simply be
started again. Lines that fail to parse or write are appended to the
failed-lines file and the run continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return a.runIngest(ctx, cmd, fetch)
		},
	}
	cmd.Flags().String("feed", "", "path to the JSONL feed (overrides feed)")
	cmd.Flags().Int("batch-size", 0, "records per flush (overrides batch_size)")
	cmd.Flags().String("metrics", "", "address to serve Prometheus metrics on, e.g. :9090")
	cmd.Flags().Bool("readings", false, "store kana readings for Japanese headwords")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "download the feed first if it is missing")
	return cmd
}

func (a *app) runIngest(ctx context.Context, cmd *cobra.Command, fetch bool) error {
	cfg := a.cfg
	out := cmd.OutOrStdout()

	if fetch {
		if err := feed.NewDownloader(a.logger).EnsureFeed(ctx, cfg.Feed, cfg.FeedURL); err != nil {
			return err
		}
	}

	conn, store, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	m := metrics.New()
	if cfg.Metrics.Address != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Address, a.logger); err != nil {
				a.logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ledger := ingest.NewLedger(cfg.FailedLinesFile, a.logger)
	ledger.Metrics = m
	defer ledger.Close()

	decomposer := ingest.NewDecomposer(store)
	if cfg.Annotate.Readings {
		annotator, err := reading.NewAnnotator()
		if err != nil {
			return errors.Wrap(err, "load reading dictionary")
		}
		decomposer.Readings = annotator
	}

	ig := ingest.NewIngester(conn, store)
	ig.Decomposer = decomposer
	ig.BatchSize = cfg.BatchSize
	ig.Ledger = ledger
	ig.Logger = a.logger
	ig.Metrics = m
	ig.ProgressFile = cfg.ProgressFile

	res, err := ig.Ingest(ctx, cfg.Feed)
	if res.RunID != "" {
		fmt.Fprintf(out, "Run %s: resumed after line %d, ingested %d, failed %d, checkpoint %d\n",
			res.RunID, res.Checkpoint, res.Ingested, res.Failed, res.LastLine)
	}
	if errors.Is(err, context.Canceled) {
		return errors.Errorf("interrupted at line %d; run ingest again to resume", res.LastLine)
	}
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		fmt.Fprintf(out, "%d lines recorded in %s\n", res.Failed, cfg.FailedLinesFile)
	}
	fmt.Fprintln(out, "Processing complete")
	return nil
}
