package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/japaniel/kaikki/pkg/ingest"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the resume checkpoint, failures, and table sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, store, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			checkpoint, err := store.LastProcessedLine(ctx, conn)
			if err != nil {
				return err
			}
			failed, err := ingest.ReadLedger(a.cfg.FailedLinesFile)
			if err != nil {
				return err
			}
			progress, err := ingest.ReadProgressFile(a.cfg.ProgressFile)
			if err != nil {
				return err
			}
			run, err := store.LatestRun(ctx, conn)
			if err != nil {
				return err
			}
			counts, err := store.CountAll(ctx, conn)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', 0)
			fmt.Fprintf(tw, "checkpoint\t%d\n", checkpoint)
			fmt.Fprintf(tw, "progress file\t%d\n", progress)
			fmt.Fprintf(tw, "failed lines\t%d\n", len(ingest.DistinctLines(failed)))
			if run != nil {
				finished := run.FinishedAt
				if finished == "" {
					finished = "unfinished"
				}
				fmt.Fprintf(tw, "last run\t%s (%s .. %s, ingested %d, failed %d)\n",
					run.ID, run.StartedAt, finished, run.Ingested, run.Failed)
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "TABLE\tROWS")
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%d\n", c.Table, c.Rows)
			}
			return tw.Flush()
		},
	}
}
