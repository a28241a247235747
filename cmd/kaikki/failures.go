package main

import (
	"fmt"

	"github.com/japaniel/kaikki/pkg/ingest"
	"github.com/spf13/cobra"
)

func newFailuresCmd(a *app) *cobra.Command {
	var countOnly bool
	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List line numbers recorded in the failed-lines file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := ingest.ReadLedger(a.cfg.FailedLinesFile)
			if err != nil {
				return err
			}
			lines = ingest.DistinctLines(lines)
			out := cmd.OutOrStdout()
			if countOnly {
				fmt.Fprintln(out, len(lines))
				return nil
			}
			for _, n := range lines {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&countOnly, "count", false, "print only the number of failed lines")
	return cmd
}
