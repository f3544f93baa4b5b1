package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/obradata/obrataxo/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent classification runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cache, err := store.Open(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer cache.Close()

		runs, err := cache.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tINPUT\tROWS\tUNKNOWN\tUNCERTAIN\tDURATION")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
				run.StartedAt.Local().Format(time.DateTime),
				run.Input, run.Rows, run.Unknown, run.Uncertain,
				run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
			)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
