package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/obradata/obrataxo/internal/header"
	"github.com/obradata/obrataxo/internal/ingest"
)

var detectInput string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Report per-sheet header detection for a workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sheets, err := ingest.ReadWorkbook(detectInput)
		if err != nil {
			return err
		}

		opts := header.Options{
			MaxScanRows:    cfg.Header.MaxScanRows,
			ScoreThreshold: cfg.Header.ScoreThreshold,
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SHEET\tSTATUS\tHEADER ROW\tSCORE\tMETHOD\tCOLUMNS")
		for _, sheet := range sheets {
			if sheet.Status != "ok" {
				fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\n", sheet.Name, sheet.Status)
				continue
			}
			det := header.Detect(sheet.Grid, opts)
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%s\t%s\n",
				sheet.Name, sheet.Status, det.HeaderRow, det.Score, det.Method,
				formatColumns(det.Columns))
		}
		return w.Flush()
	},
}

func formatColumns(columns map[int]header.Role) string {
	if len(columns) == 0 {
		return "-"
	}
	cols := make([]int, 0, len(columns))
	for col := range columns {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	out := ""
	for i, col := range cols {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%d=%s", col, columns[col])
	}
	return out
}

func init() {
	detectCmd.Flags().StringVar(&detectInput, "input", "", "workbook to inspect, .xlsx (required)")
	_ = detectCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(detectCmd)
}
