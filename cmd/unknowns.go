package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/obradata/obrataxo/internal/ingest"
	"github.com/obradata/obrataxo/internal/unknowns"
)

var (
	unknownsInput   string
	unknownsOutDir  string
	unknownsDescCol int
	unknownsUnitCol int
)

var unknownsCmd = &cobra.Command{
	Use:   "unknowns",
	Short: "Aggregate unresolved rows from a classified CSV into the curation queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := os.Open(unknownsInput)
		if err != nil {
			return eris.Wrapf(err, "unknowns: open %s", unknownsInput)
		}
		defer f.Close()

		grid, err := ingest.ReadCSV(cmd.Context(), f, ingest.CSVOptions{TrimSpace: true})
		if err != nil {
			return err
		}
		if len(grid) == 0 {
			return eris.Errorf("unknowns: %s has no rows", unknownsInput)
		}

		unknownCol := columnNamed(grid[0], "tax_desconhecido")
		if unknownCol < 0 {
			return eris.Errorf("unknowns: %s has no tax_desconhecido column, classify it first", unknownsInput)
		}

		var items []unknowns.Item
		for _, row := range grid[1:] {
			items = append(items, unknowns.Item{
				Description: cellAt(row, unknownsDescCol),
				Unit:        cellAt(row, unknownsUnitCol),
				Unknown:     cellAt(row, unknownCol) == "true",
			})
		}

		outDir := unknownsOutDir
		if outDir == "" {
			outDir = cfg.Export.UnknownsDir
		}

		path, err := unknowns.Export(outDir, items)
		if err != nil {
			return err
		}
		if path == "" {
			zap.L().Info("no unresolved rows", zap.String("input", unknownsInput))
			return nil
		}

		zap.L().Info("curation queue written",
			zap.String("input", unknownsInput),
			zap.String("out", path),
		)
		return nil
	},
}

func columnNamed(headerRow []string, name string) int {
	for i, cell := range headerRow {
		if cell == name {
			return i
		}
	}
	return -1
}

func init() {
	unknownsCmd.Flags().StringVar(&unknownsInput, "input", "", "classified CSV to aggregate (required)")
	unknownsCmd.Flags().StringVar(&unknownsOutDir, "out", "", "output directory for the JSONL queue (default from config)")
	unknownsCmd.Flags().IntVar(&unknownsDescCol, "desc-col", 0, "description column index")
	unknownsCmd.Flags().IntVar(&unknownsUnitCol, "unit-col", 1, "unit column index")
	_ = unknownsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(unknownsCmd)
}
