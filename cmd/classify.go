package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/obradata/obrataxo/internal/classifier"
	"github.com/obradata/obrataxo/internal/header"
	"github.com/obradata/obrataxo/internal/ingest"
	"github.com/obradata/obrataxo/internal/normtext"
	"github.com/obradata/obrataxo/internal/store"
	"github.com/obradata/obrataxo/internal/taxonomy"
)

var (
	classifyRulesDir string
	classifyInput    string
	classifySheet    string
	classifyOutput   string
	classifyDescCol  int
	classifyUnitCol  int
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify budget line items into canonical nicknames",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		started := time.Now()

		rulesDir := classifyRulesDir
		if rulesDir == "" {
			rulesDir = cfg.Rules.Dir
		}

		repo, err := buildRepository(ctx, rulesDir)
		if err != nil {
			return err
		}

		grid, err := loadGrid(cmd, classifyInput, classifySheet)
		if err != nil {
			return err
		}
		if len(grid) == 0 {
			return eris.Errorf("classify: %s has no rows", classifyInput)
		}

		descCol, unitCol, dataStart := classifyColumns(grid)

		engine := classifier.New(repo, classifier.Config{
			UnitBonus:  cfg.Classify.UnitBonus,
			MustHit:    cfg.Classify.MustHit,
			ExcludeHit: cfg.Classify.ExcludeHit,
			Threshold:  cfg.Classify.Threshold,
			Workers:    cfg.Classify.Workers,
		})

		descriptions := make([]string, 0, len(grid)-dataStart)
		for _, raw := range grid[dataStart:] {
			descriptions = append(descriptions, cellAt(raw, descCol))
		}
		cleaned, stats := normtext.CleanDescriptions(descriptions, normtext.CleanConfig{
			SplitNumbers:    cfg.Clean.SplitSticky,
			Decimals:        cfg.Clean.Decimals,
			StripAccents:    true,
			StripPunct:      true,
			RemoveStopwords: cfg.Clean.Stopwords,
		})
		zap.L().Debug("descriptions cleaned",
			zap.Int("sticky_numbers", stats.StickyNumbers),
			zap.Int("decimals", stats.Decimals),
			zap.Int("stopwords", stats.Stopwords),
		)

		rows := make([]classifier.Row, 0, len(cleaned))
		for i, desc := range cleaned {
			rows = append(rows, classifier.Row{
				Description: desc,
				Unit:        cellAt(grid[dataStart+i], unitCol),
			})
		}

		results := engine.ClassifyBatch(ctx, rows)

		unknown, uncertain := 0, 0
		for _, res := range results {
			if res.Unknown {
				unknown++
			}
			if res.Uncertain {
				uncertain++
			}
		}

		if err := writeClassified(classifyOutput, grid, dataStart, results); err != nil {
			return err
		}

		recordClassifyRun(cmd, rulesDir, started, len(rows), unknown, uncertain)

		zap.L().Info("classification complete",
			zap.String("input", classifyInput),
			zap.Int("rows", len(rows)),
			zap.Int("unknown", unknown),
			zap.Int("uncertain", uncertain),
			zap.String("output", classifyOutput),
		)
		return nil
	},
}

// classifyColumns resolves the description and unit columns, running
// header detection when the flags were not given. Returns the column
// indexes and the first data row.
func classifyColumns(grid [][]string) (descCol, unitCol, dataStart int) {
	if classifyDescCol >= 0 {
		return classifyDescCol, classifyUnitCol, 0
	}

	det := header.Detect(grid, header.Options{
		MaxScanRows:    cfg.Header.MaxScanRows,
		ScoreThreshold: cfg.Header.ScoreThreshold,
	})

	descCol, unitCol = -1, -1
	for col, role := range det.Columns {
		switch role {
		case header.RoleDescription:
			descCol = col
		case header.RoleUnit:
			unitCol = col
		}
	}
	if descCol < 0 {
		// no usable mapping, treat the first column as the description
		descCol = 0
	}

	dataStart = det.HeaderRow + 1
	if det.HeaderRow == header.NoHeaderRow {
		dataStart = 0
	}

	zap.L().Info("header detected",
		zap.Int("header_row", det.HeaderRow),
		zap.Float64("score", det.Score),
		zap.String("method", det.Method),
		zap.Int("desc_col", descCol),
		zap.Int("unit_col", unitCol),
	)
	return descCol, unitCol, dataStart
}

// loadGrid reads the input file, dispatching on extension.
func loadGrid(cmd *cobra.Command, path, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ingest.ReadXLSX(path, sheet)
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "classify: open %s", path)
		}
		defer f.Close()
		return ingest.ReadCSV(cmd.Context(), f, ingest.CSVOptions{TrimSpace: true})
	default:
		return nil, eris.Errorf("classify: unsupported input %s (want .csv or .xlsx)", path)
	}
}

// writeClassified copies the input grid to a CSV, appending the
// classification columns to each data row.
func writeClassified(path string, grid [][]string, dataStart int, results []classifier.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "classify: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	extra := []string{"tax_apelido", "tax_dominio", "tax_confianca", "tax_desconhecido", "tax_incerto"}

	// headerless input: emit a synthetic header so downstream commands
	// can still locate the classification columns by name
	if dataStart == 0 && len(grid) > 0 {
		head := make([]string, 0, len(grid[0])+len(extra))
		for i := range grid[0] {
			head = append(head, "col_"+strconv.Itoa(i))
		}
		head = append(head, extra...)
		if err := w.Write(head); err != nil {
			return eris.Wrap(err, "classify: write header row")
		}
	}

	for i, row := range grid {
		out := append([]string{}, row...)
		if i < dataStart {
			if i == dataStart-1 {
				out = append(out, extra...)
			}
			if err := w.Write(out); err != nil {
				return eris.Wrap(err, "classify: write header row")
			}
			continue
		}

		res := results[i-dataStart]
		out = append(out,
			res.Nickname,
			res.Domain,
			strconv.Itoa(res.Confidence),
			strconv.FormatBool(res.Unknown),
			strconv.FormatBool(res.Uncertain),
		)
		if err := w.Write(out); err != nil {
			return eris.Wrap(err, "classify: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "classify: flush output")
	}
	return f.Close()
}

// recordClassifyRun appends the invocation to the local history log.
// History is best effort and never fails the command.
func recordClassifyRun(cmd *cobra.Command, rulesDir string, started time.Time, rows, unknown, uncertain int) {
	if !cfg.Cache.Enabled {
		return
	}
	cache, err := store.Open(cfg.Cache.Path)
	if err != nil {
		zap.L().Debug("run history unavailable", zap.Error(err))
		return
	}
	defer cache.Close()

	fp, _ := taxonomy.Fingerprint(rulesDir)
	if _, err := cache.RecordRun(cmd.Context(), store.Run{
		Fingerprint: fp,
		Input:       classifyInput,
		Rows:        rows,
		Unknown:     unknown,
		Uncertain:   uncertain,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}); err != nil {
		zap.L().Debug("run history write failed", zap.Error(err))
	}
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func init() {
	classifyCmd.Flags().StringVar(&classifyRulesDir, "rules", "", "rule source directory (default from config)")
	classifyCmd.Flags().StringVar(&classifyInput, "input", "", "budget file to classify, .csv or .xlsx (required)")
	classifyCmd.Flags().StringVar(&classifySheet, "sheet", "", "workbook sheet name (default: first sheet)")
	classifyCmd.Flags().StringVar(&classifyOutput, "output", "classificado.csv", "output CSV path")
	classifyCmd.Flags().IntVar(&classifyDescCol, "desc-col", -1, "description column index (skips header detection)")
	classifyCmd.Flags().IntVar(&classifyUnitCol, "unit-col", -1, "unit column index")
	_ = classifyCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(classifyCmd)
}
