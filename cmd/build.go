package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/obradata/obrataxo/internal/artifact"
	"github.com/obradata/obrataxo/internal/store"
	"github.com/obradata/obrataxo/internal/taxonomy"
)

var (
	buildRulesDir   string
	buildOutPath    string
	buildReportPath string
	buildStrict     bool
	buildNoCache    bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile rule sources into the CSV catalog and sanity report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rulesDir := buildRulesDir
		if rulesDir == "" {
			rulesDir = cfg.Rules.Dir
		}
		strict := buildStrict || cfg.Rules.Strict

		raws, err := artifact.ReadRecords(rulesDir)
		if err != nil {
			return err
		}

		records, report := artifact.ValidateRecords(raws)

		// the sanity report lands on disk no matter what happens next,
		// so duplicate nicknames and load errors stay inspectable even
		// on an abort
		if err := artifact.WriteReport(buildReportPath, report); err != nil {
			return err
		}

		if strict && report.HasErrors() {
			return eris.Errorf("build: %d validation errors in strict mode, see %s",
				report.Stats.Error, buildReportPath)
		}

		if err := artifact.WriteCSV(buildOutPath, records); err != nil {
			return err
		}

		// warm the compiled-rule cache; duplicates already recorded in
		// the report would abort the compile, so skip it in that case
		var ruleCount, unitCount int
		if !report.HasErrors() {
			repo, err := buildRepository(ctx, rulesDir)
			if err != nil {
				return err
			}
			ruleCount = repo.Report.RuleCount
			unitCount = repo.Report.UnitCount
		}

		zap.L().Info("build complete",
			zap.String("rules", rulesDir),
			zap.Int("rules_compiled", ruleCount),
			zap.Int("units", unitCount),
			zap.Int("records_ok", report.Stats.OK),
			zap.Int("records_error", report.Stats.Error),
			zap.Int("warnings", report.Stats.Warn),
			zap.String("out", buildOutPath),
			zap.String("report", buildReportPath),
		)
		return nil
	},
}

// buildRepository compiles the rule tree, consulting the fingerprint
// cache unless disabled.
func buildRepository(ctx context.Context, rulesDir string) (*taxonomy.Repository, error) {
	if buildNoCache || !cfg.Cache.Enabled {
		return taxonomy.Build(rulesDir)
	}

	cache, err := store.Open(cfg.Cache.Path)
	if err != nil {
		zap.L().Warn("cache unavailable, building from source", zap.Error(err))
		return taxonomy.Build(rulesDir)
	}
	defer cache.Close()

	fp, err := taxonomy.Fingerprint(rulesDir)
	if err != nil {
		return taxonomy.Build(rulesDir)
	}

	if cached, err := cache.Get(ctx, fp); err == nil && cached != nil {
		zap.L().Debug("repository cache hit", zap.String("fingerprint", fp))
		return cached, nil
	}

	repo, err := taxonomy.Build(rulesDir)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(ctx, fp, repo); err != nil {
		zap.L().Warn("cache write failed", zap.Error(err))
	}
	if maxAge := time.Duration(cfg.Cache.MaxAgeH) * time.Hour; maxAge > 0 {
		if _, err := cache.Prune(ctx, maxAge); err != nil {
			zap.L().Warn("cache prune failed", zap.Error(err))
		}
	}
	return repo, nil
}

func init() {
	buildCmd.Flags().StringVar(&buildRulesDir, "rules", "", "rule source directory (default from config)")
	buildCmd.Flags().StringVar(&buildOutPath, "out", "taxonomia.csv", "output CSV catalog path")
	buildCmd.Flags().StringVar(&buildReportPath, "report", "sanidade.json", "output sanity report path")
	buildCmd.Flags().BoolVar(&buildStrict, "strict", false, "exit non-zero when any record fails validation")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "bypass the compiled-repository cache")
	rootCmd.AddCommand(buildCmd)
}
