// Package config loads application configuration from config.yaml and
// OBRATAXO_* environment variables, and wires the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Header   HeaderConfig   `yaml:"header" mapstructure:"header"`
	Clean    CleanConfig    `yaml:"clean" mapstructure:"clean"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// RulesConfig locates the YAML rule sources.
type RulesConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Strict bool   `yaml:"strict" mapstructure:"strict"`
}

// ClassifyConfig holds the fuzzy-pass scoring knobs.
type ClassifyConfig struct {
	UnitBonus  int `yaml:"unit_bonus" mapstructure:"unit_bonus"`
	MustHit    int `yaml:"must_hit" mapstructure:"must_hit"`
	ExcludeHit int `yaml:"exclude_hit" mapstructure:"exclude_hit"`
	Threshold  int `yaml:"threshold" mapstructure:"threshold"`
	Workers    int `yaml:"workers" mapstructure:"workers"`
}

// HeaderConfig tunes the spreadsheet header detector.
type HeaderConfig struct {
	MaxScanRows    int     `yaml:"max_scan_rows" mapstructure:"max_scan_rows"`
	ScoreThreshold float64 `yaml:"score_threshold" mapstructure:"score_threshold"`
}

// CleanConfig toggles the description pre-cleaning steps.
type CleanConfig struct {
	SplitSticky bool `yaml:"split_sticky" mapstructure:"split_sticky"`
	Decimals    bool `yaml:"decimals" mapstructure:"decimals"`
	Stopwords   bool `yaml:"stopwords" mapstructure:"stopwords"`
}

// CacheConfig configures the compiled-repository cache.
type CacheConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	MaxAgeH int    `yaml:"max_age_hours" mapstructure:"max_age_hours"`
}

// ExportConfig configures artifact outputs.
type ExportConfig struct {
	UnknownsDir string `yaml:"unknowns_dir" mapstructure:"unknowns_dir"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OBRATAXO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("rules.dir", "regras")
	v.SetDefault("rules.strict", false)
	v.SetDefault("classify.unit_bonus", 10)
	v.SetDefault("classify.must_hit", 2)
	v.SetDefault("classify.exclude_hit", -5)
	v.SetDefault("classify.threshold", 8)
	v.SetDefault("classify.workers", 4)
	v.SetDefault("header.max_scan_rows", 50)
	v.SetDefault("header.score_threshold", 0.55)
	v.SetDefault("clean.split_sticky", true)
	v.SetDefault("clean.decimals", true)
	v.SetDefault("clean.stopwords", true)
	v.SetDefault("cache.path", "obrataxo.db")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_age_hours", 720)
	v.SetDefault("export.unknowns_dir", "desconhecidos")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks bounds on the tunable knobs. Errors name the
// offending keys so misconfigurations are fixable from the message.
func (c *Config) Validate() error {
	var problems []string

	if c.Rules.Dir == "" {
		problems = append(problems, "rules.dir is required")
	}
	if c.Classify.UnitBonus < 0 {
		problems = append(problems, "classify.unit_bonus must be >= 0")
	}
	if c.Classify.MustHit < 0 {
		problems = append(problems, "classify.must_hit must be >= 0")
	}
	if c.Classify.ExcludeHit > 0 {
		problems = append(problems, "classify.exclude_hit must be <= 0")
	}
	if c.Classify.Workers < 1 || c.Classify.Workers > 64 {
		problems = append(problems, "classify.workers must be between 1 and 64")
	}
	if c.Header.MaxScanRows < 1 {
		problems = append(problems, "header.max_scan_rows must be > 0")
	}
	if c.Header.ScoreThreshold < 0 || c.Header.ScoreThreshold > 1 {
		problems = append(problems, "header.score_threshold must be between 0 and 1")
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		problems = append(problems, "cache.path is required when cache.enabled")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger builds the global zap logger from LogConfig.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
