package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/greenfact/esg-cli/internal/scoring"
	"github.com/greenfact/esg-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig              `yaml:"store" mapstructure:"store"`
	Scoring  ScoringConfig            `yaml:"scoring" mapstructure:"scoring"`
	Weights  map[string]float64       `yaml:"weights" mapstructure:"weights"`
	Mappings map[string]MappingConfig `yaml:"mappings" mapstructure:"mappings"`
	Grades   GradesConfig             `yaml:"grades" mapstructure:"grades"`
	Batch    BatchConfig              `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig             `yaml:"server" mapstructure:"server"`
	Log      LogConfig                `yaml:"log" mapstructure:"log"`
}

// MappingConfig routes framework source names into a scoring category for
// inputs that carry only a source.
type MappingConfig struct {
	Sources []string `yaml:"sources" mapstructure:"sources"`
}

// SourceCategories inverts the mappings into a source -> category lookup.
func (c *Config) SourceCategories() map[string]string {
	if len(c.Mappings) == 0 {
		return nil
	}
	out := make(map[string]string)
	for category, m := range c.Mappings {
		for _, source := range m.Sources {
			out[source] = category
		}
	}
	return out
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ScoringConfig configures composite score calculation.
type ScoringConfig struct {
	NormalizeMethod        string  `yaml:"normalize_method" mapstructure:"normalize_method"`
	MinCompletenessToCount float64 `yaml:"min_completeness_to_count" mapstructure:"min_completeness_to_count"`
	EvidenceBonus          float64 `yaml:"evidence_bonus" mapstructure:"evidence_bonus"`
	MaterialityBonus       float64 `yaml:"materiality_bonus" mapstructure:"materiality_bonus"`
}

// GradesConfig configures the grade classifier bands.
type GradesConfig struct {
	Bands []scoring.Band `yaml:"bands" mapstructure:"bands"`
}

// BatchConfig configures batch scoring.
type BatchConfig struct {
	MaxConcurrentCompanies int `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
}

// ServerConfig configures the JSON API server.
type ServerConfig struct {
	Port           int     `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ESG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "esg.db")
	v.SetDefault("scoring.normalize_method", scoring.NormalizePooled)
	v.SetDefault("scoring.min_completeness_to_count", 0.5)
	v.SetDefault("scoring.evidence_bonus", 0.05)
	v.SetDefault("scoring.materiality_bonus", 0.10)
	v.SetDefault("batch.max_concurrent_companies", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)
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

// Validate checks configuration consistency for the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for the postgres driver")
	}
	if len(c.Weights) > 0 {
		var sum float64
		for category, w := range c.Weights {
			if w < 0 {
				problems = append(problems, "weights."+category+" must be >= 0")
			}
			sum += w
		}
		if sum < 0.99 || sum > 1.01 {
			zap.L().Warn("config: category weights do not sum to 1.0",
				zap.Float64("sum", sum),
			)
		}
	}
	if c.Scoring.EvidenceBonus < 0 || c.Scoring.MaterialityBonus < 0 {
		problems = append(problems, "scoring bonuses must be >= 0")
	}
	if c.Scoring.MinCompletenessToCount < 0 || c.Scoring.MinCompletenessToCount > 1 {
		problems = append(problems, "scoring.min_completeness_to_count must be in [0, 1]")
	}
	if c.Batch.MaxConcurrentCompanies < 1 || c.Batch.MaxConcurrentCompanies > 50 {
		problems = append(problems, "batch.max_concurrent_companies must be between 1 and 50")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RateLimitRPS <= 0 {
			problems = append(problems, "server.rate_limit_rps must be > 0")
		}
	case "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ScoringOptions converts the file/env representation into the calculator's
// config type.
func (c *Config) ScoringOptions() scoring.Config {
	bonus := scoring.BonusConfig{Signals: map[string]float64{
		scoring.SignalEvidence:    c.Scoring.EvidenceBonus,
		scoring.SignalMateriality: c.Scoring.MaterialityBonus,
	}}
	return scoring.Config{
		NormalizeMethod: c.Scoring.NormalizeMethod,
		MinCompleteness: c.Scoring.MinCompletenessToCount,
		Bonus:           bonus,
	}
}

// Classifier builds the grade classifier from configured bands, falling
// back to the default A/B/C/D bands when none are set.
func (c *Config) Classifier() (*scoring.Classifier, error) {
	bands := c.Grades.Bands
	if len(bands) == 0 {
		bands = scoring.DefaultBands()
	}
	return scoring.NewClassifier(bands)
}

// InitLogger initializes the global zap logger.
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
