package main

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"blueprint-optimizer/internal/buildorder"
)

// Config is the full application configuration.
type Config struct {
	Search SearchConfig `mapstructure:"search"`
	Runner RunnerConfig `mapstructure:"runner"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Output OutputConfig `mapstructure:"output"`
}

// SearchConfig tunes the branch-and-bound engine.
type SearchConfig struct {
	// CapBots skips bot kinds whose production already covers the largest single spend.
	CapBots bool `mapstructure:"cap_bots"`
	// TrackPlan records the winning build order.
	TrackPlan bool `mapstructure:"track_plan"`
}

// RunnerConfig controls batch evaluation.
type RunnerConfig struct {
	// Workers is the number of blueprints searched concurrently.
	Workers int `mapstructure:"workers" validate:"min=1"`
	// QualityHorizon is the default horizon of the quality command.
	QualityHorizon int `mapstructure:"quality_horizon" validate:"min=0"`
	// ProductHorizon is the default horizon of the product command.
	ProductHorizon int `mapstructure:"product_horizon" validate:"min=0"`
	// ProductCount is how many leading blueprints the product command multiplies.
	ProductCount int `mapstructure:"product_count" validate:"min=1"`
}

// CacheConfig selects the optional result store.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Type is "sqlite" or "postgres".
	Type string `mapstructure:"type" validate:"oneof=sqlite postgres"`
	// Path is the SQLite file (":memory:" when empty).
	Path string `mapstructure:"path"`
	// URL is the PostgreSQL connection string.
	URL string `mapstructure:"url"`
}

// OutputConfig controls what is printed.
type OutputConfig struct {
	JSON    bool `mapstructure:"json"`
	Verbose bool `mapstructure:"verbose"`
	Color   bool `mapstructure:"color"`
	Plan    bool `mapstructure:"plan"`
}

// Verbose controls whether per-blueprint search statistics are printed to stderr.
var Verbose bool

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.cap_bots", true)
	v.SetDefault("search.track_plan", true)
	v.SetDefault("runner.workers", runtime.GOMAXPROCS(0))
	v.SetDefault("runner.quality_horizon", 24)
	v.SetDefault("runner.product_horizon", 32)
	v.SetDefault("runner.product_count", 3)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.type", "sqlite")
	v.SetDefault("cache.path", "blueprint-cache.db")
	v.SetDefault("cache.url", "")
	v.SetDefault("output.json", false)
	v.SetDefault("output.verbose", false)
	v.SetDefault("output.color", true)
	v.SetDefault("output.plan", false)
}

// LoadConfig loads configuration with priority:
// 1. Environment variables (BPO_ prefix, e.g. BPO_RUNNER_WORKERS)
// 2. Config file (blueprint-optimizer.yaml)
// 3. Defaults
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("blueprint-optimizer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("BPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

// SearchOptions converts the search section for the engine.
func (c *Config) SearchOptions() buildorder.Options {
	return buildorder.Options{CapBots: c.Search.CapBots, TrackPlan: c.Search.TrackPlan}
}

// ValidateConfig checks tags and cross-field rules.
func ValidateConfig(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	if cfg.Cache.Enabled && cfg.Cache.Type == "postgres" && cfg.Cache.URL == "" {
		return fmt.Errorf("validation failed:\n  field 'Cache.URL' is required for postgres")
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, fmt.Sprintf("field '%s' failed validation: %s (value: '%v')",
			e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
}
