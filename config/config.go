// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the mapaudit configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mapaudit/mapaudit/analysis"
	"github.com/mapaudit/mapaudit/geocode"
	"github.com/mapaudit/mapaudit/sources"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, MAPAUDIT_LOG_LEVEL sets
// log.level.
const EnvPrefix = "MAPAUDIT"

var errDuplicateAnalysis = errors.New("duplicate analysis")

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig              `mapstructure:"log"`
	DBPath   string                 `mapstructure:"db_path"`
	Features FeaturesConfig         `mapstructure:"features"`
	Server   ServerConfig           `mapstructure:"server"`
	Geocode  GeocodeConfig          `mapstructure:"geocode"`
	HTTP     HTTPConfig             `mapstructure:"http"`
	Sources  []sources.Reference    `mapstructure:"sources"`
	Analyses []*analysis.Definition `mapstructure:"analyses"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FeaturesConfig points at the map snapshot.
type FeaturesConfig struct {
	// File is a GeoJSON export imported when the database holds no snapshot
	File string `mapstructure:"file"`

	// Locator is where analyses look candidates up: memory loads the
	// snapshot once, sql queries the database for each place
	Locator string `mapstructure:"locator"`
}

// Locators understood by features.locator.
const (
	LocatorMemory = "memory"
	LocatorSQL    = "sql"
)

// ServerConfig configures the report server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// GeocodeConfig configures address resolution of unlocated places.
type GeocodeConfig struct {
	// Provider is google or none
	Provider string `mapstructure:"provider"`

	// APIKey for the provider; when empty the key is looked up through
	// application default credentials in Project
	APIKey string `mapstructure:"api_key"`
	Project string `mapstructure:"project"`

	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Region        string  `mapstructure:"region"`
	MinConfidence string  `mapstructure:"min_confidence"`
}

// HTTPConfig configures downloads of source documents.
type HTTPConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	Trace         bool          `mapstructure:"trace"`
	TraceBody     bool          `mapstructure:"trace_body"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Timeout       time.Duration `mapstructure:"timeout"`

	// CacheMaxAge is how long downloaded documents are reused
	CacheMaxAge time.Duration `mapstructure:"cache_max_age"`
	Offline     bool          `mapstructure:"offline"`
}

// Viper returns the viper instance Load uses, so commands can bind their
// flags to keys before loading.
func Viper() *viper.Viper {
	return global
}

var global = viper.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("db_path", "db")
	v.SetDefault("features.locator", LocatorMemory)
	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("geocode.provider", "none")
	v.SetDefault("geocode.rate_per_second", 10)
	v.SetDefault("geocode.min_confidence", "medium")
	v.SetDefault("http.user_agent", "mapaudit (+https://github.com/mapaudit/mapaudit)")
	v.SetDefault("http.rate_per_second", 1)
	v.SetDefault("http.timeout", time.Minute)
	v.SetDefault("http.cache_max_age", 24*time.Hour)
}

// Load reads configuration from path, or from mapaudit.yaml in the working
// directory or $HOME/.mapaudit when path is empty, and from MAPAUDIT_*
// environment variables. A missing default file is not an error.
func Load(path string) (*Config, error) {
	return load(global, path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mapaudit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.mapaudit")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the parts that can be checked without touching the
// network.
func (c *Config) Validate() error {
	switch c.Geocode.Provider {
	case "", "none", "google":
	default:
		return fmt.Errorf("config: unknown geocode provider %q", c.Geocode.Provider)
	}

	switch c.Features.Locator {
	case "", LocatorMemory, LocatorSQL:
	default:
		return fmt.Errorf("config: unknown features locator %q", c.Features.Locator)
	}

	if _, err := geocode.ParseConfidence(c.Geocode.MinConfidence); err != nil {
		return fmt.Errorf("config: geocode.min_confidence: %w", err)
	}

	for i := range c.Sources {
		if err := c.Sources[i].Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	seen := make(map[string]bool, len(c.Analyses))

	for i, a := range c.Analyses {
		if a == nil {
			return fmt.Errorf("config: analysis %d is empty", i)
		}

		if seen[a.Name] {
			return fmt.Errorf("config: %w %q", errDuplicateAnalysis, a.Name)
		}

		seen[a.Name] = true
	}

	return nil
}

// DBFile is the DuckDB database inside DBPath.
func (c *Config) DBFile() string {
	return filepath.Join(c.DBPath, "mapaudit.duckdb")
}

// CacheDir holds downloaded source documents.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DBPath, "cache")
}

// RegisterSources adds the configured sources to the registry.
func (c *Config) RegisterSources() error {
	for _, ref := range c.Sources {
		if _, err := sources.Register(ref); err != nil {
			return fmt.Errorf("registering source %q: %w", ref.Name, err)
		}
	}

	return nil
}

// Analysis returns the named analysis.
func (c *Config) Analysis(name string) (*analysis.Definition, error) {
	for _, a := range c.Analyses {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}

	return nil, fmt.Errorf("analysis %q not configured", name)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.DisableStacktrace = true
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("config: parse log level: %w", err)
	}

	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("config: build logger: %w", err)
	}

	zap.ReplaceGlobals(logger)

	return nil
}
