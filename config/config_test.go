// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdir moves into an empty directory so no mapaudit.yaml is found.
func chdir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	t.Setenv("HOME", dir)

	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)

	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "db", cfg.DBPath)
	assert.Equal(t, LocatorMemory, cfg.Features.Locator)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
	assert.Equal(t, "none", cfg.Geocode.Provider)
	assert.Equal(t, "medium", cfg.Geocode.MinConfidence)
	assert.InDelta(t, 10, cfg.Geocode.RatePerSecond, 0.001)
	assert.InDelta(t, 1, cfg.HTTP.RatePerSecond, 0.001)
	assert.Equal(t, time.Minute, cfg.HTTP.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.HTTP.CacheMaxAge)
	assert.Equal(t, filepath.Join("db", "mapaudit.duckdb"), cfg.DBFile())
	assert.Equal(t, filepath.Join("db", "cache"), cfg.CacheDir())
	assert.Empty(t, cfg.Analyses)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdir(t)

	yaml := `
log:
  level: debug
  format: json
db_path: /var/lib/mapaudit
http:
  cache_max_age: 2h
sources:
  - name: Riga taps
    url: file:///srv/taps.geojson
    format: geojson
analyses:
  - name: drinking-water
    source: Riga taps
    filters:
      - key: amenity
        values: [drinking_water]
    match_distance: 15
    far_distance: 75
    lone:
      - key: seasonal
        values: ["yes"]
    labels: { singular: tap, plural: taps }
    preview: { tag: seasonal, values: { "yes": seasonal tap } }
    checks:
      - key: fixme
        absent: true
  - name: post-boxes
    source: Latvijas Pasts
    match_distance: 100
    far_distance: 200
    extra_distance: { strong: 500 }
    strength:
      fallback: weak
      rules:
        - type: address
          strength: strong
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mapaudit.yaml"), []byte(yaml), 0o600))

	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/var/lib/mapaudit", cfg.DBPath)
	assert.Equal(t, 2*time.Hour, cfg.HTTP.CacheMaxAge)
	// defaults still apply for unset values
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)

	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "file:///srv/taps.geojson", cfg.Sources[0].URL)

	require.Len(t, cfg.Analyses, 2)

	water := cfg.Analyses[0]
	assert.Equal(t, "drinking-water", water.Name)
	assert.InDelta(t, 15, water.MatchDistance, 0.001)
	assert.InDelta(t, 75, water.FarDistance, 0.001)
	require.Len(t, water.Filters, 1)
	assert.Equal(t, []string{"drinking_water"}, water.Filters[0].Values)
	require.Len(t, water.Lone, 1)
	assert.Equal(t, "seasonal", water.Lone[0].Key)
	assert.Equal(t, "taps", water.Labels.Plural)
	assert.Equal(t, "seasonal tap", water.Preview.Values["yes"])
	require.Len(t, water.Checks, 1)
	assert.True(t, water.Checks[0].Absent)
	require.NoError(t, water.Validate())

	boxes, err := cfg.Analysis("POST-BOXES")
	require.NoError(t, err)
	assert.InDelta(t, 500, boxes.ExtraDistance["strong"], 0.001)
	assert.Equal(t, "weak", boxes.Strength.Fallback)
	require.Len(t, boxes.Strength.Rules, 1)
	assert.Equal(t, "address", boxes.Strength.Rules[0].Type)
	require.NoError(t, boxes.Validate())

	_, err = cfg.Analysis("bus-stops")
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdir(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "mapaudit.yaml"), []byte("log:\n  level: warn\n"), 0o600))
	t.Setenv("MAPAUDIT_LOG_LEVEL", "error")
	t.Setenv("MAPAUDIT_SERVER_ADDR", ":9090")
	t.Setenv("MAPAUDIT_FEATURES_LOCATOR", "sql")

	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, LocatorSQL, cfg.Features.Locator)
}

func TestLoadExplicitFile(t *testing.T) {
	dir := chdir(t)

	path := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: elsewhere\n"), 0o600))

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", cfg.DBPath)

	_, err = load(viper.New(), filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown geocode provider",
			yaml:    "geocode:\n  provider: bing\n",
			wantErr: `unknown geocode provider "bing"`,
		},
		{
			name:    "unknown confidence",
			yaml:    "geocode:\n  min_confidence: perfect\n",
			wantErr: "geocode.min_confidence",
		},
		{
			name:    "unknown locator",
			yaml:    "features:\n  locator: rtree\n",
			wantErr: `unknown features locator "rtree"`,
		},
		{
			name:    "duplicate analysis",
			yaml:    "analyses:\n  - name: a\n    source: x\n  - name: a\n    source: y\n",
			wantErr: `duplicate analysis "a"`,
		},
		{
			name:    "invalid source",
			yaml:    "sources:\n  - name: broken\n    url: https://example.com\n    format: csv\n",
			wantErr: `unknown format "csv"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdir(t)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "mapaudit.yaml"), []byte(tt.yaml), 0o600))

			_, err := load(viper.New(), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{name: "console debug", cfg: LogConfig{Level: "debug", Format: "console"}},
		{name: "json info", cfg: LogConfig{Level: "info", Format: "json"}},
		{name: "bad level", cfg: LogConfig{Level: "chatty"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.True(t, zap.L().Core().Enabled(zap.InfoLevel))
		})
	}
}
