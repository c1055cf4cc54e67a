// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/mapaudit/mapaudit/analysis"
	"github.com/mapaudit/mapaudit/config"
	"github.com/mapaudit/mapaudit/features"
	"github.com/mapaudit/mapaudit/geocode"
	"github.com/mapaudit/mapaudit/sources"
	"github.com/mapaudit/mapaudit/utils/httputils"
	"go.uber.org/zap"
)

var errNoSnapshot = errors.New("no map snapshot, run 'features import' or set features.file")

func openDB() (*sql.DB, error) {
	if err := os.MkdirAll(cfg.DBPath, 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", cfg.DBFile())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

func featureRepository(db *sql.DB) (features.Repository, error) {
	repo := features.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		return nil, fmt.Errorf("creating features schema: %w", err)
	}

	return repo, nil
}

// importGeoJSON replaces the stored snapshot with the features of a GeoJSON
// export.
func importGeoJSON(repo features.Repository, path string) (int, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	feats, err := features.LoadGeoJSON(f)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := repo.ReplaceAll(path, feats); err != nil {
		return 0, fmt.Errorf("storing features: %w", err)
	}

	return len(feats), nil
}

// snapshotRepository returns the feature repository, importing
// features.file first when the database holds no snapshot.
func snapshotRepository(db *sql.DB) (features.Repository, error) {
	repo, err := featureRepository(db)
	if err != nil {
		return nil, err
	}

	count, err := repo.Count()
	if err != nil {
		return nil, fmt.Errorf("counting features: %w", err)
	}

	if count > 0 {
		return repo, nil
	}

	if cfg.Features.File == "" {
		return nil, errNoSnapshot
	}

	n, err := importGeoJSON(repo, cfg.Features.File)
	if err != nil {
		return nil, err
	}

	zap.L().Info("imported map snapshot", zap.String("file", cfg.Features.File), zap.Int("features", n))

	return repo, nil
}

// loadStore returns the stored snapshot held in memory.
func loadStore(ctx context.Context, db *sql.DB) (*features.Store, error) {
	repo, err := snapshotRepository(db)
	if err != nil {
		return nil, err
	}

	feats, err := repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading features: %w", err)
	}

	return features.NewStore(feats)
}

// withSnapshot points runner at the stored snapshot the way
// features.locator says.
func withSnapshot(ctx context.Context, db *sql.DB, runner *analysis.Runner) error {
	if cfg.Features.Locator != config.LocatorSQL {
		store, err := loadStore(ctx, db)
		if err != nil {
			return err
		}

		runner.Store = store

		return nil
	}

	repo, err := snapshotRepository(db)
	if err != nil {
		return err
	}

	runner.Repository = repo

	return nil
}

func newFetcher() (*sources.Fetcher, error) {
	var trace io.Writer
	if cfg.HTTP.Trace {
		trace = os.Stderr
	}

	return sources.NewFetcher(sources.FetcherOptions{
		CacheDir:          cfg.CacheDir(),
		MaxAge:            cfg.HTTP.CacheMaxAge,
		Offline:           cfg.HTTP.Offline,
		RequestsPerSecond: cfg.HTTP.RatePerSecond,
		Client: httputils.ClientOptions{
			UserAgent: userAgent(),
			Trace:     trace,
			TraceBody: cfg.HTTP.TraceBody,
			Timeout:   cfg.HTTP.Timeout,
		},
	})
}

// newResolver builds the geocoding resolver, nil when geocoding is off.
func newResolver(ctx context.Context, db *sql.DB) (*geocode.Resolver, error) {
	if cfg.Geocode.Provider == "" || cfg.Geocode.Provider == "none" {
		return nil, nil
	}

	key := cfg.Geocode.APIKey
	if key == "" {
		var err error

		key, err = geocode.KeyFromADC(ctx, cfg.Geocode.Project, "")
		if err != nil {
			return nil, fmt.Errorf("looking up the maps key: %w", err)
		}
	}

	repo := geocode.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		return nil, fmt.Errorf("creating geocodes schema: %w", err)
	}

	// validated on load
	minimum, _ := geocode.ParseConfidence(cfg.Geocode.MinConfidence)

	return &geocode.Resolver{
		Geocoder:      geocode.NewGoogleMapsGeocoder(key, geocode.WithRate(cfg.Geocode.RatePerSecond)),
		Repository:    repo,
		Region:        cfg.Geocode.Region,
		MinConfidence: minimum,
	}, nil
}
