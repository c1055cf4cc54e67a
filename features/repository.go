// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package features

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/spatial"
)

// SnapshotInfo describes the snapshot currently stored.
type SnapshotInfo struct {
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Count    int       `json:"count"`
}

// Repository persists the feature snapshot.
type Repository interface {
	// CreateSchema creates the features tables
	CreateSchema() error

	// ReplaceAll swaps the stored snapshot for features, atomically
	ReplaceAll(source string, features []*Feature) error

	// LoadAll returns the snapshot in the order it was stored
	LoadAll(ctx context.Context) ([]*Feature, error)

	// Count returns the number of stored features
	Count() (int, error)

	// Info describes the stored snapshot, sql.ErrNoRows if there is none
	Info() (*SnapshotInfo, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlFeatureRepository struct {
	db *sql.DB
}

// NewRepository creates a new feature repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlFeatureRepository{db: db}
}

// DB returns the underlying database connection for advanced queries.
func (r *sqlFeatureRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlFeatureRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS features (
			seq INTEGER NOT NULL,
			type VARCHAR NOT NULL,
			osm_id BIGINT NOT NULL,
			lat DOUBLE NOT NULL,
			lng DOUBLE NOT NULL,
			h3_res9 UBIGINT NOT NULL,
			tags VARCHAR NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshots (
			source VARCHAR NOT NULL,
			loaded_at TIMESTAMP NOT NULL,
			feature_count INTEGER NOT NULL
		);
	`)

	return err
}

func (r *sqlFeatureRepository) ReplaceAll(source string, features []*Feature) error {
	// identities are checked here rather than with a key constraint, so the
	// old rows can be deleted and re-inserted in the same transaction
	if _, err := NewStore(features); err != nil {
		return fmt.Errorf("validating snapshot: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	rollback := func(err error) error {
		if rErr := tx.Rollback(); rErr != nil {
			return errors.Join(err, rErr)
		}

		return err
	}

	if _, err := tx.Exec(`DELETE FROM features; DELETE FROM snapshots;`); err != nil {
		return rollback(fmt.Errorf("clearing snapshot: %w", err))
	}

	stmt, err := tx.Prepare(`
		INSERT INTO features(seq, type, osm_id, lat, lng, h3_res9, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return rollback(err)
	}
	defer stmt.Close()

	for i, f := range features {
		cell, err := spatial.Cell(f.Location, spatial.DefaultResolution)
		if err != nil {
			return rollback(fmt.Errorf("feature %s: %w", f.ID(), err))
		}

		tags, err := json.Marshal(f.Tags)
		if err != nil {
			return rollback(fmt.Errorf("feature %s: encoding tags: %w", f.ID(), err))
		}

		if _, err := stmt.Exec(i, string(f.Type), f.OSMID, f.Location.Lat, f.Location.Lng, int64(cell), string(tags)); err != nil {
			return rollback(fmt.Errorf("inserting %s: %w", f.ID(), err))
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO snapshots(source, loaded_at, feature_count) VALUES (?, ?, ?)`,
		source, time.Now().UTC(), len(features),
	); err != nil {
		return rollback(fmt.Errorf("recording snapshot: %w", err))
	}

	return tx.Commit()
}

const baseSelect = `SELECT type, osm_id, lat, lng, tags FROM features`

func scanFeatures(rows *sql.Rows) ([]*Feature, error) {
	defer rows.Close()

	var ret []*Feature

	for rows.Next() {
		var (
			t    string
			tags string
			f    Feature
		)

		if err := rows.Scan(&t, &f.OSMID, &f.Location.Lat, &f.Location.Lng, &tags); err != nil {
			return nil, err
		}

		f.Type = Type(t)

		if err := json.Unmarshal([]byte(tags), &f.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags of %s: %w", f.ID(), err)
		}

		ret = append(ret, &f)
	}

	return ret, rows.Err()
}

func (r *sqlFeatureRepository) LoadAll(ctx context.Context) ([]*Feature, error) {
	rows, err := r.db.QueryContext(ctx, baseSelect+` ORDER BY seq`)
	if err != nil {
		return nil, err
	}

	return scanFeatures(rows)
}

func (r *sqlFeatureRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM features").Scan(&count)

	return count, err
}

func (r *sqlFeatureRepository) Info() (*SnapshotInfo, error) {
	var info SnapshotInfo

	err := r.db.QueryRow(
		`SELECT source, loaded_at, feature_count FROM snapshots LIMIT 1`,
	).Scan(&info.Source, &info.LoadedAt, &info.Count)
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// SQLLocator answers radius queries straight from the database: a bounding
// box prefilter in SQL followed by the exact haversine check. Filters, when
// given, are applied to the decoded features. It does not handle boxes
// crossing the antimeridian.
type SQLLocator struct {
	db      *sql.DB
	filters []Filter
}

var (
	_ correlate.Locator    = (*SQLLocator)(nil)
	_ correlate.Enumerator = (*SQLLocator)(nil)
)

// NewSQLLocator creates a locator over the repository's features table.
func NewSQLLocator(repo Repository, filters ...Filter) *SQLLocator {
	return &SQLLocator{db: repo.DB(), filters: filters}
}

const metersPerDegree = math.Pi * 6371e3 / 180

func (l *SQLLocator) keep(all []*Feature) []correlate.Feature {
	ret := make([]correlate.Feature, 0, len(all))

	for _, f := range all {
		if MatchAll(f, l.filters...) {
			ret = append(ret, f)
		}
	}

	return ret
}

// FindWithin implements correlate.Locator.
func (l *SQLLocator) FindWithin(ctx context.Context, center spatial.Point, radius float64) ([]correlate.Feature, error) {
	if err := center.Valid(); err != nil {
		return nil, err
	}

	dLat := radius / metersPerDegree

	dLng := 180.0
	if c := math.Cos(center.Lat * math.Pi / 180); c > 1e-6 {
		dLng = math.Min(180, dLat/c)
	}

	rows, err := l.db.QueryContext(ctx, baseSelect+`
		WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?
		ORDER BY seq`,
		center.Lat-dLat, center.Lat+dLat, center.Lng-dLng, center.Lng+dLng,
	)
	if err != nil {
		return nil, fmt.Errorf("querying features around %s: %w", center, err)
	}

	boxed, err := scanFeatures(rows)
	if err != nil {
		return nil, err
	}

	var within []*Feature

	for _, f := range boxed {
		if spatial.Distance(center, f.Location) <= radius {
			within = append(within, f)
		}
	}

	return l.keep(within), nil
}

// All implements correlate.Enumerator.
func (l *SQLLocator) All(ctx context.Context) ([]correlate.Feature, error) {
	rows, err := l.db.QueryContext(ctx, baseSelect+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying features: %w", err)
	}

	all, err := scanFeatures(rows)
	if err != nil {
		return nil, err
	}

	return l.keep(all), nil
}
