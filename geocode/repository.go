// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"database/sql"
	"errors"
	"time"

	"github.com/mapaudit/mapaudit/utils/textutils"
)

// Repository remembers geocoding results so each address is paid for once.
type Repository interface {
	// CreateSchema creates the geocodes table
	CreateSchema() error

	// Get returns the stored result, nil when the address was never resolved
	Get(address, region string) (*Result, error)

	// Save stores or replaces the result for an address
	Save(address, region string, result *Result) error

	// Count returns the number of stored results
	Count() (int, error)
}

type sqlGeocodeRepository struct {
	db *sql.DB
}

// NewRepository creates a new geocode repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlGeocodeRepository{db: db}
}

func (r *sqlGeocodeRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS geocodes (
			address VARCHAR NOT NULL,
			region VARCHAR NOT NULL,
			lat DOUBLE NOT NULL,
			lng DOUBLE NOT NULL,
			confidence VARCHAR NOT NULL,
			provider VARCHAR NOT NULL,
			display_name VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (address, region)
		);
	`)

	return err
}

// key normalizes addresses so spelling variants share an entry.
func key(address string) string {
	return textutils.NormalizeSpaces(textutils.LowerASCIIFolding(address))
}

func (r *sqlGeocodeRepository) Get(address, region string) (*Result, error) {
	var res Result

	err := r.db.QueryRow(`
		SELECT lat, lng, confidence, provider, display_name
		FROM geocodes WHERE address = ? AND region = ?`,
		key(address), region,
	).Scan(&res.Point.Lat, &res.Point.Lng, &res.Confidence, &res.Provider, &res.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &res, nil
}

func (r *sqlGeocodeRepository) Save(address, region string, result *Result) error {
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO geocodes
			(address, region, lat, lng, confidence, provider, display_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		key(address), region,
		result.Point.Lat, result.Point.Lng,
		string(result.Confidence), result.Provider, result.DisplayName,
		time.Now().UTC(),
	)

	return err
}

func (r *sqlGeocodeRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM geocodes").Scan(&count)

	return count, err
}
