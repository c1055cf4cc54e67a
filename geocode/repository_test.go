// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"database/sql"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/mapaudit/mapaudit/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) Repository {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db)
	require.NoError(t, repo.CreateSchema())

	return repo
}

func TestRepositorySaveAndGet(t *testing.T) {
	repo := setupTestDB(t)

	res, err := repo.Get("Brīvības iela 1", "lv")
	require.NoError(t, err)
	assert.Nil(t, res)

	want := &Result{
		Point:       spatial.Point{Lat: 56.95, Lng: 24.11},
		Confidence:  ConfidenceHigh,
		Provider:    "google_maps",
		DisplayName: "Brīvības bulvāris 1",
	}
	require.NoError(t, repo.Save("Brīvības iela 1", "lv", want))

	// spelling variants share the entry
	got, err := repo.Get("  BRIVIBAS   iela 1", "lv")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// regions don't
	got, err = repo.Get("Brīvības iela 1", "ee")
	require.NoError(t, err)
	assert.Nil(t, got)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRepositoryReplace(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.Save("Tallinas iela 5", "lv", &Result{Confidence: ConfidenceLow, Provider: "a"}))
	require.NoError(t, repo.Save("tallinas iela 5", "lv", &Result{
		Point:      spatial.Point{Lat: 56.96, Lng: 24.14},
		Confidence: ConfidenceHigh,
		Provider:   "b",
	}))

	got, err := repo.Get("Tallinas iela 5", "lv")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ConfidenceHigh, got.Confidence)
	assert.Equal(t, "b", got.Provider)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
