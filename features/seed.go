// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package features

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SeedData represents the JSON snapshot export format.
type SeedData struct {
	Version     string     `json:"version"`
	Source      string     `json:"source"`
	LastUpdated time.Time  `json:"last_updated"`
	Features    []*Feature `json:"features"`
}

// ExportJSON writes the stored snapshot to a JSON file.
func ExportJSON(ctx context.Context, repo Repository, filepath string) error {
	features, err := repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading features: %w", err)
	}

	source := ""
	if info, err := repo.Info(); err == nil {
		source = info.Source
	}

	seed := &SeedData{
		Version:     "1.0",
		Source:      source,
		LastUpdated: time.Now(),
		Features:    features,
	}

	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0o600); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

// ImportJSON replaces the stored snapshot with the one in a JSON export.
func ImportJSON(repo Repository, filepath string) (int, error) {
	data, err := os.ReadFile(filepath) // #nosec G304 - filepath is provided by the operator
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parsing JSON: %w", err)
	}

	source := seed.Source
	if source == "" {
		source = filepath
	}

	if err := repo.ReplaceAll(source, seed.Features); err != nil {
		return 0, err
	}

	return len(seed.Features), nil
}
