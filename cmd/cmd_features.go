// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mapaudit/mapaudit/features"
	"github.com/mapaudit/mapaudit/utils/textutils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Manage the stored map snapshot",
}

var featuresImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replaces the stored snapshot with a GeoJSON export or a JSON seed file",
	Long: `Replaces the stored snapshot. Files ending in .geojson are read as a GeoJSON
FeatureCollection (an Overpass or osmium export); anything else as a seed file
written by 'features export'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repo, err := featureRepository(db)
		if err != nil {
			return err
		}

		var n int
		if strings.EqualFold(filepath.Ext(args[0]), ".geojson") {
			n, err = importGeoJSON(repo, args[0])
		} else {
			n, err = features.ImportJSON(repo, args[0])
		}

		if err != nil {
			return err
		}

		zap.L().Info("imported map snapshot", zap.String("file", args[0]), zap.Int("features", n))

		return nil
	},
}

var featuresExportCmd = &cobra.Command{
	Use:   "export <file.json>",
	Short: "Writes the stored snapshot to a seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repo, err := featureRepository(db)
		if err != nil {
			return err
		}

		return features.ExportJSON(cmd.Context(), repo, args[0])
	},
}

var featuresStatsOptions struct {
	Tag string
}

func printStats(ctx context.Context, db *sql.DB) error {
	repo, err := featureRepository(db)
	if err != nil {
		return err
	}

	info, err := repo.Info()
	if errors.Is(err, sql.ErrNoRows) {
		return errNoSnapshot
	}

	if err != nil {
		return fmt.Errorf("reading snapshot info: %w", err)
	}

	store, err := loadStore(ctx, db)
	if err != nil {
		return err
	}

	fmt.Printf("Source:   %s\n", info.Source)
	fmt.Printf("Loaded:   %s\n", info.LoadedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Features: %s\n", textutils.FormatInt(int64(store.Len())))

	stats := store.Stats()
	for _, t := range []features.Type{features.Node, features.Way, features.Relation} {
		fmt.Printf("  %-9s %s\n", t, textutils.FormatInt(int64(stats[t])))
	}

	if featuresStatsOptions.Tag == "" {
		return nil
	}

	groups := store.GroupByValues(featuresStatsOptions.Tag, true)
	values := slices.Sorted(maps.Keys(groups))
	slices.SortStableFunc(values, func(a, b string) int {
		return len(groups[b]) - len(groups[a])
	})

	fmt.Printf("\nValues of %s:\n", featuresStatsOptions.Tag)

	for _, v := range values {
		fmt.Printf("  %8s  %s\n", textutils.FormatInt(int64(len(groups[v]))), v)
	}

	return nil
}

var featuresStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Describes the stored snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		return printStats(cmd.Context(), db)
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)
	featuresCmd.AddCommand(featuresImportCmd)
	featuresCmd.AddCommand(featuresExportCmd)
	featuresCmd.AddCommand(featuresStatsCmd)

	featuresStatsCmd.Flags().StringVar(&featuresStatsOptions.Tag, "tag", "", "also count the features per value of this tag")
}
