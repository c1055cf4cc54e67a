// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/mapaudit/mapaudit/sources"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Access the listings analyses compare against",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the available sources",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, b, c, d := strings.Repeat("─", 2), strings.Repeat("─", 20), strings.Repeat("─", 7), strings.Repeat("─", 50)
		fmt.Println("Available sources:")
		fmt.Printf("╭─%2s─┬─%-20s─┬─%-7s─┬─%-50s╮\n", a, b, c, d)
		fmt.Printf("│ %2s │ %-20s │ %-7s │ %-50s│\n", "Id", "Name", "Format", "Location")
		fmt.Printf("├─%2s─┼─%-20s─┼─%-7s─┼─%-50s┤\n", a, b, c, d)
		err := sources.Each(func(ref sources.Reference) error {
			fmt.Printf("│ %2d │ %-20s │ %-7s │ %-50s│\n", ref.ID, ref.Name, ref.Format, ref.Link())

			return nil
		})
		fmt.Printf("╰─%2s─┴─%-20s─┴─%-7s─┴─%-50s╯\n", a, b, c, d)

		return err
	},
}

var sourcesFetchCmd = &cobra.Command{
	Use:   "fetch <source>",
	Short: "Downloads a source again, refreshing the cache, and counts its places",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := sources.Find(args[0])
		if err != nil {
			return err
		}

		fetcher, err := newFetcher()
		if err != nil {
			return err
		}

		doc, err := fetcher.Refresh(cmd.Context(), ref.URL)
		if err != nil {
			return fmt.Errorf("downloading %s: %w", ref.Name, err)
		}

		places, err := sources.Decode(ref, doc)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", ref.Name, err)
		}

		located := 0

		for _, p := range places {
			if p.Located() {
				located++
			}
		}

		zap.L().Info("fetched source",
			zap.String("source", ref.Name),
			zap.Int("bytes", len(doc)),
			zap.Int("places", len(places)),
			zap.Int("located", located),
		)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesFetchCmd)
}
