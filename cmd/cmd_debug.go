// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/sources"
	"github.com/mapaudit/mapaudit/spatial"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

func parsePoint(lat, lng string) (spatial.Point, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("latitude %q: %w", lat, err)
	}

	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("longitude %q: %w", lng, err)
	}

	p := spatial.Point{Lat: la, Lng: ln}

	return p, p.Valid()
}

var debugDistanceCmd = &cobra.Command{
	Use:   "distance <lat> <lng> <lat> <lng>",
	Short: "Prints the great-circle distance between two points, in meters",
	Args:  cobra.ExactArgs(4),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := parsePoint(args[0], args[1])
		if err != nil {
			return err
		}

		b, err := parsePoint(args[2], args[3])
		if err != nil {
			return err
		}

		fmt.Printf("%.2f\n", spatial.Distance(a, b))

		return nil
	},
}

var debugStrengthCmd = &cobra.Command{
	Use:   "strength <analysis> <feature>",
	Short: "Grades places read from stdin against a stored feature",
	Long: `Reads one place per line, a name optionally followed by a tab and an
address, and prints the strength the analysis rules give to pairing it with
the feature, along with the distance the analysis accepts for that strength.

$ echo -e "Rīga 50\tBrīvības iela 50, Rīga" | mapaudit debug strength post-boxes node/123
Rīga 50	strong	500 m
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := cfg.Analysis(args[0])
		if err != nil {
			return err
		}

		if err := def.Validate(); err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		store, err := loadStore(cmd.Context(), db)
		if err != nil {
			return err
		}

		feature, ok := store.Get(args[1])
		if !ok {
			return fmt.Errorf("feature %s not in the snapshot", args[1])
		}

		evaluate, _ := def.Evaluator()
		if evaluate == nil {
			evaluate = correlate.ConstantStrength[*sources.Place](correlate.Weak)
		}

		policy, err := def.Config()
		if err != nil {
			return err
		}

		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintf(os.Stderr, "Enter places to grade against %s, one per line…\n", feature.Ref())
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			name, address, _ := strings.Cut(scanner.Text(), "\t")
			place := &sources.Place{Name: name, Address: address}

			s := evaluate(place, feature)
			if s == correlate.Unmatched || !s.Valid() {
				fmt.Printf("%s\t%s\n", name, s)

				continue
			}

			fmt.Printf("%s\t%s\t%.0f m\n", name, s, policy.Ceiling(s))
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugDistanceCmd)
	debugCmd.AddCommand(debugStrengthCmd)
}
