// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/utils/textutils"
)

// WriteText renders reports as plain text.
func WriteText(w io.Writer, reports ...*Report) error {
	bw := bufio.NewWriter(w)

	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(bw)
		}

		writeReport(bw, r)
	}

	return bw.Flush()
}

func writeReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "# %s\n", r.Analysis)

	if r.Description != "" {
		fmt.Fprintf(w, "%s\n", r.Description)
	}

	fmt.Fprintf(w, "Run %s at %s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	var counts []string

	for _, k := range correlate.Kinds() {
		if n := r.Counts[k.String()]; n > 0 {
			counts = append(counts, k.String()+": "+textutils.FormatInt(int64(n)))
		}
	}

	if n := r.Counts[GroupUnlocated]; n > 0 {
		counts = append(counts, "unlocated: "+textutils.FormatInt(int64(n)))
	}

	if len(counts) > 0 {
		fmt.Fprintf(w, "Outcomes: %s\n", strings.Join(counts, ", "))
	}

	for _, g := range r.Groups {
		fmt.Fprintf(w, "\n## %s (%s)\n", g.Title, textutils.FormatInt(int64(len(g.Entries))))

		if g.Description != "" {
			fmt.Fprintf(w, "%s\n", g.Description)
		}

		if len(g.Entries) == 0 && g.Empty != "" {
			fmt.Fprintf(w, "%s\n", g.Empty)
		}

		for _, e := range g.Sorted() {
			fmt.Fprintf(w, "- %s\n", e.Text)
		}
	}
}

// WriteJSON renders reports as an indented JSON array.
func WriteJSON(w io.Writer, reports ...*Report) error {
	if reports == nil {
		reports = []*Report{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(reports)
}

// ReadJSON reads reports written by WriteJSON.
func ReadJSON(r io.Reader) ([]*Report, error) {
	var reports []*Report
	if err := json.NewDecoder(r).Decode(&reports); err != nil {
		return nil, fmt.Errorf("decoding reports: %w", err)
	}

	return reports, nil
}
