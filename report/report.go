// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

// Package report collects the findings of an analysis into titled groups of
// entries and renders them.
package report

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mapaudit/mapaudit/spatial"
)

// Well known groups.
const (
	GroupUnmatched = "unmatched"
	GroupMatched   = "matched"
	GroupExtra     = "extra"
	GroupUnlocated = "unlocated"
)

var (
	errUnknownGroup  = errors.New("unknown report group")
	errReportMissing = errors.New("report not found")
)

// EntryKind tells renderers whether an entry is a problem or a map marker.
type EntryKind string

// Entry kinds.
const (
	EntryIssue EntryKind = "issue"
	EntryPoint EntryKind = "point"
)

// Sort orders within a group, lower first.
const (
	SortNoItem = iota + 1
	SortElementFar
	SortNoElement
	SortTagging
	SortSuggestion
	SortUnlocated
)

// Entry is one line of a report.
type Entry struct {
	Kind  EntryKind      `json:"kind"`
	Text  string         `json:"text"`
	Point *spatial.Point `json:"point,omitempty"`
	Sort  int            `json:"sort"`
}

// Group is a titled list of entries.
type Group struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Empty       string  `json:"empty,omitempty"` // shown when there are no entries
	Entries     []Entry `json:"entries"`
}

// Sorted returns the entries ordered by their sort key, keeping insertion
// order between equal keys.
func (g *Group) Sorted() []Entry {
	ret := slices.Clone(g.Entries)
	slices.SortStableFunc(ret, func(a, b Entry) int {
		return a.Sort - b.Sort
	})

	return ret
}

// Report is the outcome of one analysis run.
type Report struct {
	ID          uuid.UUID      `json:"id"`
	Analysis    string         `json:"analysis"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Counts      map[string]int `json:"counts,omitempty"`
	Groups      []*Group       `json:"groups"`
}

// New creates an empty report.
func New(analysis, description string) *Report {
	return &Report{
		ID:          uuid.New(),
		Analysis:    analysis,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		Counts:      make(map[string]int),
	}
}

// AddGroup adds a group, or returns the existing one with the same id.
func (r *Report) AddGroup(id, title, description, empty string) *Group {
	if g, ok := r.Group(id); ok {
		return g
	}

	g := &Group{ID: id, Title: title, Description: description, Empty: empty, Entries: []Entry{}}
	r.Groups = append(r.Groups, g)

	return g
}

// Group finds a group by id.
func (r *Report) Group(id string) (*Group, bool) {
	for _, g := range r.Groups {
		if g.ID == id {
			return g, true
		}
	}

	return nil, false
}

// AddEntry appends an entry to the group id, which must have been added.
func (r *Report) AddEntry(id string, e Entry) error {
	g, ok := r.Group(id)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownGroup, id)
	}

	if e.Kind == "" {
		e.Kind = EntryIssue
	}

	g.Entries = append(g.Entries, e)

	return nil
}

// Issues returns how many issue entries the report has.
func (r *Report) Issues() int {
	n := 0

	for _, g := range r.Groups {
		for _, e := range g.Entries {
			if e.Kind == EntryIssue {
				n++
			}
		}
	}

	return n
}

// Store keeps the reports of the current process for the server.
type Store struct {
	mu      sync.RWMutex
	reports []*Report
}

// NewStore creates a store holding reports.
func NewStore(reports ...*Report) *Store {
	return &Store{reports: reports}
}

// Add stores a report, replacing an earlier one of the same analysis.
func (s *Store) Add(r *Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = slices.DeleteFunc(s.reports, func(o *Report) bool {
		return o.Analysis == r.Analysis
	})
	s.reports = append(s.reports, r)
}

// List returns the stored reports, by analysis name.
func (s *Store) List() []*Report {
	s.mu.RLock()
	ret := slices.Clone(s.reports)
	s.mu.RUnlock()

	slices.SortFunc(ret, func(a, b *Report) int {
		return strings.Compare(a.Analysis, b.Analysis)
	})

	return ret
}

// Get finds a report by its ID or analysis name.
func (s *Store) Get(key string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.ID.String() == key || r.Analysis == key {
			return r, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", errReportMissing, key)
}
