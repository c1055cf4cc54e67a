// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

var (
	errMultipleMatches = errors.New("multiple matches")
	errSourceNotFound  = errors.New("source not found")
	errDuplicateSource = errors.New("duplicate source")
)

// Format is the wire format of a source document.
type Format string

// Supported formats.
const (
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
	FormatHTML    Format = "html"
)

// Fields maps the attributes of a place to keys of the source records.
// Empty entries fall back to the attribute name.
type Fields struct {
	ID      string `mapstructure:"id"`
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Kind    string `mapstructure:"kind"`
	Lat     string `mapstructure:"lat"`
	Lng     string `mapstructure:"lng"`
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}

	return v
}

func (f Fields) withDefaults() Fields {
	return Fields{
		ID:      or(f.ID, "id"),
		Name:    or(f.Name, "name"),
		Address: or(f.Address, "address"),
		Kind:    or(f.Kind, "kind"),
		Lat:     or(f.Lat, "lat"),
		Lng:     or(f.Lng, "lng"),
	}
}

// Reference describes where and how to get a listing.
type Reference struct {
	ID     int    `mapstructure:"id"`     // ID of the source
	Name   string `mapstructure:"name"`   // Name of the source
	URL    string `mapstructure:"url"`    // Document to download
	Format Format `mapstructure:"format"` // How to read the document
	Home   string `mapstructure:"home"`   // Public page of the listing, linked from reports

	// Root names the record array inside a JSON object. The value may itself
	// be a string holding serialised JSON.
	Root string `mapstructure:"root"`

	// Pattern extracts the JSON payload from a larger document (a script
	// assignment in a web page). It must have one capture group.
	Pattern string `mapstructure:"pattern"`

	Fields Fields            `mapstructure:"fields"`
	Kinds  map[string]string `mapstructure:"kinds"` // raw kind value to kind name
}

// Validate checks if the Reference has all required fields.
func (r *Reference) Validate() error {
	if r.Name == "" {
		return errors.New("source reference: name must not be empty")
	}

	if r.URL == "" {
		return fmt.Errorf("source reference %q: URL must not be empty", r.Name)
	}

	switch r.Format {
	case FormatJSON, FormatGeoJSON, FormatHTML:
	default:
		return fmt.Errorf("source reference %q: unknown format %q", r.Name, r.Format)
	}

	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("source reference %q: pattern: %w", r.Name, err)
		}

		if re.NumSubexp() != 1 {
			return fmt.Errorf("source reference %q: pattern must have exactly one group", r.Name)
		}
	}

	return nil
}

// Link is the page reports point readers to.
func (r *Reference) Link() string {
	return or(r.Home, r.URL)
}

var (
	mu      sync.RWMutex
	catalog = func() []Reference {
		ret := []Reference{
			{
				ID:     1,
				Name:   "Latvijas Pasts",
				URL:    "https://pasts.lv/ajax/module:post_office/",
				Home:   "https://pasts.lv/lv/kategorija/pasta_nodalas/",
				Format: FormatJSON,
				Root:   "all",
				Fields: Fields{
					ID:      "tmpService",
					Name:    "tmpName",
					Address: "tmpAddress",
					Kind:    "tmpCategory",
					Lat:     "tmpLat",
					Lng:     "tmpLong",
				},
				Kinds: map[string]string{
					"1": "office",
					"2": "circle_k",
					"4": "post_box",
					"5": "parcel_locker",
					"6": "service_on_request",
				},
			},
			{
				ID:      2,
				Name:    "Rimi",
				URL:     "https://www.rimi.lv/veikali",
				Format:  FormatJSON,
				Pattern: `APP\.shops\.list = (\[.*?\]);`,
				Fields: Fields{
					Name:    "display",
					Address: "address_line_1",
					Lat:     "latitude",
					Lng:     "longitude",
				},
			},
		}

		for i := range ret {
			if err := ret[i].Validate(); err != nil {
				panic(err)
			}
		}

		return ret
	}()
)

// Register adds a source, usually one defined in the configuration file. IDs
// and names must be unique; a zero ID is assigned the next free one.
func Register(ref Reference) (*Reference, error) {
	mu.Lock()
	defer mu.Unlock()

	if ref.ID == 0 {
		for _, r := range catalog {
			ref.ID = max(ref.ID, r.ID)
		}

		ref.ID++
	}

	if err := ref.Validate(); err != nil {
		return nil, err
	}

	for _, r := range catalog {
		if r.ID == ref.ID || strings.EqualFold(r.Name, ref.Name) {
			return nil, fmt.Errorf("%w: %d %q", errDuplicateSource, ref.ID, ref.Name)
		}
	}

	catalog = append(catalog, ref)

	return &ref, nil
}

// Find locates a source by its ID or name.
// If q represents a number, it searches by ID; otherwise, it searches by a
// case insensitive name prefix. An exact name match wins over prefixes.
func Find(q string) (*Reference, error) {
	if q == "" {
		return nil, errors.New("empty search query")
	}

	mu.RLock()
	defer mu.RUnlock()

	var predicate func(r *Reference) bool
	if n, err := strconv.Atoi(q); err == nil {
		predicate = func(r *Reference) bool {
			return n == r.ID
		}
	} else {
		if i := slices.IndexFunc(catalog, func(r Reference) bool {
			return strings.EqualFold(r.Name, q)
		}); i >= 0 {
			found := catalog[i]

			return &found, nil
		}

		predicate = func(r *Reference) bool {
			return len(r.Name) >= len(q) &&
				strings.EqualFold(r.Name[:len(q)], q)
		}
	}

	var found *Reference

	for i := range catalog {
		if predicate(&catalog[i]) {
			if found != nil {
				return nil, fmt.Errorf("%w for %q: %q, %q", errMultipleMatches, q, found.Name, catalog[i].Name)
			}

			// copy, so callers can't mutate the catalog
			c := catalog[i]
			found = &c
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %q", errSourceNotFound, q)
	}

	return found, nil
}

// Each applies the given callback function to each source reference.
// It stops iteration and returns the error if the callback returns an error.
func Each(callback func(Reference) error) error {
	mu.RLock()
	refs := slices.Clone(catalog)
	mu.RUnlock()

	for _, r := range refs {
		if err := callback(r); err != nil {
			return err
		}
	}

	return nil
}
