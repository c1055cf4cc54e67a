// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

// Package features holds the map-feature snapshot an audit runs against:
// the feature model, tag filters, an in-memory spatial store, GeoJSON loading
// and DuckDB persistence.
package features

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mapaudit/mapaudit/spatial"
)

// Type is the OSM element type a feature was derived from.
type Type string

// Known element types.
const (
	Node     Type = "node"
	Way      Type = "way"
	Relation Type = "relation"
)

// ErrInvalidID is returned when an element identifier can't be parsed.
var ErrInvalidID = errors.New("invalid element id")

const viewURL = "https://www.openstreetmap.org/"

// Feature is a map element reduced to a representative point.
type Feature struct {
	Type     Type              `json:"type"`
	OSMID    int64             `json:"id"`
	Location spatial.Point     `json:"point"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// ID returns the identity of the feature, e.g. "node/123".
func (f *Feature) ID() string {
	return string(f.Type) + "/" + strconv.FormatInt(f.OSMID, 10)
}

// Point returns the representative coordinate.
func (f *Feature) Point() spatial.Point {
	return f.Location
}

// Tag looks up a tag value.
func (f *Feature) Tag(key string) (string, bool) {
	v, ok := f.Tags[key]

	return v, ok
}

// HasKey reports whether the tag is present.
func (f *Feature) HasKey(key string) bool {
	_, ok := f.Tags[key]

	return ok
}

// Name returns the name tag, if any.
func (f *Feature) Name() string {
	return f.Tags["name"]
}

// URL links to the element on openstreetmap.org.
func (f *Feature) URL() string {
	return viewURL + f.ID()
}

// Ref is the human readable reference: the quoted name, when present,
// followed by the element URL.
func (f *Feature) Ref() string {
	if name := f.Name(); name != "" {
		return "`" + name + "` " + f.URL()
	}

	return f.URL()
}

func (f *Feature) String() string {
	return f.ID()
}

// ParseID splits an identifier like "way/42" into its type and number.
func ParseID(id string) (Type, int64, error) {
	kind, num, ok := strings.Cut(strings.TrimSpace(id), "/")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	t := Type(strings.ToLower(kind))
	switch t {
	case Node, Way, Relation:
	default:
		return "", 0, fmt.Errorf("%w: unknown type in %q", ErrInvalidID, id)
	}

	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q: %w", ErrInvalidID, id, err)
	}

	return t, n, nil
}
