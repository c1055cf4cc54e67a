// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package features

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/spatial"
)

// Store is an immutable, spatially indexed snapshot of features. It
// satisfies correlate.Locator and correlate.Enumerator.
type Store struct {
	features []*Feature
	byID     map[string]*Feature
	index    *spatial.Index[*Feature]
}

var (
	_ correlate.Locator    = (*Store)(nil)
	_ correlate.Enumerator = (*Store)(nil)
)

// NewStore indexes features. Identities must be unique and coordinates valid.
func NewStore(features []*Feature) (*Store, error) {
	byID := make(map[string]*Feature, len(features))

	for _, f := range features {
		if f == nil {
			return nil, errors.New("nil feature in snapshot")
		}

		if _, dup := byID[f.ID()]; dup {
			return nil, fmt.Errorf("duplicate feature %s", f.ID())
		}

		if err := f.Location.Valid(); err != nil {
			return nil, fmt.Errorf("feature %s: %w", f.ID(), err)
		}

		byID[f.ID()] = f
	}

	return build(features), nil
}

// build indexes features that are known to be valid and unique.
func build(features []*Feature) *Store {
	s := &Store{
		features: features,
		byID:     make(map[string]*Feature, len(features)),
		index:    spatial.NewIndex[*Feature](),
	}

	for _, f := range features {
		s.byID[f.ID()] = f
		// coordinates were validated when the snapshot was first built
		_ = s.index.Insert(f.Location, f)
	}

	return s
}

// Len returns the number of features.
func (s *Store) Len() int {
	return len(s.features)
}

// Features returns the features in snapshot order.
func (s *Store) Features() []*Feature {
	return append([]*Feature(nil), s.features...)
}

// Get looks a feature up by ID.
func (s *Store) Get(id string) (*Feature, bool) {
	f, ok := s.byID[id]

	return f, ok
}

// Filter returns the sub-snapshot of features passing every filter.
func (s *Store) Filter(filters ...Filter) *Store {
	var kept []*Feature

	for _, f := range s.features {
		if MatchAll(f, filters...) {
			kept = append(kept, f)
		}
	}

	return build(kept)
}

// Subtract returns the features of s that are not in other.
func (s *Store) Subtract(other *Store) *Store {
	var kept []*Feature

	for _, f := range s.features {
		if _, ok := other.byID[f.ID()]; !ok {
			kept = append(kept, f)
		}
	}

	return build(kept)
}

// Closest returns the features within radius meters of center, nearest first.
func (s *Store) Closest(center spatial.Point, radius float64) ([]*Feature, error) {
	return s.index.Within(center, radius)
}

// FindWithin implements correlate.Locator.
func (s *Store) FindWithin(ctx context.Context, center spatial.Point, radius float64) ([]correlate.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found, err := s.Closest(center, radius)
	if err != nil {
		return nil, err
	}

	return asCandidates(found), nil
}

// All implements correlate.Enumerator.
func (s *Store) All(ctx context.Context) ([]correlate.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return asCandidates(s.features), nil
}

func asCandidates(features []*Feature) []correlate.Feature {
	ret := make([]correlate.Feature, len(features))
	for i, f := range features {
		ret[i] = f
	}

	return ret
}

// GroupByValues groups features by the value of a tag. With split, a
// multi-valued tag puts the feature in every group it names.
func (s *Store) GroupByValues(key string, split bool) map[string][]*Feature {
	ret := make(map[string][]*Feature)

	for _, f := range s.features {
		v, ok := f.Tag(key)
		if !ok {
			continue
		}

		values := []string{v}
		if split {
			values = SplitValues(v)
		}

		for _, value := range values {
			ret[value] = append(ret[value], f)
		}
	}

	return ret
}

// UniqueValues returns the sorted distinct values of a tag.
func (s *Store) UniqueValues(key string) []string {
	groups := s.GroupByValues(key, false)

	ret := make([]string, 0, len(groups))
	for v := range groups {
		ret = append(ret, v)
	}

	sort.Strings(ret)

	return ret
}

// Stats counts features per element type.
func (s *Store) Stats() map[Type]int {
	ret := make(map[Type]int)
	for _, f := range s.features {
		ret[f.Type]++
	}

	return ret
}
