// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package correlate

import (
	"context"

	"github.com/mapaudit/mapaudit/spatial"
)

// Feature is a map feature reduced to a single representative point.
type Feature interface {
	// ID is the stable identity used for claim bookkeeping.
	ID() string
	// Point is the representative coordinate.
	Point() spatial.Point
	// Tag looks up a tag value.
	Tag(key string) (string, bool)
	// Ref is a human readable reference, used only for reporting.
	Ref() string
}

// Item is one record of the external dataset being audited.
type Item interface {
	Point() spatial.Point
	Label() string
}

// Locator finds candidate features around a coordinate. It must return every
// feature within radius meters of center, inclusive, without duplicates.
// Implementations are read-only queries over a snapshot.
type Locator interface {
	FindWithin(ctx context.Context, center spatial.Point, radius float64) ([]Feature, error)
}

// Enumerator is implemented by locators that can list their whole snapshot.
// When available, features that were never a candidate of any item are also
// classified as unmatched or lone.
type Enumerator interface {
	All(ctx context.Context) ([]Feature, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context, center spatial.Point, radius float64) ([]Feature, error)

// FindWithin calls f.
func (f LocatorFunc) FindWithin(ctx context.Context, center spatial.Point, radius float64) ([]Feature, error) {
	return f(ctx, center, radius)
}

// StrengthFunc grades a candidate feature for an item. It must not mutate
// either argument; missing attributes should yield Unmatched.
type StrengthFunc[T Item] func(item T, feature Feature) Strength

// AllowanceFunc reports whether an unclaimed feature is acceptable on its own.
type AllowanceFunc func(feature Feature) bool

// ConstantStrength returns an evaluator that grades every candidate s.
func ConstantStrength[T Item](s Strength) StrengthFunc[T] {
	return func(T, Feature) Strength {
		return s
	}
}
