// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"slices"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/features"
)

// TagEquals allows features whose key tag holds one of values, e.g.
// seasonal=yes taps that the operator stops listing over the winter.
func TagEquals(key string, values ...string) correlate.AllowanceFunc {
	return func(f correlate.Feature) bool {
		v, ok := f.Tag(key)

		return ok && slices.Contains(values, v)
	}
}

// Always allows every feature.
func Always() correlate.AllowanceFunc {
	return func(correlate.Feature) bool {
		return true
	}
}

// AnyOf allows features any of allowances allows.
func AnyOf(allowances ...correlate.AllowanceFunc) correlate.AllowanceFunc {
	return func(f correlate.Feature) bool {
		for _, a := range allowances {
			if a(f) {
				return true
			}
		}

		return false
	}
}

// Matches allows the map features passing filter.
func Matches(filter features.Filter) correlate.AllowanceFunc {
	return func(f correlate.Feature) bool {
		feat, ok := f.(*features.Feature)

		return ok && filter(feat)
	}
}
