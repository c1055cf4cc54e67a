// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package features

import (
	"regexp"
	"slices"
	"strings"
)

// Filter selects features.
type Filter func(f *Feature) bool

// MatchAll reports whether f satisfies every filter.
func MatchAll(f *Feature, filters ...Filter) bool {
	for _, filter := range filters {
		if !filter(f) {
			return false
		}
	}

	return true
}

// IsNode keeps nodes only.
func IsNode() Filter {
	return IsType(Node)
}

// IsType keeps features of any of the given types.
func IsType(types ...Type) Filter {
	return func(f *Feature) bool {
		return slices.Contains(types, f.Type)
	}
}

// HasKey keeps features carrying the tag.
func HasKey(key string) Filter {
	return func(f *Feature) bool {
		return f.HasKey(key)
	}
}

// DoesntHaveKey keeps features without the tag.
func DoesntHaveKey(key string) Filter {
	return func(f *Feature) bool {
		return !f.HasKey(key)
	}
}

// HasValue keeps features whose tag equals value.
func HasValue(key, value string) Filter {
	return HasAnyValue(key, value)
}

// HasAnyValue keeps features whose tag equals one of values.
func HasAnyValue(key string, values ...string) Filter {
	return func(f *Feature) bool {
		v, ok := f.Tag(key)

		return ok && slices.Contains(values, v)
	}
}

// SplitValues splits a multi-valued tag on ";" and trims each value.
func SplitValues(v string) []string {
	parts := strings.Split(v, ";")
	ret := parts[:0]

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ret = append(ret, p)
		}
	}

	return ret
}

// SplitValuesCheck keeps features where at least one of the ";" separated
// values of the tag passes check.
func SplitValuesCheck(key string, check func(string) bool) Filter {
	return func(f *Feature) bool {
		v, ok := f.Tag(key)
		if !ok {
			return false
		}

		return slices.ContainsFunc(SplitValues(v), check)
	}
}

// SplitValuesMatch keeps features where a ";" separated value of the tag
// matches re.
func SplitValuesMatch(key string, re *regexp.Regexp) Filter {
	return SplitValuesCheck(key, re.MatchString)
}

// Custom wraps an arbitrary predicate.
func Custom(fn func(f *Feature) bool) Filter {
	return fn
}

// Or keeps features passing any of filters.
func Or(filters ...Filter) Filter {
	return func(f *Feature) bool {
		for _, filter := range filters {
			if filter(f) {
				return true
			}
		}

		return false
	}
}

// Not inverts a filter.
func Not(filter Filter) Filter {
	return func(f *Feature) bool {
		return !filter(f)
	}
}
