// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"slices"
	"strings"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/features"
	"github.com/mapaudit/mapaudit/sources"
	"github.com/mapaudit/mapaudit/utils/textutils"
)

// Evaluator grades a feature as the counterpart of a listed place.
type Evaluator = correlate.StrengthFunc[*sources.Place]

// DefaultSimilarity is the NameSimilarity threshold when none is given.
const DefaultSimilarity = 0.5

var defaultNameTags = []string{"name", "brand", "operator"}

func nameTags(tags []string) []string {
	if len(tags) == 0 {
		return defaultNameTags
	}

	return tags
}

// NameContains grades s the features where one of tags (name, brand and
// operator by default) contains one of fragments, compared without case or
// diacritics. Without fragments the place name is looked for.
func NameContains(s correlate.Strength, tags, fragments []string) Evaluator {
	tags = nameTags(tags)

	folded := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = textutils.NormalizeSpaces(textutils.LowerASCIIFolding(f)); f != "" {
			folded = append(folded, f)
		}
	}

	return func(p *sources.Place, f correlate.Feature) correlate.Strength {
		wanted := folded
		if len(wanted) == 0 {
			name := textutils.NormalizeSpaces(textutils.LowerASCIIFolding(p.Name))
			if name == "" {
				return correlate.Unmatched
			}

			wanted = []string{name}
		}

		for _, tag := range tags {
			v, ok := f.Tag(tag)
			if !ok {
				continue
			}

			v = textutils.NormalizeSpaces(textutils.LowerASCIIFolding(v))
			for _, w := range wanted {
				if strings.Contains(v, w) {
					return s
				}
			}
		}

		return correlate.Unmatched
	}
}

func containsAll(haystack, needles []string) bool {
	for _, n := range needles {
		if !slices.Contains(haystack, n) {
			return false
		}
	}

	return true
}

// AddressMatch grades s the features whose addr:street and addr:housenumber
// both appear in the first line of the place address, e.g. "Brīvības iela
// 1A, Rīga, LV-1010" matches addr:street=Brīvības iela and
// addr:housenumber=1a.
func AddressMatch(s correlate.Strength) Evaluator {
	return func(p *sources.Place, f correlate.Feature) correlate.Strength {
		street, ok := f.Tag("addr:street")
		if !ok {
			return correlate.Unmatched
		}

		number, ok := f.Tag("addr:housenumber")
		if !ok {
			return correlate.Unmatched
		}

		line, _, _ := strings.Cut(p.Address, ",")

		words := textutils.Tokens(line)
		streetWords := textutils.Tokens(street)
		numberWords := textutils.Tokens(number)

		if len(streetWords) == 0 || len(numberWords) == 0 {
			return correlate.Unmatched
		}

		if containsAll(words, streetWords) && containsAll(words, numberWords) {
			return s
		}

		return correlate.Unmatched
	}
}

// NameSimilarity grades s the features whose name tags share enough words
// with the place name: a cosine similarity of at least threshold.
func NameSimilarity(s correlate.Strength, tags []string, threshold float64) Evaluator {
	tags = nameTags(tags)

	if threshold <= 0 {
		threshold = DefaultSimilarity
	}

	return func(p *sources.Place, f correlate.Feature) correlate.Strength {
		name := textutils.Vectorize(p.Name)
		if len(name) == 0 {
			return correlate.Unmatched
		}

		for _, tag := range tags {
			v, ok := f.Tag(tag)
			if !ok {
				continue
			}

			if textutils.CosineSimilarity(name, textutils.Vectorize(v)) >= threshold {
				return s
			}
		}

		return correlate.Unmatched
	}
}

// TagMatch grades s the features whose key tag holds one of values or, when
// field is set, the value of that place field. Multi-valued tags match on
// any of their values.
func TagMatch(s correlate.Strength, key, field string, values ...string) Evaluator {
	return func(p *sources.Place, f correlate.Feature) correlate.Strength {
		v, ok := f.Tag(key)
		if !ok {
			return correlate.Unmatched
		}

		wanted := values
		if field != "" {
			fv := p.Field(field)
			if fv == "" {
				return correlate.Unmatched
			}

			wanted = []string{fv}
		}

		for _, got := range features.SplitValues(v) {
			for _, w := range wanted {
				if textutils.LowerASCIIFolding(got) == textutils.LowerASCIIFolding(w) {
					return s
				}
			}
		}

		return correlate.Unmatched
	}
}

// Rules grades a candidate with the best grade of rules, or fallback when
// every rule says Unmatched.
func Rules(fallback correlate.Strength, rules ...Evaluator) Evaluator {
	return func(p *sources.Place, f correlate.Feature) correlate.Strength {
		best := correlate.Unmatched

		for _, r := range rules {
			best = max(best, r(p, f))
		}

		if best == correlate.Unmatched {
			return fallback
		}

		return best
	}
}
