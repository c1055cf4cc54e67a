// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"slices"
	"strings"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/features"
)

// Check is a tagging expectation on matched features.
type Check struct {
	Key string `json:"key" mapstructure:"key"`

	// Values lists the acceptable values, any value when empty
	Values []string `json:"values" mapstructure:"values"`

	// Absent expects the tag not to be set at all
	Absent bool `json:"absent" mapstructure:"absent"`
}

func (c Check) expected() string {
	if len(c.Values) == 0 {
		return "`" + c.Key + "`"
	}

	return "`" + c.Key + "=" + strings.Join(c.Values, "|") + "`"
}

// problem describes how f fails the check, empty when it doesn't.
func (c Check) problem(f correlate.Feature) string {
	v, ok := f.Tag(c.Key)

	switch {
	case c.Absent && ok:
		return "has a `" + c.Key + "=" + v + "` set"
	case c.Absent:
		return ""
	case !ok:
		return "doesn't have expected " + c.expected() + " set"
	case len(c.Values) > 0 && !slices.Contains(c.Values, v):
		return "doesn't have expected " + c.expected() + ", instead `" + v + "`"
	}

	return ""
}

func extraGroup(r *Report, labels Labels) *Group {
	labels = labels.withDefaults()

	return r.AddGroup(GroupExtra,
		"Other problems with "+labels.Plural,
		"These listed "+labels.Plural+" have issues with their OSM counterparts.",
		"No issues found with matching OSM elements.",
	)
}

func matchedOutcomes[T correlate.Item](res *correlate.Result[T]) []correlate.Outcome[T] {
	return res.Filter(correlate.MatchedClose, correlate.MatchedFar)
}

// CheckTags reports matched features that fail any of checks, one entry per
// failed check.
func CheckTags[T correlate.Item](r *Report, res *correlate.Result[T], checks []Check, labels Labels) {
	if len(checks) == 0 {
		return
	}

	g := extraGroup(r, labels)

	for _, o := range matchedOutcomes(res) {
		for _, c := range checks {
			p := c.problem(o.Feature)
			if p == "" {
				continue
			}

			g.Entries = append(g.Entries, Entry{
				Kind:  EntryIssue,
				Text:  "OSM element " + p + " for " + o.Item.Label() + " - " + o.Feature.Ref(),
				Point: pointOf(o.Feature.Point()),
				Sort:  SortTagging,
			})
		}
	}
}

// Fielded items expose named attributes for tag suggestions.
type Fielded interface {
	correlate.Item
	Field(key string) string
}

// Comparison suggests setting Tag to the item's Field.
type Comparison struct {
	Tag   string `json:"tag" mapstructure:"tag"`
	Field string `json:"field" mapstructure:"field"`

	// Unordered compares ;-separated values as sets
	Unordered bool `json:"unordered" mapstructure:"unordered"`
}

func (c Comparison) equal(a, b string) bool {
	if !c.Unordered {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}

	x, y := features.SplitValues(a), features.SplitValues(b)
	slices.Sort(x)
	slices.Sort(y)

	return slices.Equal(x, y)
}

// SuggestTags compares matched features with the values of their items and
// suggests the tags that differ. Items without a value are skipped.
func SuggestTags[T Fielded](r *Report, res *correlate.Result[T], comparisons []Comparison, labels Labels) {
	if len(comparisons) == 0 {
		return
	}

	g := extraGroup(r, labels)

	for _, o := range matchedOutcomes(res) {
		for _, c := range comparisons {
			want := strings.TrimSpace(o.Item.Field(c.Field))
			if want == "" {
				continue
			}

			got, ok := o.Feature.Tag(c.Tag)

			var text string

			switch {
			case !ok:
				text = "Suggest setting `" + c.Tag + "=" + want + "`"
			case !c.equal(got, want):
				text = "Suggest changing `" + c.Tag + "=" + got + "` to `" + want + "`"
			default:
				continue
			}

			g.Entries = append(g.Entries, Entry{
				Kind:  EntryIssue,
				Text:  text + " for " + o.Item.Label() + " on " + o.Feature.Ref(),
				Point: pointOf(o.Feature.Point()),
				Sort:  SortSuggestion,
			})
		}
	}
}
