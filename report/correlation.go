// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/geocode"
	"github.com/mapaudit/mapaudit/spatial"
)

// Labels name the audited items in report text.
type Labels struct {
	Singular string `json:"singular" mapstructure:"singular"`
	Plural   string `json:"plural" mapstructure:"plural"`
}

func (l Labels) withDefaults() Labels {
	if l.Singular == "" {
		l.Singular = "item"
	}

	if l.Plural == "" {
		l.Plural = l.Singular + "s"
	}

	return l
}

// Preview appends the value of a tag to feature references, optionally
// mapped to a friendlier label. With Values set, unlisted values are not
// shown.
type Preview struct {
	Tag    string            `json:"tag" mapstructure:"tag"`
	Values map[string]string `json:"values" mapstructure:"values"`
}

func (p Preview) describe(f correlate.Feature) string {
	ref := f.Ref()
	if p.Tag == "" {
		return ref
	}

	v, ok := f.Tag(p.Tag)
	if !ok {
		return ref
	}

	if len(p.Values) == 0 {
		return ref + " (" + v + ")"
	}

	if label, ok := p.Values[v]; ok {
		return ref + " (" + label + ")"
	}

	return ref
}

// CorrelationOptions controls how outcomes are rendered.
type CorrelationOptions struct {
	Labels  Labels
	Preview Preview

	// Kinds selects the outcomes to report, all when empty
	Kinds []correlate.Kind

	// SearchRadius is the range quoted for items and features left alone
	SearchRadius float64
}

func (o CorrelationOptions) selected(kinds ...correlate.Kind) bool {
	if len(o.Kinds) == 0 {
		return true
	}

	for _, k := range kinds {
		if slices.Contains(o.Kinds, k) {
			return true
		}
	}

	return false
}

// PointURL links to the map at p.
func PointURL(p spatial.Point) string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f#map=19/%.6f/%.6f", p.Lat, p.Lng, p.Lat, p.Lng)
}

func meters(m float64) string {
	return strconv.FormatFloat(m, 'f', 0, 64)
}

func pointOf(p spatial.Point) *spatial.Point {
	return &p
}

// Correlation renders a correlation result into r. Every selected outcome
// becomes exactly one entry; outcomes of other kinds are only counted.
func Correlation[T correlate.Item](r *Report, res *correlate.Result[T], opts CorrelationOptions) {
	labels := opts.Labels.withDefaults()
	radius := strconv.FormatFloat(opts.SearchRadius, 'f', -1, 64)

	var unmatched, matched *Group

	if opts.selected(correlate.UnmatchedItem, correlate.UnmatchedFeature, correlate.MatchedFar) {
		unmatched = r.AddGroup(GroupUnmatched,
			"Unmatched "+labels.Plural,
			"This lists the "+labels.Plural+" and elements that could not be matched to each other.",
			"All elements appear to be mapped.",
		)
	}

	if opts.selected(correlate.MatchedClose, correlate.LoneFeature) {
		matched = r.AddGroup(GroupMatched,
			"Matched "+labels.Plural,
			"This lists the "+labels.Plural+" that were matched to elements on the map.",
			"",
		)
	}

	for _, o := range res.Outcomes {
		r.Counts[o.Kind.String()]++

		if !opts.selected(o.Kind) {
			continue
		}

		switch o.Kind {
		case correlate.MatchedClose:
			matched.Entries = append(matched.Entries, Entry{
				Kind:  EntryPoint,
				Text:  o.Item.Label() + " matched " + opts.Preview.describe(o.Feature) + " at " + meters(o.Distance) + " m",
				Point: pointOf(o.Feature.Point()),
			})
		case correlate.MatchedFar:
			unmatched.Entries = append(unmatched.Entries, Entry{
				Kind: EntryIssue,
				Text: "Matching OSM element " + opts.Preview.describe(o.Feature) + " found close to " + o.Item.Label() +
					", but it's far away (" + meters(o.Distance) + " m), expected at " + PointURL(o.Item.Point()),
				Point: pointOf(o.Item.Point()),
				Sort:  SortElementFar,
			})
		case correlate.UnmatchedItem:
			unmatched.Entries = append(unmatched.Entries, Entry{
				Kind:  EntryIssue,
				Text:  unmatchedItemText(o, opts.Preview, radius),
				Point: pointOf(o.Item.Point()),
				Sort:  SortNoItem,
			})
		case correlate.UnmatchedFeature:
			unmatched.Entries = append(unmatched.Entries, Entry{
				Kind:  EntryIssue,
				Text:  "No " + labels.Singular + " found in " + radius + " m range of OSM element " + opts.Preview.describe(o.Feature),
				Point: pointOf(o.Feature.Point()),
				Sort:  SortNoElement,
			})
		case correlate.LoneFeature:
			matched.Entries = append(matched.Entries, Entry{
				Kind:  EntryPoint,
				Text:  "Matched OSM element by itself " + opts.Preview.describe(o.Feature),
				Point: pointOf(o.Feature.Point()),
			})
		}
	}
}

func unmatchedItemText[T correlate.Item](o correlate.Outcome[T], preview Preview, radius string) string {
	at := PointURL(o.Item.Point())

	switch o.Reason {
	case correlate.NoAcceptableStrength:
		return "No matching OSM element found in " + radius + " m range of " + o.Item.Label() + " at " + at
	case correlate.BeyondCeiling:
		return "Matching OSM element " + preview.describe(o.Feature) + " found close to " + o.Item.Label() +
			", but it's too far away (" + meters(o.Distance) + " m) for a " + o.Strength.String() +
			" match, expected at " + at
	default:
		return "No OSM element found in " + radius + " m range of " + o.Item.Label() + " at " + at
	}
}

// Unlocated lists the items that never reached the correlation because they
// had no coordinates.
func Unlocated(r *Report, unlocated []geocode.Unlocated, labels Labels) {
	if len(unlocated) == 0 {
		return
	}

	labels = labels.withDefaults()
	g := r.AddGroup(GroupUnlocated,
		"Non-geolocated "+labels.Plural,
		"These listed "+labels.Plural+" could not be geolocated. "+
			"Possibly, the data values are incorrect, differently-formatted or otherwise fail to match automatically.",
		"",
	)

	for _, u := range unlocated {
		text := "`" + u.Place.Name + "` could not be geolocated"
		if u.Place.Address != "" {
			text += " for `" + u.Place.Address + "`"
		}

		g.Entries = append(g.Entries, Entry{
			Kind: EntryIssue,
			Text: text + " (" + u.Reason + ")",
			Sort: SortUnlocated,
		})
	}

	r.Counts[GroupUnlocated] = len(unlocated)
}
