// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

// Package analysis turns configured audits into correlation runs: it picks
// the map features and the listing to compare, grades candidate pairs and
// renders the outcome into a report.
package analysis

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/features"
	"github.com/mapaudit/mapaudit/report"
	"github.com/mapaudit/mapaudit/sources"
)

var (
	errNoName   = errors.New("analysis without a name")
	errNoSource = errors.New("analysis without a source")
	errNoKey    = errors.New("filter without a key")
	errNoTagKey = errors.New("tag rule without a key")
)

// Filter selects features by one tag.
type Filter struct {
	Key string `mapstructure:"key"`

	// Values accepted, any value when empty
	Values []string `mapstructure:"values"`

	// Pattern is a regular expression the value must match
	Pattern string `mapstructure:"pattern"`

	// Absent inverts the filter: the tag must be missing, or hold none of
	// Values
	Absent bool `mapstructure:"absent"`

	// Split matches each ;-separated value on its own
	Split bool `mapstructure:"split"`
}

func (f Filter) compile() (features.Filter, error) {
	if f.Key == "" {
		return nil, errNoKey
	}

	var filter features.Filter

	switch {
	case f.Pattern != "":
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.Key, err)
		}

		if f.Split {
			filter = features.SplitValuesMatch(f.Key, re)
		} else {
			filter = features.Custom(func(feat *features.Feature) bool {
				v, ok := feat.Tag(f.Key)

				return ok && re.MatchString(v)
			})
		}
	case len(f.Values) > 0 && f.Split:
		filter = features.SplitValuesCheck(f.Key, func(v string) bool {
			return slices.Contains(f.Values, v)
		})
	case len(f.Values) > 0:
		filter = features.HasAnyValue(f.Key, f.Values...)
	case f.Absent:
		return features.DoesntHaveKey(f.Key), nil
	default:
		filter = features.HasKey(f.Key)
	}

	if f.Absent {
		return features.Not(filter), nil
	}

	return filter, nil
}

func compileAll(filters []Filter) ([]features.Filter, error) {
	ret := make([]features.Filter, 0, len(filters))

	for i, f := range filters {
		c, err := f.compile()
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}

		ret = append(ret, c)
	}

	return ret, nil
}

// Rule grades candidates that pass one test.
type Rule struct {
	// Type is name, address, similarity or tag
	Type     string `mapstructure:"type"`
	Strength string `mapstructure:"strength"`

	// Tags looked at by name and similarity rules
	Tags []string `mapstructure:"tags"`

	// Values are name fragments for name rules and accepted values for tag
	// rules
	Values []string `mapstructure:"values"`

	// Key and Field configure tag rules: the tag Key must hold one of Values,
	// or the value of the item Field
	Key   string `mapstructure:"key"`
	Field string `mapstructure:"field"`

	// Threshold is the minimum similarity, 0.5 when zero
	Threshold float64 `mapstructure:"threshold"`
}

func (r Rule) compile() (Evaluator, error) {
	s, err := correlate.ParseStrength(r.Strength)
	if err != nil {
		return nil, err
	}

	switch r.Type {
	case "name":
		return NameContains(s, r.Tags, r.Values), nil
	case "address":
		return AddressMatch(s), nil
	case "similarity":
		return NameSimilarity(s, r.Tags, r.Threshold), nil
	case "tag":
		if r.Key == "" {
			return nil, errNoTagKey
		}

		return TagMatch(s, r.Key, r.Field, r.Values...), nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", r.Type)
	}
}

// StrengthRules configures the grading of candidates.
type StrengthRules struct {
	// Fallback is the grade when no rule passes, weak when empty
	Fallback string `mapstructure:"fallback"`
	Rules    []Rule `mapstructure:"rules"`
}

// Definition is one configured audit.
type Definition struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`

	// Source names the listing, see sources.Find
	Source string `mapstructure:"source"`

	// Kinds keeps only places of these kinds, all when empty
	Kinds []string `mapstructure:"kinds"`

	// Types keeps only features of these element types, all when empty
	Types []string `mapstructure:"types"`

	Filters []Filter `mapstructure:"filters"`

	MatchDistance float64            `mapstructure:"match_distance"`
	FarDistance   float64            `mapstructure:"far_distance"`
	ExtraDistance map[string]float64 `mapstructure:"extra_distance"`

	Strength StrengthRules `mapstructure:"strength"`

	// Lone features acceptable on their own: any of these filters
	Lone    []Filter `mapstructure:"lone"`
	LoneAll bool     `mapstructure:"lone_all"`

	Labels  report.Labels       `mapstructure:"labels"`
	Preview report.Preview      `mapstructure:"preview"`
	Report  []string            `mapstructure:"report"`
	Checks  []report.Check      `mapstructure:"checks"`
	Compare []report.Comparison `mapstructure:"compare"`
}

// Validate compiles every part of the definition once to report mistakes
// before anything is downloaded.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errNoName
	}

	if d.Source == "" {
		return fmt.Errorf("%s: %w", d.Name, errNoSource)
	}

	if _, err := d.FeatureFilters(); err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}

	if _, err := d.Evaluator(); err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}

	if _, err := d.Allowance(); err != nil {
		return fmt.Errorf("%s: lone: %w", d.Name, err)
	}

	if _, err := d.ReportKinds(); err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}

	if _, err := d.Config(); err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}

	return nil
}

// FeatureFilters returns the filters selecting the audited features.
func (d *Definition) FeatureFilters() ([]features.Filter, error) {
	filters, err := compileAll(d.Filters)
	if err != nil {
		return nil, err
	}

	if len(d.Types) > 0 {
		types := make([]features.Type, 0, len(d.Types))

		for _, t := range d.Types {
			switch ft := features.Type(t); ft {
			case features.Node, features.Way, features.Relation:
				types = append(types, ft)
			default:
				return nil, fmt.Errorf("unknown element type %q", t)
			}
		}

		filters = append(filters, features.IsType(types...))
	}

	return filters, nil
}

// Evaluator builds the strength evaluator, nil when every candidate is
// equally good.
func (d *Definition) Evaluator() (Evaluator, error) {
	if len(d.Strength.Rules) == 0 && d.Strength.Fallback == "" {
		return nil, nil
	}

	fallback := correlate.Weak

	if d.Strength.Fallback != "" {
		s, err := correlate.ParseStrength(d.Strength.Fallback)
		if err != nil {
			return nil, fmt.Errorf("strength fallback: %w", err)
		}

		fallback = s
	}

	rules := make([]Evaluator, 0, len(d.Strength.Rules))

	for i, r := range d.Strength.Rules {
		e, err := r.compile()
		if err != nil {
			return nil, fmt.Errorf("strength rule %d: %w", i, err)
		}

		rules = append(rules, e)
	}

	return Rules(fallback, rules...), nil
}

// Allowance builds the lone feature allowance, nil when none is allowed.
func (d *Definition) Allowance() (correlate.AllowanceFunc, error) {
	if d.LoneAll {
		return Always(), nil
	}

	if len(d.Lone) == 0 {
		return nil, nil
	}

	filters, err := compileAll(d.Lone)
	if err != nil {
		return nil, err
	}

	allowances := make([]correlate.AllowanceFunc, 0, len(filters))
	for _, f := range filters {
		allowances = append(allowances, Matches(f))
	}

	return AnyOf(allowances...), nil
}

// ReportKinds parses the outcome kinds to report, nil meaning all.
func (d *Definition) ReportKinds() ([]correlate.Kind, error) {
	if len(d.Report) == 0 {
		return nil, nil
	}

	kinds := make([]correlate.Kind, 0, len(d.Report))

	for _, name := range d.Report {
		k, err := correlate.ParseKind(name)
		if err != nil {
			return nil, err
		}

		kinds = append(kinds, k)
	}

	return kinds, nil
}

// Config builds the correlation configuration; opts are applied after the
// definition's own.
func (d *Definition) Config(opts ...correlate.Option) (*correlate.Config, error) {
	var own []correlate.Option

	if d.MatchDistance != 0 {
		own = append(own, correlate.WithMatchDistance(d.MatchDistance))
	}

	if d.FarDistance != 0 {
		own = append(own, correlate.WithFarDistance(d.FarDistance))
	}

	for name, meters := range d.ExtraDistance {
		s, err := correlate.ParseStrength(name)
		if err != nil {
			return nil, fmt.Errorf("extra distance: %w", err)
		}

		own = append(own, correlate.WithExtraDistance(s, meters))
	}

	allowance, err := d.Allowance()
	if err != nil {
		return nil, err
	}

	if allowance != nil {
		own = append(own, correlate.WithLoneAllowance(allowance))
	}

	return correlate.NewConfig(append(own, opts...)...)
}

// selectPlaces keeps the places of the configured kinds.
func (d *Definition) selectPlaces(places []*sources.Place) []*sources.Place {
	if len(d.Kinds) == 0 {
		return places
	}

	ret := make([]*sources.Place, 0, len(places))

	for _, p := range places {
		if slices.Contains(d.Kinds, p.Kind) {
			ret = append(ret, p)
		}
	}

	return ret
}
