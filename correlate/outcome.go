// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package correlate

import (
	"fmt"
	"strings"
)

// Kind classifies an outcome.
type Kind int

const (
	// MatchedClose is an item matched to a feature within the match distance.
	MatchedClose Kind = iota
	// MatchedFar is an accepted match beyond the match distance.
	MatchedFar
	// UnmatchedItem is an item without an acceptable candidate.
	UnmatchedItem
	// UnmatchedFeature is a feature nobody claimed and not allowed alone.
	UnmatchedFeature
	// LoneFeature is a feature nobody claimed but acceptable on its own.
	LoneFeature
)

var kindNames = []string{"matched", "matched_far", "unmatched_item", "unmatched_feature", "lone_feature"}

// Kinds lists every outcome kind.
func Kinds() []Kind {
	return []Kind{MatchedClose, MatchedFar, UnmatchedItem, UnmatchedFeature, LoneFeature}
}

func (k Kind) String() string {
	if k < MatchedClose || k > LoneFeature {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind parses an outcome kind name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	name = strings.TrimSpace(name)
	for i, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(i), nil
		}
	}

	return 0, fmt.Errorf("unknown outcome kind %q", name)
}

// IsMatch reports whether the outcome pairs an item with a feature.
func (k Kind) IsMatch() bool {
	return k == MatchedClose || k == MatchedFar
}

// Reason explains an UnmatchedItem outcome.
type Reason int

const (
	// NoReason is used by every kind other than UnmatchedItem.
	NoReason Reason = iota
	// NoCandidates means no unclaimed feature was within the search radius.
	NoCandidates
	// NoAcceptableStrength means every candidate was graded Unmatched.
	NoAcceptableStrength
	// BeyondCeiling means the best candidate was further than its grade allows.
	BeyondCeiling
)

func (r Reason) String() string {
	switch r {
	case NoCandidates:
		return "no_candidates"
	case NoAcceptableStrength:
		return "no_acceptable_strength"
	case BeyondCeiling:
		return "beyond_ceiling"
	default:
		return ""
	}
}

// Outcome is the classification of one item or one unclaimed feature.
//
// Item is set for MatchedClose, MatchedFar and UnmatchedItem. Feature is set
// for every kind except UnmatchedItem, where it holds the rejected candidate
// when Reason is BeyondCeiling. Distance and Strength describe the pairing
// whenever both sides are present.
type Outcome[T Item] struct {
	Kind     Kind
	Item     T
	Feature  Feature
	Distance float64
	Strength Strength
	Reason   Reason
}

// HasItem reports whether the outcome carries an item.
func (o Outcome[T]) HasItem() bool {
	return o.Kind == MatchedClose || o.Kind == MatchedFar || o.Kind == UnmatchedItem
}

func (o Outcome[T]) String() string {
	var sb strings.Builder

	sb.WriteString(o.Kind.String())

	if o.HasItem() {
		fmt.Fprintf(&sb, " item=%q", o.Item.Label())
	}

	if o.Feature != nil {
		fmt.Fprintf(&sb, " feature=%s", o.Feature.ID())
	}

	if o.Kind.IsMatch() || o.Reason == BeyondCeiling {
		fmt.Fprintf(&sb, " distance=%.0fm strength=%s", o.Distance, o.Strength)
	}

	if o.Reason != NoReason {
		fmt.Fprintf(&sb, " reason=%s", o.Reason)
	}

	return sb.String()
}

// Result is the ordered outcome set of one run: one outcome per item in
// input order, followed by unclaimed features in the order they were first
// observed.
type Result[T Item] struct {
	Outcomes []Outcome[T]
}

// Matches returns matched outcomes keyed by feature ID.
func (r *Result[T]) Matches() map[string]Outcome[T] {
	ret := make(map[string]Outcome[T])

	for _, o := range r.Outcomes {
		if o.Kind.IsMatch() {
			ret[o.Feature.ID()] = o
		}
	}

	return ret
}

// Count returns how many outcomes are of kind k.
func (r *Result[T]) Count(k Kind) int {
	n := 0

	for _, o := range r.Outcomes {
		if o.Kind == k {
			n++
		}
	}

	return n
}

// Counts returns the number of outcomes per kind.
func (r *Result[T]) Counts() map[Kind]int {
	ret := make(map[Kind]int, len(kindNames))
	for _, o := range r.Outcomes {
		ret[o.Kind]++
	}

	return ret
}

// Filter returns the outcomes whose kind is one of kinds, preserving order.
func (r *Result[T]) Filter(kinds ...Kind) []Outcome[T] {
	var ret []Outcome[T]

	for _, o := range r.Outcomes {
		for _, k := range kinds {
			if o.Kind == k {
				ret = append(ret, o)

				break
			}
		}
	}

	return ret
}
