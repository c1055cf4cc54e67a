// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/features"
	"github.com/mapaudit/mapaudit/sources"
	"github.com/mapaudit/mapaudit/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var origin = spatial.Point{Lat: 56.95, Lng: 24.1}

func feature(id int64, north float64, tags map[string]string) *features.Feature {
	return &features.Feature{
		Type:     features.Node,
		OSMID:    id,
		Location: origin.Offset(north, 0),
		Tags:     tags,
	}
}

func place(name string, north float64) *sources.Place {
	p := origin.Offset(north, 0)

	return &sources.Place{ID: name, Name: name, Location: &p}
}

func TestAddGroupAndEntry(t *testing.T) {
	r := New("post-boxes", "checks post boxes")
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, "post-boxes", r.Analysis)

	g := r.AddGroup(GroupExtra, "Extra", "", "nothing")
	again := r.AddGroup(GroupExtra, "Other title", "", "")
	assert.Same(t, g, again)
	assert.Len(t, r.Groups, 1)

	require.NoError(t, r.AddEntry(GroupExtra, Entry{Text: "b", Sort: SortTagging}))
	require.NoError(t, r.AddEntry(GroupExtra, Entry{Text: "a", Sort: SortNoItem}))
	require.NoError(t, r.AddEntry(GroupExtra, Entry{Text: "c", Sort: SortTagging}))

	err := r.AddEntry("missing", Entry{Text: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUnknownGroup))

	texts := make([]string, 0, 3)
	for _, e := range g.Sorted() {
		texts = append(texts, e.Text)
	}

	assert.Equal(t, []string{"a", "b", "c"}, texts)
	assert.Equal(t, "b", g.Entries[0].Text, "Sorted doesn't reorder the group")
	assert.Equal(t, EntryIssue, g.Entries[0].Kind)
	assert.Equal(t, 3, r.Issues())
}

func TestStore(t *testing.T) {
	first := New("b", "")
	second := New("a", "")
	s := NewStore(first, second)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Analysis)

	got, err := s.Get(first.ID.String())
	require.NoError(t, err)
	assert.Same(t, first, got)

	got, err = s.Get("a")
	require.NoError(t, err)
	assert.Same(t, second, got)

	replacement := New("b", "newer")
	s.Add(replacement)
	assert.Len(t, s.List(), 2)

	_, err = s.Get(first.ID.String())
	assert.True(t, errors.Is(err, errReportMissing))

	got, err = s.Get("b")
	require.NoError(t, err)
	assert.Same(t, replacement, got)
}

// sampleResult covers every outcome kind once.
func sampleResult() *correlate.Result[*sources.Place] {
	near := feature(1, 5, map[string]string{"name": "Pasts", "seasonal": "yes"})
	far := feature(2, 150, nil)
	rejected := feature(3, 400, nil)
	lonely := feature(4, 900, map[string]string{"seasonal": "no"})
	seasonal := feature(5, 1200, map[string]string{"seasonal": "yes"})

	return &correlate.Result[*sources.Place]{Outcomes: []correlate.Outcome[*sources.Place]{
		{Kind: correlate.MatchedClose, Item: place("A", 0), Feature: near, Distance: 5, Strength: correlate.Weak},
		{Kind: correlate.MatchedFar, Item: place("B", 100), Feature: far, Distance: 50.4, Strength: correlate.Strong},
		{Kind: correlate.UnmatchedItem, Item: place("C", 2000), Reason: correlate.NoCandidates},
		{
			Kind: correlate.UnmatchedItem, Item: place("D", 300), Feature: rejected,
			Distance: 100, Strength: correlate.Weak, Reason: correlate.BeyondCeiling,
		},
		{Kind: correlate.UnmatchedItem, Item: place("E", 3000), Reason: correlate.NoAcceptableStrength},
		{Kind: correlate.UnmatchedFeature, Feature: lonely},
		{Kind: correlate.LoneFeature, Feature: seasonal},
	}}
}
