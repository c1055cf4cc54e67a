// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package features

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFeatures() []*Feature {
	return []*Feature{
		{Type: Node, OSMID: 1, Location: point(0, 0), Tags: map[string]string{"amenity": "drinking_water"}},
		{Type: Node, OSMID: 2, Location: point(30, 0), Tags: map[string]string{"amenity": "drinking_water", "operator": "OSE"}},
		{Type: Way, OSMID: 3, Location: point(0, 90), Tags: map[string]string{"amenity": "bench"}},
		{Type: Node, OSMID: 4, Location: point(500, 500), Tags: map[string]string{"amenity": "post_box;drinking_water"}},
	}
}

func ids[F interface{ ID() string }](fs []F) []string {
	ret := make([]string, len(fs))
	for i, f := range fs {
		ret[i] = f.ID()
	}

	return ret
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(sampleFeatures())
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())

	f, ok := s.Get("way/3")
	require.True(t, ok)
	assert.Equal(t, "bench", f.Tags["amenity"])

	_, ok = s.Get("way/1")
	assert.False(t, ok)

	assert.Equal(t, map[Type]int{Node: 3, Way: 1}, s.Stats())
}

func TestNewStoreErrors(t *testing.T) {
	dup := sampleFeatures()
	dup = append(dup, &Feature{Type: Node, OSMID: 1, Location: point(1, 1)})

	_, err := NewStore(dup)
	require.ErrorContains(t, err, "duplicate feature node/1")

	_, err = NewStore([]*Feature{nil})
	require.Error(t, err)

	invalid := []*Feature{{Type: Node, OSMID: 9}}
	invalid[0].Location.Lat = 123
	_, err = NewStore(invalid)
	require.ErrorContains(t, err, "node/9")
}

func TestStoreFindWithin(t *testing.T) {
	s, err := NewStore(sampleFeatures())
	require.NoError(t, err)

	tests := []struct {
		name   string
		radius float64
		want   []string
	}{
		{"only the center", 10, []string{"node/1"}},
		{"nearest first", 50, []string{"node/1", "node/2"}},
		{"wider", 100, []string{"node/1", "node/2", "way/3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindWithin(context.Background(), point(0, 0), tt.radius)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("FindWithin() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.FindWithin(ctx, point(0, 0), 10)
	require.ErrorIs(t, err, context.Canceled)

	_, err = s.All(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStoreFilterAndSubtract(t *testing.T) {
	s, err := NewStore(sampleFeatures())
	require.NoError(t, err)

	water := s.Filter(SplitValuesCheck("amenity", func(v string) bool { return v == "drinking_water" }))
	assert.Equal(t, []string{"node/1", "node/2", "node/4"}, ids(water.Features()))

	rest := s.Subtract(water)
	assert.Equal(t, []string{"way/3"}, ids(rest.Features()))

	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"node/1", "node/2", "way/3", "node/4"}, ids(all))

	// the filtered store is indexed on its own
	near, err := water.Closest(point(0, 90), 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"node/1", "node/2"}, ids(near))
}

func TestStoreGroupByValues(t *testing.T) {
	s, err := NewStore(sampleFeatures())
	require.NoError(t, err)

	split := s.GroupByValues("amenity", true)
	assert.Equal(t, []string{"node/1", "node/2", "node/4"}, ids(split["drinking_water"]))
	assert.Equal(t, []string{"node/4"}, ids(split["post_box"]))

	whole := s.GroupByValues("amenity", false)
	assert.Len(t, whole["drinking_water"], 2)

	assert.Equal(t, []string{"bench", "drinking_water", "post_box;drinking_water"}, s.UniqueValues("amenity"))
}
