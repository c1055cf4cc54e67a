// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexWithin(t *testing.T) {
	center := Point{Lat: 56.95, Lng: 24.1}

	idx := NewIndex[string]()
	require.NoError(t, idx.Insert(center, "center"))
	require.NoError(t, idx.Insert(center.Offset(50, 0), "north-50"))
	require.NoError(t, idx.Insert(center.Offset(0, -100), "west-100"))
	require.NoError(t, idx.Insert(center.Offset(400, 0), "north-400"))
	require.NoError(t, idx.Insert(center.Offset(0, 2000), "east-2000"))
	assert.Equal(t, 5, idx.Len())

	tests := []struct {
		name   string
		radius float64
		want   []string
	}{
		{name: "zero radius", radius: 0, want: []string{"center"}},
		{name: "close range", radius: 75, want: []string{"center", "north-50"}},
		{name: "far range", radius: 150, want: []string{"center", "north-50", "west-100"}},
		{name: "extended range", radius: 700, want: []string{"center", "north-50", "west-100", "north-400"}},
		{name: "everything", radius: 5000, want: []string{"center", "north-50", "west-100", "north-400", "east-2000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Within(center, tt.radius)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Within() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIndexWithinInclusive(t *testing.T) {
	center := Point{Lat: 10, Lng: 10}
	p := center.Offset(120, 0)

	idx := NewIndex[int]()
	require.NoError(t, idx.Insert(p, 1))

	got, err := idx.Within(center, Distance(center, p))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestIndexMatchesBruteForce(t *testing.T) {
	rnd := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic test data
	center := Point{Lat: -34.9, Lng: -56.16}

	var points []Point

	idx := NewIndex[int]()

	for i := range 3000 {
		p := center.Offset((rnd.Float64()-0.5)*6000, (rnd.Float64()-0.5)*6000)
		points = append(points, p)
		require.NoError(t, idx.Insert(p, i))
	}

	for _, radius := range []float64{15, 75, 300, 700, 1500} {
		for range 20 {
			q := center.Offset((rnd.Float64()-0.5)*5000, (rnd.Float64()-0.5)*5000)

			var want []int

			for i, p := range points {
				if Distance(q, p) <= radius {
					want = append(want, i)
				}
			}

			got, err := idx.Within(q, radius)
			require.NoError(t, err)

			sort.Ints(got)
			assert.Equal(t, want, got, "radius %f around %s", radius, q)
		}
	}
}

func TestIndexErrors(t *testing.T) {
	idx := NewIndex[int]()

	assert.Error(t, idx.Insert(Point{Lat: 100, Lng: 0}, 1))

	_, err := idx.Within(Point{}, -1)
	assert.Error(t, err)

	_, err = idx.Within(Point{Lat: 0, Lng: 200}, 10)
	assert.Error(t, err)

	_, err = NewIndexWithResolution[int](15)
	assert.Error(t, err)
}

func TestIndexEmpty(t *testing.T) {
	got, err := NewIndex[int]().Within(Point{}, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
}
