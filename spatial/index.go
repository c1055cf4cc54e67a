// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/uber/h3-go/v4"
)

// DefaultResolution is the h3 resolution used by NewIndex.
const DefaultResolution = 9

// average hexagon edge length in meters per h3 resolution.
var avgEdgeMeters = map[int]float64{
	5:  9854.090990,
	6:  3724.532667,
	7:  1406.475763,
	8:  531.414010,
	9:  200.786148,
	10: 75.863783,
	11: 28.663897,
	12: 10.830188,
}

type indexEntry[V any] struct {
	point Point
	value V
	seq   int
}

// Index buckets points into h3 cells so radius queries only scan the cells
// around the query center. Results are always filtered by exact haversine
// distance, so the cell geometry never changes which values are returned.
//
// An Index is not safe for concurrent writes; once built it may be queried
// from many goroutines.
type Index[V any] struct {
	res   int
	cells map[h3.Cell][]indexEntry[V]
	n     int
}

// NewIndex creates an empty index at DefaultResolution.
func NewIndex[V any]() *Index[V] {
	idx, _ := NewIndexWithResolution[V](DefaultResolution)

	return idx
}

// NewIndexWithResolution creates an empty index using the given h3 resolution.
func NewIndexWithResolution[V any](res int) (*Index[V], error) {
	if _, ok := avgEdgeMeters[res]; !ok {
		return nil, fmt.Errorf("unsupported h3 resolution %d", res)
	}

	return &Index[V]{
		res:   res,
		cells: make(map[h3.Cell][]indexEntry[V]),
	}, nil
}

// Cell returns the h3 cell containing p at the given resolution.
func Cell(p Point, res int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	return cell, nil
}

// Insert adds a value located at p.
func (idx *Index[V]) Insert(p Point, v V) error {
	if err := p.Valid(); err != nil {
		return err
	}

	cell, err := Cell(p, idx.res)
	if err != nil {
		return err
	}

	idx.cells[cell] = append(idx.cells[cell], indexEntry[V]{point: p, value: v, seq: idx.n})
	idx.n++

	return nil
}

// Len returns the number of indexed values.
func (idx *Index[V]) Len() int {
	return idx.n
}

// ringsFor returns how many h3 rings are needed to cover radius meters.
// Neighbouring cell centers are at least half an average edge apart at every
// resolution we support, which keeps the estimate on the safe side.
func (idx *Index[V]) ringsFor(radius float64) int {
	step := avgEdgeMeters[idx.res] / 2

	return int(math.Ceil(radius/step)) + 1
}

// Within returns every value whose point lies within radius meters of center,
// inclusive, ordered by distance and then by insertion order.
func (idx *Index[V]) Within(center Point, radius float64) ([]V, error) {
	hits, err := idx.within(center, radius)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		return nil, nil
	}

	ret := make([]V, len(hits))
	for i, h := range hits {
		ret[i] = h.value
	}

	return ret, nil
}

type indexHit[V any] struct {
	indexEntry[V]
	distance float64
}

func (idx *Index[V]) within(center Point, radius float64) ([]indexHit[V], error) {
	if radius < 0 || math.IsNaN(radius) {
		return nil, fmt.Errorf("invalid radius %f", radius)
	}

	if err := center.Valid(); err != nil {
		return nil, err
	}

	if idx.n == 0 {
		return nil, nil
	}

	var candidates [][]indexEntry[V]

	k := idx.ringsFor(radius)
	if diskSize(k) >= len(idx.cells) {
		// the disk would visit more cells than we hold, scan them all
		for _, entries := range idx.cells {
			candidates = append(candidates, entries)
		}
	} else {
		origin, err := Cell(center, idx.res)
		if err != nil {
			return nil, err
		}

		disk, err := h3.GridDisk(origin, k)
		if err != nil {
			return nil, fmt.Errorf("computing grid disk of %d rings: %w", k, err)
		}

		for _, cell := range disk {
			if entries, ok := idx.cells[cell]; ok {
				candidates = append(candidates, entries)
			}
		}
	}

	var hits []indexHit[V]

	for _, entries := range candidates {
		for _, e := range entries {
			if d := Distance(center, e.point); d <= radius {
				hits = append(hits, indexHit[V]{indexEntry: e, distance: d})
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}

		return hits[i].seq < hits[j].seq
	})

	return hits, nil
}

// number of cells in a grid disk of k rings.
func diskSize(k int) int {
	return 3*k*(k+1) + 1
}
