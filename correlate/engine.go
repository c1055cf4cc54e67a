// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package correlate

import (
	"context"
	"fmt"
	"sort"

	"github.com/mapaudit/mapaudit/spatial"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// candidate is a located feature with its distance to the item.
type candidate struct {
	feature  Feature
	distance float64
}

// run holds the bookkeeping of one Correlate call.
type run[T Item] struct {
	cfg      *Config
	evaluate StrengthFunc[T]
	claimed  map[string]struct{}
	seen     map[string]struct{}
	observed []Feature
}

// Correlate classifies every item against the features found by locator.
//
// Items are processed in input order and each one claims at most one feature;
// a claimed feature is no longer a candidate for later items. Among the
// unclaimed candidates within the search radius, the one with the highest
// grade wins, ties broken by distance and then by feature ID. The winner is
// accepted only if its distance is within the ceiling for its grade;
// otherwise the item is unmatched and no other candidate is tried.
//
// After all items, every feature that was a candidate but never claimed is
// reported once, as a lone feature if the allowance accepts it or as an
// unmatched feature otherwise. When the locator is also an Enumerator, the
// rest of its snapshot follows in enumeration order.
//
// A nil evaluate grades every candidate Weak, so the nearest one is chosen.
// Locator failures and context cancellation abort the run.
func Correlate[T Item](
	ctx context.Context,
	locator Locator,
	items []T,
	cfg *Config,
	evaluate StrengthFunc[T],
) (*Result[T], error) {
	if items == nil {
		return nil, ErrNilItems
	}

	if cfg == nil {
		return nil, ErrNilConfig
	}

	if locator == nil {
		return nil, ErrNilLocator
	}

	if evaluate == nil {
		evaluate = ConstantStrength[T](Weak)
	}

	lookup, err := prefetch(ctx, locator, items, cfg)
	if err != nil {
		return nil, err
	}

	r := &run[T]{
		cfg:      cfg,
		evaluate: evaluate,
		claimed:  make(map[string]struct{}),
		seen:     make(map[string]struct{}),
	}

	result := &Result[T]{Outcomes: make([]Outcome[T], 0, len(items))}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("correlating item %d: %w", i, err)
		}

		candidates, err := lookup(ctx, i)
		if err != nil {
			return nil, err
		}

		outcome, err := r.classify(item, candidates)
		if err != nil {
			return nil, fmt.Errorf("correlating item %d (%s): %w", i, item.Label(), err)
		}

		result.Outcomes = append(result.Outcomes, outcome)

		if cfg.progress != nil {
			cfg.progress(i+1, len(items))
		}
	}

	unclaimed, err := r.unclaimed(ctx, locator)
	if err != nil {
		return nil, err
	}

	result.Outcomes = append(result.Outcomes, unclaimed...)

	zap.L().Debug("correlation finished",
		zap.Int("items", len(items)),
		zap.Int("claimed", len(r.claimed)),
		zap.Int("unclaimed", len(unclaimed)),
		zap.Stringer("config", cfg),
	)

	return result, nil
}

// classify picks the best unclaimed candidate for item and claims it.
func (r *run[T]) classify(item T, candidates []candidate) (Outcome[T], error) {
	var (
		best         *candidate
		bestStrength Strength
		available    int
	)

	for i := range candidates {
		c := &candidates[i]
		r.observe(c.feature)

		if _, ok := r.claimed[c.feature.ID()]; ok {
			continue
		}

		available++

		s := r.evaluate(item, c.feature)
		if !s.Valid() {
			return Outcome[T]{}, fmt.Errorf("evaluator returned %s for %s", s, c.feature.ID())
		}

		if s == Unmatched {
			continue
		}

		// candidates are sorted by distance, so the first one wins ties
		if best == nil || s > bestStrength {
			best, bestStrength = c, s
		}
	}

	switch {
	case available == 0:
		return Outcome[T]{Kind: UnmatchedItem, Item: item, Reason: NoCandidates}, nil
	case best == nil:
		return Outcome[T]{Kind: UnmatchedItem, Item: item, Reason: NoAcceptableStrength}, nil
	}

	if best.distance > r.cfg.Ceiling(bestStrength) {
		return Outcome[T]{
			Kind:     UnmatchedItem,
			Item:     item,
			Feature:  best.feature,
			Distance: best.distance,
			Strength: bestStrength,
			Reason:   BeyondCeiling,
		}, nil
	}

	r.claimed[best.feature.ID()] = struct{}{}

	kind := MatchedFar
	if best.distance <= r.cfg.matchDistance {
		kind = MatchedClose
	}

	return Outcome[T]{
		Kind:     kind,
		Item:     item,
		Feature:  best.feature,
		Distance: best.distance,
		Strength: bestStrength,
	}, nil
}

func (r *run[T]) observe(f Feature) {
	if _, ok := r.seen[f.ID()]; ok {
		return
	}

	r.seen[f.ID()] = struct{}{}
	r.observed = append(r.observed, f)
}

func (r *run[T]) unclaimedOutcome(f Feature) Outcome[T] {
	kind := UnmatchedFeature
	if r.cfg.LoneAllowed(f) {
		kind = LoneFeature
	}

	return Outcome[T]{Kind: kind, Feature: f}
}

// unclaimed classifies observed features nobody claimed, then the rest of
// the snapshot when the locator can enumerate it.
func (r *run[T]) unclaimed(ctx context.Context, locator Locator) ([]Outcome[T], error) {
	var ret []Outcome[T]

	for _, f := range r.observed {
		if _, ok := r.claimed[f.ID()]; !ok {
			ret = append(ret, r.unclaimedOutcome(f))
		}
	}

	enumerator, ok := locator.(Enumerator)
	if !ok {
		return ret, nil
	}

	all, err := enumerator.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating features: %w", err)
	}

	for _, f := range all {
		if _, ok := r.seen[f.ID()]; ok {
			continue
		}

		r.seen[f.ID()] = struct{}{}
		ret = append(ret, r.unclaimedOutcome(f))
	}

	return ret, nil
}

// locate queries the locator and returns the candidates within radius sorted
// by distance and then by ID, with duplicate identities removed.
func locate(ctx context.Context, locator Locator, center spatial.Point, radius float64) ([]candidate, error) {
	features, err := locator.FindWithin(ctx, center, radius)
	if err != nil {
		return nil, err
	}

	ret := make([]candidate, 0, len(features))
	ids := make(map[string]struct{}, len(features))

	for _, f := range features {
		if _, dup := ids[f.ID()]; dup {
			continue
		}

		ids[f.ID()] = struct{}{}

		d := spatial.Distance(center, f.Point())
		if d > radius {
			continue
		}

		ret = append(ret, candidate{feature: f, distance: d})
	}

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].distance != ret[j].distance {
			return ret[i].distance < ret[j].distance
		}

		return ret[i].feature.ID() < ret[j].feature.ID()
	})

	return ret, nil
}

type lookupFunc func(ctx context.Context, i int) ([]candidate, error)

// prefetch returns the candidate lookup for each item index. With a
// parallelism above one the lookups run ahead of the classification, bounded
// by an errgroup limit; claiming stays sequential either way.
func prefetch[T Item](ctx context.Context, locator Locator, items []T, cfg *Config) (lookupFunc, error) {
	radius := cfg.SearchRadius()

	sequential := func(ctx context.Context, i int) ([]candidate, error) {
		ret, err := locate(ctx, locator, items[i].Point(), radius)
		if err != nil {
			return nil, fmt.Errorf("locating candidates for item %d (%s): %w", i, items[i].Label(), err)
		}

		return ret, nil
	}

	if cfg.parallelism <= 1 || len(items) < 2 {
		return sequential, nil
	}

	lists := make([][]candidate, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.parallelism)

	for i := range items {
		g.Go(func() error {
			ret, err := sequential(gctx, i)
			if err != nil {
				return err
			}

			lists[i] = ret

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return func(_ context.Context, i int) ([]candidate, error) {
		return lists[i], nil
	}, nil
}
