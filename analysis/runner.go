// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/features"
	"github.com/mapaudit/mapaudit/geocode"
	"github.com/mapaudit/mapaudit/report"
	"github.com/mapaudit/mapaudit/sources"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	errNoStore   = errors.New("runner without a feature store or repository")
	errNoSources = errors.New("runner without sources")
)

// SourceFunc returns the provider of a named source.
type SourceFunc func(name string) (sources.Provider, error)

// Catalog resolves sources from the registry, downloading through fetcher.
func Catalog(fetcher *sources.Fetcher) SourceFunc {
	return func(name string) (sources.Provider, error) {
		ref, err := sources.Find(name)
		if err != nil {
			return nil, err
		}

		return sources.NewProvider(ref, fetcher), nil
	}
}

// Runner runs analyses against one feature snapshot. Runs share nothing
// mutable, so a Runner may run several analyses at once.
type Runner struct {
	Store *features.Store

	// Repository, used when Store is nil, has runs query the stored
	// snapshot in the database instead of holding it in memory
	Repository features.Repository

	Sources SourceFunc

	// Resolver geocodes places without coordinates, optional
	Resolver *geocode.Resolver

	// Metrics records outcomes, optional
	Metrics *report.Metrics

	// Parallelism of candidate lookups within a run
	Parallelism int

	// Concurrency is how many analyses RunAll runs at once, all when zero
	Concurrency int

	// Progress is called after each item of each run, optional
	Progress func(analysis string, done, total int)
}

// locate splits places into those with coordinates and the rest.
func (r *Runner) locate(ctx context.Context, places []*sources.Place) ([]*sources.Place, []geocode.Unlocated, error) {
	if r.Resolver != nil {
		return r.Resolver.Locate(ctx, places)
	}

	located := make([]*sources.Place, 0, len(places))

	var unlocated []geocode.Unlocated

	for _, p := range places {
		if p.Located() {
			located = append(located, p)
		} else {
			unlocated = append(unlocated, geocode.Unlocated{Place: p, Reason: "no coordinates"})
		}
	}

	return located, unlocated, nil
}

// locator returns what a run filtered by filters looks candidates up in,
// along with the size of the snapshot when it is known up front.
func (r *Runner) locator(filters []features.Filter) (correlate.Locator, zap.Field) {
	if r.Store != nil {
		store := r.Store.Filter(filters...)

		return store, zap.Int("features", store.Len())
	}

	return features.NewSQLLocator(r.Repository, filters...), zap.Skip()
}

// Run runs one analysis and returns its report.
func (r *Runner) Run(ctx context.Context, def *Definition) (*report.Report, error) {
	if r.Store == nil && r.Repository == nil {
		return nil, errNoStore
	}

	if r.Sources == nil {
		return nil, errNoSources
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := zap.L().With(zap.String("analysis", def.Name))

	provider, err := r.Sources(def.Source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Name, err)
	}

	places, err := provider.Places(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: loading places: %w", def.Name, err)
	}

	places = def.selectPlaces(places)

	located, unlocated, err := r.locate(ctx, places)
	if err != nil {
		return nil, fmt.Errorf("%s: locating places: %w", def.Name, err)
	}

	// validated above
	filters, _ := def.FeatureFilters()
	evaluate, _ := def.Evaluator()
	kinds, _ := def.ReportKinds()

	locator, size := r.locator(filters)

	opts := []correlate.Option{correlate.WithParallelism(max(r.Parallelism, 1))}
	if r.Progress != nil {
		opts = append(opts, correlate.WithProgress(func(done, total int) {
			r.Progress(def.Name, done, total)
		}))
	}

	cfg, err := def.Config(opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Name, err)
	}

	log.Debug("correlating",
		zap.Int("places", len(located)),
		size,
		zap.Stringer("config", cfg),
	)

	res, err := correlate.Correlate(ctx, locator, located, cfg, evaluate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Name, err)
	}

	rep := report.New(def.Name, def.Description)
	report.Correlation(rep, res, report.CorrelationOptions{
		Labels:       def.Labels,
		Preview:      def.Preview,
		Kinds:        kinds,
		SearchRadius: cfg.SearchRadius(),
	})
	report.CheckTags(rep, res, def.Checks, def.Labels)
	report.SuggestTags(rep, res, def.Compare, def.Labels)
	report.Unlocated(rep, unlocated, def.Labels)
	report.Observe(r.Metrics, def.Name, res)

	log.Info("analysis finished",
		zap.Int("places", len(places)),
		size,
		zap.Int("matched", res.Count(correlate.MatchedClose)+res.Count(correlate.MatchedFar)),
		zap.Int("issues", rep.Issues()),
		zap.Duration("took", time.Since(start)),
	)

	return rep, nil
}

// RunAll runs defs concurrently. A failing analysis doesn't stop the
// others: the reports of the successful ones are returned, in definition
// order, along with the joined errors.
func (r *Runner) RunAll(ctx context.Context, defs []*Definition) ([]*report.Report, error) {
	reports := make([]*report.Report, len(defs))
	errs := make([]error, len(defs))

	var g errgroup.Group
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}

	for i, def := range defs {
		g.Go(func() error {
			reports[i], errs[i] = r.Run(ctx, def)

			return nil
		})
	}

	_ = g.Wait()

	ret := make([]*report.Report, 0, len(defs))

	for _, rep := range reports {
		if rep != nil {
			ret = append(ret, rep)
		}
	}

	return ret, errors.Join(errs...)
}
