// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"fmt"

	"github.com/mapaudit/mapaudit/sources"
	"go.uber.org/zap"
)

// Resolver fills in the coordinates of places that have an address but no
// point.
type Resolver struct {
	// Geocoder does the lookups, nil leaves places unlocated
	Geocoder Geocoder

	// Repository caches results, optional
	Repository Repository

	// Region biases every lookup
	Region string

	// MinConfidence discards worse results
	MinConfidence Confidence
}

// Unlocated is a place the resolver could not place, and why.
type Unlocated struct {
	Place  *sources.Place
	Reason string
}

// Locate returns the places that have coordinates, geocoding the ones that
// don't, and separately the ones that could not be resolved. Input order is
// preserved in both lists. Places are never modified; geocoded ones are
// returned as copies. Quota exhaustion and cancellation abort the whole call.
func (r *Resolver) Locate(ctx context.Context, places []*sources.Place) ([]*sources.Place, []Unlocated, error) {
	var (
		located   = make([]*sources.Place, 0, len(places))
		unlocated []Unlocated
		geocoded  int
	)

	for _, p := range places {
		if p.Located() {
			located = append(located, p)

			continue
		}

		if p.Address == "" {
			unlocated = append(unlocated, Unlocated{Place: p, Reason: "no coordinates and no address"})

			continue
		}

		res, err := r.resolve(ctx, p.Address)

		switch {
		case err == nil:
			pt := res.Point
			cp := *p
			cp.Location = &pt
			located = append(located, &cp)
			geocoded++
		case IsQuotaExceeded(err), ctx.Err() != nil:
			return nil, nil, fmt.Errorf("geocoding %s: %w", p.Label(), err)
		default:
			unlocated = append(unlocated, Unlocated{Place: p, Reason: err.Error()})
		}
	}

	if geocoded > 0 || len(unlocated) > 0 {
		zap.L().Info("geocoding finished",
			zap.Int("geocoded", geocoded),
			zap.Int("unlocated", len(unlocated)),
		)
	}

	return located, unlocated, nil
}

func (r *Resolver) resolve(ctx context.Context, address string) (*Result, error) {
	if r.Repository != nil {
		res, err := r.Repository.Get(address, r.Region)
		if err != nil {
			return nil, fmt.Errorf("reading geocode cache: %w", err)
		}

		if res != nil && res.Confidence.AtLeast(r.MinConfidence) {
			return res, nil
		}
	}

	if r.Geocoder == nil {
		return nil, &Error{Type: ErrorTypeNotFound, Message: "no geocoder configured"}
	}

	res, err := r.Geocoder.Geocode(ctx, address, r.Region)
	if err != nil {
		return nil, err
	}

	if !res.Confidence.AtLeast(r.MinConfidence) {
		return nil, &Error{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("%s confidence result for %q (%s)", res.Confidence, address, res.DisplayName),
		}
	}

	if r.Repository != nil {
		if err := r.Repository.Save(address, r.Region, res); err != nil {
			zap.L().Warn("caching geocode", zap.String("address", address), zap.Error(err))
		}
	}

	return res, nil
}
