// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package correlate

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	// DefaultMatchDistance is the distance, in meters, up to which a match is close.
	DefaultMatchDistance = 15
	// DefaultFarDistance is the base search radius and acceptance ceiling, in meters.
	DefaultFarDistance = 75
)

// Configuration errors. All of them wrap ErrConfig.
var (
	ErrConfig               = errors.New("invalid correlation configuration")
	ErrNilItems             = fmt.Errorf("%w: nil item list", ErrConfig)
	ErrNilConfig            = fmt.Errorf("%w: nil config", ErrConfig)
	ErrNilLocator           = fmt.Errorf("%w: nil locator", ErrConfig)
	ErrInvalidDistance      = fmt.Errorf("%w: distance", ErrConfig)
	ErrInvalidExtraDistance = fmt.Errorf("%w: extra distance", ErrConfig)
)

// Config is the immutable configuration of a correlation run. Build it with
// NewConfig.
type Config struct {
	matchDistance float64
	farDistance   float64
	extra         map[Strength]float64
	allowance     AllowanceFunc
	parallelism   int
	progress      func(done, total int)
}

// Option configures a Config.
type Option func(*Config)

// WithMatchDistance sets the distance at or below which a match is close.
func WithMatchDistance(meters float64) Option {
	return func(c *Config) {
		c.matchDistance = meters
	}
}

// WithFarDistance sets the base search radius and default acceptance ceiling.
func WithFarDistance(meters float64) Option {
	return func(c *Config) {
		c.farDistance = meters
	}
}

// WithExtraDistance overrides the acceptance ceiling for candidates graded s.
// The search radius grows to cover the largest override.
func WithExtraDistance(s Strength, meters float64) Option {
	return func(c *Config) {
		if c.extra == nil {
			c.extra = make(map[Strength]float64)
		}

		c.extra[s] = meters
	}
}

// WithExtraDistances sets several overrides at once.
func WithExtraDistances(distances map[Strength]float64) Option {
	return func(c *Config) {
		for s, m := range distances {
			WithExtraDistance(s, m)(c)
		}
	}
}

// WithLoneAllowance sets the predicate that accepts unclaimed features.
func WithLoneAllowance(fn AllowanceFunc) Option {
	return func(c *Config) {
		c.allowance = fn
	}
}

// WithParallelism sets how many candidate lookups may run concurrently.
// Claiming always happens sequentially in item order.
func WithParallelism(n int) Option {
	return func(c *Config) {
		c.parallelism = n
	}
}

// WithProgress registers a callback invoked after each item is classified.
func WithProgress(fn func(done, total int)) Option {
	return func(c *Config) {
		c.progress = fn
	}
}

// NewConfig resolves and validates options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		matchDistance: DefaultMatchDistance,
		farDistance:   DefaultFarDistance,
		parallelism:   1,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func validDistance(m float64) bool {
	return !math.IsNaN(m) && !math.IsInf(m, 0) && m > 0
}

func (c *Config) validate() error {
	if !validDistance(c.matchDistance) {
		return fmt.Errorf("%w: match distance %v must be a positive number", ErrInvalidDistance, c.matchDistance)
	}

	if !validDistance(c.farDistance) {
		return fmt.Errorf("%w: far distance %v must be a positive number", ErrInvalidDistance, c.farDistance)
	}

	for s, m := range c.extra {
		if !s.Valid() || s == Unmatched {
			return fmt.Errorf("%w: %s has no acceptance ceiling", ErrInvalidExtraDistance, s)
		}

		if !validDistance(m) {
			return fmt.Errorf("%w: %s distance %v must be a positive number", ErrInvalidExtraDistance, s, m)
		}
	}

	if c.parallelism < 1 {
		c.parallelism = 1
	}

	return nil
}

// MatchDistance returns the close-match threshold in meters.
func (c *Config) MatchDistance() float64 { return c.matchDistance }

// FarDistance returns the base acceptance ceiling in meters.
func (c *Config) FarDistance() float64 { return c.farDistance }

// ExtraDistances returns a copy of the per-strength overrides.
func (c *Config) ExtraDistances() map[Strength]float64 {
	ret := make(map[Strength]float64, len(c.extra))
	for s, m := range c.extra {
		ret[s] = m
	}

	return ret
}

// Ceiling returns the maximum accepted distance for a candidate graded s.
// Grades without an override use the far distance.
func (c *Config) Ceiling(s Strength) float64 {
	if m, ok := c.extra[s]; ok {
		return m
	}

	return c.farDistance
}

// SearchRadius is the radius used for candidate lookups: the far distance or
// the largest override, whichever is bigger.
func (c *Config) SearchRadius() float64 {
	r := c.farDistance
	for _, m := range c.extra {
		r = math.Max(r, m)
	}

	return r
}

// LoneAllowed evaluates the lone-feature allowance; false when none is set.
func (c *Config) LoneAllowed(f Feature) bool {
	return c.allowance != nil && c.allowance(f)
}

// Parallelism returns the number of concurrent candidate lookups.
func (c *Config) Parallelism() int { return c.parallelism }

// String describes the distance policy, e.g. for logs.
func (c *Config) String() string {
	s := fmt.Sprintf("match=%gm far=%gm", c.matchDistance, c.farDistance)

	keys := make([]Strength, 0, len(c.extra))
	for k := range c.extra {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		s += fmt.Sprintf(" %s=%gm", k, c.extra[k])
	}

	return s
}
