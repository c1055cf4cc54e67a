// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves the addresses of listings that come without
// coordinates.
package geocode

import (
	"context"
	"fmt"

	"github.com/mapaudit/mapaudit/spatial"
)

// Confidence grades how precise a geocoding result is.
type Confidence string

// Known confidence grades.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

var confidenceRank = map[Confidence]int{
	ConfidenceLow:    1,
	ConfidenceMedium: 2,
	ConfidenceHigh:   3,
}

// AtLeast reports whether c is as good as minimum. An empty minimum accepts
// anything.
func (c Confidence) AtLeast(minimum Confidence) bool {
	if minimum == "" {
		return true
	}

	return confidenceRank[c] >= confidenceRank[minimum]
}

// ParseConfidence parses a confidence grade.
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(s)
	if _, ok := confidenceRank[c]; !ok && s != "" {
		return "", fmt.Errorf("unknown confidence %q", s)
	}

	return c, nil
}

// Result is a geocoding result from any provider.
type Result struct {
	Point       spatial.Point `json:"point"`
	Confidence  Confidence    `json:"confidence"`
	Provider    string        `json:"provider"`
	DisplayName string        `json:"display_name"`
}

// Geocoder resolves free-form addresses. region biases the search, e.g. a
// country name or code.
type Geocoder interface {
	Geocode(ctx context.Context, address, region string) (*Result, error)
}

// GeocoderFunc adapts a function to Geocoder.
type GeocoderFunc func(ctx context.Context, address, region string) (*Result, error)

// Geocode implements Geocoder.
func (fn GeocoderFunc) Geocode(ctx context.Context, address, region string) (*Result, error) {
	return fn(ctx, address, region)
}
