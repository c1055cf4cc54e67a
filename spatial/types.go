// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial provides the geographic primitives shared by map features
// and external items: coordinates, great-circle distance and a radius index.
package spatial

import (
	"fmt"
	"math"
)

const earthRadius = 6371e3 // meters

// Point represents a geographical point with latitude and longitude in
// decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns the WKT representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Valid reports whether the point lies within the global coordinate bounds.
func (p Point) Valid() error {
	return ValidateCoordinates(p.Lat, p.Lng)
}

// DistanceTo returns the great-circle distance to q in meters.
func (p Point) DistanceTo(q Point) float64 {
	return Distance(p, q)
}

// Distance calculates the haversine distance between two points on Earth in
// meters. It is symmetric, never negative and zero for identical points.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	// rounding can push h slightly outside [0, 1] for antipodal points
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadius * c
}

// Offset returns the point reached by moving north and east by the given
// number of meters. Intended for short distances.
func (p Point) Offset(northMeters, eastMeters float64) Point {
	dLat := northMeters / earthRadius * 180 / math.Pi
	dLng := eastMeters / (earthRadius * math.Cos(p.Lat*math.Pi/180)) * 180 / math.Pi

	return Point{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// ValidateCoordinates checks latitude and longitude against global bounds.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates must be numbers (received: %f, %f)", lat, lng)
	}

	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (received: %f)", lat)
	}

	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (received: %f)", lng)
	}

	return nil
}
