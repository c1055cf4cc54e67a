// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overpassExport = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "node/10",
      "properties": {"@id": "node/10", "amenity": "drinking_water", "name": "Fuente", "bottle": true},
      "geometry": {"type": "Point", "coordinates": [-56.16, -34.9]}
    },
    {
      "type": "Feature",
      "id": "way/20",
      "properties": {"amenity": "post_box", "levels": 2},
      "geometry": {"type": "LineString", "coordinates": [[-56.0, -34.0], [-56.2, -34.2]]}
    },
    {
      "type": "Feature",
      "properties": {"osm_type": "relation", "osm_id": 30, "amenity": "bench"},
      "geometry": {"type": "GeometryCollection", "geometries": [
        {"type": "Point", "coordinates": [10, 20]},
        {"type": "Point", "coordinates": [12, 22]}
      ]}
    }
  ]
}`

func TestLoadGeoJSON(t *testing.T) {
	fs, err := LoadGeoJSON(strings.NewReader(overpassExport))
	require.NoError(t, err)
	require.Len(t, fs, 3)

	assert.Equal(t, "node/10", fs[0].ID())
	assert.Equal(t, map[string]string{"amenity": "drinking_water", "name": "Fuente", "bottle": "true"}, fs[0].Tags)
	assert.InDelta(t, -34.9, fs[0].Location.Lat, 1e-9)
	assert.InDelta(t, -56.16, fs[0].Location.Lng, 1e-9)

	assert.Equal(t, "way/20", fs[1].ID())
	assert.Equal(t, "2", fs[1].Tags["levels"])
	assert.InDelta(t, -34.1, fs[1].Location.Lat, 1e-9)
	assert.InDelta(t, -56.1, fs[1].Location.Lng, 1e-9)

	assert.Equal(t, "relation/30", fs[2].ID())
	assert.Equal(t, map[string]string{"amenity": "bench"}, fs[2].Tags)
	assert.InDelta(t, 21, fs[2].Location.Lat, 1e-9)
	assert.InDelta(t, 11, fs[2].Location.Lng, 1e-9)
}

func TestLoadGeoJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"not json", `{`, "decoding GeoJSON"},
		{"not a collection", `{"type": "Feature"}`, "expected a FeatureCollection"},
		{
			"no identity",
			`{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [0, 0]}}]}`,
			"no element identity",
		},
		{
			"empty geometry",
			`{"type": "FeatureCollection", "features": [{"type": "Feature", "id": "node/1", "properties": {}, "geometry": {"type": "MultiPoint", "coordinates": []}}]}`,
			"empty geometry",
		},
		{
			"out of range",
			`{"type": "FeatureCollection", "features": [{"type": "Feature", "id": "node/1", "properties": {}, "geometry": {"type": "Point", "coordinates": [0, 95]}}]}`,
			"node/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadGeoJSON(strings.NewReader(tt.in))
			require.ErrorContains(t, err, tt.want)
		})
	}
}
