// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mapaudit/mapaudit/spatial"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ErrEmptyGeometry is returned for features without coordinates.
var ErrEmptyGeometry = errors.New("empty geometry")

type geoJSONFeature struct {
	ID         json.RawMessage `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// LoadGeoJSON reads a FeatureCollection as exported by overpass-turbo or
// osmium. Element identity comes from the "@id" property, the feature id, or
// the "osm_type"/"osm_id" properties. Non-point geometries are reduced to the
// average of their coordinates. Properties become tags; "@" prefixed
// metadata is dropped.
func LoadGeoJSON(r io.Reader) ([]*Feature, error) {
	var fc geoJSONCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding GeoJSON: %w", err)
	}

	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected a FeatureCollection, got %q", fc.Type)
	}

	ret := make([]*Feature, 0, len(fc.Features))

	for i, gf := range fc.Features {
		f, err := decodeFeature(gf)
		if err != nil {
			return nil, fmt.Errorf("feature #%d: %w", i, err)
		}

		ret = append(ret, f)
	}

	return ret, nil
}

func decodeFeature(gf geoJSONFeature) (*Feature, error) {
	t, id, err := featureIdentity(gf)
	if err != nil {
		return nil, err
	}

	var g geom.T
	if err := geojson.Unmarshal(gf.Geometry, &g); err != nil {
		return nil, fmt.Errorf("%s/%d: decoding geometry: %w", t, id, err)
	}

	p, err := Representative(g)
	if err != nil {
		return nil, fmt.Errorf("%s/%d: %w", t, id, err)
	}

	tags := make(map[string]string, len(gf.Properties))

	for k, v := range gf.Properties {
		if strings.HasPrefix(k, "@") || k == "osm_type" || k == "osm_id" {
			continue
		}

		tags[k] = stringify(v)
	}

	return &Feature{Type: t, OSMID: id, Location: p, Tags: tags}, nil
}

func featureIdentity(gf geoJSONFeature) (Type, int64, error) {
	if v, ok := gf.Properties["@id"].(string); ok {
		return ParseID(v)
	}

	if len(gf.ID) > 0 && string(gf.ID) != "null" {
		var s string
		if err := json.Unmarshal(gf.ID, &s); err == nil {
			return ParseID(s)
		}
	}

	if t, ok := gf.Properties["osm_type"].(string); ok {
		return ParseID(t + "/" + stringify(gf.Properties["osm_id"]))
	}

	return "", 0, fmt.Errorf("%w: feature has no element identity", ErrInvalidID)
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(data)
	}
}

// Representative reduces a geometry to a single point: the average of all of
// its coordinates. Closed rings count their repeated vertex twice, like the
// node list of a closed way.
func Representative(g geom.T) (spatial.Point, error) {
	var sumX, sumY float64

	n := 0

	var walk func(g geom.T)
	walk = func(g geom.T) {
		if gc, ok := g.(*geom.GeometryCollection); ok {
			for _, child := range gc.Geoms() {
				walk(child)
			}

			return
		}

		stride := g.Stride()
		flat := g.FlatCoords()

		for i := 0; i+1 < len(flat); i += stride {
			sumX += flat[i]
			sumY += flat[i+1]
			n++
		}
	}

	if g == nil {
		return spatial.Point{}, ErrEmptyGeometry
	}

	walk(g)

	if n == 0 {
		return spatial.Point{}, ErrEmptyGeometry
	}

	p := spatial.Point{Lat: sumY / float64(n), Lng: sumX / float64(n)}
	if err := p.Valid(); err != nil {
		return spatial.Point{}, err
	}

	return p, nil
}
