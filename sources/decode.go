// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mapaudit/mapaudit/features"
	"github.com/mapaudit/mapaudit/spatial"
	"github.com/mapaudit/mapaudit/utils/htmlutils"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/net/html"
)

// ErrNoPayload is returned when the document doesn't contain the expected
// data.
var ErrNoPayload = errors.New("no payload found")

// Decode turns a source document into places, in document order.
func Decode(ref *Reference, doc []byte) ([]*Place, error) {
	switch ref.Format {
	case FormatJSON:
		return decodeJSON(ref, doc)
	case FormatGeoJSON:
		return decodeGeoJSON(ref, doc)
	case FormatHTML:
		return decodeHTML(ref, doc)
	}

	return nil, fmt.Errorf("unknown format %q", ref.Format)
}

func payload(ref *Reference, doc []byte) (string, error) {
	if ref.Pattern == "" {
		return htmlutils.UnwrapJSON(string(doc)), nil
	}

	re, err := regexp.Compile(ref.Pattern)
	if err != nil {
		return "", err
	}

	m := re.FindSubmatch(doc)
	if m == nil {
		return "", fmt.Errorf("%w: pattern %s didn't match", ErrNoPayload, ref.Pattern)
	}

	return string(m[1]), nil
}

func unmarshal(s string, v any) error {
	d := json.NewDecoder(strings.NewReader(s))
	d.UseNumber()

	return d.Decode(v)
}

func decodeJSON(ref *Reference, doc []byte) ([]*Place, error) {
	text, err := payload(ref, doc)
	if err != nil {
		return nil, err
	}

	var root any
	if err := unmarshal(text, &root); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	if ref.Root != "" {
		obj, ok := root.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected an object with %q", ErrNoPayload, ref.Root)
		}

		root, ok = obj[ref.Root]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrNoPayload, ref.Root)
		}

		// some endpoints serialise the list twice
		if s, ok := root.(string); ok {
			if err := unmarshal(s, &root); err != nil {
				return nil, fmt.Errorf("decoding %q: %w", ref.Root, err)
			}
		}
	}

	records, ok := root.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an array of records", ErrNoPayload)
	}

	fields := ref.Fields.withDefaults()
	ret := make([]*Place, 0, len(records))

	for i, r := range records {
		record, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record #%d: expected an object", i)
		}

		p, err := fromRecord(ref, fields, record)
		if err != nil {
			return nil, fmt.Errorf("record #%d: %w", i, err)
		}

		p.Location, err = coordinates(record[fields.Lat], record[fields.Lng])
		if err != nil {
			return nil, fmt.Errorf("record #%d (%s): %w", i, p.Label(), err)
		}

		ret = append(ret, p)
	}

	return ret, nil
}

// fromRecord maps the identity fields of a record. Unmapped scalar values
// end up in Props.
func fromRecord(ref *Reference, fields Fields, record map[string]any) (*Place, error) {
	p := &Place{Props: make(map[string]string)}

	for k, v := range record {
		s, ok := scalar(v)
		if !ok {
			continue
		}

		switch k {
		case fields.ID:
			p.ID = s
		case fields.Name:
			p.Name = strings.TrimSpace(s)
		case fields.Address:
			p.Address = strings.TrimSpace(s)
		case fields.Kind:
			p.Kind = s
		case fields.Lat, fields.Lng:
		default:
			p.Props[k] = s
		}
	}

	if len(ref.Kinds) > 0 && p.Kind != "" {
		name, ok := ref.Kinds[p.Kind]
		if !ok {
			return nil, fmt.Errorf("unexpected kind %q", p.Kind)
		}

		p.Kind = name
	}

	return p, nil
}

func scalar(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}

	return "", false
}

func number(v any) (float64, error) {
	s, ok := scalar(v)
	if !ok {
		return 0, fmt.Errorf("not a number: %v", v)
	}

	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func coordinates(lat, lng any) (*spatial.Point, error) {
	// a listing without coordinates is geocoded later
	if isBlank(lat) && isBlank(lng) {
		return nil, nil
	}

	y, err := number(lat)
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}

	x, err := number(lng)
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}

	if err := spatial.ValidateCoordinates(y, x); err != nil {
		return nil, err
	}

	return &spatial.Point{Lat: y, Lng: x}, nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}

	s, ok := v.(string)

	return ok && strings.TrimSpace(s) == ""
}

type geoJSONFeature struct {
	ID         any             `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

func decodeGeoJSON(ref *Reference, doc []byte) ([]*Place, error) {
	var fc struct {
		Type     string           `json:"type"`
		Features []geoJSONFeature `json:"features"`
	}

	d := json.NewDecoder(bytes.NewReader(doc))
	d.UseNumber()

	if err := d.Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding GeoJSON: %w", err)
	}

	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: expected a FeatureCollection, got %q", ErrNoPayload, fc.Type)
	}

	fields := ref.Fields.withDefaults()
	ret := make([]*Place, 0, len(fc.Features))

	for i, gf := range fc.Features {
		p, err := fromRecord(ref, fields, gf.Properties)
		if err != nil {
			return nil, fmt.Errorf("feature #%d: %w", i, err)
		}

		if id, ok := scalar(gf.ID); ok && p.ID == "" {
			p.ID = id
		}

		if len(gf.Geometry) > 0 && string(gf.Geometry) != "null" {
			var g geom.T
			if err := geojson.Unmarshal(gf.Geometry, &g); err != nil {
				return nil, fmt.Errorf("feature #%d: decoding geometry: %w", i, err)
			}

			pt, err := features.Representative(g)
			if err != nil {
				return nil, fmt.Errorf("feature #%d: %w", i, err)
			}

			p.Location = &pt
		}

		ret = append(ret, p)
	}

	return ret, nil
}

// decodeHTML reads elements annotated with data-* attributes, e.g.
// <li data-lat="56.9" data-lng="24.1" data-name="Tap 1">...</li>. Without a
// data-name the element text is the name.
func decodeHTML(ref *Reference, doc []byte) ([]*Place, error) {
	n, err := htmlutils.AsNode(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}

	fields := ref.Fields.withDefaults()

	var (
		ret  []*Place
		errs []error
	)

	htmlutils.Walk(n, func(e *html.Node) bool {
		lat, okLat := htmlutils.Attr(e, "data-"+fields.Lat)
		lng, okLng := htmlutils.Attr(e, "data-"+fields.Lng)

		if !okLat && !okLng {
			return true
		}

		record := make(map[string]any)

		for _, a := range e.Attr {
			if key, ok := strings.CutPrefix(a.Key, "data-"); ok {
				record[key] = a.Val
			}
		}

		p, err := fromRecord(ref, fields, record)
		if err != nil {
			errs = append(errs, err)

			return false
		}

		if p.Name == "" {
			p.Name = htmlutils.TextOf(e)
		}

		if p.ID == "" {
			p.ID, _ = htmlutils.Attr(e, "id")
		}

		p.Location, err = coordinates(lat, lng)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Label(), err))
		}

		ret = append(ret, p)

		return false
	})

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if len(ret) == 0 {
		return nil, fmt.Errorf("%w: no element carries data-%s/data-%s", ErrNoPayload, fields.Lat, fields.Lng)
	}

	return ret, nil
}
