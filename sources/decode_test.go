// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mapaudit/mapaudit/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(lat, lng float64) *spatial.Point {
	return &spatial.Point{Lat: lat, Lng: lng}
}

func TestDecodeLatviaPost(t *testing.T) {
	ref, err := Find("latvijas pasts")
	require.NoError(t, err)

	// the endpoint answers with the array serialised inside a string, and a
	// browser download wraps it in a page
	doc := `<html><head></head><body><pre>{"all":"[{\"tmpLat\":57.077432765182,\"tmpLong\":24.323845390354,\"tmpName\":\"\\u0100da\\u017eu pasta noda\\u013ca\",\"tmpAddress\":\"Gaujas iela 11, \\u0100da\\u017ei\",\"tmpCategory\":1,\"tmpService\":\"LV-2164\",\"tmpPhone\":\"67008001\",\"tmpImage\":null},{\"tmpLat\":\"56.95\",\"tmpLong\":\"24.1\",\"tmpName\":\"Kaste\",\"tmpCategory\":4,\"tmpService\":\"LV-1001\"}]","count":2}</pre></body></html>`

	got, err := Decode(ref, []byte(doc))
	require.NoError(t, err)

	want := []*Place{
		{
			ID:       "LV-2164",
			Name:     "Ādažu pasta nodaļa",
			Address:  "Gaujas iela 11, Ādaži",
			Kind:     "office",
			Location: pt(57.077432765182, 24.323845390354),
			Props:    map[string]string{"tmpPhone": "67008001"},
		},
		{
			ID:       "LV-1001",
			Name:     "Kaste",
			Kind:     "post_box",
			Location: pt(56.95, 24.1),
			Props:    map[string]string{},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePattern(t *testing.T) {
	ref, err := Find("rimi")
	require.NoError(t, err)

	doc := `<script>var x = 1; APP.shops.list = [{"id":159426,"full_name":"Rimi Galerija centrs","address_line_1":"audeju iela 16","longitude":"24.11271384","latitude":"56.94801025","display":"„Rimi Galerija centrs“, Audēju iela 16, Rīga"}]; APP.other = {};</script>`

	got, err := Decode(ref, []byte(doc))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "159426", got[0].ID)
	assert.Equal(t, "„Rimi Galerija centrs“, Audēju iela 16, Rīga", got[0].Name)
	assert.Equal(t, "audeju iela 16", got[0].Address)
	assert.Equal(t, pt(56.94801025, 24.11271384), got[0].Location)
	assert.Equal(t, "Rimi Galerija centrs", got[0].Props["full_name"])

	_, err = Decode(ref, []byte(`<html>nothing here</html>`))
	require.ErrorIs(t, err, ErrNoPayload)
}

func TestDecodeJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		ref  Reference
		doc  string
		want string
	}{
		{"not json", Reference{Format: FormatJSON}, `{`, "decoding JSON"},
		{"not an array", Reference{Format: FormatJSON}, `{"a": 1}`, "expected an array"},
		{"missing root", Reference{Format: FormatJSON, Root: "items"}, `{"a": []}`, `missing "items"`},
		{"root not object", Reference{Format: FormatJSON, Root: "items"}, `[]`, "expected an object"},
		{"record not object", Reference{Format: FormatJSON}, `[1]`, "record #0"},
		{"bad latitude", Reference{Format: FormatJSON}, `[{"name": "x", "lat": "north", "lng": 1}]`, "latitude"},
		{"missing longitude", Reference{Format: FormatJSON}, `[{"name": "x", "lat": 1}]`, "longitude"},
		{"out of range", Reference{Format: FormatJSON}, `[{"name": "x", "lat": 91, "lng": 1}]`, "`x`"},
		{"unknown kind", Reference{Format: FormatJSON, Kinds: map[string]string{"1": "a"}}, `[{"kind": 3}]`, `unexpected kind "3"`},
		{"unknown format", Reference{Format: "csv"}, `[]`, "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(&tt.ref, []byte(tt.doc))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDecodeUnlocated(t *testing.T) {
	ref := &Reference{Format: FormatJSON}

	got, err := Decode(ref, []byte(`[{"name": "Somewhere", "address": "Brivibas iela 1", "lat": "", "lng": null}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Located())
	assert.Equal(t, "Brivibas iela 1", got[0].Address)
}

func TestDecodeGeoJSON(t *testing.T) {
	ref := &Reference{Format: FormatGeoJSON, Fields: Fields{Name: "title"}}

	doc := `{"type": "FeatureCollection", "features": [
		{"type": "Feature", "id": 7, "properties": {"title": "Tap", "seasonal": "yes"}, "geometry": {"type": "Point", "coordinates": [24.1, 56.9]}},
		{"type": "Feature", "properties": {"id": "p2", "title": "Park"}, "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [2, 0], [2, 2], [0, 0]]]}},
		{"type": "Feature", "properties": {"title": "Nowhere"}, "geometry": null}
	]}`

	got, err := Decode(ref, []byte(doc))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "7", got[0].ID)
	assert.Equal(t, "Tap", got[0].Name)
	assert.Equal(t, map[string]string{"seasonal": "yes"}, got[0].Props)
	assert.Equal(t, pt(56.9, 24.1), got[0].Location)

	assert.Equal(t, "p2", got[1].ID)
	assert.InDelta(t, 0.5, got[1].Location.Lat, 1e-9)
	assert.InDelta(t, 1, got[1].Location.Lng, 1e-9)

	assert.False(t, got[2].Located())

	_, err = Decode(ref, []byte(`{"type": "Feature"}`))
	require.ErrorIs(t, err, ErrNoPayload)
}

func TestDecodeHTML(t *testing.T) {
	ref := &Reference{Format: FormatHTML}

	doc := `<html><body><ul>
		<li id="t1" data-lat="56.9" data-lng="24.1" data-kind="static">Tap <b>one</b></li>
		<li data-lat="56.8" data-lng="24.2" data-name="Tap two" data-address="Street 2"><span data-lat="0" data-lng="0">nested</span></li>
		<li>no coordinates</li>
	</ul></body></html>`

	got, err := Decode(ref, []byte(doc))
	require.NoError(t, err)

	want := []*Place{
		{ID: "t1", Name: "Tap one", Kind: "static", Location: pt(56.9, 24.1), Props: map[string]string{}},
		{Name: "Tap two", Address: "Street 2", Location: pt(56.8, 24.2), Props: map[string]string{}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}

	_, err = Decode(ref, []byte(`<p>empty</p>`))
	require.ErrorIs(t, err, ErrNoPayload)

	_, err = Decode(ref, []byte(`<p data-lat="x" data-lng="1">bad</p>`))
	require.ErrorContains(t, err, "latitude")
}

func TestPlaceLabel(t *testing.T) {
	tests := []struct {
		place Place
		want  string
	}{
		{Place{Name: "Tap"}, "`Tap`"},
		{Place{Name: "Tap", Address: "Street 1"}, "`Tap (Street 1)`"},
		{Place{ID: "LV-1"}, "`LV-1`"},
		{Place{Address: "Street 1"}, "`Street 1`"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.place.Label())
	}

	p := Place{ID: "1", Name: "n", Address: "a", Kind: "k", Props: map[string]string{"x": "y"}}
	assert.Equal(t, []string{"1", "n", "a", "k", "y", ""},
		[]string{p.Field("id"), p.Field("name"), p.Field("address"), p.Field("kind"), p.Field("x"), p.Field("z")})
	assert.Equal(t, spatial.Point{}, p.Point())
}
