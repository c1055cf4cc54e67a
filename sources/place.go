// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

// Package sources turns third-party listings (store locators, open data
// portals, operator websites) into places that can be audited against the
// map.
package sources

import (
	"github.com/mapaudit/mapaudit/correlate"
	"github.com/mapaudit/mapaudit/spatial"
)

// Place is one entry of a third-party listing.
type Place struct {
	ID       string            `json:"id,omitempty"`
	Name     string            `json:"name"`
	Address  string            `json:"address,omitempty"`
	Kind     string            `json:"kind,omitempty"`
	Location *spatial.Point    `json:"point,omitempty"`
	Props    map[string]string `json:"props,omitempty"`
}

var _ correlate.Item = (*Place)(nil)

// Point returns the place coordinate, the zero point when unlocated.
func (p *Place) Point() spatial.Point {
	if p.Location == nil {
		return spatial.Point{}
	}

	return *p.Location
}

// Located reports whether the place has coordinates.
func (p *Place) Located() bool {
	return p.Location != nil
}

// Label is the human readable description used in reports.
func (p *Place) Label() string {
	label := p.Name
	if label == "" {
		label = p.ID
	}

	switch {
	case label == "":
		label = p.Address
	case p.Address != "" && p.Address != label:
		label += " (" + p.Address + ")"
	}

	return "`" + label + "`"
}

// Field returns a named attribute: id, name, address, kind or any extra
// field.
func (p *Place) Field(key string) string {
	switch key {
	case "id":
		return p.ID
	case "name":
		return p.Name
	case "address":
		return p.Address
	case "kind":
		return p.Kind
	}

	return p.Props[key]
}
