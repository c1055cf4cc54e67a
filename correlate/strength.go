// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package correlate

import (
	"fmt"
	"strings"
)

// Strength grades how confident a pairing between an item and a feature is.
// Values are ordered: Unmatched < Weak < Mediocre < Strong.
type Strength int

const (
	// Unmatched means the feature cannot be the item's counterpart.
	Unmatched Strength = iota
	// Weak is the grade of any candidate in range when nothing better is known.
	Weak
	// Mediocre is a partial match, e.g. on a name fragment.
	Mediocre
	// Strong is a confident match, e.g. an exact address.
	Strong
)

var strengthNames = []string{"unmatched", "weak", "mediocre", "strong"}

func (s Strength) String() string {
	if s < Unmatched || s > Strong {
		return fmt.Sprintf("strength(%d)", int(s))
	}

	return strengthNames[s]
}

// Valid reports whether s is one of the declared grades.
func (s Strength) Valid() bool {
	return s >= Unmatched && s <= Strong
}

// MarshalText implements encoding.TextMarshaler.
func (s Strength) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid strength %d", int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strength) UnmarshalText(text []byte) error {
	v, err := ParseStrength(string(text))
	if err != nil {
		return err
	}

	*s = v

	return nil
}

// ParseStrength parses a grade name, case-insensitively.
func ParseStrength(name string) (Strength, error) {
	name = strings.TrimSpace(name)
	for i, n := range strengthNames {
		if strings.EqualFold(n, name) {
			return Strength(i), nil
		}
	}

	return Unmatched, fmt.Errorf("unknown match strength %q", name)
}
