// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package correlate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrengthOrder(t *testing.T) {
	assert.Less(t, Unmatched, Weak)
	assert.Less(t, Weak, Mediocre)
	assert.Less(t, Mediocre, Strong)
}

func TestParseStrength(t *testing.T) {
	tests := []struct {
		in      string
		want    Strength
		wantErr bool
	}{
		{in: "unmatched", want: Unmatched},
		{in: "Weak", want: Weak},
		{in: " mediocre ", want: Mediocre},
		{in: "STRONG", want: Strong},
		{in: "perfect", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrength(tt.in)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrengthJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Strength{"grade": Mediocre})
	require.NoError(t, err)
	assert.JSONEq(t, `{"grade":"mediocre"}`, string(data))

	var s Strength
	require.NoError(t, json.Unmarshal([]byte(`"strong"`), &s))
	assert.Equal(t, Strong, s)

	assert.Error(t, json.Unmarshal([]byte(`"meh"`), &s))

	_, err = json.Marshal(Strength(7))
	assert.Error(t, err)
	assert.Equal(t, "strength(7)", Strength(7).String())
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("matched_maybe")
	assert.Error(t, err)
}
