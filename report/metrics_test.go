// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mapaudit/mapaudit/sources"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := NewMetrics()
	Observe(m, "post-boxes", sampleResult())
	Observe(m, "post-boxes", sampleResult())

	assert.InDelta(t, 2, testutil.ToFloat64(m.outcomes.WithLabelValues("post-boxes", "matched")), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(m.outcomes.WithLabelValues("post-boxes", "unmatched_item")), 0)
	assert.Positive(t, testutil.ToFloat64(m.lastRun.WithLabelValues("post-boxes")))

	// two matches per run
	assert.Equal(t, 1, testutil.CollectAndCount(m.distance))

	count, err := testutil.GatherAndCount(m.Registry(), "mapaudit_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestObserveNil(t *testing.T) {
	assert.NotPanics(t, func() {
		Observe[*sources.Place](nil, "x", sampleResult())
	})
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	Observe(m, "taps", sampleResult())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `mapaudit_outcomes_total{analysis="taps",kind="lone_feature"} 1`)
	assert.Contains(t, w.Body.String(), `mapaudit_match_distance_meters_count{analysis="taps"} 2`)
}
