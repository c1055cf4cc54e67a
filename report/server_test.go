// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServerTest(t *testing.T) (*gin.Engine, *Report) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := New("post-boxes", "Checks the mail boxes.")
	res := sampleResult()
	Correlation(r, res, CorrelationOptions{SearchRadius: 75})

	m := NewMetrics()
	Observe(m, r.Analysis, res)

	return NewServer(NewStore(r), m).Router(), r
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w
}

func TestHealthAPI(t *testing.T) {
	router, _ := setupServerTest(t)

	w := get(router, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListReportsAPI(t *testing.T) {
	router, r := setupServerTest(t)

	w := get(router, "/api/reports")
	require.Equal(t, http.StatusOK, w.Code)

	var summaries []Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, r.ID, summaries[0].ID)
	assert.Equal(t, "post-boxes", summaries[0].Analysis)
	assert.Equal(t, 5, summaries[0].Issues)
	assert.Equal(t, 3, summaries[0].Counts["unmatched_item"])
}

func TestGetReportAPI(t *testing.T) {
	router, r := setupServerTest(t)

	for _, key := range []string{r.ID.String(), "post-boxes"} {
		w := get(router, "/api/reports/"+key)
		require.Equal(t, http.StatusOK, w.Code)

		var got Report
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, r.ID, got.ID)
		assert.Len(t, got.Groups, 2)
	}

	w := get(router, "/api/reports/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetGroupAPI(t *testing.T) {
	router, r := setupServerTest(t)

	w := get(router, "/api/reports/"+r.ID.String()+"/groups/"+GroupUnmatched)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		ID      string  `json:"id"`
		Entries []Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, GroupUnmatched, got.ID)
	require.Len(t, got.Entries, 5)
	assert.Equal(t, SortNoItem, got.Entries[0].Sort)

	w = get(router, "/api/reports/"+r.ID.String()+"/groups/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsAPI(t *testing.T) {
	router, _ := setupServerTest(t)

	w := get(router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mapaudit_last_run_timestamp_seconds")
}
