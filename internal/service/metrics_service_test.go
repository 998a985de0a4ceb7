package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceExposesAutoschedulerCollectors(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveSolve("number_of_changes", "solved", 150*time.Millisecond)
	metrics.RecordRun("apply", "ok")
	metrics.AddPlacementsApplied(3)
	metrics.AddReferenceGaps(1)
	metrics.ObserveHTTPRequest(http.MethodPost, "/api/v1/camps/:campId/autoschedule/apply", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `autoscheduler_solve_duration_seconds_count{objective="number_of_changes",outcome="solved"} 1`)
	assert.Contains(t, body, `autoscheduler_runs_total{operation="apply",outcome="ok"} 1`)
	assert.Contains(t, body, "autoscheduler_placements_applied_total 3")
	assert.Contains(t, body, "autoscheduler_reference_gaps_total 1")
	assert.Contains(t, body, "http_requests_total")
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var metrics *MetricsService
	assert.NotPanics(t, func() {
		metrics.ObserveSolve("x", "y", time.Second)
		metrics.RecordRun("apply", "ok")
		metrics.AddPlacementsApplied(1)
		metrics.RecordCacheOperation(true, time.Millisecond)
	})

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
