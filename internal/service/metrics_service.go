package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	solveDuration     *prometheus.HistogramVec
	runsTotal         *prometheus.CounterVec
	placementsApplied prometheus.Counter
	referenceGaps     prometheus.Counter
}

// NewMetricsService registers the HTTP, cache and autoscheduler collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autoscheduler_solve_duration_seconds",
		Help:    "Duration of autoscheduler searches",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"objective", "outcome"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoscheduler_runs_total",
		Help: "Autoscheduler operations by outcome",
	}, []string{"operation", "outcome"})

	placementsApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoscheduler_placements_applied_total",
		Help: "Event placements created by applied schedules",
	})

	referenceGaps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoscheduler_reference_gaps_total",
		Help: "Persisted placements that could not be mapped onto a slot",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		solveDuration, runsTotal, placementsApplied, referenceGaps, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		solveDuration:     solveDuration,
		runsTotal:         runsTotal,
		placementsApplied: placementsApplied,
		referenceGaps:     referenceGaps,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveSolve records one solver run.
func (m *MetricsService) ObserveSolve(objective, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.solveDuration.WithLabelValues(objective, outcome).Observe(duration.Seconds())
}

// RecordRun counts an autoscheduler operation.
func (m *MetricsService) RecordRun(operation, outcome string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(operation, outcome).Inc()
}

// AddPlacementsApplied counts placements written by an apply.
func (m *MetricsService) AddPlacementsApplied(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.placementsApplied.Add(float64(n))
}

// AddReferenceGaps counts placements skipped while rebuilding the current schedule.
func (m *MetricsService) AddReferenceGaps(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.referenceGaps.Add(float64(n))
}
