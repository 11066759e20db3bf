// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream order feed metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of HTTP attempts against the upstream order feed",
		},
		[]string{"endpoint", "status"}, // status: HTTP code or "network"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of single upstream HTTP attempts in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Total number of upstream retries by reason",
		},
		[]string{"reason"}, // "rate_limited", "server_error", "network"
	)

	UpstreamCredentialFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_credential_fallbacks_total",
			Help: "Times a 401/403 caused a switch to the alternate credential form",
		},
	)

	ThrottleWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upstream_throttle_wait_seconds",
			Help:    "Time spent waiting on the process-wide upstream throttle",
			Buckets: []float64{0, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Pagination and normalization
	PaginatorPages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paginator_pages_total",
			Help: "Total number of order feed pages fetched",
		},
	)

	PaginatorStops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paginator_stops_total",
			Help: "Paginate calls by stop reason",
		},
		[]string{"reason"}, // "empty_page", "horizon", "page_ceiling", "stuck_cursor"
	)

	NormalizerSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "normalizer_skipped_records_total",
			Help: "Raw records dropped by the normalizer",
		},
		[]string{"reason"}, // "invalid", "out_of_window", "duplicate"
	)

	// Sync orchestrator
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync calls in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	SyncDays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_days_total",
			Help: "Days returned by sync calls by source",
		},
		[]string{"source"}, // "cache", "fetched"
	)

	SyncOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_operations_total",
			Help: "Sync calls by outcome",
		},
		[]string{"result"}, // "success", "error"
	)

	// Day bucket store
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Bucket store operations by type and result",
		},
		[]string{"operation", "result"},
	)

	StoreConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_transaction_conflicts_total",
			Help: "BadgerDB transaction conflicts on bucket document writes",
		},
	)

	StoreLostUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_lost_updates_total",
			Help: "Buckets overwritten after a concurrent writer updated them",
		},
	)

	StoreCorruptDocuments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_corrupt_documents_total",
			Help: "Persisted documents that could not be decoded",
		},
	)

	StoreGCRewrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_gc_rewrites_total",
			Help: "Value log files rewritten by garbage collection",
		},
	)

	// Warm-up tasks
	WarmTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warm_tasks_total",
			Help: "Warm-up tasks by outcome",
		},
		[]string{"result"}, // "success", "error", "rejected"
	)

	WarmTasksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warm_tasks_running",
			Help: "Number of warm-up tasks currently running",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
		[]string{"method", "route"},
	)
)

// RecordUpstreamAttempt records one HTTP attempt. status is 0 for network failures.
func RecordUpstreamAttempt(endpoint string, status int, duration time.Duration) {
	label := "network"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequests.WithLabelValues(endpoint, label).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSyncOperation records a finished sync call.
func RecordSyncOperation(duration time.Duration, daysFromCache, daysFetched int, err error) {
	SyncDuration.Observe(duration.Seconds())
	if err != nil {
		SyncOperations.WithLabelValues("error").Inc()
		return
	}
	SyncOperations.WithLabelValues("success").Inc()
	SyncDays.WithLabelValues("cache").Add(float64(daysFromCache))
	SyncDays.WithLabelValues("fetched").Add(float64(daysFetched))
}

// RecordStoreOperation records a bucket store operation.
func RecordStoreOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StoreOperations.WithLabelValues(operation, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
