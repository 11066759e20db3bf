// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/marketlens/internal/metrics"
)

func TestPrometheusMetrics(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/v1/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/api/v1/quiet", func(http.ResponseWriter, *http.Request) {})

	tests := []struct {
		name   string
		paths  []string
		route  string
		status string
	}{
		{"labels by route pattern", []string{"/api/v1/things/1", "/api/v1/things/2"}, "/api/v1/things/{id}", "418"},
		{"implicit 200", []string{"/api/v1/quiet"}, "/api/v1/quiet", "200"},
		{"unmatched route", []string{"/nope"}, "unmatched", "404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, tt.route, tt.status)
			before := testutil.ToFloat64(counter)

			for _, path := range tt.paths {
				r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
			}

			if got := testutil.ToFloat64(counter) - before; got != float64(len(tt.paths)) {
				t.Errorf("api_requests_total{route=%q,status=%q} grew by %v, want %d", tt.route, tt.status, got, len(tt.paths))
			}
		})
	}
}
