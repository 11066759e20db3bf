// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

/*
Package middleware provides HTTP middleware components for the API.

All middleware uses the chi signature func(http.Handler) http.Handler and is
installed on the router with r.Use.

Key Components:

  - RequestID: UUID request IDs, propagated to the logging context
  - AccessLog: one structured zerolog line per request
  - PrometheusMetrics: request count and latency labeled by chi route pattern

Middleware Stack:

	r.Use(middleware.RequestID)         // Layer 1: request tracking
	r.Use(chimiddleware.RealIP)         // Layer 2: client address
	r.Use(middleware.AccessLog)         // Layer 3: access log
	r.Use(chimiddleware.Recoverer)      // Layer 4: panic recovery
	r.Use(middleware.PrometheusMetrics) // Layer 5: metrics

Route labels come from chi's RoutePattern, so /api/v1/orders is recorded once
regardless of query string. Requests that match no route are labeled
"unmatched".

Thread Safety:

All middleware components are stateless apart from Prometheus collectors,
which use atomic operations.

See Also:

  - internal/api: router and handlers wrapped by this middleware
  - internal/metrics: Prometheus metrics definitions
  - internal/logging: request and correlation ID context helpers
*/
package middleware
