// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

/*
Package api exposes the order sync engine over HTTP.

Routes (chi, all under /api/v1 except /metrics):

	GET    /orders?date_from&date_to&force_refresh  sync and return orders
	POST   /cache/warm                              start a background warm-up (202)
	GET    /progress                                running batch progress
	GET    /cache/fresh                             warm-up freshness
	GET    /cache                                   cached day summary
	DELETE /cache                                   drop buckets and metadata
	GET    /health                                  liveness
	GET    /metrics                                 Prometheus

Every per-user route requires X-User-ID. /orders and /cache/warm also require
an Authorization header holding the seller's order feed token, with or without
a Bearer prefix.

Responses use one envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 12}}
	{"success": false, "error": {"code": "UPSTREAM_RATE_LIMITED", "message": "..."}, "meta": {...}}

Error Mapping:

  - invalid parameters: 400 VALIDATION_FAILED or BAD_REQUEST
  - missing Authorization: 401 UNAUTHORIZED
  - order feed rate limit exhausted: 429 UPSTREAM_RATE_LIMITED with Retry-After
  - other order feed failures: 502 UPSTREAM_FAILED
  - store failures: 500 STORE_ERROR

Middleware:

  - request ID and correlation ID (internal/middleware)
  - real IP and panic recovery (chi middleware)
  - structured access log and Prometheus metrics (internal/middleware)
  - CORS (go-chi/cors) and per-IP rate limiting (go-chi/httprate)
  - gzip for /orders (chi Compress)
*/
package api
