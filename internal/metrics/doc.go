// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

/*
Package metrics provides Prometheus instrumentation for Marketlens.

Collectors are registered on the default registry through promauto and exposed
by the API router at /metrics.

# Metric Families

Upstream:
  - upstream_requests_total{endpoint,status}
  - upstream_request_duration_seconds{endpoint}
  - upstream_retries_total{reason}
  - upstream_credential_fallbacks_total
  - upstream_throttle_wait_seconds
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name,result}

Sync:
  - paginator_pages_total, paginator_stops_total{reason}
  - normalizer_skipped_records_total{reason}
  - sync_duration_seconds, sync_days_total{source}, sync_operations_total{result}

Store:
  - store_operations_total{operation,result}
  - store_transaction_conflicts_total, store_lost_updates_total
  - store_corrupt_documents_total

Warm-up and API:
  - warm_tasks_total{result}, warm_tasks_running
  - api_requests_total{method,route,status_code}, api_request_duration_seconds

Useful queries:

	# share of days served from cache
	sum(rate(sync_days_total{source="cache"}[1h])) / sum(rate(sync_days_total[1h]))

	# upstream throttling pressure
	rate(upstream_retries_total{reason="rate_limited"}[5m])
*/
package metrics
