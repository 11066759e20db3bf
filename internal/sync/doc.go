// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

/*
Package sync keeps a per-user, day-bucketed cache of marketplace orders in step
with the upstream statistics feed.

The upstream feed is a "changed since" stream: a request carries a dateFrom
cursor and returns orders whose last change is at or after it. Orders are
cached by the calendar day they were placed, so a sync for days D1..D2 only
has to go upstream for the days the cache cannot answer.

Key Components:

  - Client: HTTP client with a retry/backoff loop, retry hint handling,
    credential-form specific backoff profiles and circuit breaker protection
  - Throttle: process-wide request ceiling shared by every user
  - Paginator: walks the cursor feed for one window, merging pages by order id
  - Normalizer: maps raw upstream objects to models.OrderRecord
  - Orchestrator: decides which days are missing, fetches them in a single
    paginate call and writes every missing day back to the store
  - ProgressTracker: in-memory per-user progress of the running batch
  - Warmer: background warm-up of the trailing horizon, one task per user

Sync Flow:

 1. Load the user's bucket document
 2. Mark days missing: no bucket, today, or every day on force refresh
 3. Paginate once from the first to the last missing day
 4. Normalize, drop out-of-window records and deduplicate by id
 5. Write a bucket for every missing day, including days with zero orders
 6. Assemble the answer in day order from cached and fetched buckets

Usage Example:

	client := sync.NewClient(sync.ClientConfigFrom(&cfg.Upstream), sync.NewThrottle(cfg.Upstream.RequestsPerMinute))
	pager := sync.NewPaginator(client, sync.PaginatorConfigFrom(cfg))
	orch := sync.NewOrchestrator(pager, store.New(db, store.Options{}), sync.NewProgressTracker(),
	    sync.OrchestratorConfigFrom(&cfg.Sync))

	res, err := orch.SyncDays(ctx, userID, credential, "2024-01-01", "2024-01-31", false)

Fault Tolerance:

  - 429 and 5xx responses are retried with exponential backoff and jitter
  - Retry hints (vendor header first, then Retry-After) override the backoff
  - Connection errors and timeouts use a shorter backoff ceiling
  - A 401/403 switches the credential form once for the rest of the call
  - A failed fetch aborts the sync before anything is written
  - A corrupt bucket document is treated as empty and replaced on write

Thread Safety:

Client, Paginator, Orchestrator, ProgressTracker and Warmer are safe for
concurrent use. Writes for one user are serialized by the store.

Metrics:

  - upstream_requests_total, upstream_retries_total: feed traffic
  - circuit_breaker_state: breaker state per upstream
  - paginator_pages_total, paginator_stops_total: cursor walks
  - sync_days_total: days served from cache versus fetched
  - warm_tasks_total, warm_tasks_running: background warm-ups

See Also:

  - internal/store: Badger-backed bucket and metadata storage
  - internal/models: order, bucket and metadata types
  - internal/supervisor: keyed one-shot task runner used by Warmer
*/
package sync
