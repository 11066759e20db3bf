// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

/*
Package main is the entry point for the Marketlens server.

Marketlens keeps a per-seller cache of marketplace orders, bucketed by the
calendar day each order was placed, and answers date-range queries from it.
Days the cache cannot answer are fetched from the upstream statistics feed in
a single cursor walk and written back before the answer is returned.

# Application Architecture

	RootSupervisor ("marketlens")
	├── StoreSupervisor ("store-layer")
	│   └── Value log GC (optional, STORE_GC_INTERVAL > 0)
	├── SyncSupervisor ("sync-layer")
	│   └── "warm-tasks": one short-lived warm-up per user
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml and environment variables
 2. Logging: zerolog with JSON/console output modes
 3. Store: BadgerDB directory holding bucket documents and sync metadata
 4. Sync engine: throttle, backoff client, paginator, orchestrator
 5. Supervisor tree: Suture v4 process supervision
 6. HTTP server: chi router with middleware stack

# Configuration

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	UPSTREAM_BASE_URL=https://statistics-api.example.com
	UPSTREAM_REQUESTS_PER_MINUTE=60
	WARM_DAYS=180
	SYNC_MAX_RANGE_DAYS=1096
	SYNC_TIMEZONE=Europe/Moscow
	STORE_PATH=/data/marketlens
	HTTP_PORT=8080
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

On SIGINT or SIGTERM the supervisor tree stops the HTTP server (draining
in-flight requests up to HTTP_SHUTDOWN_TIMEOUT), cancels running warm-ups
and closes the store. Services that fail to stop are reported.

# See Also

  - internal/config: Configuration management
  - internal/sync: Order feed client and sync orchestrator
  - internal/store: Day bucket storage
  - internal/api: HTTP handlers and routing
  - internal/supervisor: Process supervision
*/
package main
