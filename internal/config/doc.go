// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

/*
Package config provides centralized configuration management for Marketlens.

Configuration is layered with Koanf v2:

 1. Struct defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/marketlens/config.yaml)
 3. Environment variables, mapped explicitly by envTransformFunc

Unknown environment variables are ignored.

# Sections

  - UpstreamConfig: order feed URL, retry and backoff policy, shared throttle
  - SyncConfig: page delay and ceiling, warm-up horizon, range cap, freshness TTL, timezone
  - StoreConfig: BadgerDB path and document size limit
  - ServerConfig: HTTP listener, CORS, per-IP rate limit
  - SupervisorConfig: suture restart policy
  - LoggingConfig: zerolog level and format

# Example

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	server := &http.Server{Addr: cfg.Server.Addr()}

# Example config.yaml

	upstream:
	  base_url: https://statistics-api.wildberries.ru
	  max_retries: 5
	  requests_per_minute: 60
	sync:
	  warm_days: 180
	  max_range_days: 1096
	  timezone: Europe/Moscow
	store:
	  path: /data/marketlens
*/
package config
