// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// config file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Configuration Categories:
//
//  1. Upstream: order feed URL, retry/backoff policy, process-wide throttle
//  2. Sync: pagination limits, warm-up horizon, freshness window, timezone
//  3. Store: BadgerDB location and document limits
//  4. Server: HTTP listener, CORS and per-IP rate limiting
//  5. Supervisor: suture restart policy
//  6. Logging: level and output format
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Upstream   UpstreamConfig   `koanf:"upstream"`
	Sync       SyncConfig       `koanf:"sync"`
	Store      StoreConfig      `koanf:"store"`
	Server     ServerConfig     `koanf:"server"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// UpstreamConfig holds settings for the marketplace order feed.
type UpstreamConfig struct {
	// BaseURL is the statistics API base URL (scheme and host only).
	BaseURL string `koanf:"base_url"`

	// OrdersPath is the path of the cursor-paginated orders endpoint.
	OrdersPath string `koanf:"orders_path"`

	// RetryHintHeader is the vendor-specific retry hint header.
	// It takes precedence over the standard Retry-After header.
	RetryHintHeader string `koanf:"retry_hint_header"`

	// MaxRetries is the total number of attempts per request.
	// Default: 5
	MaxRetries int `koanf:"max_retries"`

	// Timeout bounds a single HTTP call.
	// Default: 60s
	Timeout time.Duration `koanf:"timeout"`

	// Backoff profile for bearer-prefixed credentials.
	BearerBaseDelay time.Duration `koanf:"bearer_base_delay"`
	BearerMaxDelay  time.Duration `koanf:"bearer_max_delay"`

	// Backoff profile for raw token credentials.
	RawBaseDelay time.Duration `koanf:"raw_base_delay"`
	RawMaxDelay  time.Duration `koanf:"raw_max_delay"`

	// NetworkMaxDelay is the backoff ceiling for connection errors and timeouts.
	NetworkMaxDelay time.Duration `koanf:"network_max_delay"`

	// MaxRetryHint clamps upstream-supplied retry hints.
	MaxRetryHint time.Duration `koanf:"max_retry_hint"`

	// RequestsPerMinute is the process-wide ceiling shared by every user.
	// 0 disables the throttle.
	RequestsPerMinute int `koanf:"requests_per_minute"`

	// CircuitBreakerEnabled wraps upstream calls in a circuit breaker.
	CircuitBreakerEnabled bool `koanf:"circuit_breaker_enabled"`
}

// SyncConfig holds order synchronization settings.
type SyncConfig struct {
	// PageDelay is the fixed pause between page requests.
	PageDelay time.Duration `koanf:"page_delay"`

	// MaxPages is the runaway guard for a single paginate call.
	// Default: 2000
	MaxPages int `koanf:"max_pages"`

	// WarmDays is the trailing horizon covered by the warm-up task.
	// Default: 180
	WarmDays int `koanf:"warm_days"`

	// MaxRangeDays caps the days a single order request may span.
	// Must be at least WarmDays. Default: 1096
	MaxRangeDays int `koanf:"max_range_days"`

	// FreshnessTTL is the maximum age of warm-up metadata considered fresh.
	// Default: 24h
	FreshnessTTL time.Duration `koanf:"freshness_ttl"`

	// Timezone is the IANA zone used to derive calendar days.
	// Default: UTC
	Timezone string `koanf:"timezone"`
}

// StoreConfig holds BadgerDB settings for the day bucket store.
type StoreConfig struct {
	// Path is the BadgerDB directory.
	Path string `koanf:"path"`

	// SyncWrites fsyncs every write.
	SyncWrites bool `koanf:"sync_writes"`

	// MaxDocumentBytes is the largest bucket document that will be decoded.
	// Larger documents are treated as corrupt.
	MaxDocumentBytes int64 `koanf:"max_document_bytes"`

	// GCInterval is how often value log garbage collection runs. 0 disables.
	// Default: 10m
	GCInterval time.Duration `koanf:"gc_interval"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins. Comma-separated in env vars.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests per RateLimitWindow per client IP. 0 disables.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// SupervisorConfig mirrors supervisor.TreeConfig.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Location resolves the configured timezone. Validate guarantees it loads.
func (s SyncConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration using the layered Koanf loader.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
