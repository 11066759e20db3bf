// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/marketlens/config.yaml",
	"/etc/marketlens/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:               "https://statistics-api.wildberries.ru",
			OrdersPath:            "/api/v1/supplier/orders",
			RetryHintHeader:       "X-Ratelimit-Retry",
			MaxRetries:            5,
			Timeout:               60 * time.Second,
			BearerBaseDelay:       time.Second,
			BearerMaxDelay:        32 * time.Second,
			RawBaseDelay:          2 * time.Second,
			RawMaxDelay:           60 * time.Second,
			NetworkMaxDelay:       8 * time.Second,
			MaxRetryHint:          2 * time.Minute,
			RequestsPerMinute:     60,
			CircuitBreakerEnabled: true,
		},
		Sync: SyncConfig{
			PageDelay:    500 * time.Millisecond,
			MaxPages:     2000,
			WarmDays:     180,
			MaxRangeDays: 1096,
			FreshnessTTL: 24 * time.Hour,
			Timezone:     "UTC",
		},
		Store: StoreConfig{
			Path:             "/data/marketlens",
			SyncWrites:       false,
			MaxDocumentBytes: 256 << 20, // 256MB
			GCInterval:       10 * time.Minute,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Minute, // foreground sync blocks for the whole fetch
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// UPSTREAM_BASE_URL -> upstream.base_url
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none is found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	"upstream_base_url":            "upstream.base_url",
	"upstream_orders_path":         "upstream.orders_path",
	"upstream_retry_hint_header":   "upstream.retry_hint_header",
	"upstream_max_retries":         "upstream.max_retries",
	"upstream_timeout":             "upstream.timeout",
	"upstream_bearer_base_delay":   "upstream.bearer_base_delay",
	"upstream_bearer_max_delay":    "upstream.bearer_max_delay",
	"upstream_raw_base_delay":      "upstream.raw_base_delay",
	"upstream_raw_max_delay":       "upstream.raw_max_delay",
	"upstream_network_max_delay":   "upstream.network_max_delay",
	"upstream_max_retry_hint":      "upstream.max_retry_hint",
	"upstream_requests_per_minute": "upstream.requests_per_minute",
	"upstream_circuit_breaker":     "upstream.circuit_breaker_enabled",
	"sync_page_delay":              "sync.page_delay",
	"sync_max_pages":               "sync.max_pages",
	"warm_days":                    "sync.warm_days",
	"sync_max_range_days":          "sync.max_range_days",
	"cache_freshness_ttl":          "sync.freshness_ttl",
	"sync_timezone":                "sync.timezone",
	"store_path":                   "store.path",
	"store_sync_writes":            "store.sync_writes",
	"store_max_document_bytes":     "store.max_document_bytes",
	"store_gc_interval":            "store.gc_interval",
	"http_host":                    "server.host",
	"http_port":                    "server.port",
	"http_read_timeout":            "server.read_timeout",
	"http_write_timeout":           "server.write_timeout",
	"http_shutdown_timeout":        "server.shutdown_timeout",
	"cors_origins":                 "server.cors_origins",
	"rate_limit_requests":          "server.rate_limit_requests",
	"rate_limit_window":            "server.rate_limit_window",
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
	"log_level":                    "logging.level",
	"log_format":                   "logging.format",
	"log_caller":                   "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - UPSTREAM_BASE_URL -> upstream.base_url
//   - WARM_DAYS -> sync.warm_days
//   - STORE_PATH -> store.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables never leak into config.
	return ""
}
