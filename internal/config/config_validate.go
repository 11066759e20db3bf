// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateUpstream(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateUpstream validates the order feed connection and retry policy
func (c *Config) validateUpstream() error {
	u := c.Upstream
	if u.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	if err := validateHTTPURL(u.BaseURL, "UPSTREAM_BASE_URL"); err != nil {
		return fmt.Errorf("UPSTREAM_BASE_URL is invalid: %w", err)
	}
	if !strings.HasPrefix(u.OrdersPath, "/") {
		return fmt.Errorf("UPSTREAM_ORDERS_PATH must start with '/', got: %q", u.OrdersPath)
	}
	if u.MaxRetries < 1 || u.MaxRetries > 20 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES must be between 1 and 20, got: %d", u.MaxRetries)
	}
	if u.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if err := validateBackoff("UPSTREAM_BEARER", u.BearerBaseDelay, u.BearerMaxDelay); err != nil {
		return err
	}
	if err := validateBackoff("UPSTREAM_RAW", u.RawBaseDelay, u.RawMaxDelay); err != nil {
		return err
	}
	if u.NetworkMaxDelay <= 0 {
		return fmt.Errorf("UPSTREAM_NETWORK_MAX_DELAY must be positive")
	}
	if u.RequestsPerMinute < 0 {
		return fmt.Errorf("UPSTREAM_REQUESTS_PER_MINUTE cannot be negative")
	}
	return nil
}

// validateBackoff validates one base/cap delay pair
func validateBackoff(prefix string, base, ceiling time.Duration) error {
	if base <= 0 {
		return fmt.Errorf("%s_BASE_DELAY must be positive", prefix)
	}
	if ceiling < base {
		return fmt.Errorf("%s_MAX_DELAY (%v) must be >= %s_BASE_DELAY (%v)", prefix, ceiling, prefix, base)
	}
	return nil
}

// validateSync validates pagination and warm-up settings
func (c *Config) validateSync() error {
	s := c.Sync
	if s.PageDelay < 0 {
		return fmt.Errorf("SYNC_PAGE_DELAY cannot be negative")
	}
	if s.MaxPages < 1 {
		return fmt.Errorf("SYNC_MAX_PAGES must be at least 1")
	}
	if s.WarmDays < 1 || s.WarmDays > 3650 {
		return fmt.Errorf("WARM_DAYS must be between 1 and 3650, got: %d", s.WarmDays)
	}
	if s.MaxRangeDays < s.WarmDays {
		return fmt.Errorf("SYNC_MAX_RANGE_DAYS must be at least WARM_DAYS (%d), got: %d", s.WarmDays, s.MaxRangeDays)
	}
	if s.FreshnessTTL <= 0 {
		return fmt.Errorf("CACHE_FRESHNESS_TTL must be positive")
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("SYNC_TIMEZONE is invalid: %w", err)
		}
	}
	return nil
}

// validateStore validates BadgerDB settings
func (c *Config) validateStore() error {
	if c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required")
	}
	if c.Store.MaxDocumentBytes < 1<<10 {
		return fmt.Errorf("STORE_MAX_DOCUMENT_BYTES must be at least 1024")
	}
	if c.Store.GCInterval < 0 {
		return fmt.Errorf("STORE_GC_INTERVAL must not be negative")
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS cannot be negative")
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
