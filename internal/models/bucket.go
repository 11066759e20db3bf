// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package models

import (
	"time"
)

// DayBucket is the cached record set for one user on one calendar day.
// A bucket with no records is a valid cached day with zero orders.
type DayBucket struct {
	Records   []OrderRecord `json:"records"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// BucketDocument is the persisted per-user bucket layout:
//
//	{"days": {"2024-01-05": {"records": [...], "updated_at": "..."}}}
type BucketDocument struct {
	Days map[string]DayBucket `json:"days"`
}

// NewBucketDocument returns an empty document ready for writes.
func NewBucketDocument() *BucketDocument {
	return &BucketDocument{Days: make(map[string]DayBucket)}
}

// CurrentCacheVersion is bumped whenever the bucket layout or normalization
// changes in a way that invalidates previously warmed history.
const CurrentCacheVersion = 1

// SyncMetadata describes the last successful warm-up for a user.
type SyncMetadata struct {
	LastUpdated        time.Time `json:"last_updated"`
	DateFrom           string    `json:"date_from"`
	DateTo             string    `json:"date_to"`
	TotalRecordsCached int       `json:"total_records_cached"`
	CacheVersion       int       `json:"cache_version"`
}

// IsFresh reports whether the metadata is current and younger than ttl at now.
func (m *SyncMetadata) IsFresh(now time.Time, ttl time.Duration) bool {
	if m == nil || m.CacheVersion != CurrentCacheVersion {
		return false
	}
	return now.Sub(m.LastUpdated) < ttl
}

// CacheStatus summarizes what is cached for a user.
type CacheStatus struct {
	CoveredDays  int           `json:"covered_days"`
	FirstDay     string        `json:"first_day,omitempty"`
	LastDay      string        `json:"last_day,omitempty"`
	TotalRecords int           `json:"total_records"`
	Metadata     *SyncMetadata `json:"metadata,omitempty"`
	Fresh        bool          `json:"fresh"`
}
