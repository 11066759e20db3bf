// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package models

// SyncMeta reports how a sync call was served.
type SyncMeta struct {
	DaysServedFromCache int `json:"days_served_from_cache"`
	DaysFetched         int `json:"days_fetched"`
}

// SyncResult is the outcome of one sync call.
type SyncResult struct {
	Records []OrderRecord `json:"records"`
	Meta    SyncMeta      `json:"meta"`
}

// Progress is the fetch progress of the current sync batch for a user.
// BatchKey is empty when no sync is running.
type Progress struct {
	BatchKey string `json:"batch_key,omitempty"`
	Total    int    `json:"total"`
	Done     int    `json:"done"`
}
