// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

/*
Package models defines the data structures shared by the sync engine, the
bucket store and the HTTP API.

Key Components:

  - OrderRecord: a normalized upstream order, partitioned by OrderDate
  - DayBucket / BucketDocument: the persisted per-user, per-day cache layout
  - SyncMetadata: warm-up bookkeeping used to answer cache freshness
  - SyncResult / SyncMeta: the sync call result
  - Progress: fetch progress of the current batch for a user

Calendar days are YYYY-MM-DD strings (DayLayout) computed in the configured
timezone; see DayOf and DaysInRange.
*/
package models
