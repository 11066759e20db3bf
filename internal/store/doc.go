// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

/*
Package store persists day buckets and sync metadata in BadgerDB.

Each user owns two keys:

	buckets/<user>  bucket document: calendar day -> {records, updated_at}
	meta/<user>     sync metadata written by the warm-up task

The bucket document is rewritten whole on every write. Writes for one user are
serialized by an in-process keyed mutex and run inside a Badger read-write
transaction; transaction conflicts are retried. A write that replaces a bucket
updated after the writer started reading is logged and counted as a lost
update.

Documents that fail to decode, or exceed the configured size limit, surface as
ErrStoreCorruption. Callers treat that as a cache miss and the next write
replaces the document.

Usage:

	db, err := store.Open(&cfg.Store)
	if err != nil {
	    return err
	}
	defer db.Close()

	buckets := store.New(db, store.Options{MaxDocumentBytes: cfg.Store.MaxDocumentBytes})
	err = buckets.PutBuckets(ctx, user, map[string]models.DayBucket{
	    "2024-01-06": {Records: recs, UpdatedAt: time.Now()},
	}, store.WriteOptions{ReadAt: readAt})
*/
package store
