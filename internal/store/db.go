// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/marketlens/internal/config"
	"github.com/tomtom215/marketlens/internal/logging"
)

// Open opens the BadgerDB directory configured in cfg.
func Open(cfg *config.StoreConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Bucket store opened")
	return db, nil
}

// OpenInMemory opens a BadgerDB instance that keeps everything in memory.
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory BadgerDB: %w", err)
	}
	return db, nil
}
