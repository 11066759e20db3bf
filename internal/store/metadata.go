// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marketlens/internal/metrics"
	"github.com/tomtom215/marketlens/internal/models"
)

// GetMetadata returns the user's sync metadata, or nil if none was written.
func (s *Store) GetMetadata(ctx context.Context, user string) (*models.SyncMetadata, error) {
	var meta *models.SyncMetadata

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metadataKey(user))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var m models.SyncMetadata
			if err := json.Unmarshal(val, &m); err != nil {
				metrics.StoreCorruptDocuments.Inc()
				return fmt.Errorf("%w: %v", ErrStoreCorruption, err)
			}
			meta = &m
			return nil
		})
	})

	metrics.RecordStoreOperation("get_metadata", err)
	if err != nil {
		return nil, fmt.Errorf("load metadata for %s: %w", user, err)
	}
	return meta, nil
}

// PutMetadata replaces the user's sync metadata.
func (s *Store) PutMetadata(ctx context.Context, user string, meta *models.SyncMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metadataKey(user), data)
	})
	metrics.RecordStoreOperation("put_metadata", err)
	if err != nil {
		return fmt.Errorf("save metadata for %s: %w", user, err)
	}
	return nil
}
