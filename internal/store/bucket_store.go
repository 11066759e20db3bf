// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marketlens/internal/logging"
	"github.com/tomtom215/marketlens/internal/metrics"
	"github.com/tomtom215/marketlens/internal/models"
)

// Key prefixes
const (
	bucketsPrefix  = "buckets/"
	metadataPrefix = "meta/"
)

// maxConflictRetries bounds read-modify-write attempts on badger.ErrConflict.
const maxConflictRetries = 3

// ErrStoreCorruption is returned when a persisted document cannot be decoded
// or exceeds the configured size limit.
var ErrStoreCorruption = errors.New("store: corrupt document")

// Options configures a Store.
type Options struct {
	// MaxDocumentBytes is the largest document that will be decoded.
	// 0 means unlimited.
	MaxDocumentBytes int64
}

// WriteOptions carries the writer's view of the document.
type WriteOptions struct {
	// ReadAt is when the writer read the buckets it is replacing. Buckets
	// updated after this instant are being overwritten by a stale writer.
	// Zero disables lost-update detection.
	ReadAt time.Time
}

// Store is the per-user day bucket store.
type Store struct {
	db       *badger.DB
	maxBytes int64
	locks    *keyedMutex
}

// New creates a Store over an open BadgerDB instance. The caller owns db.
func New(db *badger.DB, opts Options) *Store {
	return &Store{
		db:       db,
		maxBytes: opts.MaxDocumentBytes,
		locks:    newKeyedMutex(),
	}
}

func bucketsKey(user string) []byte  { return []byte(bucketsPrefix + user) }
func metadataKey(user string) []byte { return []byte(metadataPrefix + user) }

// LoadDocument returns the user's whole bucket document. A user with no
// document gets an empty one.
func (s *Store) LoadDocument(ctx context.Context, user string) (*models.BucketDocument, error) {
	var doc *models.BucketDocument
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = s.readDocument(txn, user)
		return err
	})
	metrics.RecordStoreOperation("load_document", err)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetBucket returns one day's bucket. The boolean reports whether the day has
// ever been written.
func (s *Store) GetBucket(ctx context.Context, user, day string) (*models.DayBucket, bool, error) {
	doc, err := s.LoadDocument(ctx, user)
	if err != nil {
		return nil, false, err
	}
	bucket, ok := doc.Days[day]
	if !ok {
		return nil, false, nil
	}
	return &bucket, true, nil
}

// ListCoveredDays returns the set of days that have a bucket.
func (s *Store) ListCoveredDays(ctx context.Context, user string) (map[string]struct{}, error) {
	doc, err := s.LoadDocument(ctx, user)
	if err != nil {
		return nil, err
	}
	days := make(map[string]struct{}, len(doc.Days))
	for day := range doc.Days {
		days[day] = struct{}{}
	}
	return days, nil
}

// PutBucket replaces a single day's bucket.
func (s *Store) PutBucket(ctx context.Context, user, day string, records []models.OrderRecord, updatedAt time.Time) error {
	return s.PutBuckets(ctx, user, map[string]models.DayBucket{
		day: {Records: records, UpdatedAt: updatedAt},
	}, WriteOptions{})
}

// PutBuckets replaces the given days in one read-modify-write of the user's
// document. Days not named in buckets are left untouched. A corrupt document
// is discarded and replaced.
func (s *Store) PutBuckets(ctx context.Context, user string, buckets map[string]models.DayBucket, opts WriteOptions) error {
	if len(buckets) == 0 {
		return nil
	}

	unlock := s.locks.Lock(user)
	defer unlock()

	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			break
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return s.mergeBuckets(txn, user, buckets, opts)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		metrics.StoreConflicts.Inc()
		logging.Warn().
			Str("user_id", user).
			Int("attempt", attempt).
			Msg("Bucket document changed during write, retrying")
	}

	metrics.RecordStoreOperation("put_buckets", err)
	if err != nil {
		return fmt.Errorf("write buckets for %s: %w", user, err)
	}
	return nil
}

func (s *Store) mergeBuckets(txn *badger.Txn, user string, buckets map[string]models.DayBucket, opts WriteOptions) error {
	doc, err := s.readDocument(txn, user)
	if errors.Is(err, ErrStoreCorruption) {
		logging.Warn().Err(err).Str("user_id", user).Msg("Replacing corrupt bucket document")
		doc = models.NewBucketDocument()
	} else if err != nil {
		return err
	}

	for day, bucket := range buckets {
		if existing, ok := doc.Days[day]; ok && !opts.ReadAt.IsZero() && existing.UpdatedAt.After(opts.ReadAt) {
			metrics.StoreLostUpdates.Inc()
			logging.Warn().
				Str("user_id", user).
				Str("day", day).
				Time("existing_updated_at", existing.UpdatedAt).
				Time("read_at", opts.ReadAt).
				Msg("Overwriting bucket written by a concurrent sync")
		}
		if bucket.Records == nil {
			bucket.Records = []models.OrderRecord{}
		}
		doc.Days[day] = bucket
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal bucket document: %w", err)
	}
	return txn.Set(bucketsKey(user), data)
}

// readDocument decodes the user's bucket document inside txn.
func (s *Store) readDocument(txn *badger.Txn, user string) (*models.BucketDocument, error) {
	item, err := txn.Get(bucketsKey(user))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.NewBucketDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bucket document: %w", err)
	}

	if s.maxBytes > 0 && item.ValueSize() > s.maxBytes {
		metrics.StoreCorruptDocuments.Inc()
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrStoreCorruption, item.ValueSize(), s.maxBytes)
	}

	doc := models.NewBucketDocument()
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, doc)
	})
	if err != nil {
		metrics.StoreCorruptDocuments.Inc()
		return nil, fmt.Errorf("%w: %v", ErrStoreCorruption, err)
	}
	if doc.Days == nil {
		doc.Days = make(map[string]models.DayBucket)
	}
	return doc, nil
}

// Clear removes the user's buckets and metadata.
func (s *Store) Clear(ctx context.Context, user string) error {
	unlock := s.locks.Lock(user)
	defer unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{bucketsKey(user), metadataKey(user)} {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
	metrics.RecordStoreOperation("clear", err)
	if err != nil {
		return fmt.Errorf("clear cache for %s: %w", user, err)
	}
	return nil
}

// Stats summarizes the user's cache. A corrupt document reports as empty.
// Fresh is left for the caller to decide.
func (s *Store) Stats(ctx context.Context, user string) (*models.CacheStatus, error) {
	doc, err := s.LoadDocument(ctx, user)
	if errors.Is(err, ErrStoreCorruption) {
		doc = models.NewBucketDocument()
	} else if err != nil {
		return nil, err
	}

	status := &models.CacheStatus{CoveredDays: len(doc.Days)}
	if len(doc.Days) > 0 {
		days := make([]string, 0, len(doc.Days))
		for day, bucket := range doc.Days {
			days = append(days, day)
			status.TotalRecords += len(bucket.Records)
		}
		sort.Strings(days)
		status.FirstDay = days[0]
		status.LastDay = days[len(days)-1]
	}

	meta, err := s.GetMetadata(ctx, user)
	if err != nil && !errors.Is(err, ErrStoreCorruption) {
		return nil, err
	}
	status.Metadata = meta
	return status, nil
}
