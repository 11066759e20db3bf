// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

/*
orchestrator.go - Incremental Order Sync

The orchestrator answers "give me all orders for days D1..D2" from the day
bucket cache, fetching from the upstream feed only the days it must:

  - days with no bucket
  - today and later days, whose buckets are never trusted because orders
    keep arriving
  - every day when the caller forces a refresh

Missing days are fetched with a single paginate call spanning the earliest to
the latest missing day. Fetched records are partitioned by order day and every
missing day is written back, including days that had no orders, so a quiet day
is never refetched. Days after today are returned but never written back.
Days inside the span that were already cached are left alone.

A failed fetch aborts the whole call before anything is written.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/marketlens/internal/config"
	"github.com/tomtom215/marketlens/internal/logging"
	"github.com/tomtom215/marketlens/internal/metrics"
	"github.com/tomtom215/marketlens/internal/models"
	"github.com/tomtom215/marketlens/internal/store"
)

// OrderPager fetches raw records changed since windowStart.
// Satisfied by *Paginator.
type OrderPager interface {
	Paginate(ctx context.Context, credential string, windowStart, windowEnd time.Time, onPage PageFunc) ([]RawRecord, error)
}

// BucketStore is the persistence the orchestrator needs.
// Satisfied by *store.Store.
type BucketStore interface {
	LoadDocument(ctx context.Context, user string) (*models.BucketDocument, error)
	PutBuckets(ctx context.Context, user string, buckets map[string]models.DayBucket, opts store.WriteOptions) error
	GetMetadata(ctx context.Context, user string) (*models.SyncMetadata, error)
	PutMetadata(ctx context.Context, user string, meta *models.SyncMetadata) error
	Clear(ctx context.Context, user string) error
	Stats(ctx context.Context, user string) (*models.CacheStatus, error)
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	Location     *time.Location
	FreshnessTTL time.Duration

	// MaxRangeDays caps the days a single call may cover. Zero means no cap.
	MaxRangeDays int
}

// OrchestratorConfigFrom builds an OrchestratorConfig from application config.
func OrchestratorConfigFrom(cfg *config.SyncConfig) OrchestratorConfig {
	return OrchestratorConfig{
		Location:     cfg.Location(),
		FreshnessTTL: cfg.FreshnessTTL,
		MaxRangeDays: cfg.MaxRangeDays,
	}
}

// Orchestrator serves order ranges from the bucket cache and fills gaps from
// the upstream feed.
type Orchestrator struct {
	pager      OrderPager
	store      BucketStore
	normalizer *Normalizer
	tracker    *ProgressTracker
	loc        *time.Location
	ttl        time.Duration
	maxDays    int
	now        func() time.Time
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithClock overrides the wall clock used to decide "today" and bucket timestamps.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires an orchestrator.
func NewOrchestrator(pager OrderPager, bucketStore BucketStore, tracker *ProgressTracker, cfg OrchestratorConfig, opts ...OrchestratorOption) *Orchestrator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.FreshnessTTL <= 0 {
		cfg.FreshnessTTL = 24 * time.Hour
	}
	if tracker == nil {
		tracker = NewProgressTracker()
	}
	o := &Orchestrator{
		pager:      pager,
		store:      bucketStore,
		normalizer: NewNormalizer(cfg.Location),
		tracker:    tracker,
		loc:        cfg.Location,
		ttl:        cfg.FreshnessTTL,
		maxDays:    cfg.MaxRangeDays,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Location returns the timezone calendar days are derived in.
func (o *Orchestrator) Location() *time.Location {
	return o.loc
}

// Progress returns the user's active sync progress.
func (o *Orchestrator) Progress(user string) models.Progress {
	return o.tracker.Read(user)
}

// SyncDays is Sync for YYYY-MM-DD bounds.
func (o *Orchestrator) SyncDays(ctx context.Context, user, credential, dateFrom, dateTo string, forceRefresh bool) (*models.SyncResult, error) {
	from, err := models.ParseDay(dateFrom, o.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDay, err)
	}
	to, err := models.ParseDay(dateTo, o.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDay, err)
	}
	return o.Sync(ctx, user, credential, from, to, forceRefresh)
}

// Sync returns every order for the calendar days dateFrom..dateTo, inclusive.
// A reversed range is swapped. Records are ordered by day and unique by id.
func (o *Orchestrator) Sync(ctx context.Context, user, credential string, dateFrom, dateTo time.Time, forceRefresh bool) (*models.SyncResult, error) {
	start := time.Now()

	from := models.StartOfDay(dateFrom, o.loc)
	to := models.StartOfDay(dateTo, o.loc)
	if to.Before(from) {
		from, to = to, from
	}
	if n := dayCount(from, to); o.maxDays > 0 && n > o.maxDays {
		return nil, fmt.Errorf("%w: %s..%s spans %d days, limit is %d",
			ErrRangeTooLarge, models.DayOf(from, o.loc), models.DayOf(to, o.loc), n, o.maxDays)
	}
	days := models.DaysInRange(from, to)

	readAt := o.now()
	today := models.DayOf(readAt, o.loc)

	if logging.UserIDFromContext(ctx) == "" {
		ctx = logging.ContextWithUserID(ctx, user)
	}
	log := logging.CtxWith(ctx).
		Str("component", "sync").
		Str("date_from", days[0]).
		Str("date_to", days[len(days)-1]).
		Logger()

	doc, err := o.store.LoadDocument(ctx, user)
	if errors.Is(err, store.ErrStoreCorruption) {
		log.Warn().Err(err).Msg("Bucket document unreadable, refetching whole range")
		doc = nil
	} else if err != nil {
		metrics.RecordSyncOperation(time.Since(start), 0, 0, err)
		return nil, fmt.Errorf("load buckets: %w", err)
	}

	perDay := make(map[string][]models.OrderRecord, len(days))
	var missing []string
	for _, day := range days {
		// Day strings sort chronologically.
		if !forceRefresh && day < today && doc != nil {
			if bucket, ok := doc.Days[day]; ok {
				perDay[day] = bucket.Records
				continue
			}
		}
		missing = append(missing, day)
	}

	meta := models.SyncMeta{
		DaysServedFromCache: len(days) - len(missing),
		DaysFetched:         len(missing),
	}

	if len(missing) > 0 {
		fetched, err := o.fetchMissing(ctx, user, credential, missing, today, readAt)
		if err != nil {
			metrics.RecordSyncOperation(time.Since(start), meta.DaysServedFromCache, 0, err)
			log.Error().Err(err).Int("missing_days", len(missing)).Msg("Order sync failed")
			return nil, err
		}
		for _, day := range missing {
			perDay[day] = fetched[day]
		}
	}

	var records []models.OrderRecord
	for _, day := range days {
		records = append(records, perDay[day]...)
	}
	records, _ = dedupByUniqueID(records)
	if records == nil {
		records = []models.OrderRecord{}
	}

	metrics.RecordSyncOperation(time.Since(start), meta.DaysServedFromCache, meta.DaysFetched, nil)
	log.Info().
		Int("days_from_cache", meta.DaysServedFromCache).
		Int("days_fetched", meta.DaysFetched).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Order sync completed")

	return &models.SyncResult{Records: records, Meta: meta}, nil
}

// fetchMissing fetches the span covering missing, writes every missing day up
// to today back and returns the fetched records grouped by day.
func (o *Orchestrator) fetchMissing(ctx context.Context, user, credential string, missing []string, today string, readAt time.Time) (map[string][]models.OrderRecord, error) {
	first, last := missing[0], missing[len(missing)-1]
	spanStart, err := models.ParseDay(first, o.loc)
	if err != nil {
		return nil, err
	}
	spanEnd, err := models.ParseDay(last, o.loc)
	if err != nil {
		return nil, err
	}
	spanDays := models.DaysInRange(spanStart, spanEnd)

	batchKey := uuid.NewString()
	o.tracker.Begin(user, batchKey, len(spanDays))
	defer o.tracker.End(user, batchKey)

	onPage := func(_ int, cursor time.Time) {
		// Days strictly before the cursor's day are complete.
		passed := sort.SearchStrings(spanDays, models.DayOf(cursor, o.loc))
		o.tracker.Advance(user, batchKey, passed)
	}

	raws, err := o.pager.Paginate(ctx, credential, spanStart, spanEnd, onPage)
	if err != nil {
		return nil, fmt.Errorf("fetch orders %s..%s: %w", first, last, err)
	}

	byDay := make(map[string][]models.OrderRecord, len(missing))
	for _, rec := range o.normalizer.NormalizeWindow(raws, first, last) {
		byDay[rec.OrderDate] = append(byDay[rec.OrderDate], rec)
	}

	writtenAt := o.now()
	buckets := make(map[string]models.DayBucket, len(missing))
	for _, day := range missing {
		recs := byDay[day]
		if recs == nil {
			recs = []models.OrderRecord{}
		}
		byDay[day] = recs
		if day > today {
			continue
		}
		buckets[day] = models.DayBucket{Records: recs, UpdatedAt: writtenAt}
	}

	// The fetched data is still returned when caching it fails.
	if err := o.store.PutBuckets(ctx, user, buckets, store.WriteOptions{ReadAt: readAt}); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to cache fetched days")
	}

	o.tracker.Advance(user, batchKey, len(spanDays))
	return byDay, nil
}

// dayCount returns the number of calendar days in [from, to], inclusive.
// Counting happens on civil dates so DST shifts in the location don't matter.
func dayCount(from, to time.Time) int {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	// Sub saturates for ranges beyond ~292 years, which still exceed any cap.
	return int(b.Sub(a)/(24*time.Hour)) + 1
}

// IsCacheFresh reports whether the user's last warm-up is recent enough.
func (o *Orchestrator) IsCacheFresh(ctx context.Context, user string) bool {
	meta, err := o.store.GetMetadata(ctx, user)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", user).Msg("Failed to read sync metadata")
		return false
	}
	return meta.IsFresh(o.now(), o.ttl)
}

// ClearCache drops every bucket and the metadata for user.
func (o *Orchestrator) ClearCache(ctx context.Context, user string) error {
	if err := o.store.Clear(ctx, user); err != nil {
		return err
	}
	logging.Info().Str("user_id", user).Msg("Order cache cleared")
	return nil
}

// CacheStatus summarizes the user's cache.
func (o *Orchestrator) CacheStatus(ctx context.Context, user string) (*models.CacheStatus, error) {
	status, err := o.store.Stats(ctx, user)
	if err != nil {
		return nil, err
	}
	status.Fresh = status.Metadata.IsFresh(o.now(), o.ttl)
	return status, nil
}

// RecordWarmup stores sync metadata for a completed warm-up of [from, to].
func (o *Orchestrator) RecordWarmup(ctx context.Context, user, from, to string, totalRecords int) error {
	return o.store.PutMetadata(ctx, user, &models.SyncMetadata{
		LastUpdated:        o.now(),
		DateFrom:           from,
		DateTo:             to,
		TotalRecordsCached: totalRecords,
		CacheVersion:       models.CurrentCacheVersion,
	})
}
