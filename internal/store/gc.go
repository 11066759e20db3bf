// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/marketlens/internal/logging"
	"github.com/tomtom215/marketlens/internal/metrics"
)

// gcDiscardRatio is the fraction of stale data a value log file needs before
// it is rewritten.
const gcDiscardRatio = 0.5

// GCService periodically reclaims value log space. Whole-document rewrites
// leave a stale copy behind on every write, so without it the value log only
// grows.
//
// Example usage:
//
//	tree.AddStoreService(store.NewGCService(db, cfg.Store.GCInterval))
type GCService struct {
	db       *badger.DB
	interval time.Duration
}

// NewGCService creates a GC service running every interval.
func NewGCService(db *badger.DB, interval time.Duration) *GCService {
	return &GCService{db: db, interval: interval}
}

// Serve implements suture.Service. It blocks until ctx is canceled.
func (g *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := g.RunOnce(); n > 0 {
				logging.Debug().Int("rewrites", n).Msg("Value log garbage collection finished")
			}
		}
	}
}

// RunOnce rewrites value log files until nothing more is reclaimable and
// returns the number of rewrites.
func (g *GCService) RunOnce() int {
	rewrites := 0
	for {
		err := g.db.RunValueLogGC(gcDiscardRatio)
		if err == nil {
			rewrites++
			metrics.StoreGCRewrites.Inc()
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) && !errors.Is(err, badger.ErrRejected) {
			logging.Warn().Err(err).Msg("Value log garbage collection failed")
		}
		return rewrites
	}
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (g *GCService) String() string {
	return "store-gc"
}
