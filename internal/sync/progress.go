// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package sync

import (
	"sync"

	"github.com/tomtom215/marketlens/internal/models"
)

// ProgressTracker holds the in-memory progress of the current sync batch per
// user. Each batch is identified by a key; updates carrying a key other than
// the active one are ignored, so a finished batch can never overwrite the
// progress of the batch that replaced it.
type ProgressTracker struct {
	mu      sync.RWMutex
	batches map[string]models.Progress
}

// NewProgressTracker creates an empty tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{batches: make(map[string]models.Progress)}
}

// Begin starts a new batch for user, replacing any active batch.
func (t *ProgressTracker) Begin(user, batchKey string, total int) {
	if total < 0 {
		total = 0
	}
	t.mu.Lock()
	t.batches[user] = models.Progress{BatchKey: batchKey, Total: total}
	t.mu.Unlock()
}

// Advance raises the done counter of the active batch. Done never decreases
// and never exceeds Total.
func (t *ProgressTracker) Advance(user, batchKey string, done int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.batches[user]
	if !ok || p.BatchKey != batchKey {
		return
	}
	if done > p.Total {
		done = p.Total
	}
	if done > p.Done {
		p.Done = done
		t.batches[user] = p
	}
}

// End clears the batch if it is still the active one.
func (t *ProgressTracker) End(user, batchKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.batches[user]; ok && p.BatchKey == batchKey {
		delete(t.batches, user)
	}
}

// Read returns the active batch progress, or a zero value when idle.
func (t *ProgressTracker) Read(user string) models.Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.batches[user]
}
