// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package sync

import (
	"testing"

	"github.com/tomtom215/marketlens/internal/models"
)

func TestProgressTracker(t *testing.T) {
	t.Run("idle user reads zero", func(t *testing.T) {
		tr := NewProgressTracker()
		if got := tr.Read("u1"); got != (models.Progress{}) {
			t.Errorf("Read() = %+v", got)
		}
	})

	t.Run("advance is monotonic and clamped", func(t *testing.T) {
		tr := NewProgressTracker()
		tr.Begin("u1", "k1", 5)
		tr.Advance("u1", "k1", 3)
		tr.Advance("u1", "k1", 2)
		if got := tr.Read("u1").Done; got != 3 {
			t.Errorf("Done = %d, want 3", got)
		}
		tr.Advance("u1", "k1", 99)
		if got := tr.Read("u1"); got.Done != 5 || got.Total != 5 {
			t.Errorf("Read() = %+v, want 5/5", got)
		}
	})

	t.Run("stale batch keys are ignored", func(t *testing.T) {
		tr := NewProgressTracker()
		tr.Begin("u1", "old", 10)
		tr.Begin("u1", "new", 4)

		tr.Advance("u1", "old", 8)
		if got := tr.Read("u1"); got.BatchKey != "new" || got.Done != 0 {
			t.Errorf("stale Advance changed progress: %+v", got)
		}

		tr.End("u1", "old")
		if got := tr.Read("u1"); got.BatchKey != "new" {
			t.Errorf("stale End cleared the active batch: %+v", got)
		}

		tr.End("u1", "new")
		if got := tr.Read("u1"); got != (models.Progress{}) {
			t.Errorf("Read() after End = %+v", got)
		}
	})

	t.Run("users are independent", func(t *testing.T) {
		tr := NewProgressTracker()
		tr.Begin("u1", "k", 3)
		tr.Begin("u2", "k", 7)
		tr.Advance("u2", "k", 7)
		if got := tr.Read("u1"); got.Done != 0 || got.Total != 3 {
			t.Errorf("u1 = %+v", got)
		}
	})

	t.Run("advance before begin is ignored", func(t *testing.T) {
		tr := NewProgressTracker()
		tr.Advance("u1", "k", 2)
		if got := tr.Read("u1"); got != (models.Progress{}) {
			t.Errorf("Read() = %+v", got)
		}
	})
}
