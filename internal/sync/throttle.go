// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package sync

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle serializes upstream calls to a minimum interval.
// A single instance is shared by every user's calls to the same endpoint family.
type Throttle interface {
	Wait(ctx context.Context) error
}

// NewThrottle returns a process-wide limiter allowing requestsPerMinute calls
// with no burst. A non-positive rate disables throttling.
func NewThrottle(requestsPerMinute int) Throttle {
	if requestsPerMinute <= 0 {
		return NoopThrottle{}
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// NoopThrottle never waits. Tests inject it in place of the shared limiter.
type NoopThrottle struct{}

// Wait returns immediately unless ctx is already done.
func (NoopThrottle) Wait(ctx context.Context) error {
	return ctx.Err()
}
