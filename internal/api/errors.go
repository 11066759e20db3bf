// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/marketlens/internal/logging"
	"github.com/tomtom215/marketlens/internal/store"
	syncpkg "github.com/tomtom215/marketlens/internal/sync"
)

// Identity errors
var (
	// ErrMissingCredential indicates the Authorization header is absent
	ErrMissingCredential = errors.New("authorization header is required")
)

// respondSyncError maps orchestrator errors to HTTP responses:
//
//	ErrInvalidDay          -> 400
//	ErrRangeTooLarge       -> 400
//	context.Canceled       -> 503, also when wrapped in a TransportError
//	RateLimitedError       -> 429 with Retry-After
//	UpstreamError          -> 502 with the upstream status
//	TransportError         -> 502
//	MalformedResponseError -> 502
//	ErrStoreCorruption     -> 500
func respondSyncError(rw *ResponseWriter, r *http.Request, err error) {
	log := logging.Ctx(r.Context())

	var (
		rateLimited *syncpkg.RateLimitedError
		upstream    *syncpkg.UpstreamError
		transport   *syncpkg.TransportError
		malformed   *syncpkg.MalformedResponseError
	)

	switch {
	case errors.Is(err, syncpkg.ErrInvalidDay), errors.Is(err, syncpkg.ErrRangeTooLarge):
		rw.BadRequest(err.Error())
	case errors.Is(err, context.Canceled):
		log.Info().Msg("Client went away before the sync finished")
		rw.Error(http.StatusServiceUnavailable, ErrCodeInternalError, "Request canceled")
	case errors.As(err, &rateLimited):
		log.Warn().Err(err).Dur("retry_after", rateLimited.RetryAfter).Msg("Order feed rate limit exhausted")
		rw.TooManyRequests(ErrCodeUpstreamLimited, "Order feed is rate limiting requests, try again later", rateLimited.RetryAfter)
	case errors.As(err, &upstream):
		log.Warn().Err(err).Int("upstream_status", upstream.Status).Msg("Order feed rejected request")
		rw.UpstreamError("Order feed returned an error", map[string]interface{}{
			"upstream_status": upstream.Status,
			"auth_failure":    upstream.IsAuthFailure(),
		})
	case errors.As(err, &transport):
		log.Warn().Err(err).Bool("circuit_open", errors.Is(err, syncpkg.ErrCircuitOpen)).Msg("Order feed unreachable")
		rw.UpstreamError("Order feed is unreachable", map[string]interface{}{
			"circuit_open": errors.Is(err, syncpkg.ErrCircuitOpen),
		})
	case errors.As(err, &malformed):
		log.Error().Err(err).Msg("Order feed returned a malformed response")
		rw.UpstreamError("Order feed returned a malformed response", nil)
	case errors.Is(err, store.ErrStoreCorruption):
		rw.StoreError(err)
	default:
		log.Error().Err(err).Msg("Order sync failed")
		rw.InternalError("Order sync failed")
	}
}
