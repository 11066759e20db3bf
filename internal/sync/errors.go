// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package sync

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrCircuitOpen is wrapped into a TransportError when the upstream circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("upstream circuit breaker open")

// ErrInvalidDay is returned for dates that are not YYYY-MM-DD.
var ErrInvalidDay = errors.New("invalid day")

// ErrRangeTooLarge is returned when a requested day range exceeds the configured maximum.
var ErrRangeTooLarge = errors.New("day range too large")

// TransportError is a network-level failure: connection errors, per-call
// timeouts, cancellation, or an open circuit breaker.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimitedError is an HTTP 429 that persisted after all retries.
// RetryAfter is the last retry hint (or computed backoff) from the upstream.
type RateLimitedError struct {
	RetryAfter time.Duration
	Attempts   int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by upstream after %d attempts (retry after %s)", e.Attempts, e.RetryAfter)
}

// UpstreamError is a non-2xx response other than 429. 5xx responses are
// returned only after retries are exhausted; other 4xx are returned at once.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("upstream returned %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// IsAuthFailure reports whether the upstream rejected the credential.
func (e *UpstreamError) IsAuthFailure() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// MalformedResponseError is a 2xx body that is not JSON of the expected shape.
// It is never retried.
type MalformedResponseError struct {
	Err     error
	Snippet string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed upstream response: %v (body starts %q)", e.Err, e.Snippet)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// isRetryableStatus reports whether the status is retried by the backoff loop.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isAuthFailure reports whether err is a 401/403 from the upstream.
func isAuthFailure(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr) && upErr.IsAuthFailure()
}
