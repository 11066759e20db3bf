// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/marketlens/internal/models"
	"github.com/tomtom215/marketlens/internal/supervisor"
)

// OrderService is the orchestrator surface the handlers need.
// Satisfied by *sync.Orchestrator.
type OrderService interface {
	SyncDays(ctx context.Context, user, credential, dateFrom, dateTo string, forceRefresh bool) (*models.SyncResult, error)
	Progress(user string) models.Progress
	IsCacheFresh(ctx context.Context, user string) bool
	CacheStatus(ctx context.Context, user string) (*models.CacheStatus, error)
	ClearCache(ctx context.Context, user string) error
}

// CacheWarmer starts background warm-ups.
// Satisfied by *sync.Warmer.
type CacheWarmer interface {
	Warm(user, credential string) (bool, error)
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers.go: order and cache endpoints (this file)
//   - handlers_health.go: liveness
type Handler struct {
	orders       OrderService
	warmer       CacheWarmer
	breakerState func() string
	startTime    time.Time
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithBreakerState reports the upstream circuit breaker state on /health.
func WithBreakerState(state func() string) HandlerOption {
	return func(h *Handler) { h.breakerState = state }
}

// NewHandler creates the API handler.
func NewHandler(orders OrderService, warmer CacheWarmer, opts ...HandlerOption) *Handler {
	h := &Handler{
		orders:    orders,
		warmer:    warmer,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Orders returns every order for date_from..date_to, fetching uncached days
// from the order feed before answering.
//
// GET /api/v1/orders?date_from=YYYY-MM-DD&date_to=YYYY-MM-DD&force_refresh=bool
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	credential, err := credentialFrom(r)
	if err != nil {
		rw.Unauthorized(err.Error())
		return
	}

	params := ordersParamsFrom(r)
	if !validateRequest(rw, &params) {
		return
	}

	res, err := h.orders.SyncDays(r.Context(), userIDFrom(r), credential, params.DateFrom, params.DateTo, params.Force())
	if err != nil {
		respondSyncError(rw, r, err)
		return
	}
	rw.Success(res)
}

// WarmCache starts a background warm-up of the trailing horizon. It answers
// 202 in both cases; started is false when a warm-up is already running.
//
// POST /api/v1/cache/warm
func (h *Handler) WarmCache(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	credential, err := credentialFrom(r)
	if err != nil {
		rw.Unauthorized(err.Error())
		return
	}

	started, err := h.warmer.Warm(userIDFrom(r), credential)
	if err != nil && !errors.Is(err, supervisor.ErrTaskRunning) {
		rw.InternalError("Failed to start cache warm-up")
		return
	}
	rw.Accepted(map[string]bool{"started": started})
}

// Progress reports the running sync batch for the user. Both counters are
// zero when nothing is running.
//
// GET /api/v1/progress
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.orders.Progress(userIDFrom(r)))
}

// CacheFresh reports whether the last warm-up is within the freshness window.
//
// GET /api/v1/cache/fresh
func (h *Handler) CacheFresh(w http.ResponseWriter, r *http.Request) {
	fresh := h.orders.IsCacheFresh(r.Context(), userIDFrom(r))
	NewResponseWriter(w, r).Success(map[string]bool{"fresh": fresh})
}

// CacheStatus summarizes the user's cached days.
//
// GET /api/v1/cache
func (h *Handler) CacheStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	status, err := h.orders.CacheStatus(r.Context(), userIDFrom(r))
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.Success(status)
}

// ClearCache drops every bucket and the sync metadata for the user.
//
// DELETE /api/v1/cache
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.orders.ClearCache(r.Context(), userIDFrom(r)); err != nil {
		rw.StoreError(err)
		return
	}
	rw.Success(map[string]bool{"cleared": true})
}
