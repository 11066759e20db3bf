// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

// Package api provides HTTP request validation structs with go-playground/validator tags.
//
// The "name" tag is the parameter name reported back to clients in
// validation errors.
package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/marketlens/internal/validation"
)

// IdentityParams represents the caller identity headers.
//
// Fields:
//   - UserID: opaque seller identifier that scopes the cache (required)
type IdentityParams struct {
	UserID string `name:"X-User-ID" validate:"required,max=128,userid"`
}

// OrdersParams represents the validated query parameters for GET /orders.
//
// Fields:
//   - DateFrom, DateTo: calendar days in YYYY-MM-DD; a reversed range is allowed
//   - ForceRefresh: optional boolean bypassing the cache
type OrdersParams struct {
	DateFrom     string `name:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo       string `name:"date_to" validate:"required,datetime=2006-01-02"`
	ForceRefresh string `name:"force_refresh" validate:"omitempty,boolean"`
}

// Force reports the parsed force_refresh flag. Only valid after validation.
func (p *OrdersParams) Force() bool {
	force, _ := strconv.ParseBool(p.ForceRefresh)
	return force
}

// ordersParamsFrom reads OrdersParams from the query string.
func ordersParamsFrom(r *http.Request) OrdersParams {
	q := r.URL.Query()
	return OrdersParams{
		DateFrom:     q.Get("date_from"),
		DateTo:       q.Get("date_to"),
		ForceRefresh: q.Get("force_refresh"),
	}
}

// validateRequest validates req and writes a 400 response on failure.
// It returns false when the handler must stop.
func validateRequest(rw *ResponseWriter, req interface{}) bool {
	if err := validation.ValidateStruct(req); err != nil {
		rw.ValidationError(err.Error(), err.Details())
		return false
	}
	return true
}
