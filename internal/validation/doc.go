// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

// Package validation provides struct validation using go-playground/validator v10.
//
// A thread-safe singleton validator checks API query and header parameters
// before they reach the sync orchestrator. Field names in error messages come
// from the struct's "name" tag so clients see the parameter they sent
// (date_from, X-User-ID) rather than the Go field name.
//
// # Custom Validators
//
//   - userid: opaque user identifiers of letters, digits and . _ : @ -
//
// Calendar days use the built-in datetime validator:
//
//	type OrdersParams struct {
//	    UserID   string `name:"X-User-ID" validate:"required,max=128,userid"`
//	    DateFrom string `name:"date_from" validate:"required,datetime=2006-01-02"`
//	}
//
//	if err := validation.ValidateStruct(&params); err != nil {
//	    rw.ValidationError(err.Error(), err.Details())
//	    return
//	}
package validation
