// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordUpstreamAttempt verifies status labelling for HTTP and network attempts
func TestRecordUpstreamAttempt(t *testing.T) {
	before429 := testutil.ToFloat64(UpstreamRequests.WithLabelValues("orders", "429"))
	beforeNet := testutil.ToFloat64(UpstreamRequests.WithLabelValues("orders", "network"))

	RecordUpstreamAttempt("orders", 429, 10*time.Millisecond)
	RecordUpstreamAttempt("orders", 0, time.Second)

	if got := testutil.ToFloat64(UpstreamRequests.WithLabelValues("orders", "429")); got != before429+1 {
		t.Errorf("429 counter = %v, want %v", got, before429+1)
	}
	if got := testutil.ToFloat64(UpstreamRequests.WithLabelValues("orders", "network")); got != beforeNet+1 {
		t.Errorf("network counter = %v, want %v", got, beforeNet+1)
	}
}

// TestRecordSyncOperation verifies day counters only move on success
func TestRecordSyncOperation(t *testing.T) {
	cacheBefore := testutil.ToFloat64(SyncDays.WithLabelValues("cache"))
	fetchedBefore := testutil.ToFloat64(SyncDays.WithLabelValues("fetched"))
	errorsBefore := testutil.ToFloat64(SyncOperations.WithLabelValues("error"))

	RecordSyncOperation(time.Second, 3, 2, nil)
	RecordSyncOperation(time.Second, 10, 10, errors.New("rate limited"))

	if got := testutil.ToFloat64(SyncDays.WithLabelValues("cache")); got != cacheBefore+3 {
		t.Errorf("cache days = %v, want %v", got, cacheBefore+3)
	}
	if got := testutil.ToFloat64(SyncDays.WithLabelValues("fetched")); got != fetchedBefore+2 {
		t.Errorf("fetched days = %v, want %v", got, fetchedBefore+2)
	}
	if got := testutil.ToFloat64(SyncOperations.WithLabelValues("error")); got != errorsBefore+1 {
		t.Errorf("error count = %v, want %v", got, errorsBefore+1)
	}
}

// TestRecordStoreOperation verifies result labelling
func TestRecordStoreOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(StoreOperations.WithLabelValues("put_buckets", "success"))
	errBefore := testutil.ToFloat64(StoreOperations.WithLabelValues("put_buckets", "error"))

	RecordStoreOperation("put_buckets", nil)
	RecordStoreOperation("put_buckets", errors.New("disk full"))

	if got := testutil.ToFloat64(StoreOperations.WithLabelValues("put_buckets", "success")); got != okBefore+1 {
		t.Errorf("success count = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(StoreOperations.WithLabelValues("put_buckets", "error")); got != errBefore+1 {
		t.Errorf("error count = %v, want %v", got, errBefore+1)
	}
}

// TestRecordAPIRequest verifies status code labelling
func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/orders", "429"))
	RecordAPIRequest("GET", "/api/v1/orders", 429, 5*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/orders", "429")); got != before+1 {
		t.Errorf("api counter = %v, want %v", got, before+1)
	}
}
