// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// rawOrder builds an upstream order object.
func rawOrder(srid, date, lastChange string) map[string]any {
	return map[string]any{
		"srid":            srid,
		"date":            date,
		"lastChangeDate":  lastChange,
		"isCancel":        false,
		"cancelDate":      "0001-01-01T00:00:00",
		"warehouseName":   "Koledino",
		"regionName":      "Moscow",
		"supplierArticle": "SKU-" + srid,
		"nmId":            float64(1000),
		"totalPrice":      float64(1500),
		"discountPercent": float64(20),
		"spp":             float64(5),
		"finishedPrice":   float64(1140),
		"priceWithDisc":   float64(1200),
	}
}

// fakeFeed emulates the changed-since order feed: every request returns up
// to pageSize records whose lastChangeDate is at or after dateFrom, ordered by
// lastChangeDate.
type fakeFeed struct {
	mu       stdsync.Mutex
	records  []map[string]any
	pageSize int
	cursors  []string
	auths    []string

	// acceptAuth rejects requests with 401 when it returns false.
	acceptAuth func(header string) bool
	// failOn returns this status for the given 1-based request number.
	failOn map[int]int

	requests atomic.Int32
}

func newFakeFeed(pageSize int, records ...map[string]any) *fakeFeed {
	return &fakeFeed{records: records, pageSize: pageSize}
}

func (f *fakeFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(f.requests.Add(1))
	auth := r.Header.Get("Authorization")
	from := r.URL.Query().Get("dateFrom")

	f.mu.Lock()
	f.auths = append(f.auths, auth)
	f.cursors = append(f.cursors, from)
	records := append([]map[string]any(nil), f.records...)
	f.mu.Unlock()

	if f.acceptAuth != nil && !f.acceptAuth(auth) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if status, ok := f.failOn[n]; ok {
		w.WriteHeader(status)
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i]["lastChangeDate"].(string) < records[j]["lastChangeDate"].(string)
	})
	page := []map[string]any{}
	for _, rec := range records {
		if rec["lastChangeDate"].(string) >= from {
			page = append(page, rec)
		}
		if len(page) == f.pageSize {
			break
		}
	}
	_ = json.NewEncoder(w).Encode(page)
}

func (f *fakeFeed) setRecords(records ...map[string]any) {
	f.mu.Lock()
	f.records = records
	f.mu.Unlock()
}

func (f *fakeFeed) seenCursors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cursors...)
}

func (f *fakeFeed) seenAuths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auths...)
}

// newFeedPaginator serves feed over httptest and returns a paginator that
// does not sleep between pages.
func newFeedPaginator(t *testing.T, feed *fakeFeed, cfg PaginatorConfig) *Paginator {
	t.Helper()
	server := httptest.NewServer(feed)
	t.Cleanup(server.Close)

	client, _ := newTestClient(testClientConfig(), NoopThrottle{})
	cfg.BaseURL = server.URL
	if cfg.OrdersPath == "" {
		cfg.OrdersPath = "/api/v1/supplier/orders"
	}
	p := NewPaginator(client, cfg)
	p.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}

// newHandlerPaginator serves an arbitrary handler as the orders endpoint.
func newHandlerPaginator(t *testing.T, h http.Handler) *Paginator {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	client, _ := newTestClient(testClientConfig(), NoopThrottle{})
	p := NewPaginator(client, PaginatorConfig{BaseURL: server.URL, OrdersPath: "/orders"})
	p.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}
