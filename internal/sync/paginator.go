// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package sync

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/marketlens/internal/config"
	"github.com/tomtom215/marketlens/internal/logging"
	"github.com/tomtom215/marketlens/internal/metrics"
	"github.com/tomtom215/marketlens/internal/models"
)

// cursorLayout is how the changed-since cursor is sent upstream.
const cursorLayout = "2006-01-02T15:04:05"

// PaginatorConfig configures the cursor paginator.
type PaginatorConfig struct {
	BaseURL    string
	OrdersPath string
	PageDelay  time.Duration
	MaxPages   int
	Location   *time.Location
}

// PaginatorConfigFrom builds a PaginatorConfig from application config.
func PaginatorConfigFrom(cfg *config.Config) PaginatorConfig {
	return PaginatorConfig{
		BaseURL:    cfg.Upstream.BaseURL,
		OrdersPath: cfg.Upstream.OrdersPath,
		PageDelay:  cfg.Sync.PageDelay,
		MaxPages:   cfg.Sync.MaxPages,
		Location:   cfg.Sync.Location(),
	}
}

// PageFunc is called after every page with the page number and the cursor
// the next request will use.
type PageFunc func(page int, cursor time.Time)

// Paginator drives the changed-since cursor over the order feed.
type Paginator struct {
	client    *Client
	ordersURL string
	pageDelay time.Duration
	maxPages  int
	loc       *time.Location
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewPaginator creates a paginator issuing requests through client.
func NewPaginator(client *Client, cfg PaginatorConfig) *Paginator {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 2000
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Paginator{
		client:    client,
		ordersURL: strings.TrimRight(cfg.BaseURL, "/") + cfg.OrdersPath,
		pageDelay: cfg.PageDelay,
		maxPages:  cfg.MaxPages,
		loc:       cfg.Location,
		sleep:     sleepContext,
	}
}

// Paginate fetches every record changed since windowStart midnight until the
// feed is exhausted or the cursor passes windowEnd by more than one day.
//
// The bearer credential form is tried first; a 401 or 403 switches once to the
// raw form for the rest of the call.
//
// Pages overlap at the cursor boundary: the cursor advances to the last
// record's change timestamp, never the next instant, so records that changed
// between calls are not missed. A repeated unique id replaces the earlier
// copy. Any failure aborts the whole call and no records are returned.
func (p *Paginator) Paginate(ctx context.Context, credential string, windowStart, windowEnd time.Time, onPage PageFunc) ([]RawRecord, error) {
	token, form := BareToken(credential), FormBearer
	switchedForm := false

	cursor := models.StartOfDay(windowStart, p.loc)
	horizon := models.StartOfDay(windowEnd, p.loc).AddDate(0, 0, 1)

	var out []RawRecord
	index := make(map[string]int)
	reason := "page_ceiling"

	log := logging.CtxWith(ctx).Str("component", "paginator").Logger()

	for page := 1; page <= p.maxPages; page++ {
		if page > 1 {
			if err := p.sleep(ctx, p.pageDelay); err != nil {
				return nil, &TransportError{URL: p.ordersURL, Err: err}
			}
		}

		batch, err := p.fetchPage(ctx, token, form, cursor)
		if err != nil && isAuthFailure(err) && !switchedForm {
			switchedForm = true
			form = form.Other()
			metrics.UpstreamCredentialFallbacks.Inc()
			log.Warn().Err(err).
				Str("credential", logging.SanitizeToken(token)).
				Str("credential_form", form.String()).
				Msg("Credential rejected, retrying with alternate form")
			batch, err = p.fetchPage(ctx, token, form, cursor)
		}
		if err != nil {
			return nil, err
		}
		metrics.PaginatorPages.Inc()

		if len(batch) == 0 {
			reason = "empty_page"
			break
		}

		sortByChangeTime(batch, p.loc)

		added := 0
		for _, rec := range batch {
			id := uniqueIDOf(rec)
			if id == "" {
				out = append(out, rec)
				added++
				continue
			}
			if i, seen := index[id]; seen {
				out[i] = rec
				continue
			}
			index[id] = len(out)
			out = append(out, rec)
			added++
		}

		last, ok := changeTimeOf(batch[len(batch)-1], p.loc)
		if !ok {
			reason = "no_progress"
			break
		}
		advanced := last.After(cursor)
		if advanced {
			cursor = last
		}
		if onPage != nil {
			onPage(page, cursor)
		}

		log.Debug().Int("page", page).Int("records", len(batch)).Int("new", added).Time("cursor", cursor).Msg("Fetched order page")

		if models.StartOfDay(last, p.loc).After(horizon) {
			reason = "horizon"
			break
		}
		if !advanced && added == 0 {
			reason = "no_progress"
			break
		}
		if page == p.maxPages {
			log.Warn().Int("max_pages", p.maxPages).Time("cursor", cursor).Msg("Page ceiling reached, stopping pagination")
		}
	}

	metrics.PaginatorStops.WithLabelValues(reason).Inc()
	return out, nil
}

func (p *Paginator) fetchPage(ctx context.Context, token string, form CredentialForm, cursor time.Time) ([]RawRecord, error) {
	var batch []RawRecord
	err := p.client.Do(ctx, Request{
		URL: p.ordersURL,
		Query: url.Values{
			"dateFrom": {cursor.In(p.loc).Format(cursorLayout)},
			"flag":     {"0"},
		},
		Credential: token,
		Form:       form,
		Endpoint:   "orders",
	}, &batch)
	return batch, err
}

// sortByChangeTime orders a page ascending by last-change timestamp.
// Missing or unparseable timestamps sort first.
func sortByChangeTime(batch []RawRecord, loc *time.Location) {
	keys := make([]time.Time, len(batch))
	for i, rec := range batch {
		keys[i], _ = changeTimeOf(rec, loc)
	}
	sort.Stable(byChangeTime{records: batch, keys: keys})
}

type byChangeTime struct {
	records []RawRecord
	keys    []time.Time
}

func (b byChangeTime) Len() int           { return len(b.records) }
func (b byChangeTime) Less(i, j int) bool { return b.keys[i].Before(b.keys[j]) }
func (b byChangeTime) Swap(i, j int) {
	b.records[i], b.records[j] = b.records[j], b.records[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}
