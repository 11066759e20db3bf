// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package sync

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marketlens/internal/logging"
	"github.com/tomtom215/marketlens/internal/metrics"
	"github.com/tomtom215/marketlens/internal/models"
)

// RawRecord is one upstream order object as decoded from the feed.
// It never leaves this package; Normalize turns it into models.OrderRecord.
type RawRecord map[string]any

// Upstream field names.
const (
	fieldUniqueID        = "srid"
	fieldDate            = "date"
	fieldLastChangeDate  = "lastChangeDate"
	fieldIsCancel        = "isCancel"
	fieldCancelDate      = "cancelDate"
	fieldWarehouse       = "warehouseName"
	fieldRegion          = "regionName"
	fieldSupplierArticle = "supplierArticle"
	fieldNmID            = "nmId"
	fieldBarcode         = "barcode"
	fieldCategory        = "category"
	fieldBrand           = "brand"
	fieldTotalPrice      = "totalPrice"
	fieldDiscountPercent = "discountPercent"
	fieldSPP             = "spp"
	fieldFinishedPrice   = "finishedPrice"
	fieldPriceWithDisc   = "priceWithDisc"
)

// upstreamTimeLayouts are tried in order. Layouts without a zone are
// interpreted in the configured location.
var upstreamTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	models.DayLayout,
}

// errSkipRecord marks raw records that cannot be normalized.
var errSkipRecord = errors.New("skip record")

// Normalizer maps raw upstream objects to typed order records.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer creates a normalizer deriving calendar days in loc.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize maps one raw object. Records without a parseable order date are
// rejected with an error wrapping errSkipRecord.
func (n *Normalizer) Normalize(raw RawRecord) (models.OrderRecord, error) {
	orderedAt, ok := parseUpstreamTime(raw[fieldDate], n.loc)
	if !ok {
		return models.OrderRecord{}, fmt.Errorf("%w: missing or invalid %q", errSkipRecord, fieldDate)
	}

	rec := models.OrderRecord{
		UniqueID:          uniqueIDOf(raw),
		OrderDate:         models.DayOf(orderedAt, n.loc),
		OrderedAt:         orderedAt,
		IsCancelled:       boolField(raw[fieldIsCancel]),
		Warehouse:         stringField(raw[fieldWarehouse]),
		Region:            stringField(raw[fieldRegion]),
		ProductCode:       stringField(raw[fieldSupplierArticle]),
		NmID:              int64Field(raw[fieldNmID]),
		Barcode:           stringField(raw[fieldBarcode]),
		Category:          stringField(raw[fieldCategory]),
		Brand:             stringField(raw[fieldBrand]),
		TotalPrice:        floatField(raw[fieldTotalPrice]),
		DiscountPercent:   floatField(raw[fieldDiscountPercent]),
		SPP:               floatField(raw[fieldSPP]),
		FinishedPrice:     floatField(raw[fieldFinishedPrice]),
		PriceWithDiscount: floatField(raw[fieldPriceWithDisc]),
	}

	if changed, ok := parseUpstreamTime(raw[fieldLastChangeDate], n.loc); ok {
		rec.LastChangeAt = changed
	} else {
		rec.LastChangeAt = orderedAt
	}

	// The feed reports "0001-01-01T00:00:00" for orders that were never cancelled.
	if rec.IsCancelled {
		if cancelled, ok := parseUpstreamTime(raw[fieldCancelDate], n.loc); ok && cancelled.Year() > 1 {
			rec.CancelledAt = &cancelled
		}
	}

	return rec, nil
}

// NormalizeWindow normalizes raws, drops records whose order date falls
// outside [fromDay, toDay], and deduplicates by unique id.
func (n *Normalizer) NormalizeWindow(raws []RawRecord, fromDay, toDay string) []models.OrderRecord {
	out := make([]models.OrderRecord, 0, len(raws))

	for _, raw := range raws {
		rec, err := n.Normalize(raw)
		if err != nil {
			metrics.NormalizerSkipped.WithLabelValues("invalid").Inc()
			logging.Debug().Err(err).Str("unique_id", uniqueIDOf(raw)).Msg("Skipping upstream record")
			continue
		}
		if rec.OrderDate < fromDay || rec.OrderDate > toDay {
			metrics.NormalizerSkipped.WithLabelValues("out_of_window").Inc()
			continue
		}
		out = append(out, rec)
	}

	out, dropped := dedupByUniqueID(out)
	if dropped > 0 {
		metrics.NormalizerSkipped.WithLabelValues("duplicate").Add(float64(dropped))
	}
	return out
}

// dedupByUniqueID collapses records sharing a unique id. The last occurrence
// wins and takes the position of the first. Records without an id always
// pass through. It returns the number of records dropped.
func dedupByUniqueID(recs []models.OrderRecord) ([]models.OrderRecord, int) {
	out := recs[:0]
	index := make(map[string]int, len(recs))
	dropped := 0

	for _, rec := range recs {
		if !rec.HasUniqueID() {
			out = append(out, rec)
			continue
		}
		if i, seen := index[rec.UniqueID]; seen {
			out[i] = rec
			dropped++
			continue
		}
		index[rec.UniqueID] = len(out)
		out = append(out, rec)
	}
	return out, dropped
}

// uniqueIDOf extracts the dedup key, or "" when absent.
func uniqueIDOf(raw RawRecord) string {
	return stringField(raw[fieldUniqueID])
}

// changeTimeOf returns the record's last-change timestamp.
func changeTimeOf(raw RawRecord, loc *time.Location) (time.Time, bool) {
	return parseUpstreamTime(raw[fieldLastChangeDate], loc)
}

// parseUpstreamTime parses a timestamp field in any supported layout.
func parseUpstreamTime(v any, loc *time.Location) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range upstreamTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func floatField(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func int64Field(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	case json.Number:
		i, _ := t.Int64()
		return i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// boolField accepts true/false, "true"/"false"/"1"/"0" and numeric 0/1.
func boolField(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}
