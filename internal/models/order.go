// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package models

import (
	"time"
)

// OrderRecord is one upstream order event after normalization.
//
// OrderDate is the partition key and never changes for a given UniqueID.
// LastChangeAt and IsCancelled are revised in place by the upstream when an
// order changes status; a re-fetched record replaces the earlier copy.
type OrderRecord struct {
	UniqueID     string     `json:"unique_id"`
	OrderDate    string     `json:"order_date"` // YYYY-MM-DD
	OrderedAt    time.Time  `json:"ordered_at"`
	LastChangeAt time.Time  `json:"last_change_at"`
	IsCancelled  bool       `json:"is_cancelled"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`

	// Passthrough attributes for downstream aggregation.
	Warehouse         string  `json:"warehouse,omitempty"`
	Region            string  `json:"region,omitempty"`
	ProductCode       string  `json:"product_code,omitempty"`
	NmID              int64   `json:"nm_id,omitempty"`
	Barcode           string  `json:"barcode,omitempty"`
	Category          string  `json:"category,omitempty"`
	Brand             string  `json:"brand,omitempty"`
	TotalPrice        float64 `json:"total_price"`
	DiscountPercent   float64 `json:"discount_percent"`
	SPP               float64 `json:"spp"`
	FinishedPrice     float64 `json:"finished_price"`
	PriceWithDiscount float64 `json:"price_with_discount"`
}

// HasUniqueID reports whether the record can take part in deduplication.
func (r *OrderRecord) HasUniqueID() bool {
	return r.UniqueID != ""
}
