// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the liveness payload.
type HealthStatus struct {
	Status          string  `json:"status"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	UpstreamCircuit string  `json:"upstream_circuit,omitempty"`
}

// Health handles liveness checks. It never touches the store or the order
// feed; an open upstream circuit reports "degraded" but still answers 200.
//
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if h.breakerState != nil {
		status.UpstreamCircuit = h.breakerState()
		if status.UpstreamCircuit == "open" {
			status.Status = "degraded"
		}
	}
	NewResponseWriter(w, r).Success(status)
}
