// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/tomtom215/marketlens/internal/config"
)

func TestMiddlewareConfigFrom(t *testing.T) {
	cfg := MiddlewareConfigFrom(&config.ServerConfig{
		CORSOrigins:       []string{"https://app.example.com"},
		RateLimitRequests: 50,
		RateLimitWindow:   30 * time.Second,
	})
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.RateLimitRequests != 50 || cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("config = %+v", cfg)
	}
}

func TestCORS_Preflight(t *testing.T) {
	router := newTestRouter(&fakeOrders{}, &fakeWarmer{}, MiddlewareConfig{
		CORSAllowedOrigins: []string{"https://app.example.com"},
		CORSMaxAge:         600,
	})

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{"allowed origin", "https://app.example.com", "https://app.example.com"},
		{"foreign origin", "https://evil.example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodOptions, "/api/v1/orders", map[string]string{
				"Origin":                         tt.origin,
				"Access-Control-Request-Method":  http.MethodGet,
				"Access-Control-Request-Headers": UserIDHeader,
			})
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(&fakeOrders{}, &fakeWarmer{}, MiddlewareConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	})

	for i := 0; i < 2; i++ {
		if rec := do(router, http.MethodGet, "/api/v1/health", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	rec := do(router, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if resp := decode(t, rec, nil); resp.Error == nil || resp.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestRateLimit_DisabledByDefault(t *testing.T) {
	router := newTestRouter(&fakeOrders{}, &fakeWarmer{}, MiddlewareConfig{})
	for i := 0; i < 20; i++ {
		if rec := do(router, http.MethodGet, "/api/v1/health", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
}

func TestAPISecurityHeaders(t *testing.T) {
	rec := do(newTestRouter(&fakeOrders{}, &fakeWarmer{}, MiddlewareConfig{}), http.MethodGet, "/api/v1/health", nil)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestCredentialFrom(t *testing.T) {
	tests := []struct {
		header  string
		wantErr bool
	}{
		{"", true},
		{"   ", true},
		{"Bearer tok", false},
		{"raw-token", false},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", tt.header)
		got, err := credentialFrom(req)
		if (err != nil) != tt.wantErr {
			t.Errorf("credentialFrom(%q) err = %v, wantErr %v", tt.header, err, tt.wantErr)
		}
		if err == nil && got != tt.header {
			t.Errorf("credentialFrom(%q) = %q", tt.header, got)
		}
	}
}
