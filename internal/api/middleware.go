// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/marketlens/internal/config"
	"github.com/tomtom215/marketlens/internal/logging"
	syncpkg "github.com/tomtom215/marketlens/internal/sync"
)

// UserIDHeader identifies the seller whose cache a request addresses.
const UserIDHeader = "X-User-ID"

type ctxKey int

const userIDKey ctxKey = iota

// MiddlewareConfig holds configuration for the router's chi middleware.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSMaxAge         int // seconds

	// RateLimitRequests per RateLimitWindow per client IP. 0 disables.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// MiddlewareConfigFrom builds a MiddlewareConfig from the server config.
func MiddlewareConfigFrom(cfg *config.ServerConfig) MiddlewareConfig {
	return MiddlewareConfig{
		CORSAllowedOrigins: cfg.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitWindow:    cfg.RateLimitWindow,
	}
}

// ChiMiddleware provides the chi ecosystem middleware used by the router.
type ChiMiddleware struct {
	config MiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware factory.
func NewChiMiddleware(cfg MiddlewareConfig) *ChiMiddleware {
	return &ChiMiddleware{
		config: cfg,
		cors: cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", UserIDHeader, "X-Request-ID"},
			ExposedHeaders: []string{"Retry-After", "X-Request-ID"},
			MaxAge:         cfg.CORSMaxAge,
		}),
	}
}

// CORS returns the go-chi/cors handler. It must be global to answer preflights.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns a per-IP limiter using go-chi/httprate. Rejections use the
// JSON error envelope.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	if m.config.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	window := m.config.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	return httprate.Limit(
		m.config.RateLimitRequests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Too many requests")
		}),
	)
}

// APISecurityHeaders adds headers that keep API responses out of frames and caches.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser validates X-User-ID and stores it in the request and logging
// contexts. Requests without a valid user ID get a 400.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := IdentityParams{UserID: r.Header.Get(UserIDHeader)}
		if !validateRequest(NewResponseWriter(w, r), &params) {
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, params.UserID)
		ctx = logging.ContextWithUserID(ctx, params.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userIDFrom returns the user set by RequireUser.
func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// credentialFrom returns the raw Authorization header. The sync client
// strips any Bearer prefix itself.
func credentialFrom(r *http.Request) (string, error) {
	credential := r.Header.Get("Authorization")
	if syncpkg.BareToken(credential) == "" {
		return "", ErrMissingCredential
	}
	return credential, nil
}
