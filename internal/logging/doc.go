// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

// Package logging provides centralized zerolog-based logging for Marketlens.
//
// Initialize once at startup:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
// Log with structured fields and always terminate the chain with Msg or Send:
//
//	logging.Info().Str("user_id", uid).Int("days_fetched", n).Msg("Sync completed")
//
// Context-aware logging picks up correlation, request and user IDs:
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("Bucket document unreadable, refetching")
//
// SlogHandler bridges log/slog consumers such as sutureslog onto zerolog.
package logging
