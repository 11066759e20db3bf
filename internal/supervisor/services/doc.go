// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

// Package services adapts blocking server components to suture.Service.
//
// HTTPServerService binds its listener inside Serve and drains connections on
// context cancellation within the configured shutdown timeout.
package services
