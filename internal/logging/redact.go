// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package logging

import "strings"

// maxLoggedBody bounds upstream bodies embedded in errors and log lines.
const maxLoggedBody = 512

// SanitizeToken masks a credential, showing only the first and last 4 characters.
// A "Bearer " prefix is kept so the credential form stays visible.
// Example: "Bearer eyJhbGciOiJFUzI1NiJ9.payload" -> "Bearer eyJh...load"
func SanitizeToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}

	prefix := ""
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		prefix, token = token[:7], strings.TrimSpace(token[7:])
	}

	if len(token) <= 12 {
		return prefix + "***"
	}
	return prefix + token[:4] + "..." + token[len(token)-4:]
}

// SanitizeBody trims an upstream response body for inclusion in errors.
// Any occurrence of secret is masked.
func SanitizeBody(body, secret string) string {
	body = strings.TrimSpace(body)
	if secret = strings.TrimSpace(secret); len(secret) >= 8 {
		body = strings.ReplaceAll(body, secret, "***")
	}
	return truncateString(body, maxLoggedBody)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
