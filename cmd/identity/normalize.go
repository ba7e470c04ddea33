package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization. Every lookup and
// uniqueness check uses the normalized form; the original casing is kept for
// display.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
