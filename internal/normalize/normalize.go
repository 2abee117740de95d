// Package normalize holds the canonical forms used for storage and comparisons.
package normalize

import "strings"

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization currently trims surrounding
// whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// Handle returns the stored form of a username: trimmed, lower-cased and
// without a leading "@".
func Handle(h string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h)), "@")
}

// Pair puts two participant identifiers into canonical order (smallest
// first, byte-wise). Both sides of a conversation end up on the same row
// whichever of them asks first.
func Pair(a, b string) (string, string) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if b < a {
		return b, a
	}
	return a, b
}
