// Package catalog holds the curated attribute catalog index: canonical key
// normalization, the hand-maintained alias table, and attribute resolution
// for free-form payload keys.
package catalog

import "strings"

// NormalizeKey maps a raw, possibly noisy attribute key to its canonical
// lookup form: dots become spaces, the result is trimmed, lowercased, and
// runs of whitespace collapse to a single space.
func NormalizeKey(s string) string {
	s = strings.ReplaceAll(s, ".", " ")
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
