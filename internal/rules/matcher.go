// Package rules implements the deterministic category rule engine that
// overrides AI-assigned transaction categories, plus the similarity checker
// that flags near-duplicate category names and rule patterns.
package rules

import "strings"

// Matches reports whether pattern is a case-insensitive substring of
// description. The pattern is trimmed first; a pattern that is empty after
// trimming never matches anything.
func Matches(pattern, description string) bool {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return false
	}
	return strings.Contains(strings.ToLower(description), strings.ToLower(p))
}
