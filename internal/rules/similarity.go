package rules

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/dfedorov/statement-desk/internal/domain"
)

// Warning is a non-fatal advisory attached to a successful category or rule
// mutation. It never blocks the mutation; the user resolves it manually.
type Warning struct {
	Message            string `json:"message"`
	ConflictingName    string `json:"conflicting_name,omitempty"`
	ConflictingPattern string `json:"conflicting_pattern,omitempty"`
}

// SimilarityChecker detects near-duplicate category names and rule patterns
// within a group. The edit-distance threshold is a product heuristic, not a
// contract, so it is injected rather than hardcoded.
type SimilarityChecker struct {
	// MaxDistance is the largest levenshtein distance still reported as a
	// near-duplicate. Zero disables fuzzy matching; exact and substring
	// checks always run.
	MaxDistance int
}

// DefaultChecker matches the thresholds the product shipped with.
func DefaultChecker() SimilarityChecker {
	return SimilarityChecker{MaxDistance: 2}
}

// CheckName compares a new or renamed category name against the other names
// in the same group. An exact case-insensitive duplicate is a hard conflict
// (domain.ErrConflict); a fuzzy near-match is only an advisory.
func (c SimilarityChecker) CheckName(name string, existing []string) (*Warning, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, other := range existing {
		otherLower := strings.ToLower(other)
		if lower == otherLower {
			return nil, fmt.Errorf("category %q: %w", other, domain.ErrConflict)
		}
		if c.MaxDistance > 0 && levenshtein.ComputeDistance(lower, otherLower) <= c.MaxDistance {
			return &Warning{
				Message:         fmt.Sprintf("Very similar to existing category %q", other),
				ConflictingName: other,
			}, nil
		}
	}
	return nil, nil
}

// CheckPattern compares a new or edited rule pattern against every rule in
// the group. An exact duplicate within the same category is a hard conflict;
// a substring overlap or fuzzy near-match anywhere in the group is an
// advisory naming the conflicting rule and its category.
func (c SimilarityChecker) CheckPattern(pattern, categoryID string, categories []domain.CategoryItem) (*Warning, error) {
	lower := strings.ToLower(strings.TrimSpace(pattern))
	for _, cat := range categories {
		for _, r := range cat.Rules {
			existingLower := strings.ToLower(r.Pattern)
			if cat.ID == categoryID && lower == existingLower {
				return nil, fmt.Errorf("rule pattern %q: %w", r.Pattern, domain.ErrConflict)
			}
			if strings.Contains(lower, existingLower) || strings.Contains(existingLower, lower) {
				return &Warning{
					Message:            fmt.Sprintf("Pattern overlaps with rule %q on category %q", r.Pattern, cat.Name),
					ConflictingPattern: r.Pattern,
					ConflictingName:    cat.Name,
				}, nil
			}
			if c.MaxDistance > 0 && levenshtein.ComputeDistance(lower, existingLower) <= c.MaxDistance {
				return &Warning{
					Message:            fmt.Sprintf("Very similar to rule %q on category %q", r.Pattern, cat.Name),
					ConflictingPattern: r.Pattern,
					ConflictingName:    cat.Name,
				}, nil
			}
		}
	}
	return nil, nil
}
