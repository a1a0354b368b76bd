package rules

import (
	"sort"

	"github.com/dfedorov/statement-desk/internal/domain"
)

// Outcome is the two-field result of resolving one transaction. Callers of
// Reprocess merge exactly these two fields back onto their own transaction
// objects so edits to unrelated fields survive.
type Outcome struct {
	Category string                `json:"category"`
	Source   domain.CategorySource `json:"category_source"`
}

// Resolve finds the category that should apply to a description, walking the
// categories in sort order. A category is a candidate when at least one of
// its include rules matches and none of its own exclude rules match. The
// first candidate wins; ok is false when no category matched.
func Resolve(description string, categories []domain.CategoryItem) (name string, ok bool) {
	return resolveOrdered(description, sortedByOrder(categories))
}

// Apply runs rule resolution over transactions in place. A match overrides
// the category and stamps the source as rule; non-matches are left untouched.
// With reprocess set, manually categorized transactions are skipped entirely.
// Returns how many transactions ended up rule-sourced.
func Apply(transactions []domain.Transaction, categories []domain.CategoryItem, reprocess bool) int {
	applied := 0
	ordered := sortedByOrder(categories)
	for i := range transactions {
		tx := &transactions[i]
		if reprocess && tx.CategorySource == domain.SourceManual {
			continue
		}
		if name, ok := resolveOrdered(tx.Description, ordered); ok {
			tx.Category = name
			tx.CategorySource = domain.SourceRule
		}
		if tx.CategorySource == domain.SourceRule {
			applied++
		}
	}
	return applied
}

// Reprocess recomputes category and source for every transaction and returns
// only those two fields, positionally aligned with the input. The input is
// not mutated. Manual categories are passed through unchanged.
func Reprocess(transactions []domain.Transaction, categories []domain.CategoryItem) []Outcome {
	ordered := sortedByOrder(categories)
	out := make([]Outcome, len(transactions))
	for i, tx := range transactions {
		out[i] = Outcome{Category: tx.Category, Source: tx.CategorySource}
		if tx.CategorySource == domain.SourceManual {
			continue
		}
		if name, ok := resolveOrdered(tx.Description, ordered); ok {
			out[i] = Outcome{Category: name, Source: domain.SourceRule}
		}
	}
	return out
}

// resolveOrdered is Resolve without the re-sort, for bulk callers.
func resolveOrdered(description string, ordered []domain.CategoryItem) (string, bool) {
	for _, cat := range ordered {
		if len(cat.Rules) == 0 {
			continue
		}
		excluded := false
		for _, r := range cat.Rules {
			if r.RuleType == domain.RuleExclude && Matches(r.Pattern, description) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		for _, r := range cat.Rules {
			if r.RuleType == domain.RuleInclude && Matches(r.Pattern, description) {
				return cat.Name, true
			}
		}
	}
	return "", false
}

func sortedByOrder(categories []domain.CategoryItem) []domain.CategoryItem {
	out := append([]domain.CategoryItem(nil), categories...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}
