package rules

import (
	"errors"
	"testing"

	"github.com/dfedorov/statement-desk/internal/domain"
)

func TestCheckNameExactDuplicateIsConflict(t *testing.T) {
	c := DefaultChecker()
	for _, name := range []string{"Other", "other", "  OTHER "} {
		_, err := c.CheckName(name, []string{"Other", "Dining"})
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("CheckName(%q) err = %v, want ErrConflict", name, err)
		}
	}
}

func TestCheckNameNearDuplicateWarns(t *testing.T) {
	c := DefaultChecker()
	w, err := c.CheckName("Dinning", []string{"Dining"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w == nil || w.ConflictingName != "Dining" {
		t.Fatalf("warning = %+v, want conflict with Dining", w)
	}

	// Distinct names produce neither warning nor error.
	w, err = c.CheckName("Groceries", []string{"Dining"})
	if err != nil || w != nil {
		t.Fatalf("got %+v / %v, want nil/nil", w, err)
	}
}

func TestCheckNameFuzzyDisabled(t *testing.T) {
	c := SimilarityChecker{MaxDistance: 0}
	w, err := c.CheckName("Dinning", []string{"Dining"})
	if err != nil || w != nil {
		t.Fatalf("fuzzy disabled but got %+v / %v", w, err)
	}
}

func TestCheckPattern(t *testing.T) {
	cats := []domain.CategoryItem{
		{ID: "c1", Name: "Shopping", Rules: []domain.CategoryRule{
			{RuleType: domain.RuleInclude, Pattern: "AMAZON"},
		}},
	}
	c := DefaultChecker()

	// Exact duplicate in the same category is a hard conflict.
	if _, err := c.CheckPattern("amazon", "c1", cats); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("same-category duplicate err = %v, want ErrConflict", err)
	}

	// Substring overlap against another category is only an advisory.
	w, err := c.CheckPattern("AMAZON PRIME", "c2", cats)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w == nil || w.ConflictingPattern != "AMAZON" || w.ConflictingName != "Shopping" {
		t.Fatalf("warning = %+v", w)
	}

	// Near-miss spelling is an advisory too.
	w, err = c.CheckPattern("AMAZZON", "c2", cats)
	if err != nil || w == nil {
		t.Fatalf("fuzzy check: warning=%+v err=%v", w, err)
	}

	// Unrelated pattern is clean.
	w, err = c.CheckPattern("COSTCO WHOLESALE", "c2", cats)
	if err != nil || w != nil {
		t.Fatalf("unrelated pattern: warning=%+v err=%v", w, err)
	}
}
