package merge

import (
	"testing"

	"github.com/dfedorov/statement-desk/internal/domain"
)

func stmt(filename string, descs ...string) domain.StatementResult {
	s := domain.StatementResult{Filename: filename}
	for _, d := range descs {
		s.Transactions = append(s.Transactions, domain.Transaction{Description: d, Type: domain.TypeDebit})
	}
	s.RecomputeTotals()
	return s
}

func TestTagAssignmentIsStableAcrossRemoval(t *testing.T) {
	r := NewTagRegistry()

	aTag := r.TagFor("a.pdf")
	bTag := r.TagFor("b.pdf")
	if aTag != Palette[0] || bTag != Palette[1] {
		t.Fatalf("tags = %q, %q; want first two palette entries", aTag, bTag)
	}

	// a.pdf is removed from the session; its tag is never reused. c.pdf gets
	// the next unused tag, and b.pdf keeps its original one.
	cTag := r.TagFor("c.pdf")
	if cTag != Palette[2] {
		t.Errorf("c.pdf tag = %q, want %q (not a.pdf's freed tag)", cTag, Palette[2])
	}
	if got := r.TagFor("b.pdf"); got != bTag {
		t.Errorf("b.pdf tag changed: %q -> %q", bTag, got)
	}
}

func TestTagPaletteWraps(t *testing.T) {
	r := NewTagRegistry()
	for i := 0; i < len(Palette); i++ {
		r.TagFor(string(rune('a'+i)) + ".pdf")
	}
	if got := r.TagFor("overflow.pdf"); got != Palette[0] {
		t.Errorf("wrapped tag = %q, want %q", got, Palette[0])
	}
}

func TestFlattenPreservesOrder(t *testing.T) {
	statements := []domain.StatementResult{
		stmt("a.pdf", "A1", "A2"),
		stmt("b.pdf", "B1"),
		stmt("a.pdf", "A3"), // append-mode second statement from the same file
	}
	r := NewTagRegistry()
	merged := Flatten(statements, r)

	wantDescs := []string{"A1", "A2", "B1", "A3"}
	if len(merged) != len(wantDescs) {
		t.Fatalf("len = %d, want %d", len(merged), len(wantDescs))
	}
	for i, want := range wantDescs {
		if merged[i].Description != want {
			t.Errorf("merged[%d] = %q, want %q", i, merged[i].Description, want)
		}
	}
	if merged[0].Tag != merged[3].Tag || merged[0].Source != "a.pdf" {
		t.Errorf("same-file rows have different identity: %+v vs %+v", merged[0], merged[3])
	}
	if merged[2].Tag == merged[0].Tag {
		t.Error("b.pdf shares a.pdf's tag")
	}

	// The underlying statements are untouched.
	if len(statements[0].Transactions) != 2 || statements[0].Transactions[0].Description != "A1" {
		t.Errorf("input mutated: %+v", statements[0])
	}
}

func TestRestore(t *testing.T) {
	r := NewTagRegistry()
	r.TagFor("a.pdf")
	r.TagFor("b.pdf")

	restored := Restore(r.Snapshot(), r.Assigned())
	if got := restored.TagFor("b.pdf"); got != Palette[1] {
		t.Errorf("restored b.pdf tag = %q, want %q", got, Palette[1])
	}
	if got := restored.TagFor("c.pdf"); got != Palette[2] {
		t.Errorf("restored next tag = %q, want %q", got, Palette[2])
	}
}
