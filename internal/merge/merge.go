// Package merge flattens per-file statement results into a unified
// transaction view, tagging each row with a stable per-file display identity.
package merge

import "github.com/dfedorov/statement-desk/internal/domain"

// Palette is the fixed cyclic set of display tags. The thirteenth distinct
// filename in a session wraps back to the first tag.
var Palette = []string{
	"violet", "teal", "amber", "rose", "cyan", "lime",
	"fuchsia", "orange", "sky", "emerald", "pink", "indigo",
}

// TagRegistry assigns display tags to filenames. It is an explicit object
// scoped to one session, not ambient package state: the Nth distinct filename
// ever seen gets the Nth palette entry, and an assignment never changes or is
// reused within the session, even after the statement is removed.
type TagRegistry struct {
	palette []string
	byName  map[string]string
	next    int
}

// NewTagRegistry creates a registry over the default palette.
func NewTagRegistry() *TagRegistry {
	return NewTagRegistryWithPalette(Palette)
}

// NewTagRegistryWithPalette creates a registry over a custom palette.
func NewTagRegistryWithPalette(palette []string) *TagRegistry {
	return &TagRegistry{
		palette: palette,
		byName:  make(map[string]string),
	}
}

// TagFor returns the tag for a filename, assigning the next palette entry on
// first sight.
func (r *TagRegistry) TagFor(filename string) string {
	if tag, ok := r.byName[filename]; ok {
		return tag
	}
	tag := r.palette[r.next%len(r.palette)]
	r.byName[filename] = tag
	r.next++
	return tag
}

// Snapshot returns the current filename→tag assignments, for persistence.
func (r *TagRegistry) Snapshot() map[string]string {
	out := make(map[string]string, len(r.byName))
	for k, v := range r.byName {
		out[k] = v
	}
	return out
}

// Restore rebuilds a registry from a persisted snapshot. The cursor resumes
// after the highest assigned palette position so restored sessions keep
// handing out fresh tags.
func Restore(snapshot map[string]string, assigned int) *TagRegistry {
	r := NewTagRegistry()
	for name, tag := range snapshot {
		r.byName[name] = tag
	}
	r.next = assigned
	return r
}

// Assigned reports how many distinct filenames have received tags.
func (r *TagRegistry) Assigned() int { return r.next }

// Transaction is one row of the merged view: the underlying transaction plus
// its originating file and display tag. The underlying statements are not
// mutated.
type Transaction struct {
	domain.Transaction
	Source string `json:"source"`
	Tag    string `json:"source_tag"`
}

// Flatten produces the order-preserving merged view of statements, assigning
// tags through the registry. Statement order and within-statement transaction
// order are both kept.
func Flatten(statements []domain.StatementResult, registry *TagRegistry) []Transaction {
	var out []Transaction
	for _, s := range statements {
		tag := registry.TagFor(s.Filename)
		for _, tx := range s.Transactions {
			out = append(out, Transaction{Transaction: tx, Source: s.Filename, Tag: tag})
		}
	}
	return out
}
