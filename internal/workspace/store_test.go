package workspace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dfedorov/statement-desk/internal/domain"
	"github.com/dfedorov/statement-desk/internal/infra/sqlite"
	"github.com/dfedorov/statement-desk/internal/merge"
)

func newTestStore(t *testing.T) (*Store, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, zerolog.Nop()), db
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	registry := merge.NewTagRegistry()
	registry.TagFor("jan.pdf")
	registry.TagFor("feb.pdf")

	state := State{
		Statements: []domain.StatementResult{{
			Filename:     "jan.pdf",
			Transactions: []domain.Transaction{{Description: "COSTCO", Type: domain.TypeDebit, Amount: 42.5}},
		}},
		MockMode:      true,
		Tags:          registry.Snapshot(),
		TagsAssigned:  registry.Assigned(),
		ActiveGroupID: "group-1",
	}
	require.NoError(t, store.Save(ctx, "owner-1", state))

	loaded, err := store.Load(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, loaded.Statements, 1)
	require.Equal(t, "jan.pdf", loaded.Statements[0].Filename)
	require.True(t, loaded.MockMode)
	require.Equal(t, "group-1", loaded.ActiveGroupID)
	require.False(t, loaded.SavedAt.IsZero())

	// The restored registry continues where the session left off.
	restored := loaded.Registry()
	require.Equal(t, merge.Palette[1], restored.TagFor("feb.pdf"))
	require.Equal(t, merge.Palette[2], restored.TagFor("mar.pdf"))
}

func TestLoadMissingIsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	state, err := store.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Empty(t, state.Statements)
	require.NotNil(t, state.Tags)
}

func TestLoadCorruptIsEmpty(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, db.PutState(ctx, "owner-1", "workspace", []byte("{not json")))

	state, err := store.Load(ctx, "owner-1")
	require.NoError(t, err, "corrupt state must not surface an error")
	require.Empty(t, state.Statements)
}

func TestClear(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "owner-1", State{MockMode: true}))
	require.NoError(t, store.Clear(ctx, "owner-1"))

	state, err := store.Load(ctx, "owner-1")
	require.NoError(t, err)
	require.False(t, state.MockMode)
}
