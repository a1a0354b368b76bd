package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatePutGetDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.PutState(ctx, "owner-1", "workspace", []byte(`{"statements":[]}`)))

	got, err := db.GetState(ctx, "owner-1", "workspace")
	require.NoError(t, err)
	require.JSONEq(t, `{"statements":[]}`, string(got))

	require.NoError(t, db.PutState(ctx, "owner-1", "workspace", []byte(`{"statements":[{"filename":"a.pdf"}]}`)))
	got, err = db.GetState(ctx, "owner-1", "workspace")
	require.NoError(t, err)
	require.Contains(t, string(got), "a.pdf")

	require.NoError(t, db.DeleteState(ctx, "owner-1", "workspace"))
	got, err = db.GetState(ctx, "owner-1", "workspace")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStateMissingKeyIsNotAnError(t *testing.T) {
	db := newTestDB(t)

	got, err := db.GetState(context.Background(), "owner-1", "never-written")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStateScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.PutState(ctx, "owner-1", "workspace", []byte(`{}`)))

	got, err := db.GetState(ctx, "owner-2", "workspace")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStateDeleteAbsentKey(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.DeleteState(context.Background(), "owner-1", "nope"))
}
