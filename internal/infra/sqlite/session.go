package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PutState upserts one session-state value. Value is an opaque JSON blob;
// the schema does not interpret it.
func (db *DB) PutState(ctx context.Context, ownerID, key string, value []byte) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO session_state (owner_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, ownerID, key, string(value), now())
	if err != nil {
		return fmt.Errorf("put state %s: %w", key, err)
	}
	return nil
}

// GetState returns the stored value for a key, or nil when absent. A missing
// key is not an error: callers treat it as an empty session.
func (db *DB) GetState(ctx context.Context, ownerID, key string) ([]byte, error) {
	var value string
	err := db.db.QueryRowContext(ctx, `
		SELECT value FROM session_state WHERE owner_id = ? AND key = ?
	`, ownerID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", key, err)
	}
	return []byte(value), nil
}

// DeleteState removes a key. Deleting an absent key is a no-op.
func (db *DB) DeleteState(ctx context.Context, ownerID, key string) error {
	_, err := db.db.ExecContext(ctx, `
		DELETE FROM session_state WHERE owner_id = ? AND key = ?
	`, ownerID, key)
	if err != nil {
		return fmt.Errorf("delete state %s: %w", key, err)
	}
	return nil
}
