// Package workspace persists the user's working session: the accumulated
// statements, the source-tag assignments, and the group the session was
// categorized against. Reloading a session restores the merged view exactly.
package workspace

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/dfedorov/statement-desk/internal/domain"
	"github.com/dfedorov/statement-desk/internal/merge"
)

const stateKey = "workspace"

// State is the persisted snapshot of one session.
type State struct {
	Statements    []domain.StatementResult `json:"statements"`
	MockMode      bool                     `json:"mock_mode"`
	Usage         *domain.UsageSnapshot    `json:"usage,omitempty"`
	Tags          map[string]string        `json:"tags"`
	TagsAssigned  int                      `json:"tags_assigned"`
	ActiveGroupID string                   `json:"active_group_id,omitempty"`
	SavedAt       time.Time                `json:"saved_at"`
}

// Registry rebuilds the tag registry this state was saved with.
func (s *State) Registry() *merge.TagRegistry {
	return merge.Restore(s.Tags, s.TagsAssigned)
}

// KV is the raw persistence the store writes through.
type KV interface {
	PutState(ctx context.Context, ownerID, key string, value []byte) error
	GetState(ctx context.Context, ownerID, key string) ([]byte, error)
	DeleteState(ctx context.Context, ownerID, key string) error
}

// Store saves and loads session state. A missing or unreadable snapshot
// loads as an empty session rather than an error: stale state must never
// lock a user out of starting fresh.
type Store struct {
	kv  KV
	log zerolog.Logger
}

// NewStore creates a workspace store over a KV.
func NewStore(kv KV, log zerolog.Logger) *Store {
	return &Store{kv: kv, log: log}
}

// Save persists the session snapshot, stamping SavedAt.
func (s *Store) Save(ctx context.Context, ownerID string, state State) error {
	state.SavedAt = time.Now().UTC()
	if state.Tags == nil {
		state.Tags = map[string]string{}
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.kv.PutState(ctx, ownerID, stateKey, raw)
}

// Load returns the stored session, or an empty one when nothing usable is
// stored. Corrupt state is discarded with a warning.
func (s *Store) Load(ctx context.Context, ownerID string) (*State, error) {
	raw, err := s.kv.GetState(ctx, ownerID, stateKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return emptyState(), nil
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		s.log.Warn().Str("owner", ownerID).Err(err).Msg("Discarding corrupt session state")
		return emptyState(), nil
	}
	if state.Tags == nil {
		state.Tags = map[string]string{}
	}
	return &state, nil
}

// Clear drops the stored session.
func (s *Store) Clear(ctx context.Context, ownerID string) error {
	return s.kv.DeleteState(ctx, ownerID, stateKey)
}

func emptyState() *State {
	return &State{Tags: map[string]string{}}
}
