package domain

import "errors"

var (
	// ErrSessionExpired maps 401-class responses from any collaborator. It
	// forces a re-authentication flow and must never be retried locally.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound is returned when a group, category or rule does not exist
	// or is owned by someone else.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for hard duplicates: an exact case-insensitive
	// name or pattern collision that the catalog refuses to create.
	ErrConflict = errors.New("already exists")

	// ErrInvalid is returned for malformed input: blank names, unknown rule
	// types, edits to the reserved fallback category.
	ErrInvalid = errors.New("invalid input")
)
