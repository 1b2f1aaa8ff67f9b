// internal/session/store.go

// Package session persists the per-session pagination cursor between
// conversation turns.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scheme-matcher/internal/models"
)

var (
	// ErrNotFound is returned by Load when the session has no stored state
	// or it expired.
	ErrNotFound = errors.New("session state not found")
	// ErrConflict is returned by Update when concurrent writers kept
	// invalidating the read after every attempt.
	ErrConflict = errors.New("session state changed concurrently")
)

const DefaultTTL = 30 * time.Minute

// UpdateFunc receives the stored state, or a zero state with found false,
// and returns the state to persist. Returning an error aborts the update
// and nothing is written.
type UpdateFunc func(state models.PaginationState, found bool) (models.PaginationState, error)

// Store is the load/store contract for pagination state keyed by session id.
// Update is a read-modify-write that never lets two callers both act on the
// same stored version.
type Store interface {
	Load(ctx context.Context, sessionID string) (models.PaginationState, error)
	Save(ctx context.Context, sessionID string, state models.PaginationState) error
	Update(ctx context.Context, sessionID string, fn UpdateFunc) (models.PaginationState, error)
	Delete(ctx context.Context, sessionID string) error
}

func key(prefix, sessionID string) string {
	if prefix == "" {
		return fmt.Sprintf("session:%s:pagination", sessionID)
	}
	return fmt.Sprintf("%s:session:%s:pagination", prefix, sessionID)
}

func validID(sessionID string) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	return nil
}
