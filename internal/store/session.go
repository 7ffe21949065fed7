package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
)

// SessionStore defines the interface for refresh-token session persistence.
type SessionStore interface {
	// Create saves a new session.
	// Returns ErrDuplicate if the token is already in use.
	Create(ctx context.Context, session *domain.Session) error

	// GetByToken retrieves a session by its opaque token, expired or not.
	// Returns ErrSessionNotFound if no session carries the token.
	GetByToken(ctx context.Context, token string) (*domain.Session, error)

	// ListByUser returns every session of userID, expired or not,
	// oldest first with ties broken by ascending id.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error)

	// Delete removes a session by id. Deleting a missing session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByToken removes the session carrying token. Idempotent.
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUser removes every session of userID and returns how many were removed.
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteExpired removes every session whose expiry is before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// WithUserLock runs fn while holding an exclusive per-user scope.
	// Concurrent calls for the same user are serialized; other users are unaffected.
	// The store handed to fn must be used for all work inside the scope.
	WithUserLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, sessions SessionStore) error) error
}
