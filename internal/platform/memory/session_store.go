package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/store"
)

// SessionStore implements store.SessionStore in memory.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a SessionStore backed by db.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

var _ store.SessionStore = (*SessionStore)(nil)

func (db *DB) insertSession(s *domain.Session) {
	db.sessions[s.ID] = s
	db.sessionsByToken[s.Token] = s.ID
	db.sessionsByUser.ReplaceOrInsert(sessionKey{userID: s.UserID, createdAt: s.CreatedAt, id: s.ID})
	db.sessionsByExpiry.ReplaceOrInsert(expiryKey{expiresAt: s.ExpiresAt, id: s.ID})
}

func (db *DB) removeSession(id uuid.UUID) bool {
	s, ok := db.sessions[id]
	if !ok {
		return false
	}
	delete(db.sessions, id)
	delete(db.sessionsByToken, s.Token)
	db.sessionsByUser.Delete(sessionKey{userID: s.UserID, createdAt: s.CreatedAt, id: s.ID})
	db.sessionsByExpiry.Delete(expiryKey{expiresAt: s.ExpiresAt, id: s.ID})
	return true
}

// userSessionIDs returns the ids of userID's sessions, oldest first.
func (db *DB) userSessionIDs(userID uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	db.sessionsByUser.AscendGreaterOrEqual(sessionKey{userID: userID}, func(key sessionKey) bool {
		if key.userID != userID {
			return false
		}
		ids = append(ids, key.id)
		return true
	})
	return ids
}

// Create implements store.SessionStore.Create.
func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	if session.ID == uuid.Nil || session.Token == "" || session.UserID == uuid.Nil {
		return store.NewStoreError("session", "create", "validation failed", store.ErrInvalidEntity)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.sessions[session.ID]; exists {
		return store.ErrDuplicate
	}
	if _, exists := s.db.sessionsByToken[session.Token]; exists {
		return store.ErrDuplicate
	}
	s.db.insertSession(cloneSession(session))
	return nil
}

// GetByToken implements store.SessionStore.GetByToken.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	id, ok := s.db.sessionsByToken[token]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return cloneSession(s.db.sessions[id]), nil
}

// ListByUser implements store.SessionStore.ListByUser.
func (s *SessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	ids := s.db.userSessionIDs(userID)
	sessions := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, cloneSession(s.db.sessions[id]))
	}
	return sessions, nil
}

// Delete implements store.SessionStore.Delete.
func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.removeSession(id)
	return nil
}

// DeleteByToken implements store.SessionStore.DeleteByToken.
func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if id, ok := s.db.sessionsByToken[token]; ok {
		s.db.removeSession(id)
	}
	return nil
}

// DeleteByUser implements store.SessionStore.DeleteByUser.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var n int64
	for _, id := range s.db.userSessionIDs(userID) {
		if s.db.removeSession(id) {
			n++
		}
	}
	return n, nil
}

// DeleteExpired implements store.SessionStore.DeleteExpired.
func (s *SessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var expired []uuid.UUID
	s.db.sessionsByExpiry.AscendLessThan(expiryKey{expiresAt: before}, func(key expiryKey) bool {
		expired = append(expired, key.id)
		return true
	})

	var n int64
	for _, id := range expired {
		if s.db.removeSession(id) {
			n++
		}
	}
	return n, nil
}

// WithUserLock implements store.SessionStore.WithUserLock.
func (s *SessionStore) WithUserLock(
	ctx context.Context,
	userID uuid.UUID,
	fn func(ctx context.Context, sessions store.SessionStore) error,
) error {
	unlock := s.db.userLocks.Lock(userID)
	defer unlock()
	return fn(ctx, s)
}
