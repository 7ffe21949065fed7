package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/store"
)

// UserStore implements store.UserStore in memory.
type UserStore struct {
	db *DB
}

// NewUserStore creates a UserStore backed by db.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

var _ store.UserStore = (*UserStore)(nil)

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return store.NewStoreError("user", "create", "validation failed", store.ErrInvalidEntity)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, u := range s.db.users {
		switch {
		case u.ID == user.ID:
			return store.ErrDuplicate
		case strings.EqualFold(u.Username, user.Username):
			return store.ErrUsernameExists
		case strings.EqualFold(u.Email, user.Email):
			return store.ErrEmailExists
		case user.PhoneNumber != "" && u.PhoneNumber == user.PhoneNumber:
			return store.ErrPhoneNumberExists
		}
	}
	s.db.users[user.ID] = cloneUser(user)
	return nil
}

// GetByID implements store.UserStore.GetByID.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetByUsername implements store.UserStore.GetByUsername.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, u := range s.db.users {
		if strings.EqualFold(u.Username, username) {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrUserNotFound
}
