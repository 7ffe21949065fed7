// Package session issues and tracks refresh-token sessions.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/service"
	"github.com/tradereads/tradereads-api/internal/store"
)

// Defaults applied when no option overrides them.
const (
	DefaultMaxSessions = 5
	DefaultTTL         = 7 * 24 * time.Hour
	tokenBytes         = 32
)

// ErrSessionNotFound is returned when a token is unknown or expired.
var ErrSessionNotFound error = &domain.RuleError{
	Kind:   domain.ErrUnauthenticated,
	Reason: "Invalid or expired refresh token",
}

// Registry manages the refresh-token sessions of users.
type Registry interface {
	// CreateSession issues a new session for userID, evicting the oldest
	// live sessions when the user is at the cap.
	CreateSession(ctx context.Context, userID uuid.UUID, deviceInfo, ipAddress string) (*domain.Session, error)

	// Validate reports whether token names a live session.
	Validate(ctx context.Context, token string) (bool, error)

	// ResolveUser returns the owner of a live session.
	ResolveUser(ctx context.Context, token string) (uuid.UUID, error)

	// Revoke removes the session carrying token, if any.
	Revoke(ctx context.Context, token string) error

	// RevokeAll removes every session of userID.
	RevokeAll(ctx context.Context, userID uuid.UUID) error

	// ListActive returns the live sessions of userID, newest first.
	ListActive(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error)

	// SweepExpired deletes every session that expired before now.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type registryImpl struct {
	sessions    store.SessionStore
	maxSessions int
	ttl         time.Duration
	timeFunc    func() time.Time
	logger      *slog.Logger
}

// Option configures a Registry.
type Option func(*registryImpl)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *registryImpl) { r.timeFunc = now }
}

// WithMaxSessions sets how many live sessions a user may hold.
func WithMaxSessions(n int) Option {
	return func(r *registryImpl) {
		if n > 0 {
			r.maxSessions = n
		}
	}
}

// WithTTL sets how long a new session stays valid.
func WithTTL(ttl time.Duration) Option {
	return func(r *registryImpl) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRegistry creates a Registry on top of sessions.
func NewRegistry(sessions store.SessionStore, logger *slog.Logger, opts ...Option) (Registry, error) {
	if sessions == nil {
		return nil, &service.ServiceError{Operation: "create_registry", Message: "sessions cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &registryImpl{
		sessions:    sessions,
		maxSessions: DefaultMaxSessions,
		ttl:         DefaultTTL,
		timeFunc:    time.Now,
		logger:      logger.With(slog.String("component", "session_registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (r *registryImpl) CreateSession(
	ctx context.Context,
	userID uuid.UUID,
	deviceInfo, ipAddress string,
) (*domain.Session, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	deviceInfo = strings.TrimSpace(deviceInfo)
	if deviceInfo == "" {
		deviceInfo = domain.UnreportedDevice
	}

	token, err := newToken()
	if err != nil {
		return nil, service.NewServiceError("create_session", "failed to generate token", err)
	}

	var created *domain.Session
	err = r.sessions.WithUserLock(ctx, userID, func(ctx context.Context, sessions store.SessionStore) error {
		now := r.timeFunc()

		all, err := sessions.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		live := slices.DeleteFunc(all, func(s *domain.Session) bool { return !s.IsLive(now) })
		slices.SortFunc(live, func(a, b *domain.Session) int {
			if a.OlderThan(b) {
				return -1
			}
			if b.OlderThan(a) {
				return 1
			}
			return 0
		})

		for len(live) >= r.maxSessions {
			oldest := live[0]
			if err := sessions.Delete(ctx, oldest.ID); err != nil {
				return err
			}
			r.logger.Info("evicted oldest session",
				"user_id", userID,
				"session_id", oldest.ID,
				"created_at", oldest.CreatedAt)
			live = live[1:]
		}

		s := &domain.Session{
			ID:         uuid.New(),
			Token:      token,
			UserID:     userID,
			ExpiresAt:  now.Add(r.ttl).UTC(),
			CreatedAt:  now.UTC(),
			DeviceInfo: deviceInfo,
			IPAddress:  ipAddress,
		}
		if err := sessions.Create(ctx, s); err != nil {
			return err
		}
		created = s
		return nil
	})
	if err != nil {
		r.logger.Error("failed to create session", "user_id", userID, "error", err)
		return nil, service.NewServiceError("create_session", "failed to create session", err)
	}

	r.logger.Debug("session created", "user_id", userID, "session_id", created.ID)
	return created, nil
}

func (r *registryImpl) live(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	s, err := r.sessions.GetByToken(ctx, token)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, service.NewServiceError("lookup_session", "failed to load session", err)
	}
	if !s.IsLive(r.timeFunc()) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *registryImpl) Validate(ctx context.Context, token string) (bool, error) {
	_, err := r.live(ctx, token)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrSessionNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *registryImpl) ResolveUser(ctx context.Context, token string) (uuid.UUID, error) {
	s, err := r.live(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	return s.UserID, nil
}

func (r *registryImpl) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := r.sessions.DeleteByToken(ctx, token); err != nil {
		return service.NewServiceError("revoke_session", "failed to delete session", err)
	}
	return nil
}

func (r *registryImpl) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	n, err := r.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return service.NewServiceError("revoke_all_sessions", "failed to delete sessions", err)
	}
	r.logger.Info("revoked all sessions", "user_id", userID, "count", n)
	return nil
}

func (r *registryImpl) ListActive(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	all, err := r.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, service.NewServiceError("list_sessions", "failed to list sessions", err)
	}
	now := r.timeFunc()
	active := make([]*domain.Session, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].IsLive(now) {
			active = append(active, all[i])
		}
	}
	return active, nil
}

func (r *registryImpl) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return 0, service.NewServiceError("sweep_sessions", "failed to delete expired sessions", err)
	}
	if n > 0 {
		r.logger.Info("swept expired sessions", "count", n)
	}
	return n, nil
}
