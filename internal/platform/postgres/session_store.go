package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/store"
)

const sessionColumns = `id, token, user_id, expires_at, created_at, device_info, ip_address`

// PostgresSessionStore implements store.SessionStore on PostgreSQL.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a session store. WithUserLock opens its own
// transaction when db is a *sql.DB and reuses db when it is a *sql.Tx.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

var _ store.SessionStore = (*PostgresSessionStore)(nil)

// WithTx returns a store that runs its statements on tx.
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) *PostgresSessionStore {
	return &PostgresSessionStore{db: tx, logger: s.logger}
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var sess domain.Session
	err := row.Scan(
		&sess.ID, &sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt,
		&sess.DeviceInfo, &sess.IPAddress,
	)
	if err != nil {
		return nil, err
	}
	sess.ExpiresAt = sess.ExpiresAt.UTC()
	sess.CreatedAt = sess.CreatedAt.UTC()
	return &sess, nil
}

// Create implements store.SessionStore.Create
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.Session) error {
	if session.ID == uuid.Nil || session.Token == "" || session.UserID == uuid.Nil {
		return store.NewStoreError("session", "create", "validation failed", store.ErrInvalidEntity)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.Token, session.UserID, session.ExpiresAt, session.CreatedAt,
		session.DeviceInfo, session.IPAddress,
	)
	if err != nil {
		return MapError(err)
	}
	return nil
}

// GetByToken implements store.SessionStore.GetByToken
func (s *PostgresSessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, MapError(err)
	}
	return sess, nil
}

// ListByUser implements store.SessionStore.ListByUser
func (s *PostgresSessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return sessions, nil
}

// Delete implements store.SessionStore.Delete
func (s *PostgresSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return MapError(err)
}

// DeleteByToken implements store.SessionStore.DeleteByToken
func (s *PostgresSessionStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return MapError(err)
}

func (s *PostgresSessionStore) deleteCounting(ctx context.Context, query string, arg any) (int64, error) {
	result, err := s.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// DeleteByUser implements store.SessionStore.DeleteByUser
func (s *PostgresSessionStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.deleteCounting(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
}

// DeleteExpired implements store.SessionStore.DeleteExpired
func (s *PostgresSessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return s.deleteCounting(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before.UTC())
}

const userLockQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`

// WithUserLock implements store.SessionStore.WithUserLock. The advisory lock
// is released when the surrounding transaction ends.
func (s *PostgresSessionStore) WithUserLock(
	ctx context.Context,
	userID uuid.UUID,
	fn func(ctx context.Context, sessions store.SessionStore) error,
) error {
	locked := func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, userLockQuery, userID.String()); err != nil {
			return fmt.Errorf("failed to acquire session lock: %w", err)
		}
		return fn(ctx, s.WithTx(tx))
	}

	switch db := s.db.(type) {
	case *sql.DB:
		return store.RunInTransaction(ctx, db, locked)
	case *sql.Tx:
		return locked(ctx, db)
	default:
		return fmt.Errorf("session lock needs *sql.DB or *sql.Tx, got %T", s.db)
	}
}
