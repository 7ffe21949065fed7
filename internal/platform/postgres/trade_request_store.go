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

const tradeRequestColumns = `id, requester_id, owner_id, requested_book_id, offered_book_id,
	status, message, created_at, updated_at`

// PostgresTradeRequestStore implements store.TradeRequestStore on PostgreSQL.
type PostgresTradeRequestStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTradeRequestStore creates a trade request store over a connection
// or transaction. If logger is nil, slog.Default is used.
func NewPostgresTradeRequestStore(db store.DBTX, logger *slog.Logger) *PostgresTradeRequestStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTradeRequestStore{
		db:     db,
		logger: logger.With(slog.String("component", "trade_request_store")),
	}
}

var _ store.TradeRequestStore = (*PostgresTradeRequestStore)(nil)

// WithTx returns a store that runs its statements on tx.
func (s *PostgresTradeRequestStore) WithTx(tx *sql.Tx) *PostgresTradeRequestStore {
	return &PostgresTradeRequestStore{db: tx, logger: s.logger}
}

func scanTradeRequest(row rowScanner) (*domain.TradeRequest, error) {
	var (
		r       domain.TradeRequest
		offered uuid.NullUUID
	)
	err := row.Scan(
		&r.ID, &r.RequesterID, &r.OwnerID, &r.RequestedBookID, &offered,
		&r.Status, &r.Message, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if offered.Valid {
		id := offered.UUID
		r.OfferedBookID = &id
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// Create implements store.TradeRequestStore.Create
func (s *PostgresTradeRequestStore) Create(ctx context.Context, req *domain.TradeRequest) error {
	if req.ID == uuid.Nil || !req.Status.Valid() {
		return store.NewStoreError("trade request", "create", "validation failed", store.ErrInvalidEntity)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trade_requests (`+tradeRequestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID, req.RequesterID, req.OwnerID, req.RequestedBookID, nullableUUID(req.OfferedBookID),
		req.Status, req.Message, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		s.logger.Debug("failed to insert trade request",
			slog.String("trade_request_id", req.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

func (s *PostgresTradeRequestStore) getOne(ctx context.Context, query string, args ...any) (*domain.TradeRequest, error) {
	req, err := scanTradeRequest(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTradeRequestNotFound
	}
	if err != nil {
		return nil, MapError(err)
	}
	return req, nil
}

// GetByID implements store.TradeRequestStore.GetByID
func (s *PostgresTradeRequestStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TradeRequest, error) {
	return s.getOne(ctx, `SELECT `+tradeRequestColumns+` FROM trade_requests WHERE id = $1`, id)
}

// FindPending implements store.TradeRequestStore.FindPending
func (s *PostgresTradeRequestStore) FindPending(
	ctx context.Context,
	requesterID, bookID uuid.UUID,
) (*domain.TradeRequest, error) {
	return s.getOne(ctx, `
		SELECT `+tradeRequestColumns+` FROM trade_requests
		WHERE requester_id = $1 AND requested_book_id = $2 AND status = $3`,
		requesterID, bookID, domain.TradeStatusPending)
}

func filterConditions(filter domain.TradeRequestFilter) conditions {
	var c conditions
	if filter.RequesterID != nil {
		c.add("requester_id = $%d", *filter.RequesterID)
	}
	if filter.OwnerID != nil {
		c.add("owner_id = $%d", *filter.OwnerID)
	}
	if filter.RequestedBookID != nil {
		c.add("requested_book_id = $%d", *filter.RequestedBookID)
	}
	if filter.Status != nil {
		c.add("status = $%d", *filter.Status)
	}
	return c
}

// List implements store.TradeRequestStore.List
func (s *PostgresTradeRequestStore) List(
	ctx context.Context,
	filter domain.TradeRequestFilter,
) ([]*domain.TradeRequest, error) {
	c := filterConditions(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradeRequestColumns+` FROM trade_requests`+c.where()+` ORDER BY created_at DESC, id`,
		c.args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var reqs []*domain.TradeRequest
	for rows.Next() {
		req, err := scanTradeRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade request: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return reqs, nil
}

// Count implements store.TradeRequestStore.Count
func (s *PostgresTradeRequestStore) Count(ctx context.Context, filter domain.TradeRequestFilter) (int64, error) {
	c := filterConditions(filter)
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trade_requests`+c.where(), c.args...).Scan(&n); err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// HasActiveForBook implements store.TradeRequestStore.HasActiveForBook
func (s *PostgresTradeRequestStore) HasActiveForBook(ctx context.Context, bookID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trade_requests
			WHERE (requested_book_id = $1 OR offered_book_id = $1)
			AND status IN ($2, $3)
		)`,
		bookID, domain.TradeStatusPending, domain.TradeStatusAccepted,
	).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// CompareAndSetStatus implements store.TradeRequestStore.CompareAndSetStatus
func (s *PostgresTradeRequestStore) CompareAndSetStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.TradeStatus,
	at time.Time,
) (bool, error) {
	if !to.Valid() {
		return false, store.ErrInvalidEntity
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE trade_requests SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, at.UTC())
	if err != nil {
		return false, MapError(err)
	}
	return swapped(result)
}

// Delete implements store.TradeRequestStore.Delete
func (s *PostgresTradeRequestStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM trade_requests WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTradeRequestNotFound)
}
