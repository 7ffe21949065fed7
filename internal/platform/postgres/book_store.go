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

const bookColumns = `id, owner_id, title, author, isbn, genre, condition, description,
	status, listing_type, created_at, updated_at`

// PostgresBookStore implements store.BookStore on PostgreSQL.
type PostgresBookStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBookStore creates a book store over a connection or transaction.
// If logger is nil, slog.Default is used.
func NewPostgresBookStore(db store.DBTX, logger *slog.Logger) *PostgresBookStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBookStore{
		db:     db,
		logger: logger.With(slog.String("component", "book_store")),
	}
}

var _ store.BookStore = (*PostgresBookStore)(nil)

// WithTx returns a store that runs its statements on tx.
func (s *PostgresBookStore) WithTx(tx *sql.Tx) *PostgresBookStore {
	return &PostgresBookStore{db: tx, logger: s.logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*domain.Book, error) {
	var b domain.Book
	err := row.Scan(
		&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.ISBN, &b.Genre, &b.Condition,
		&b.Description, &b.Status, &b.ListingType, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

// Create implements store.BookStore.Create
func (s *PostgresBookStore) Create(ctx context.Context, book *domain.Book) error {
	if err := book.Validate(); err != nil {
		return store.NewStoreError("book", "create", "validation failed", store.ErrInvalidEntity)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		book.ID, book.OwnerID, book.Title, book.Author, book.ISBN, book.Genre,
		book.Condition, book.Description, book.Status, book.ListingType,
		book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		s.logger.Debug("failed to insert book",
			slog.String("book_id", book.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.BookStore.GetByID
func (s *PostgresBookStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBookNotFound
	}
	if err != nil {
		return nil, MapError(err)
	}
	return book, nil
}

// GetByOwnerAndID implements store.BookStore.GetByOwnerAndID
func (s *PostgresBookStore) GetByOwnerAndID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1 AND owner_id = $2`, id, ownerID)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBookNotFound
	}
	if err != nil {
		return nil, MapError(err)
	}
	return book, nil
}

// GetForUpdate implements store.BookStore.GetForUpdate. The row lock is
// only held when the store runs on a transaction.
func (s *PostgresBookStore) GetForUpdate(ctx context.Context, id, ownerID uuid.UUID) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1 AND owner_id = $2 FOR UPDATE`, id, ownerID)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBookNotFound
	}
	if err != nil {
		return nil, MapError(err)
	}
	return book, nil
}

// Update implements store.BookStore.Update
func (s *PostgresBookStore) Update(ctx context.Context, book *domain.Book) error {
	if err := book.Validate(); err != nil {
		return store.NewStoreError("book", "update", "validation failed", store.ErrInvalidEntity)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET title = $2, author = $3, isbn = $4, genre = $5, condition = $6,
			description = $7, status = $8, listing_type = $9, updated_at = $10
		WHERE id = $1`,
		book.ID, book.Title, book.Author, book.ISBN, book.Genre, book.Condition,
		book.Description, book.Status, book.ListingType, book.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrBookNotFound)
}

// SetStatus implements store.BookStore.SetStatus
func (s *PostgresBookStore) SetStatus(ctx context.Context, id uuid.UUID, status domain.BookStatus, at time.Time) error {
	if !status.Valid() {
		return store.ErrInvalidEntity
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE books SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at.UTC())
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrBookNotFound)
}

// CompareAndSetStatus implements store.BookStore.CompareAndSetStatus
func (s *PostgresBookStore) CompareAndSetStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.BookStatus,
	at time.Time,
) (bool, error) {
	if !to.Valid() {
		return false, store.ErrInvalidEntity
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE books SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, at.UTC())
	if err != nil {
		return false, MapError(err)
	}
	return swapped(result)
}

// List implements store.BookStore.List
func (s *PostgresBookStore) List(ctx context.Context, filter domain.BookFilter) ([]*domain.Book, error) {
	var c conditions
	if filter.OwnerID != nil {
		c.add("owner_id = $%d", *filter.OwnerID)
	}
	if filter.ExcludeOwnerID != nil {
		c.add("owner_id <> $%d", *filter.ExcludeOwnerID)
	}
	if filter.Status != nil {
		c.add("status = $%d", *filter.Status)
	}
	if filter.ListingType != nil {
		c.add("listing_type = $%d", *filter.ListingType)
	}
	if filter.Genre != nil {
		c.add("LOWER(genre) = LOWER($%d)", *filter.Genre)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books`+c.where()+` ORDER BY created_at DESC, id`, c.args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return books, nil
}

// ExistsForOwnerAndISBN implements store.BookStore.ExistsForOwnerAndISBN
func (s *PostgresBookStore) ExistsForOwnerAndISBN(ctx context.Context, isbn string, ownerID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1 AND owner_id = $2)`, isbn, ownerID,
	).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// Delete implements store.BookStore.Delete
func (s *PostgresBookStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrBookReferenced, err)
		}
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrBookNotFound)
}
