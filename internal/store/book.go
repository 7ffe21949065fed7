package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
)

// BookStore defines the interface for book persistence.
type BookStore interface {
	// Create saves a new book.
	// Returns ErrBookISBNExists if the owner already lists a book with the same ISBN.
	Create(ctx context.Context, book *domain.Book) error

	// GetByID retrieves a book by its unique ID.
	// Returns ErrBookNotFound if the book does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error)

	// GetByOwnerAndID retrieves a book only if it belongs to ownerID.
	// Returns ErrBookNotFound otherwise.
	GetByOwnerAndID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Book, error)

	// GetForUpdate is GetByOwnerAndID that also locks the book against
	// concurrent writes until the enclosing unit of work ends.
	GetForUpdate(ctx context.Context, id, ownerID uuid.UUID) (*domain.Book, error)

	// Update persists the editable fields and status of an existing book.
	// Returns ErrBookNotFound if the book does not exist and
	// ErrBookISBNExists if the new ISBN collides with another book of the owner.
	Update(ctx context.Context, book *domain.Book) error

	// SetStatus unconditionally changes the status of a book.
	// Returns ErrBookNotFound if the book does not exist.
	SetStatus(ctx context.Context, id uuid.UUID, status domain.BookStatus, at time.Time) error

	// CompareAndSetStatus changes the status to `to` only if it currently equals `from`.
	// It reports whether the swap happened. A missing book reports false.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.BookStatus, at time.Time) (bool, error)

	// List returns the books matching filter, newest first.
	List(ctx context.Context, filter domain.BookFilter) ([]*domain.Book, error)

	// ExistsForOwnerAndISBN reports whether ownerID already lists isbn.
	ExistsForOwnerAndISBN(ctx context.Context, isbn string, ownerID uuid.UUID) (bool, error)

	// Delete removes a book.
	// Returns ErrBookNotFound if the book does not exist and
	// ErrBookReferenced if any trade request, in any status, points at it.
	Delete(ctx context.Context, id uuid.UUID) error
}
