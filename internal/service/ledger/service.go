// Package ledger manages the books users list for exchange.
//
// Edits and deletes read the book under store.BookStore.GetForUpdate inside
// one unit of work, so they serialize with trade acceptance on the same book.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/service"
	"github.com/tradereads/tradereads-api/internal/store"
)

// Client-facing reasons
const (
	reasonDuplicateISBN = "You already have a book with this ISBN"
	reasonActiveTrade   = "Book is part of an active trade request"
	reasonTradeHistory  = "Book has trade history and cannot be deleted"
	bookEntity          = "Book"
)

// BookInput is what an owner submits when listing or editing a book.
// A nil Status leaves the status unchanged, or AVAILABLE on create.
type BookInput struct {
	Details domain.BookDetails
	Status  *domain.BookStatus
}

// BookService provides book listing operations.
type BookService interface {
	// CreateMyBook lists a new book for ownerID.
	CreateMyBook(ctx context.Context, ownerID uuid.UUID, input BookInput) (*domain.Book, error)

	// UpdateMyBook edits a book ownerID owns.
	UpdateMyBook(ctx context.Context, ownerID, bookID uuid.UUID, input BookInput) (*domain.Book, error)

	// DeleteMyBook removes a book ownerID owns. A book any trade request
	// references, active or settled, cannot be deleted.
	DeleteMyBook(ctx context.Context, ownerID, bookID uuid.UUID) error

	// MyBooks lists ownerID's books, optionally filtered.
	MyBooks(ctx context.Context, ownerID uuid.UUID, listingType *domain.ListingType, status *domain.BookStatus) ([]*domain.Book, error)

	// GetBook returns any book by id.
	GetBook(ctx context.Context, id uuid.UUID) (*domain.Book, error)

	// ListBooks lists all books matching the optional predicates.
	ListBooks(ctx context.Context, genre *string, status *domain.BookStatus, listingType *domain.ListingType) ([]*domain.Book, error)

	// AvailableBooks lists AVAILABLE books, optionally excluding one owner's.
	AvailableBooks(ctx context.Context, excludeOwnerID *uuid.UUID) ([]*domain.Book, error)

	// SetStatus overwrites a book's status.
	SetStatus(ctx context.Context, id uuid.UUID, status domain.BookStatus) error
}

type bookServiceImpl struct {
	transactor store.Transactor
	books      store.BookStore
	timeFunc   func() time.Time
	logger     *slog.Logger
}

// Option configures a BookService.
type Option func(*bookServiceImpl)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *bookServiceImpl) { s.timeFunc = now }
}

// NewBookService creates a BookService. Edits and deletes run through
// transactor, everything else reads books directly.
func NewBookService(
	transactor store.Transactor,
	books store.BookStore,
	logger *slog.Logger,
	opts ...Option,
) (BookService, error) {
	if transactor == nil {
		return nil, &service.ServiceError{Operation: "create_service", Message: "transactor cannot be nil"}
	}
	if books == nil {
		return nil, &service.ServiceError{Operation: "create_service", Message: "books cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &bookServiceImpl{
		transactor: transactor,
		books:      books,
		timeFunc:   time.Now,
		logger:     logger.With(slog.String("component", "book_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func invalidBook(err error) error {
	return domain.InvalidArgument(err.Error())
}

func (s *bookServiceImpl) CreateMyBook(ctx context.Context, ownerID uuid.UUID, input BookInput) (*domain.Book, error) {
	if ownerID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}

	book, err := domain.NewBook(ownerID, input.Details, s.timeFunc())
	if err != nil {
		return nil, invalidBook(err)
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, invalidBook(domain.ErrInvalidBookStatus)
		}
		book.Status = *input.Status
	}

	exists, err := s.books.ExistsForOwnerAndISBN(ctx, book.ISBN, ownerID)
	if err != nil {
		return nil, service.NewServiceError("create_book", "failed to check isbn", err)
	}
	if exists {
		return nil, domain.Conflict(reasonDuplicateISBN)
	}

	if err := s.books.Create(ctx, book); err != nil {
		if errors.Is(err, store.ErrBookISBNExists) {
			return nil, domain.Conflict(reasonDuplicateISBN)
		}
		s.logger.Error("failed to create book", "error", err, "owner_id", ownerID)
		return nil, service.NewServiceError("create_book", "failed to save book", err)
	}

	s.logger.Info("book listed", "book_id", book.ID, "owner_id", ownerID)
	return book, nil
}

func lockOwnedBook(ctx context.Context, books store.BookStore, ownerID, bookID uuid.UUID) (*domain.Book, error) {
	book, err := books.GetForUpdate(ctx, bookID, ownerID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, domain.NotFound(bookEntity)
		}
		return nil, err
	}
	return book, nil
}

func (s *bookServiceImpl) UpdateMyBook(
	ctx context.Context,
	ownerID, bookID uuid.UUID,
	input BookInput,
) (*domain.Book, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, invalidBook(domain.ErrInvalidBookStatus)
	}

	var updated *domain.Book
	err := s.transactor.RunInTx(ctx, func(ctx context.Context, tx store.TxStores) error {
		book, err := lockOwnedBook(ctx, tx.Books, ownerID, bookID)
		if err != nil {
			return err
		}

		originalISBN := book.ISBN
		if err := book.Apply(input.Details, s.timeFunc()); err != nil {
			return invalidBook(err)
		}
		// Without an explicit status the locked row's status is written back.
		if input.Status != nil {
			book.Status = *input.Status
		}

		if book.ISBN != originalISBN {
			exists, err := tx.Books.ExistsForOwnerAndISBN(ctx, book.ISBN, ownerID)
			if err != nil {
				return err
			}
			if exists {
				return domain.Conflict(reasonDuplicateISBN)
			}
		}

		if err := tx.Books.Update(ctx, book); err != nil {
			switch {
			case errors.Is(err, store.ErrBookISBNExists):
				return domain.Conflict(reasonDuplicateISBN)
			case store.IsNotFoundError(err):
				return domain.NotFound(bookEntity)
			}
			return err
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, service.NewServiceError("update_book", "failed to update book", err)
	}
	return updated, nil
}

func (s *bookServiceImpl) DeleteMyBook(ctx context.Context, ownerID, bookID uuid.UUID) error {
	err := s.transactor.RunInTx(ctx, func(ctx context.Context, tx store.TxStores) error {
		book, err := lockOwnedBook(ctx, tx.Books, ownerID, bookID)
		if err != nil {
			return err
		}

		active, err := tx.TradeRequests.HasActiveForBook(ctx, book.ID)
		if err != nil {
			return err
		}
		if active {
			return domain.InvalidArgument(reasonActiveTrade)
		}

		if err := tx.Books.Delete(ctx, book.ID); err != nil {
			switch {
			case errors.Is(err, store.ErrBookReferenced):
				return domain.InvalidArgument(reasonTradeHistory)
			case store.IsNotFoundError(err):
				return domain.NotFound(bookEntity)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return service.NewServiceError("delete_book", "failed to delete book", err)
	}

	s.logger.Info("book deleted", "book_id", bookID, "owner_id", ownerID)
	return nil
}

func (s *bookServiceImpl) list(ctx context.Context, op string, filter domain.BookFilter) ([]*domain.Book, error) {
	books, err := s.books.List(ctx, filter)
	if err != nil {
		return nil, service.NewServiceError(op, "failed to list books", err)
	}
	if books == nil {
		books = []*domain.Book{}
	}
	return books, nil
}

func (s *bookServiceImpl) MyBooks(
	ctx context.Context,
	ownerID uuid.UUID,
	listingType *domain.ListingType,
	status *domain.BookStatus,
) ([]*domain.Book, error) {
	return s.list(ctx, "my_books", domain.BookFilter{
		OwnerID:     &ownerID,
		ListingType: listingType,
		Status:      status,
	})
}

func (s *bookServiceImpl) GetBook(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, domain.NotFound(bookEntity)
		}
		return nil, service.NewServiceError("get_book", "failed to load book", err)
	}
	return book, nil
}

func (s *bookServiceImpl) ListBooks(
	ctx context.Context,
	genre *string,
	status *domain.BookStatus,
	listingType *domain.ListingType,
) ([]*domain.Book, error) {
	return s.list(ctx, "list_books", domain.BookFilter{
		Genre:       genre,
		Status:      status,
		ListingType: listingType,
	})
}

func (s *bookServiceImpl) AvailableBooks(ctx context.Context, excludeOwnerID *uuid.UUID) ([]*domain.Book, error) {
	available := domain.BookStatusAvailable
	return s.list(ctx, "available_books", domain.BookFilter{
		ExcludeOwnerID: excludeOwnerID,
		Status:         &available,
	})
}

func (s *bookServiceImpl) SetStatus(ctx context.Context, id uuid.UUID, status domain.BookStatus) error {
	if !status.Valid() {
		return invalidBook(domain.ErrInvalidBookStatus)
	}
	if err := s.books.SetStatus(ctx, id, status, s.timeFunc()); err != nil {
		if store.IsNotFoundError(err) {
			return domain.NotFound(bookEntity)
		}
		return service.NewServiceError("set_book_status", "failed to update status", err)
	}
	return nil
}
