package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/store"
)

// BookStore implements store.BookStore in memory.
type BookStore struct {
	db *DB
	tx *journal
}

// NewBookStore creates a BookStore backed by db.
func NewBookStore(db *DB) *BookStore {
	return &BookStore{db: db}
}

var _ store.BookStore = (*BookStore)(nil)

func (s *BookStore) read(fn func()) {
	if s.tx == nil {
		s.db.mu.RLock()
		defer s.db.mu.RUnlock()
	}
	fn()
}

func (s *BookStore) write(fn func() error) error {
	if s.tx == nil {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	return fn()
}

// put stores b, journaling the previous value.
func (s *BookStore) put(b *domain.Book) {
	prev, existed := s.db.books[b.ID]
	s.db.books[b.ID] = b
	s.tx.record(func() {
		if existed {
			s.db.books[b.ID] = prev
		} else {
			delete(s.db.books, b.ID)
		}
	})
}

func (s *BookStore) isbnTaken(isbn string, ownerID, exceptID uuid.UUID) bool {
	for _, b := range s.db.books {
		if b.OwnerID == ownerID && b.ISBN == isbn && b.ID != exceptID {
			return true
		}
	}
	return false
}

// Create implements store.BookStore.Create.
func (s *BookStore) Create(ctx context.Context, book *domain.Book) error {
	if err := book.Validate(); err != nil {
		return store.NewStoreError("book", "create", "validation failed", store.ErrInvalidEntity)
	}
	return s.write(func() error {
		if _, exists := s.db.books[book.ID]; exists {
			return store.ErrDuplicate
		}
		if s.isbnTaken(book.ISBN, book.OwnerID, uuid.Nil) {
			return store.ErrBookISBNExists
		}
		s.put(cloneBook(book))
		return nil
	})
}

// GetByID implements store.BookStore.GetByID.
func (s *BookStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	var (
		book *domain.Book
		err  error
	)
	s.read(func() {
		b, ok := s.db.books[id]
		if !ok {
			err = store.ErrBookNotFound
			return
		}
		book = cloneBook(b)
	})
	return book, err
}

// GetByOwnerAndID implements store.BookStore.GetByOwnerAndID.
func (s *BookStore) GetByOwnerAndID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Book, error) {
	book, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != ownerID {
		return nil, store.ErrBookNotFound
	}
	return book, nil
}

// GetForUpdate implements store.BookStore.GetForUpdate. Inside a unit of
// work the Transactor already holds the write lock.
func (s *BookStore) GetForUpdate(ctx context.Context, id, ownerID uuid.UUID) (*domain.Book, error) {
	return s.GetByOwnerAndID(ctx, id, ownerID)
}

// Update implements store.BookStore.Update.
func (s *BookStore) Update(ctx context.Context, book *domain.Book) error {
	if err := book.Validate(); err != nil {
		return store.NewStoreError("book", "update", "validation failed", store.ErrInvalidEntity)
	}
	return s.write(func() error {
		existing, ok := s.db.books[book.ID]
		if !ok {
			return store.ErrBookNotFound
		}
		if s.isbnTaken(book.ISBN, existing.OwnerID, book.ID) {
			return store.ErrBookISBNExists
		}
		updated := cloneBook(book)
		updated.OwnerID = existing.OwnerID
		updated.CreatedAt = existing.CreatedAt
		s.put(updated)
		return nil
	})
}

// SetStatus implements store.BookStore.SetStatus.
func (s *BookStore) SetStatus(ctx context.Context, id uuid.UUID, status domain.BookStatus, at time.Time) error {
	if !status.Valid() {
		return store.ErrInvalidEntity
	}
	return s.write(func() error {
		existing, ok := s.db.books[id]
		if !ok {
			return store.ErrBookNotFound
		}
		updated := cloneBook(existing)
		updated.Status = status
		updated.UpdatedAt = at.UTC()
		s.put(updated)
		return nil
	})
}

// CompareAndSetStatus implements store.BookStore.CompareAndSetStatus.
func (s *BookStore) CompareAndSetStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.BookStatus,
	at time.Time,
) (bool, error) {
	if !to.Valid() {
		return false, store.ErrInvalidEntity
	}
	swapped := false
	err := s.write(func() error {
		existing, ok := s.db.books[id]
		if !ok || existing.Status != from {
			return nil
		}
		updated := cloneBook(existing)
		updated.Status = to
		updated.UpdatedAt = at.UTC()
		s.put(updated)
		swapped = true
		return nil
	})
	return swapped, err
}

// List implements store.BookStore.List.
func (s *BookStore) List(ctx context.Context, filter domain.BookFilter) ([]*domain.Book, error) {
	var books []*domain.Book
	s.read(func() {
		for _, b := range s.db.books {
			if filter.Matches(b) {
				books = append(books, cloneBook(b))
			}
		}
	})
	slices.SortFunc(books, func(a, b *domain.Book) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return books, nil
}

// ExistsForOwnerAndISBN implements store.BookStore.ExistsForOwnerAndISBN.
func (s *BookStore) ExistsForOwnerAndISBN(ctx context.Context, isbn string, ownerID uuid.UUID) (bool, error) {
	var exists bool
	s.read(func() {
		exists = s.isbnTaken(isbn, ownerID, uuid.Nil)
	})
	return exists, nil
}

// Delete implements store.BookStore.Delete.
func (s *BookStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.write(func() error {
		prev, ok := s.db.books[id]
		if !ok {
			return store.ErrBookNotFound
		}
		// Same rule as the SQL foreign keys: trade history pins its books.
		for _, r := range s.db.trades {
			if r.References(id) {
				return store.ErrBookReferenced
			}
		}
		delete(s.db.books, id)
		s.tx.record(func() { s.db.books[id] = prev })
		return nil
	})
}
