package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookStatus is the availability of a listed book.
type BookStatus string

// Possible book status values
const (
	BookStatusAvailable BookStatus = "AVAILABLE"
	BookStatusPending   BookStatus = "PENDING"
	BookStatusTraded    BookStatus = "TRADED"
	BookStatusGaveAway  BookStatus = "GAVEAWAY"
)

// ListingType says whether a book is given away or requires a trade offer.
type ListingType string

// Possible listing type values
const (
	ListingTypeGiveaway ListingType = "GIVEAWAY"
	ListingTypeTrade    ListingType = "TRADE"
)

// Common validation errors for Book
var (
	ErrEmptyBookID       = errors.New("book ID cannot be empty")
	ErrEmptyBookOwnerID  = errors.New("book owner ID cannot be empty")
	ErrEmptyBookTitle    = errors.New("book title cannot be empty")
	ErrEmptyBookAuthor   = errors.New("book author cannot be empty")
	ErrEmptyBookISBN     = errors.New("book isbn cannot be empty")
	ErrInvalidBookStatus = errors.New("invalid book status")
	ErrInvalidListing    = errors.New("invalid listing type")
)

// Book is a physical book listed by its owner.
type Book struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	ISBN        string      `json:"isbn"`
	Genre       string      `json:"genre,omitempty"`
	Condition   string      `json:"condition,omitempty"`
	Description string      `json:"description,omitempty"`
	Status      BookStatus  `json:"status"`
	ListingType ListingType `json:"listing_type"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// BookDetails holds the owner-editable fields of a book.
type BookDetails struct {
	Title       string
	Author      string
	ISBN        string
	Genre       string
	Condition   string
	Description string
	ListingType ListingType
}

// NewBook creates an AVAILABLE book owned by ownerID.
func NewBook(ownerID uuid.UUID, details BookDetails, now time.Time) (*Book, error) {
	book := &Book{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(details.Title),
		Author:      strings.TrimSpace(details.Author),
		ISBN:        strings.TrimSpace(details.ISBN),
		Genre:       details.Genre,
		Condition:   details.Condition,
		Description: details.Description,
		Status:      BookStatusAvailable,
		ListingType: details.ListingType,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}

	if err := book.Validate(); err != nil {
		return nil, err
	}

	return book, nil
}

// Validate checks if the Book has valid data.
func (b *Book) Validate() error {
	if b.ID == uuid.Nil {
		return ErrEmptyBookID
	}
	if b.OwnerID == uuid.Nil {
		return ErrEmptyBookOwnerID
	}
	if b.Title == "" {
		return ErrEmptyBookTitle
	}
	if b.Author == "" {
		return ErrEmptyBookAuthor
	}
	if b.ISBN == "" {
		return ErrEmptyBookISBN
	}
	if !b.Status.Valid() {
		return ErrInvalidBookStatus
	}
	if !b.ListingType.Valid() {
		return ErrInvalidListing
	}
	return nil
}

// Apply overwrites the editable fields of the book.
func (b *Book) Apply(details BookDetails, now time.Time) error {
	updated := *b
	updated.Title = strings.TrimSpace(details.Title)
	updated.Author = strings.TrimSpace(details.Author)
	updated.ISBN = strings.TrimSpace(details.ISBN)
	updated.Genre = details.Genre
	updated.Condition = details.Condition
	updated.Description = details.Description
	updated.ListingType = details.ListingType
	updated.UpdatedAt = now.UTC()

	if err := updated.Validate(); err != nil {
		return err
	}
	*b = updated
	return nil
}

// IsAvailable reports whether the book can take part in a new trade.
func (b *Book) IsAvailable() bool {
	return b.Status == BookStatusAvailable
}

// Valid reports whether s is a known book status.
func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusAvailable, BookStatusPending, BookStatusTraded, BookStatusGaveAway:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known listing type.
func (t ListingType) Valid() bool {
	switch t {
	case ListingTypeGiveaway, ListingTypeTrade:
		return true
	default:
		return false
	}
}

// ParseBookStatus converts s (case-insensitive) to a BookStatus.
func ParseBookStatus(s string) (BookStatus, error) {
	status := BookStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", InvalidArgument("Invalid book status: " + s)
	}
	return status, nil
}

// ParseListingType converts s (case-insensitive) to a ListingType.
func ParseListingType(s string) (ListingType, error) {
	listing := ListingType(strings.ToUpper(strings.TrimSpace(s)))
	if !listing.Valid() {
		return "", InvalidArgument("Invalid listing type: " + s)
	}
	return listing, nil
}

// BookFilter selects books. A nil field places no constraint on that column.
type BookFilter struct {
	OwnerID        *uuid.UUID
	ExcludeOwnerID *uuid.UUID
	Status         *BookStatus
	ListingType    *ListingType
	Genre          *string
}

// Matches reports whether b satisfies every set predicate of f.
func (f BookFilter) Matches(b *Book) bool {
	if f.OwnerID != nil && b.OwnerID != *f.OwnerID {
		return false
	}
	if f.ExcludeOwnerID != nil && b.OwnerID == *f.ExcludeOwnerID {
		return false
	}
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	if f.ListingType != nil && b.ListingType != *f.ListingType {
		return false
	}
	if f.Genre != nil && !strings.EqualFold(b.Genre, *f.Genre) {
		return false
	}
	return true
}
