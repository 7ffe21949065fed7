package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
)

// TradeRequestStore defines the interface for trade request persistence.
type TradeRequestStore interface {
	// Create saves a new trade request.
	// Returns ErrPendingExists if the requester already has a PENDING
	// request for the same book.
	Create(ctx context.Context, req *domain.TradeRequest) error

	// GetByID retrieves a trade request by its unique ID.
	// Returns ErrTradeRequestNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TradeRequest, error)

	// FindPending returns the PENDING request of requesterID for bookID.
	// Returns ErrTradeRequestNotFound if there is none.
	FindPending(ctx context.Context, requesterID, bookID uuid.UUID) (*domain.TradeRequest, error)

	// List returns the requests matching filter, ordered by creation time descending.
	List(ctx context.Context, filter domain.TradeRequestFilter) ([]*domain.TradeRequest, error)

	// Count returns the number of requests matching filter.
	Count(ctx context.Context, filter domain.TradeRequestFilter) (int64, error)

	// HasActiveForBook reports whether a PENDING or ACCEPTED request
	// references bookID as either the requested or the offered book.
	HasActiveForBook(ctx context.Context, bookID uuid.UUID) (bool, error)

	// CompareAndSetStatus moves a request from `from` to `to`, reporting
	// whether the request was still in `from`.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.TradeStatus, at time.Time) (bool, error)

	// Delete removes a request.
	// Returns ErrTradeRequestNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
