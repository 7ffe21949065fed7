// Package trading implements the trade negotiation state machine.
//
// Every write runs inside one store.Transactor unit of work, so a request
// and the books it references never disagree about availability. Events
// are published only after the unit of work commits.
package trading

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/events"
	"github.com/tradereads/tradereads-api/internal/service"
	"github.com/tradereads/tradereads-api/internal/store"
)

// Client-facing reasons
const (
	reasonRequestedNotFound     = "Requested book not found"
	reasonRequestedUnavailable  = "Requested book is not available for trade"
	reasonOwnBook               = "Cannot request your own book"
	reasonDuplicatePending      = "You already have a pending request for this book"
	reasonOfferedNotFound       = "Offered book not found or not owned by you"
	reasonOfferedUnavailable    = "Offered book is not available for trade"
	reasonOfferRequired         = "This book requires a trade offer"
	reasonRequestedNoLonger     = "Requested book is no longer available"
	reasonOfferedNoLonger       = "Offered book is no longer available"
	reasonDeleteRequiresPending = "Can only delete pending trade requests"

	tradeEntity = "Trade request"
	bookEntity  = "Book"
)

// CreateInput is what a requester submits to open a negotiation.
type CreateInput struct {
	RequestedBookID uuid.UUID
	OfferedBookID   *uuid.UUID
	Message         string
}

// Engine drives trade requests through their lifecycle.
type Engine interface {
	// CreateTradeRequest opens a PENDING request from requesterID for another user's book.
	CreateTradeRequest(ctx context.Context, requesterID uuid.UUID, input CreateInput) (*domain.TradeRequest, error)

	// AcceptTradeRequest accepts a PENDING request and marks its books TRADED.
	AcceptTradeRequest(ctx context.Context, id, ownerID uuid.UUID) (*domain.TradeRequest, error)

	// DeclineTradeRequest declines a PENDING request addressed to ownerID.
	DeclineTradeRequest(ctx context.Context, id, ownerID uuid.UUID) (*domain.TradeRequest, error)

	// CancelTradeRequest cancels a PENDING request either participant can see.
	CancelTradeRequest(ctx context.Context, id, userID uuid.UUID) (*domain.TradeRequest, error)

	// CompleteTradeRequest marks an ACCEPTED request COMPLETED.
	CompleteTradeRequest(ctx context.Context, id, userID uuid.UUID) (*domain.TradeRequest, error)

	// DeleteTradeRequest removes a PENDING request made by requesterID.
	DeleteTradeRequest(ctx context.Context, id, requesterID uuid.UUID) error

	// GetTradeRequest returns a request visible to userID.
	GetTradeRequest(ctx context.Context, id, userID uuid.UUID) (*domain.TradeRequest, error)

	// ListOutgoing lists requests made by userID, newest first.
	ListOutgoing(ctx context.Context, userID uuid.UUID, status *domain.TradeStatus) ([]*domain.TradeRequest, error)

	// ListIncoming lists requests addressed to userID, newest first.
	ListIncoming(ctx context.Context, userID uuid.UUID, status *domain.TradeStatus) ([]*domain.TradeRequest, error)

	// ListForBook lists requests for a book owned by userID, newest first.
	ListForBook(ctx context.Context, bookID, userID uuid.UUID) ([]*domain.TradeRequest, error)

	// PendingIncomingCount counts PENDING requests addressed to userID.
	PendingIncomingCount(ctx context.Context, userID uuid.UUID) (int64, error)

	// PendingOutgoingCount counts PENDING requests made by userID.
	PendingOutgoingCount(ctx context.Context, userID uuid.UUID) (int64, error)

	// Counts returns both pending totals for userID.
	Counts(ctx context.Context, userID uuid.UUID) (domain.TradeCounts, error)
}

type engineImpl struct {
	transactor store.Transactor
	books      store.BookStore
	trades     store.TradeRequestStore
	emitter    events.EventEmitter
	timeFunc   func() time.Time
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*engineImpl)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *engineImpl) { e.timeFunc = now }
}

// WithEmitter sets the emitter committed transitions are announced on.
func WithEmitter(emitter events.EventEmitter) Option {
	return func(e *engineImpl) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

// NewEngine creates an Engine. Reads outside a unit of work use books and trades.
func NewEngine(
	transactor store.Transactor,
	books store.BookStore,
	trades store.TradeRequestStore,
	logger *slog.Logger,
	opts ...Option,
) (Engine, error) {
	if transactor == nil {
		return nil, &service.ServiceError{Operation: "create_engine", Message: "transactor cannot be nil"}
	}
	if books == nil {
		return nil, &service.ServiceError{Operation: "create_engine", Message: "books cannot be nil"}
	}
	if trades == nil {
		return nil, &service.ServiceError{Operation: "create_engine", Message: "trades cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &engineImpl{
		transactor: transactor,
		books:      books,
		trades:     trades,
		emitter:    events.NopEmitter{},
		timeFunc:   time.Now,
		logger:     logger.With(slog.String("component", "trade_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *engineImpl) CreateTradeRequest(
	ctx context.Context,
	requesterID uuid.UUID,
	input CreateInput,
) (*domain.TradeRequest, error) {
	if requesterID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	if err := domain.ValidateTradeMessage(input.Message); err != nil {
		return nil, err
	}

	now := e.timeFunc()
	var created *domain.TradeRequest

	err := e.transactor.RunInTx(ctx, func(ctx context.Context, tx store.TxStores) error {
		requested, err := tx.Books.GetByID(ctx, input.RequestedBookID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return domain.InvalidArgument(reasonRequestedNotFound)
			}
			return err
		}
		if !requested.IsAvailable() {
			return domain.InvalidArgument(reasonRequestedUnavailable)
		}
		if requested.OwnerID == requesterID {
			return domain.InvalidArgument(reasonOwnBook)
		}

		_, err = tx.TradeRequests.FindPending(ctx, requesterID, requested.ID)
		switch {
		case err == nil:
			return domain.InvalidArgument(reasonDuplicatePending)
		case !store.IsNotFoundError(err):
			return err
		}

		if input.OfferedBookID != nil {
			offered, err := tx.Books.GetByOwnerAndID(ctx, *input.OfferedBookID, requesterID)
			if err != nil {
				if store.IsNotFoundError(err) {
					return domain.InvalidArgument(reasonOfferedNotFound)
				}
				return err
			}
			if !offered.IsAvailable() {
				return domain.InvalidArgument(reasonOfferedUnavailable)
			}
		} else if requested.ListingType != domain.ListingTypeGiveaway {
			return domain.InvalidArgument(reasonOfferRequired)
		}

		req, err := domain.NewTradeRequest(requesterID, requested, input.OfferedBookID, input.Message, now)
		if err != nil {
			return err
		}
		if err := tx.TradeRequests.Create(ctx, req); err != nil {
			switch {
			case errors.Is(err, store.ErrPendingExists):
				return domain.InvalidArgument(reasonDuplicatePending)
			case store.IsNotFoundError(err):
				return domain.InvalidArgument(reasonRequestedNotFound)
			}
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, e.fail("create_trade_request", "failed to create trade request", err)
	}

	e.logger.Info("trade request created",
		"trade_request_id", created.ID,
		"requester_id", requesterID,
		"owner_id", created.OwnerID,
		"requested_book_id", created.RequestedBookID)
	e.emit(ctx, events.TradeCreated, requesterID, created, now)
	return created, nil
}

func (e *engineImpl) AcceptTradeRequest(ctx context.Context, id, ownerID uuid.UUID) (*domain.TradeRequest, error) {
	now := e.timeFunc()
	var accepted *domain.TradeRequest

	err := e.transactor.RunInTx(ctx, func(ctx context.Context, tx store.TxStores) error {
		req, err := loadTrade(ctx, tx.TradeRequests, id, func(r *domain.TradeRequest) bool {
			return r.OwnerID == ownerID
		})
		if err != nil {
			return err
		}
		if req.Status != domain.TradeStatusPending {
			return domain.InvalidTransition(req.Status, domain.TradeStatusAccepted)
		}

		ok, err := tx.Books.CompareAndSetStatus(ctx, req.RequestedBookID,
			domain.BookStatusAvailable, domain.BookStatusTraded, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.InvalidArgument(reasonRequestedNoLonger)
		}

		if req.OfferedBookID != nil {
			ok, err := tx.Books.CompareAndSetStatus(ctx, *req.OfferedBookID,
				domain.BookStatusAvailable, domain.BookStatusTraded, now)
			if err != nil {
				return err
			}
			if !ok {
				return domain.InvalidArgument(reasonOfferedNoLonger)
			}
		}

		ok, err = tx.TradeRequests.CompareAndSetStatus(ctx, req.ID,
			domain.TradeStatusPending, domain.TradeStatusAccepted, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.InvalidTransition(domain.TradeStatusPending, domain.TradeStatusAccepted)
		}

		req.Status = domain.TradeStatusAccepted
		req.UpdatedAt = now.UTC()
		accepted = req
		return nil
	})
	if err != nil {
		return nil, e.fail("accept_trade_request", "failed to accept trade request", err)
	}

	e.logger.Info("trade request accepted",
		"trade_request_id", accepted.ID,
		"owner_id", ownerID,
		"book_ids", accepted.BookIDs())
	e.emit(ctx, events.TradeAccepted, ownerID, accepted, now)
	return accepted, nil
}

func (e *engineImpl) DeclineTradeRequest(ctx context.Context, id, ownerID uuid.UUID) (*domain.TradeRequest, error) {
	return e.transition(ctx, "decline_trade_request", id, ownerID, domain.TradeStatusDeclined,
		func(r *domain.TradeRequest) bool { return r.OwnerID == ownerID })
}

func (e *engineImpl) CancelTradeRequest(ctx context.Context, id, userID uuid.UUID) (*domain.TradeRequest, error) {
	return e.transition(ctx, "cancel_trade_request", id, userID, domain.TradeStatusCancelled,
		func(r *domain.TradeRequest) bool { return r.IsParticipant(userID) })
}

func (e *engineImpl) CompleteTradeRequest(ctx context.Context, id, userID uuid.UUID) (*domain.TradeRequest, error) {
	return e.transition(ctx, "complete_trade_request", id, userID, domain.TradeStatusCompleted,
		func(r *domain.TradeRequest) bool { return r.IsParticipant(userID) })
}

// transition moves a request visible to actorID into status to, provided
// the state machine allows the move from its current status.
func (e *engineImpl) transition(
	ctx context.Context,
	op string,
	id, actorID uuid.UUID,
	to domain.TradeStatus,
	visible func(*domain.TradeRequest) bool,
) (*domain.TradeRequest, error) {
	now := e.timeFunc()
	var updated *domain.TradeRequest

	err := e.transactor.RunInTx(ctx, func(ctx context.Context, tx store.TxStores) error {
		req, err := loadTrade(ctx, tx.TradeRequests, id, visible)
		if err != nil {
			return err
		}
		if !req.Status.CanTransitionTo(to) {
			return domain.InvalidTransition(req.Status, to)
		}

		ok, err := tx.TradeRequests.CompareAndSetStatus(ctx, req.ID, req.Status, to, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.InvalidTransition(req.Status, to)
		}

		req.Status = to
		req.UpdatedAt = now.UTC()
		updated = req
		return nil
	})
	if err != nil {
		return nil, e.fail(op, "failed to update trade request", err)
	}

	e.logger.Info("trade request status changed",
		"trade_request_id", updated.ID,
		"actor_id", actorID,
		"status", updated.Status)
	e.emit(ctx, events.EventForStatus(to), actorID, updated, now)
	return updated, nil
}

func (e *engineImpl) DeleteTradeRequest(ctx context.Context, id, requesterID uuid.UUID) error {
	now := e.timeFunc()
	var deleted *domain.TradeRequest

	err := e.transactor.RunInTx(ctx, func(ctx context.Context, tx store.TxStores) error {
		req, err := loadTrade(ctx, tx.TradeRequests, id, func(r *domain.TradeRequest) bool {
			return r.RequesterID == requesterID
		})
		if err != nil {
			return err
		}
		if req.Status != domain.TradeStatusPending {
			return &domain.RuleError{Kind: domain.ErrInvalidTransition, Reason: reasonDeleteRequiresPending}
		}
		if err := tx.TradeRequests.Delete(ctx, req.ID); err != nil {
			if store.IsNotFoundError(err) {
				return domain.NotFound(tradeEntity)
			}
			return err
		}
		deleted = req
		return nil
	})
	if err != nil {
		return e.fail("delete_trade_request", "failed to delete trade request", err)
	}

	e.logger.Info("trade request deleted", "trade_request_id", id, "requester_id", requesterID)
	e.emit(ctx, events.TradeDeleted, requesterID, deleted, now)
	return nil
}

func (e *engineImpl) GetTradeRequest(ctx context.Context, id, userID uuid.UUID) (*domain.TradeRequest, error) {
	req, err := loadTrade(ctx, e.trades, id, func(r *domain.TradeRequest) bool {
		return r.IsParticipant(userID)
	})
	if err != nil {
		return nil, e.fail("get_trade_request", "failed to load trade request", err)
	}
	return req, nil
}

func (e *engineImpl) ListOutgoing(
	ctx context.Context,
	userID uuid.UUID,
	status *domain.TradeStatus,
) ([]*domain.TradeRequest, error) {
	return e.list(ctx, "list_outgoing", domain.TradeRequestFilter{RequesterID: &userID, Status: status})
}

func (e *engineImpl) ListIncoming(
	ctx context.Context,
	userID uuid.UUID,
	status *domain.TradeStatus,
) ([]*domain.TradeRequest, error) {
	return e.list(ctx, "list_incoming", domain.TradeRequestFilter{OwnerID: &userID, Status: status})
}

func (e *engineImpl) ListForBook(ctx context.Context, bookID, userID uuid.UUID) ([]*domain.TradeRequest, error) {
	if _, err := e.books.GetByOwnerAndID(ctx, bookID, userID); err != nil {
		if store.IsNotFoundError(err) {
			return nil, domain.NotFound(bookEntity)
		}
		return nil, service.NewServiceError("list_for_book", "failed to load book", err)
	}
	return e.list(ctx, "list_for_book", domain.TradeRequestFilter{RequestedBookID: &bookID})
}

func (e *engineImpl) list(ctx context.Context, op string, filter domain.TradeRequestFilter) ([]*domain.TradeRequest, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.InvalidArgument("Invalid trade status: " + string(*filter.Status))
	}
	reqs, err := e.trades.List(ctx, filter)
	if err != nil {
		return nil, service.NewServiceError(op, "failed to list trade requests", err)
	}
	if reqs == nil {
		reqs = []*domain.TradeRequest{}
	}
	return reqs, nil
}

func (e *engineImpl) PendingIncomingCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return e.countPending(ctx, domain.TradeRequestFilter{OwnerID: &userID})
}

func (e *engineImpl) PendingOutgoingCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return e.countPending(ctx, domain.TradeRequestFilter{RequesterID: &userID})
}

func (e *engineImpl) Counts(ctx context.Context, userID uuid.UUID) (domain.TradeCounts, error) {
	incoming, err := e.PendingIncomingCount(ctx, userID)
	if err != nil {
		return domain.TradeCounts{}, err
	}
	outgoing, err := e.PendingOutgoingCount(ctx, userID)
	if err != nil {
		return domain.TradeCounts{}, err
	}
	return domain.TradeCounts{PendingIncoming: incoming, PendingOutgoing: outgoing}, nil
}

func (e *engineImpl) countPending(ctx context.Context, filter domain.TradeRequestFilter) (int64, error) {
	pending := domain.TradeStatusPending
	filter.Status = &pending
	n, err := e.trades.Count(ctx, filter)
	if err != nil {
		return 0, service.NewServiceError("count_trade_requests", "failed to count trade requests", err)
	}
	return n, nil
}

// loadTrade fetches a request and hides it as NotFound unless visible accepts it.
func loadTrade(
	ctx context.Context,
	trades store.TradeRequestStore,
	id uuid.UUID,
	visible func(*domain.TradeRequest) bool,
) (*domain.TradeRequest, error) {
	req, err := trades.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, domain.NotFound(tradeEntity)
		}
		return nil, err
	}
	if !visible(req) {
		return nil, domain.NotFound(tradeEntity)
	}
	return req, nil
}

// fail logs unexpected errors; rule errors are returned as they are.
func (e *engineImpl) fail(op, message string, err error) error {
	wrapped := service.NewServiceError(op, message, err)
	var ruleErr *domain.RuleError
	if !errors.As(wrapped, &ruleErr) {
		e.logger.Error(message, "operation", op, "error", err)
	}
	return wrapped
}

// emit publishes a committed change. Handler failures never fail the operation.
func (e *engineImpl) emit(
	ctx context.Context,
	eventType events.TradeEventType,
	actorID uuid.UUID,
	req *domain.TradeRequest,
	now time.Time,
) {
	event := events.NewTradeEvent(eventType, actorID, req, now)
	if err := e.emitter.EmitEvent(ctx, event); err != nil {
		e.logger.Warn("failed to emit trade event",
			"event_type", eventType,
			"trade_request_id", req.ID,
			"error", err)
	}
}
