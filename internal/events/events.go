package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
)

// TradeEventType names what happened to a trade request.
type TradeEventType string

// Trade event types
const (
	TradeCreated   TradeEventType = "trade.created"
	TradeAccepted  TradeEventType = "trade.accepted"
	TradeDeclined  TradeEventType = "trade.declined"
	TradeCancelled TradeEventType = "trade.cancelled"
	TradeCompleted TradeEventType = "trade.completed"
	TradeDeleted   TradeEventType = "trade.deleted"
)

// TradeEvent describes one committed change to a trade request.
type TradeEvent struct {
	ID         uuid.UUID            `json:"id"`
	Type       TradeEventType       `json:"type"`
	ActorID    uuid.UUID            `json:"actor_id"`
	Trade      *domain.TradeRequest `json:"trade"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// NewTradeEvent creates an event for trade, performed by actorID at now.
func NewTradeEvent(eventType TradeEventType, actorID uuid.UUID, trade *domain.TradeRequest, now time.Time) *TradeEvent {
	return &TradeEvent{
		ID:         uuid.New(),
		Type:       eventType,
		ActorID:    actorID,
		Trade:      trade,
		OccurredAt: now.UTC(),
	}
}

// Recipients returns the users the event concerns: the requester and the owner.
func (e *TradeEvent) Recipients() []uuid.UUID {
	if e.Trade == nil {
		return nil
	}
	return []uuid.UUID{e.Trade.RequesterID, e.Trade.OwnerID}
}

// EventForStatus returns the event type announcing a move into status.
func EventForStatus(status domain.TradeStatus) TradeEventType {
	switch status {
	case domain.TradeStatusAccepted:
		return TradeAccepted
	case domain.TradeStatusDeclined:
		return TradeDeclined
	case domain.TradeStatusCancelled:
		return TradeCancelled
	case domain.TradeStatusCompleted:
		return TradeCompleted
	default:
		return TradeCreated
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TradeEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TradeEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *TradeEvent) error { return nil }
