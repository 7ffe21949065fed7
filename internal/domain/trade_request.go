package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TradeStatus is the negotiation state of a trade request.
type TradeStatus string

// Possible trade status values
const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusAccepted  TradeStatus = "ACCEPTED"
	TradeStatusDeclined  TradeStatus = "DECLINED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
	TradeStatusCompleted TradeStatus = "COMPLETED"
)

// MaxTradeMessageLength is the longest message a requester may attach, in characters.
const MaxTradeMessageLength = 500

// transitions lists every permitted status move. Anything absent is rejected.
var transitions = map[TradeStatus][]TradeStatus{
	TradeStatusPending:  {TradeStatusAccepted, TradeStatusDeclined, TradeStatusCancelled},
	TradeStatusAccepted: {TradeStatusCompleted},
}

// TradeRequest is a proposal by the requester to receive the owner's book,
// optionally offering one of the requester's own books in exchange.
type TradeRequest struct {
	ID              uuid.UUID   `json:"id"`
	RequesterID     uuid.UUID   `json:"requester_id"`
	OwnerID         uuid.UUID   `json:"owner_id"`
	RequestedBookID uuid.UUID   `json:"requested_book_id"`
	OfferedBookID   *uuid.UUID  `json:"offered_book_id,omitempty"`
	Status          TradeStatus `json:"status"`
	Message         string      `json:"message,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewTradeRequest creates a PENDING request. The owner is taken from the requested book.
func NewTradeRequest(
	requesterID uuid.UUID,
	requested *Book,
	offeredBookID *uuid.UUID,
	message string,
	now time.Time,
) (*TradeRequest, error) {
	message = strings.TrimSpace(message)
	if err := ValidateTradeMessage(message); err != nil {
		return nil, err
	}

	return &TradeRequest{
		ID:              uuid.New(),
		RequesterID:     requesterID,
		OwnerID:         requested.OwnerID,
		RequestedBookID: requested.ID,
		OfferedBookID:   offeredBookID,
		Status:          TradeStatusPending,
		Message:         message,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}, nil
}

// ValidateTradeMessage rejects messages longer than MaxTradeMessageLength characters.
func ValidateTradeMessage(message string) error {
	if utf8.RuneCountInString(strings.TrimSpace(message)) > MaxTradeMessageLength {
		return InvalidArgument("Message must be at most 500 characters")
	}
	return nil
}

// IsParticipant reports whether userID is the requester or the owner.
func (r *TradeRequest) IsParticipant(userID uuid.UUID) bool {
	return r.RequesterID == userID || r.OwnerID == userID
}

// BookIDs returns the requested book followed by the offered book, if any.
func (r *TradeRequest) BookIDs() []uuid.UUID {
	ids := []uuid.UUID{r.RequestedBookID}
	if r.OfferedBookID != nil {
		ids = append(ids, *r.OfferedBookID)
	}
	return ids
}

// References reports whether bookID is the requested or the offered book.
func (r *TradeRequest) References(bookID uuid.UUID) bool {
	return r.RequestedBookID == bookID || (r.OfferedBookID != nil && *r.OfferedBookID == bookID)
}

// Valid reports whether s is a known trade status.
func (s TradeStatus) Valid() bool {
	switch s {
	case TradeStatusPending, TradeStatusAccepted, TradeStatusDeclined,
		TradeStatusCancelled, TradeStatusCompleted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible from s.
func (s TradeStatus) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// IsActive reports whether a request in status s still holds a claim on its books.
func (s TradeStatus) IsActive() bool {
	return s == TradeStatusPending || s == TradeStatusAccepted
}

// CanTransitionTo reports whether moving from s to next is permitted.
func (s TradeStatus) CanTransitionTo(next TradeStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseTradeStatus converts s (case-insensitive) to a TradeStatus.
func ParseTradeStatus(s string) (TradeStatus, error) {
	status := TradeStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", InvalidArgument("Invalid trade status: " + s)
	}
	return status, nil
}

// TradeRequestFilter selects trade requests. Nil fields place no constraint.
type TradeRequestFilter struct {
	RequesterID     *uuid.UUID
	OwnerID         *uuid.UUID
	RequestedBookID *uuid.UUID
	Status          *TradeStatus
}

// Matches reports whether r satisfies every set predicate of f.
func (f TradeRequestFilter) Matches(r *TradeRequest) bool {
	if f.RequesterID != nil && r.RequesterID != *f.RequesterID {
		return false
	}
	if f.OwnerID != nil && r.OwnerID != *f.OwnerID {
		return false
	}
	if f.RequestedBookID != nil && r.RequestedBookID != *f.RequestedBookID {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	return true
}

// TradeCounts holds the pending request totals for one user.
type TradeCounts struct {
	PendingIncoming int64 `json:"pending_incoming"`
	PendingOutgoing int64 `json:"pending_outgoing"`
}
