package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/api/shared"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/service/trading"
)

// TradeHandler exposes the trade negotiation engine.
type TradeHandler struct {
	engine trading.Engine
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(engine trading.Engine) *TradeHandler {
	return &TradeHandler{engine: engine}
}

// Create handles POST /trades.
func (h *TradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req TradeRequestPayload
	if !decodeAndValidate(w, r, &req) {
		return
	}

	trade, err := h.engine.CreateTradeRequest(r.Context(), userID, trading.CreateInput{
		RequestedBookID: req.RequestedBookID,
		OfferedBookID:   req.OfferedBookID,
		Message:         req.Message,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, TradeRequestResponse{
		Message:      "Trade request created successfully",
		TradeRequest: trade,
	})
}

// Outgoing handles GET /trades/outgoing?status.
func (h *TradeHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.engine.ListOutgoing)
}

// Incoming handles GET /trades/incoming?status.
func (h *TradeHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.engine.ListIncoming)
}

type listFunc func(ctx context.Context, userID uuid.UUID, status *domain.TradeStatus) ([]*domain.TradeRequest, error)

func (h *TradeHandler) list(w http.ResponseWriter, r *http.Request, fn listFunc) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	status, err := queryTradeStatus(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	trades, err := fn(r.Context(), userID, status)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, trades)
}

// Counts handles GET /trades/counts.
func (h *TradeHandler) Counts(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	counts, err := h.engine.Counts(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, counts)
}

// ForBook handles GET /trades/book/{bookId}. Only the book's owner sees them.
func (h *TradeHandler) ForBook(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := callerAndPathID(w, r, "bookId")
	if !ok {
		return
	}
	trades, err := h.engine.ListForBook(r.Context(), bookID, userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, trades)
}

// Get handles GET /trades/{id}.
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := callerAndPathID(w, r, "id")
	if !ok {
		return
	}
	trade, err := h.engine.GetTradeRequest(r.Context(), id, userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, trade)
}

type transitionFunc func(ctx context.Context, id, userID uuid.UUID) (*domain.TradeRequest, error)

func (h *TradeHandler) transition(fn transitionFunc, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, ok := callerAndPathID(w, r, "id")
		if !ok {
			return
		}
		trade, err := fn(r.Context(), id, userID)
		if err != nil {
			HandleAPIError(w, r, err)
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, TradeRequestResponse{
			Message:      message,
			TradeRequest: trade,
		})
	}
}

// Accept handles PUT /trades/{id}/accept.
func (h *TradeHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(h.engine.AcceptTradeRequest, "Trade request accepted successfully")(w, r)
}

// Decline handles PUT /trades/{id}/decline.
func (h *TradeHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(h.engine.DeclineTradeRequest, "Trade request declined")(w, r)
}

// Cancel handles PUT /trades/{id}/cancel.
func (h *TradeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(h.engine.CancelTradeRequest, "Trade request cancelled")(w, r)
}

// Complete handles PUT /trades/{id}/complete.
func (h *TradeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(h.engine.CompleteTradeRequest, "Trade marked as completed")(w, r)
}

// Delete handles DELETE /trades/{id}.
func (h *TradeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := callerAndPathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.engine.DeleteTradeRequest(r.Context(), id, userID); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Trade request deleted successfully")
}
