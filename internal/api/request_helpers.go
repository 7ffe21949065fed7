package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/api/shared"
	"github.com/tradereads/tradereads-api/internal/domain"
)

// pathUUID parses the named chi URL parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, domain.InvalidArgument(name + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.InvalidArgument("Invalid " + name)
	}
	return id, nil
}

// queryParam returns the trimmed query value, or nil when absent or blank.
func queryParam(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil
	}
	return &v
}

func queryTradeStatus(r *http.Request) (*domain.TradeStatus, error) {
	raw := queryParam(r, "status")
	if raw == nil {
		return nil, nil
	}
	status, err := domain.ParseTradeStatus(*raw)
	if err != nil {
		return nil, domain.InvalidArgument("Invalid status")
	}
	return &status, nil
}

func queryBookStatus(r *http.Request) (*domain.BookStatus, error) {
	raw := queryParam(r, "status")
	if raw == nil {
		return nil, nil
	}
	status, err := domain.ParseBookStatus(*raw)
	if err != nil {
		return nil, domain.InvalidArgument("Invalid status")
	}
	return &status, nil
}

func queryListingType(r *http.Request) (*domain.ListingType, error) {
	raw := queryParam(r, "listingType")
	if raw == nil {
		return nil, nil
	}
	listing, err := domain.ParseListingType(*raw)
	if err != nil {
		return nil, domain.InvalidArgument("Invalid listing type")
	}
	return &listing, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := queryParam(r, name)
	if raw == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, domain.InvalidArgument("Invalid " + name)
	}
	return &id, nil
}

// decodeAndValidate reads and validates a JSON body, writing a 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return false
	}
	return true
}

// callerID returns the authenticated user, writing a 401 when there is none.
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := shared.UserIDFromContext(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return uuid.Nil, false
	}
	return userID, true
}

// callerAndPathID combines callerID and pathUUID.
func callerAndPathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := callerID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := pathUUID(r, name)
	if err != nil {
		HandleAPIError(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
