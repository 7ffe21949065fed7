package api

import (
	"errors"
	"net/http"

	"github.com/tradereads/tradereads-api/internal/api/shared"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/service/auth"
)

const internalErrorMessage = "An unexpected error occurred"

// MapErrorToStatusCode maps an error kind to its HTTP status. Errors that
// carry no known kind are internal.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns the message a client may see for err.
// Only reasons attached by the domain layer are passed through.
func GetSafeErrorMessage(err error) string {
	if reason, ok := domain.Reason(err); ok && reason != "" {
		return reason
	}
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Authentication required"
	case errors.Is(err, domain.ErrNotFound):
		return "Resource not found"
	}
	return internalErrorMessage
}

// HandleAPIError writes the response for err. Unknown errors become a 500
// with a generic message and are logged at ERROR.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	message := internalErrorMessage
	if status != http.StatusInternalServerError {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
