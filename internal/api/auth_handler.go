package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tradereads/tradereads-api/internal/api/shared"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/platform/logger"
	"github.com/tradereads/tradereads-api/internal/service/auth"
	"github.com/tradereads/tradereads-api/internal/service/session"
)

var errForeignToken = domain.Forbidden("Invalid token for this user")

// AuthHandler handles registration, login and session endpoints.
type AuthHandler struct {
	users    auth.UserService
	jwt      auth.JWTService
	sessions session.Registry
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(users auth.UserService, jwt auth.JWTService, sessions session.Registry) *AuthHandler {
	return &AuthHandler{
		users:    users,
		jwt:      jwt,
		sessions: sessions,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_, err := h.users.Register(r.Context(), auth.Registration{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithMessage(w, r, http.StatusCreated, "User registered successfully")
}

// Login handles POST /auth/login. It opens a session for the caller's device.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		HandleAPIError(w, r, err)
		return
	}

	sess, err := h.sessions.CreateSession(r.Context(), user.ID, shared.DeviceInfo(r), shared.ClientIP(r))
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	accessToken, err := h.jwt.GenerateToken(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("user logged in", "user_id", user.ID, "session_id", sess.ID)
	shared.RespondWithJSON(w, r, http.StatusOK, LoginResponse{
		Message: "Login successful",
		User:    user,
		Tokens: TokenPair{
			AccessToken:  accessToken,
			RefreshToken: sess.Token,
			ExpiresIn:    int64(h.jwt.TokenLifetime().Seconds()),
		},
	})
}

// RefreshToken handles POST /auth/refresh-token. The session itself is not
// rotated.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token, ok := h.refreshTokenFromBody(w, r)
	if !ok {
		return
	}

	userID, err := h.sessions.ResolveUser(r.Context(), token)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	if _, err := h.users.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "User not found")
			return
		}
		HandleAPIError(w, r, err)
		return
	}

	accessToken, err := h.jwt.GenerateToken(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwt.TokenLifetime().Seconds()),
	})
}

// Logout handles POST /auth/logout, revoking one of the caller's sessions.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	token, ok := h.refreshTokenFromBody(w, r)
	if !ok {
		return
	}

	owner, err := h.sessions.ResolveUser(r.Context(), token)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		HandleAPIError(w, r, errForeignToken)
		return
	case err != nil:
		HandleAPIError(w, r, err)
		return
	case owner != userID:
		HandleAPIError(w, r, errForeignToken)
		return
	}

	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Logout successful")
}

// LogoutAll handles POST /auth/logout-all.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.RevokeAll(r.Context(), userID); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Logged out from all device")
}

// Sessions handles GET /auth/sessions, newest first.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	active, err := h.sessions.ListActive(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, toSessionResponses(active))
}

func (h *AuthHandler) refreshTokenFromBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Refresh token required", err)
		return "", false
	}
	return strings.TrimSpace(req.RefreshToken), true
}
