package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
// Length and format rules are enforced by the user service so that every
// caller gets the same messages.
type RegisterRequest struct {
	Username    string `json:"username"     validate:"required"`
	Password    string `json:"password"     validate:"required"`
	Email       string `json:"email"        validate:"required"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest names a refresh token for the refresh and logout endpoints.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPair is issued on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

// LoginResponse defines the successful response for the login endpoint.
type LoginResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
	Tokens  TokenPair    `json:"tokens"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// SessionResponse describes one active session without its token.
type SessionResponse struct {
	ID         uuid.UUID `json:"id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func toSessionResponses(sessions []*domain.Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionResponse{
			ID:         s.ID,
			DeviceInfo: s.DeviceInfo,
			IPAddress:  s.IPAddress,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
		})
	}
	return out
}

// BookRequest defines the payload for creating or updating an owned book.
type BookRequest struct {
	Title       string `json:"title"        validate:"required"`
	Author      string `json:"author"       validate:"required"`
	ISBN        string `json:"isbn"         validate:"required"`
	Genre       string `json:"genre"`
	Condition   string `json:"condition"`
	Description string `json:"description"`
	Status      string `json:"status"       validate:"omitempty,oneof=AVAILABLE PENDING TRADED GAVEAWAY"`
	ListingType string `json:"listing_type" validate:"required,oneof=GIVEAWAY TRADE"`
}

func (req BookRequest) details() domain.BookDetails {
	return domain.BookDetails{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Genre:       req.Genre,
		Condition:   req.Condition,
		Description: req.Description,
		ListingType: domain.ListingType(req.ListingType),
	}
}

func (req BookRequest) status() *domain.BookStatus {
	if req.Status == "" {
		return nil
	}
	status := domain.BookStatus(req.Status)
	return &status
}

// TradeRequestPayload defines the payload for creating a trade request.
type TradeRequestPayload struct {
	RequestedBookID uuid.UUID  `json:"requested_book_id" validate:"required"`
	OfferedBookID   *uuid.UUID `json:"offered_book_id"`
	Message         string     `json:"message"`
}

// TradeRequestResponse wraps a trade request written by a state change.
type TradeRequestResponse struct {
	Message      string               `json:"message"`
	TradeRequest *domain.TradeRequest `json:"trade_request"`
}

// HealthResponse is the body of the health check.
type HealthResponse struct {
	Status string `json:"status"`
}
