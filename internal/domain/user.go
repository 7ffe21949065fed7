package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultUserRole is assigned when registration does not name a role.
const DefaultUserRole = "USER"

// Common validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrInvalidUsername     = errors.New("username must be between 4 and 20 characters")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrInvalidPhoneNumber  = errors.New("phone number should be valid")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// User is a registered member of the exchange.
type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number,omitempty"`
	Role           string    `json:"role"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a user with an already hashed password.
func NewUser(username, email, phoneNumber, role, hashedPassword string, now time.Time) (*User, error) {
	if strings.TrimSpace(role) == "" {
		role = DefaultUserRole
	}

	user := &User{
		ID:             uuid.New(),
		Username:       strings.TrimSpace(username),
		Email:          strings.ToLower(strings.TrimSpace(email)),
		PhoneNumber:    strings.TrimSpace(phoneNumber),
		Role:           strings.ToUpper(role),
		HashedPassword: hashedPassword,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if n := len([]rune(u.Username)); n < 4 || n > 20 {
		return ErrInvalidUsername
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !emailPattern.MatchString(u.Email) {
		return ErrInvalidEmail
	}
	if u.PhoneNumber != "" && !phonePattern.MatchString(u.PhoneNumber) {
		return ErrInvalidPhoneNumber
	}
	if u.HashedPassword == "" {
		return ErrEmptyHashedPassword
	}
	return nil
}
