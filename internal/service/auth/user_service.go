package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/store"
)

// Password length bounds, in characters.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 16
)

// Registration is the input to UserService.Register.
type Registration struct {
	Username    string
	Password    string
	Email       string
	PhoneNumber string
	Role        string
}

// UserService registers and authenticates users.
type UserService interface {
	// Register creates a user with a bcrypt-hashed password.
	Register(ctx context.Context, reg Registration) (*domain.User, error)

	// Authenticate returns the user when username and password match,
	// else ErrInvalidCredentials.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

type userServiceImpl struct {
	users    store.UserStore
	hasher   PasswordHasher
	verifier PasswordVerifier
	timeFunc func() time.Time
	logger   *slog.Logger
}

// NewUserService creates a UserService. hasher is also used to verify
// passwords when it implements PasswordVerifier.
func NewUserService(users store.UserStore, hasher PasswordHasher, logger *slog.Logger) (UserService, error) {
	if users == nil {
		return nil, errors.New("users cannot be nil")
	}
	if hasher == nil {
		return nil, errors.New("hasher cannot be nil")
	}
	verifier, ok := hasher.(PasswordVerifier)
	if !ok {
		return nil, errors.New("hasher must also verify passwords")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &userServiceImpl{
		users:    users,
		hasher:   hasher,
		verifier: verifier,
		timeFunc: time.Now,
		logger:   logger.With(slog.String("component", "user_service")),
	}, nil
}

func (s *userServiceImpl) Register(ctx context.Context, reg Registration) (*domain.User, error) {
	if n := utf8.RuneCountInString(reg.Password); n < MinPasswordLength || n > MaxPasswordLength {
		return nil, domain.InvalidArgument("Password must not be less than 8 characters and more than 16 characters")
	}

	hashed, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	user, err := domain.NewUser(reg.Username, reg.Email, reg.PhoneNumber, reg.Role, hashed, s.timeFunc())
	if err != nil {
		return nil, domain.InvalidArgument(capitalize(err.Error()))
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, store.ErrUsernameExists):
			return nil, domain.InvalidArgument("Username already exists")
		case errors.Is(err, store.ErrEmailExists):
			return nil, domain.InvalidArgument("Email already registered to another account")
		case errors.Is(err, store.ErrPhoneNumberExists):
			return nil, domain.InvalidArgument("Phone number already connected to another account")
		}
		s.logger.Error("failed to save user", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (s *userServiceImpl) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domain.NotFound("User")
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
