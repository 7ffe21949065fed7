package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/platform/memory"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T) UserService {
	t.Helper()
	svc, err := NewUserService(memory.NewUserStore(memory.NewDB()), NewBcryptHasher(bcrypt.MinCost), nil)
	require.NoError(t, err)
	return svc
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	user, err := svc.Register(ctx, Registration{
		Username:    "reader",
		Password:    "correct-horse",
		Email:       "Reader@Example.com",
		PhoneNumber: "+15551234567",
	})
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", user.Email)
	assert.Equal(t, domain.DefaultUserRole, user.Role)
	assert.NotEqual(t, "correct-horse", user.HashedPassword)

	got, err := svc.Authenticate(ctx, "reader", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "reader", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	fetched, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, fetched.Username)

	_, err = svc.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_RegisterRejects(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, Registration{
		Username: "reader", Password: "correct-horse", Email: "reader@example.com", PhoneNumber: "+15551234567",
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		reg    Registration
		reason string
	}{
		{
			name:   "short password",
			reg:    Registration{Username: "other", Password: "short", Email: "o@example.com"},
			reason: "Password must not be less than 8 characters and more than 16 characters",
		},
		{
			name:   "long password",
			reg:    Registration{Username: "other", Password: "a-password-that-is-too-long", Email: "o@example.com"},
			reason: "Password must not be less than 8 characters and more than 16 characters",
		},
		{
			name:   "duplicate username",
			reg:    Registration{Username: "Reader", Password: "password1", Email: "o@example.com"},
			reason: "Username already exists",
		},
		{
			name:   "duplicate email",
			reg:    Registration{Username: "other", Password: "password1", Email: "reader@example.com"},
			reason: "Email already registered to another account",
		},
		{
			name:   "duplicate phone",
			reg:    Registration{Username: "other", Password: "password1", Email: "o@example.com", PhoneNumber: "+15551234567"},
			reason: "Phone number already connected to another account",
		},
		{
			name:   "bad username",
			reg:    Registration{Username: "abc", Password: "password1", Email: "o@example.com"},
			reason: "Username must be between 4 and 20 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.reg)
			require.ErrorIs(t, err, domain.ErrInvalidArgument)
			reason, ok := domain.Reason(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hashed, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hashed, "s3cret-pass"))
	assert.Error(t, h.Compare(hashed, "other"))

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
}

func TestNewUserService_RequiresDependencies(t *testing.T) {
	_, err := NewUserService(nil, NewBcryptHasher(bcrypt.MinCost), nil)
	assert.Error(t, err)
	_, err = NewUserService(memory.NewUserStore(memory.NewDB()), nil, nil)
	assert.Error(t, err)
}
