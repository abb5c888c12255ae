package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/charlesng35/dbpanel/pkg/crypto"
	apperrors "github.com/charlesng35/dbpanel/pkg/errors"
)

func newUserService(t *testing.T, f *serviceFixture) *UserService {
	t.Helper()
	svc, err := NewUserService(f.store, f.audit)
	require.NoError(t, err)
	return svc.WithPasswordCost(bcrypt.MinCost)
}

func TestUserServiceRegister(t *testing.T) {
	f := newServiceFixture(t)
	svc := newUserService(t, f)

	user, err := svc.Register(f.ctx, RegisterUserInput{Email: " Alice@Example.com ", Password: "password123"})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, "alice@example.com", user.Name)
	require.NotEqual(t, "password123", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "password123"))
	require.Contains(t, f.auditActions(), "user.register")

	loaded, err := svc.Get(f.ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, loaded.ID)
}

func TestUserServiceRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newServiceFixture(t)
	svc := newUserService(t, f)

	_, err := svc.Register(f.ctx, RegisterUserInput{Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(f.ctx, RegisterUserInput{Email: "BOB@example.com", Password: "password456"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserServiceRegisterValidatesInput(t *testing.T) {
	f := newServiceFixture(t)
	svc := newUserService(t, f)

	_, err := svc.Register(f.ctx, RegisterUserInput{Email: "not-an-email", Password: "password123"})
	require.Error(t, err)
	require.Equal(t, "BAD_REQUEST", apperrors.FromError(err).Code)

	_, err = svc.Register(f.ctx, RegisterUserInput{Email: "carol@example.com", Password: "short"})
	require.Error(t, err)
	require.Contains(t, apperrors.FromError(err).Message, "password")
}

func TestUserServiceGetUnknown(t *testing.T) {
	f := newServiceFixture(t)
	svc := newUserService(t, f)

	_, err := svc.Get(f.ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)
}
