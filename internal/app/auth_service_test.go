package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flisboa999/guiaturismo/internal/repository"
)

func TestAuthRegisterLoginIdentify(t *testing.T) {
	svc := NewAuthService(repository.NewMemoryUserRepository(), "test-secret", time.Hour)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Email: " Ana@Example.com ", DisplayName: "Ana", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "ana@example.com", registered.User.Email)

	_, err = svc.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	loggedIn, err := svc.Login(ctx, LoginInput{Email: "ANA@example.com", Password: "password123"})
	require.NoError(t, err)

	identity, err := svc.Identify(loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, identity.UserID)
	assert.Equal(t, "ana@example.com", identity.Email)
	assert.Equal(t, "Ana", identity.Name)

	_, err = svc.Identify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthRegisterValidation(t *testing.T) {
	svc := NewAuthService(repository.NewMemoryUserRepository(), "test-secret", time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, RegisterInput{Email: "bo@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	result, err := svc.Register(ctx, RegisterInput{Email: "bo@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "bo", result.User.DisplayName)
}
