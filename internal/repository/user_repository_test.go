package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flisboa999/guiaturismo/internal/model"
)

func TestMemoryUserRepository(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user := &model.User{DisplayName: "Ana", Email: "ana@example.com", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	byEmail, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Ana", byID.DisplayName)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, repo.Create(ctx, &model.User{Email: "ANA@example.com"}))
}
