package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	s, err := New(ctx, uri, "accounts_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestIntegration_UserLifecycle(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	id, err := s.Create(ctx, &models.User{
		FullName:     "Jane Doe",
		Username:     "jane",
		Email:        "jane@example.com",
		PasswordHash: "hash",
		Avatar:       "http://cdn/a.png",
	})
	require.NoError(t, err)

	_, err = s.Create(ctx, &models.User{Username: "other", Email: "jane@example.com"})
	require.ErrorIs(t, err, storage.ErrUserExists)

	found, err := s.FindByUsernameOrEmail(ctx, "nobody", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
	assert.Nil(t, found.RefreshToken)

	require.NoError(t, s.SetRefreshToken(ctx, id, "refresh-1"))
	full, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, full.RefreshToken)
	assert.Equal(t, "refresh-1", *full.RefreshToken)

	public, err := s.FindPublicByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "jane", public.Username)
	assert.False(t, public.CreatedAt.IsZero())

	require.NoError(t, s.ClearRefreshToken(ctx, id))
	require.NoError(t, s.ClearRefreshToken(ctx, id))
	full, err = s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, full.RefreshToken)

	require.NoError(t, s.UpdateDetails(ctx, id, "Jane Roe", "roe@example.com"))
	require.NoError(t, s.UpdateAvatar(ctx, id, "http://cdn/b.png"))
	require.NoError(t, s.UpdateCoverImage(ctx, id, "http://cdn/c.png"))
	public, err = s.FindPublicByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", public.FullName)
	assert.Equal(t, "roe@example.com", public.Email)
	assert.Equal(t, "http://cdn/b.png", public.Avatar)
	assert.Equal(t, "http://cdn/c.png", public.CoverImage)
}
