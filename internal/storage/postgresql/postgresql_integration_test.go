package postgresql

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/account-service/internal/migrations"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и накатывает миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(s.DB, migrationsPath))
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

	_, err = s.Create(ctx, &models.User{FullName: "X", Username: "jane", Email: "x@example.com",
		PasswordHash: "hash", Avatar: "http://cdn/x.png"})
	require.ErrorIs(t, err, storage.ErrUserExists)

	found, err := s.FindByUsernameOrEmail(ctx, "", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
	assert.Nil(t, found.RefreshToken)

	require.NoError(t, s.SetRefreshToken(ctx, id, "refresh-1"))
	full, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, full.RefreshToken)
	assert.Equal(t, "refresh-1", *full.RefreshToken)

	require.NoError(t, s.ClearRefreshToken(ctx, id))
	require.NoError(t, s.ClearRefreshToken(ctx, id))
	full, err = s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, full.RefreshToken)

	require.NoError(t, s.UpdateDetails(ctx, id, "Jane Roe", "roe@example.com"))
	public, err := s.FindPublicByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", public.FullName)
	assert.Equal(t, "roe@example.com", public.Email)
}
