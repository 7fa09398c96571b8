package auth_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/media"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
)

// UserRepoMock — мок хранилища пользователей.
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublicUser), args.Error(1)
}

func (m *UserRepoMock) Create(ctx context.Context, u *models.User) (string, error) {
	args := m.Called(ctx, u)
	return args.String(0), args.Error(1)
}

func (m *UserRepoMock) SetRefreshToken(ctx context.Context, id, token string) error {
	return m.Called(ctx, id, token).Error(0)
}

func (m *UserRepoMock) ClearRefreshToken(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *UserRepoMock) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *UserRepoMock) UpdateDetails(ctx context.Context, id, fullName, email string) error {
	return m.Called(ctx, id, fullName, email).Error(0)
}

func (m *UserRepoMock) UpdateAvatar(ctx context.Context, id, url string) error {
	return m.Called(ctx, id, url).Error(0)
}

func (m *UserRepoMock) UpdateCoverImage(ctx context.Context, id, url string) error {
	return m.Called(ctx, id, url).Error(0)
}

// UploaderMock — мок загрузчика медиа.
type UploaderMock struct {
	mock.Mock
}

func (m *UploaderMock) Upload(ctx context.Context, localPath string) (*media.UploadResult, error) {
	args := m.Called(ctx, localPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.UploadResult), args.Error(1)
}

func (m *UploaderMock) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// CacheMock — мок кэша профилей.
type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) GetProfile(ctx context.Context, userID string) (*models.PublicUser, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublicUser), args.Error(1)
}

func (m *CacheMock) SetProfile(ctx context.Context, u *models.PublicUser) error {
	return m.Called(ctx, u).Error(0)
}

func (m *CacheMock) InvalidateProfile(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// PublisherMock — мок публикации событий.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) PublishUserRegistered(ctx context.Context, evt models.UserRegisteredEvent) error {
	return m.Called(ctx, evt).Error(0)
}

const (
	accessSecret  = "access-secret"
	refreshSecret = "refresh-secret"
)

type fixture struct {
	svc      *auth.AuthService
	repo     *UserRepoMock
	uploader *UploaderMock
	cache    *CacheMock
	pub      *PublisherMock
	access   *jwt.MakerImpl
	refresh  *jwt.MakerImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     new(UserRepoMock),
		uploader: new(UploaderMock),
		cache:    new(CacheMock),
		pub:      new(PublisherMock),
		access:   jwt.NewJWTMaker(accessSecret, 15*time.Minute),
		refresh:  jwt.NewJWTMaker(refreshSecret, 24*time.Hour),
	}
	f.svc = auth.New(discardLogger(), f.repo, f.uploader, auth.Tokens{Access: f.access, Refresh: f.refresh},
		auth.WithCache(f.cache), auth.WithPublisher(f.pub))
	t.Cleanup(func() {
		f.repo.AssertExpectations(t)
		f.uploader.AssertExpectations(t)
		f.cache.AssertExpectations(t)
		f.pub.AssertExpectations(t)
	})
	return f
}

func requireAPIError(t *testing.T, err error, code int, message string) {
	t.Helper()
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.StatusCode)
	assert.Equal(t, message, apiErr.Message)
}

func publicUser(id string) *models.PublicUser {
	return &models.PublicUser{
		ID:       id,
		FullName: "Jane Doe",
		Username: "jane",
		Email:    "jane@example.com",
		Avatar:   "http://cdn/avatar.png",
	}
}

func strPtr(s string) *string { return &s }

func jwtPayload(userID string) jwt.Payload {
	return jwt.Payload{UserID: userID, Username: "jane", Email: "jane@example.com"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
