// Package auth содержит бизнес-логику учётных записей: регистрацию, вход,
// выход, обновление токенов и изменение профиля.
//
// Методы возвращают *apierror.Error с кодом и сообщением для клиента;
// внутренние причины логируются и в ответ не попадают.
package auth

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/media"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Сообщения, которые видит клиент.
const (
	MsgAllFieldsRequired    = "All fields are required"
	MsgUserExists           = "User with email or username already exists"
	MsgAvatarRequired       = "Avatar file is required"
	MsgAvatarUploadFailed   = "Error while uploading avatar"
	MsgCoverUploadFailed    = "Error while uploading cover image"
	MsgRegisterFailed       = "Something went wrong while registering the user"
	MsgIdentifierRequired   = "username or email is required"
	MsgPasswordRequired     = "password is required"
	MsgUserNotFound         = "User does not exist"
	MsgInvalidCredentials   = "Invalid user credentials"
	MsgRefreshMissing       = "unauthorized request"
	MsgInvalidRefreshToken  = "Invalid refresh token"
	MsgRefreshExpiredOrUsed = "Refresh token is expired or used"
	MsgAccessMissing        = "Unauthorized request"
	MsgInvalidAccessToken   = "Invalid Access Token"
	MsgInvalidOldPassword   = "Invalid old password"
	MsgAvatarMissing        = "Avatar file is missing"
	MsgCoverMissing         = "Cover image file is missing"
	MsgTokenIssueFailed     = "Something went wrong while generating refresh and access tokens"
	MsgInternal             = "Internal Server Error"
)

// UserRepository описывает контракт хранилища пользователей.
// Все обновления частичные: меняется только указанное поле.
type UserRepository interface {
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error)
	Create(ctx context.Context, u *models.User) (string, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	ClearRefreshToken(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateDetails(ctx context.Context, id, fullName, email string) error
	UpdateAvatar(ctx context.Context, id, url string) error
	UpdateCoverImage(ctx context.Context, id, url string) error
}

// Uploader загружает локальный файл в хранилище медиа и удаляет его.
// Delete убирает загруженный объект по ключу.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*media.UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// ProfileCache кэширует публичные профили.
type ProfileCache interface {
	GetProfile(ctx context.Context, userID string) (*models.PublicUser, error)
	SetProfile(ctx context.Context, u *models.PublicUser) error
	InvalidateProfile(ctx context.Context, userID string) error
}

// EventPublisher публикует доменные события.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, evt models.UserRegisteredEvent) error
}

// Tokens — два независимых выпускающих: для access и для refresh токенов.
type Tokens struct {
	Access  jwt.Maker
	Refresh jwt.Maker
}

// AuthService отвечает за учётные записи пользователей и выпуск токенов.
type AuthService struct {
	log       *slog.Logger
	users     UserRepository
	uploader  Uploader
	tokens    Tokens
	cache     ProfileCache
	publisher EventPublisher
}

// Option настраивает необязательные зависимости сервиса.
type Option func(*AuthService)

// WithCache включает кэш профилей.
func WithCache(c ProfileCache) Option {
	return func(s *AuthService) { s.cache = c }
}

// WithPublisher включает публикацию событий.
func WithPublisher(p EventPublisher) Option {
	return func(s *AuthService) { s.publisher = p }
}

// New создаёт сервис. Без опций кэш и публикация событий отключены.
func New(log *slog.Logger, users UserRepository, uploader Uploader, tokens Tokens, opts ...Option) *AuthService {
	s := &AuthService{
		log:       log,
		users:     users,
		uploader:  uploader,
		tokens:    tokens,
		cache:     noopCache{},
		publisher: noopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type noopCache struct{}

func (noopCache) GetProfile(context.Context, string) (*models.PublicUser, error) { return nil, nil }
func (noopCache) SetProfile(context.Context, *models.PublicUser) error           { return nil }
func (noopCache) InvalidateProfile(context.Context, string) error                { return nil }

type noopPublisher struct{}

func (noopPublisher) PublishUserRegistered(context.Context, models.UserRegisteredEvent) error {
	return nil
}
