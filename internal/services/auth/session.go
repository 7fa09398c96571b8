package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/metrics"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

// RegisterInput — данные формы регистрации. Пути указывают на временные
// файлы, сохранённые обработчиком; пустой путь значит «файл не передан».
type RegisterInput struct {
	FullName       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginInput — учётные данные для входа по username или email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult — публичный профиль и выпущенная пара токенов.
type LoginResult struct {
	User   *models.PublicUser
	Tokens *models.TokenPair
}

// Register создаёт пользователя и возвращает его публичный профиль.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user *models.PublicUser, err error) {
	const op = "services.auth.Register"
	log := s.log.With(sl.Op(op))
	defer func() { metrics.ObserveAuth("register", err) }()

	fullName := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if fullName == "" || email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return nil, apierror.BadRequest(MsgAllFieldsRequired)
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil && existing != nil:
		return nil, apierror.Conflict(MsgUserExists)
	case err != nil && !errors.Is(err, storage.ErrUserNotFound):
		log.Error("failed to look up existing user", sl.Err(err))
		return nil, apierror.Internal(MsgRegisterFailed, err)
	}

	if in.AvatarPath == "" {
		return nil, apierror.BadRequest(MsgAvatarRequired)
	}
	avatar, err := s.uploader.Upload(ctx, in.AvatarPath)
	if err != nil || avatar == nil || avatar.URL == "" {
		log.Error("failed to upload avatar", sl.Err(err))
		return nil, apierror.Internal(MsgAvatarUploadFailed, err)
	}

	uploaded := []string{avatar.Key}
	coverURL := ""
	if in.CoverImagePath != "" {
		cover, upErr := s.uploader.Upload(ctx, in.CoverImagePath)
		if upErr != nil || cover == nil {
			log.Warn("failed to upload cover image, continuing without it", sl.Err(upErr))
		} else {
			coverURL = cover.URL
			uploaded = append(uploaded, cover.Key)
		}
	}

	hash, err := password.GetHash(in.Password)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		s.discardUploads(ctx, log, uploaded...)
		return nil, apierror.Internal(MsgRegisterFailed, err)
	}

	id, err := s.users.Create(ctx, &models.User{
		FullName:     fullName,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Avatar:       avatar.URL,
		CoverImage:   coverURL,
	})
	if err != nil {
		s.discardUploads(ctx, log, uploaded...)
		if errors.Is(err, storage.ErrUserExists) {
			return nil, apierror.Conflict(MsgUserExists)
		}
		log.Error("failed to create user", sl.Err(err))
		return nil, apierror.Internal(MsgRegisterFailed, err)
	}

	user, err = s.users.FindPublicByID(ctx, id)
	if err != nil {
		log.Error("failed to load created user", slog.String("user_id", id), sl.Err(err))
		return nil, apierror.Internal(MsgRegisterFailed, err)
	}

	evt := models.UserRegisteredEvent{
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FullName:     user.FullName,
		RegisteredAt: time.Now().UTC(),
	}
	if pubErr := s.publisher.PublishUserRegistered(ctx, evt); pubErr != nil {
		log.Warn("failed to publish user registered event", slog.String("user_id", id), sl.Err(pubErr))
	}

	log.Info("user registered", slog.String("user_id", id))
	return user, nil
}

// Login проверяет учётные данные и выпускает новую пару токенов.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (res *LoginResult, err error) {
	const op = "services.auth.Login"
	log := s.log.With(sl.Op(op))
	defer func() { metrics.ObserveAuth("login", err) }()

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" && email == "" {
		return nil, apierror.BadRequest(MsgIdentifierRequired)
	}
	if in.Password == "" {
		return nil, apierror.BadRequest(MsgPasswordRequired)
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apierror.NotFound(MsgUserNotFound)
		}
		log.Error("failed to find user", sl.Err(err))
		return nil, apierror.Internal(MsgInternal, err)
	}

	if err = password.CompareHash(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, apierror.Unauthorized(MsgInvalidCredentials, nil)
		}
		log.Error("failed to compare password hash", slog.String("user_id", user.ID), sl.Err(err))
		return nil, apierror.Internal(MsgInternal, err)
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	public, err := s.users.FindPublicByID(ctx, user.ID)
	if err != nil {
		log.Error("failed to load public profile", slog.String("user_id", user.ID), sl.Err(err))
		return nil, apierror.Internal(MsgInternal, err)
	}

	log.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{User: public, Tokens: tokens}, nil
}

// Logout удаляет сохранённый refresh-токен. Повторный выход не ошибка.
func (s *AuthService) Logout(ctx context.Context, userID string) (err error) {
	const op = "services.auth.Logout"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))
	defer func() { metrics.ObserveAuth("logout", err) }()

	if err = s.users.ClearRefreshToken(ctx, userID); err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to clear refresh token", sl.Err(err))
		return apierror.Internal(MsgInternal, err)
	}
	s.invalidateProfile(ctx, log, userID)

	log.Info("user logged out")
	return nil
}

// RefreshTokens меняет действующий refresh-токен на новую пару.
// Любой токен, кроме последнего выданного, отклоняется.
func (s *AuthService) RefreshTokens(ctx context.Context, incoming string) (tokens *models.TokenPair, err error) {
	const op = "services.auth.RefreshTokens"
	log := s.log.With(sl.Op(op))
	defer func() { metrics.ObserveAuth("refresh", err) }()

	if incoming == "" {
		return nil, apierror.Unauthorized(MsgRefreshMissing, nil)
	}

	claims, err := s.tokens.Refresh.ParseToken(incoming)
	if err != nil {
		return nil, apierror.Unauthorized(jwt.Reason(err), err)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apierror.Unauthorized(MsgInvalidRefreshToken, err)
		}
		log.Error("failed to load user", slog.String("user_id", claims.UserID), sl.Err(err))
		return nil, apierror.Internal(MsgInternal, err)
	}

	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(incoming)) != 1 {
		log.Warn("stale refresh token presented", slog.String("user_id", user.ID))
		return nil, apierror.Unauthorized(MsgRefreshExpiredOrUsed, nil)
	}

	return s.issueTokens(ctx, user.ID)
}

// Authenticate проверяет access-токен и возвращает публичный профиль его владельца.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.PublicUser, error) {
	const op = "services.auth.Authenticate"
	log := s.log.With(sl.Op(op))

	if accessToken == "" {
		return nil, apierror.Unauthorized(MsgAccessMissing, nil)
	}
	claims, err := s.tokens.Access.ParseToken(accessToken)
	if err != nil {
		return nil, apierror.Unauthorized(jwt.Reason(err), err)
	}

	if cached, cacheErr := s.cache.GetProfile(ctx, claims.UserID); cacheErr != nil {
		log.Warn("profile cache read failed", sl.Err(cacheErr))
	} else if cached != nil {
		return cached, nil
	}

	user, err := s.users.FindPublicByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apierror.Unauthorized(MsgInvalidAccessToken, err)
		}
		log.Error("failed to load user", slog.String("user_id", claims.UserID), sl.Err(err))
		return nil, apierror.Internal(MsgInternal, err)
	}

	if cacheErr := s.cache.SetProfile(ctx, user); cacheErr != nil {
		log.Warn("profile cache write failed", sl.Err(cacheErr))
	}
	return user, nil
}

// issueTokens выпускает пару токенов и сохраняет refresh-токен.
// Любая ошибка превращается в одну внутреннюю ошибку выпуска.
func (s *AuthService) issueTokens(ctx context.Context, userID string) (*models.TokenPair, error) {
	const op = "services.auth.issueTokens"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	fail := func(err error) (*models.TokenPair, error) {
		log.Error("failed to issue tokens", sl.Err(err))
		return nil, apierror.Internal(MsgTokenIssueFailed, err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fail(err)
	}

	access, err := s.tokens.Access.GenerateToken(jwt.Payload{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	})
	if err != nil {
		return fail(err)
	}
	refresh, err := s.tokens.Refresh.GenerateToken(jwt.Payload{UserID: user.ID})
	if err != nil {
		return fail(err)
	}

	if err = s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return fail(err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) invalidateProfile(ctx context.Context, log *slog.Logger, userID string) {
	if err := s.cache.InvalidateProfile(ctx, userID); err != nil {
		log.Warn("profile cache invalidation failed", sl.Err(err))
	}
}

// discardUploads удаляет объекты, на которые не ссылается ни одна запись.
// Ошибки только логируются.
func (s *AuthService) discardUploads(ctx context.Context, log *slog.Logger, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.uploader.Delete(ctx, key); err != nil {
			log.Warn("failed to delete orphaned upload", slog.String("key", key), sl.Err(err))
		}
	}
}
