package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

// ChangePassword заменяет пароль после проверки старого.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	const op = "services.auth.ChangePassword"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return apierror.BadRequest(MsgAllFieldsRequired)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return s.lookupErr(log, err)
	}

	if err = password.CompareHash(user.PasswordHash, oldPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return apierror.BadRequest(MsgInvalidOldPassword)
		}
		log.Error("failed to compare password hash", sl.Err(err))
		return apierror.Internal(MsgInternal, err)
	}

	hash, err := password.GetHash(newPassword)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		return apierror.Internal(MsgInternal, err)
	}
	if err = s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return s.lookupErr(log, err)
	}
	s.invalidateProfile(ctx, log, userID)

	log.Info("password changed")
	return nil
}

// UpdateAccountDetails меняет полное имя и email пользователя.
func (s *AuthService) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error) {
	const op = "services.auth.UpdateAccountDetails"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, apierror.BadRequest(MsgAllFieldsRequired)
	}

	if err := s.users.UpdateDetails(ctx, userID, fullName, email); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, apierror.Conflict(MsgUserExists)
		}
		return nil, s.lookupErr(log, err)
	}
	return s.refreshedProfile(ctx, log, userID)
}

// UpdateAvatar загружает новый аватар и сохраняет его URL.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID, localPath string) (*models.PublicUser, error) {
	const op = "services.auth.UpdateAvatar"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	if localPath == "" {
		return nil, apierror.BadRequest(MsgAvatarMissing)
	}
	res, err := s.uploader.Upload(ctx, localPath)
	if err != nil || res == nil || res.URL == "" {
		log.Error("failed to upload avatar", sl.Err(err))
		return nil, apierror.Internal(MsgAvatarUploadFailed, err)
	}

	if err = s.users.UpdateAvatar(ctx, userID, res.URL); err != nil {
		return nil, s.lookupErr(log, err)
	}
	return s.refreshedProfile(ctx, log, userID)
}

// UpdateCoverImage загружает новую обложку и сохраняет её URL.
func (s *AuthService) UpdateCoverImage(ctx context.Context, userID, localPath string) (*models.PublicUser, error) {
	const op = "services.auth.UpdateCoverImage"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	if localPath == "" {
		return nil, apierror.BadRequest(MsgCoverMissing)
	}
	res, err := s.uploader.Upload(ctx, localPath)
	if err != nil || res == nil || res.URL == "" {
		log.Error("failed to upload cover image", sl.Err(err))
		return nil, apierror.Internal(MsgCoverUploadFailed, err)
	}

	if err = s.users.UpdateCoverImage(ctx, userID, res.URL); err != nil {
		return nil, s.lookupErr(log, err)
	}
	return s.refreshedProfile(ctx, log, userID)
}

func (s *AuthService) refreshedProfile(ctx context.Context, log *slog.Logger, userID string) (*models.PublicUser, error) {
	s.invalidateProfile(ctx, log, userID)

	user, err := s.users.FindPublicByID(ctx, userID)
	if err != nil {
		return nil, s.lookupErr(log, err)
	}
	return user, nil
}

func (s *AuthService) lookupErr(log *slog.Logger, err error) error {
	if errors.Is(err, storage.ErrUserNotFound) {
		return apierror.NotFound(MsgUserNotFound)
	}
	log.Error("storage failure", sl.Err(err))
	return apierror.Internal(MsgInternal, err)
}
