// Package avatar реализует HTTP-обработчик замены аватара.
package avatar

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/http/upload"
	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
)

type Service interface {
	UpdateAvatar(ctx context.Context, userID, localPath string) (*models.PublicUser, error)
}

type Handler struct {
	log       *slog.Logger
	svc       Service
	uploadDir string
	maxBytes  int64
}

func New(log *slog.Logger, svc Service, uploadDir string, maxBytes int64) *Handler {
	return &Handler{log: log, svc: svc, uploadDir: uploadDir, maxBytes: maxBytes}
}

// ServeHTTP godoc
// @Summary Обновление аватара
// @Tags Account
// @Accept  mpfd
// @Produce  json
// @Security BearerAuth
// @Param avatar formData file true "Изображение"
// @Success 200 {object} response.Response{data=models.PublicUser}
// @Failure 400 {object} response.ErrorResponse "Файл не передан"
// @Failure 401 {object} response.ErrorResponse
// @Failure 413 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse "Ошибка загрузки"
// @Router /users/avatar [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.Handle(w, r, h.log, h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	const op = "handlers.account.avatar"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		return apierror.Unauthorized(auth.MsgAccessMissing, nil)
	}

	if err := upload.ParseForm(w, r, h.maxBytes); err != nil {
		return upload.ErrorFor(err)
	}
	path, err := upload.SaveFile(r, "avatar", h.uploadDir)
	if err != nil {
		return apierror.Internal(upload.MsgSaveFailed, err)
	}
	defer upload.Cleanup(log, path)

	user, err := h.svc.UpdateAvatar(r.Context(), userID, path)
	if err != nil {
		return err
	}
	response.Send(w, r, http.StatusOK, user, "Avatar image updated successfully")
	return nil
}
