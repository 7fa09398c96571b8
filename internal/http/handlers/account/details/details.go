// Package details реализует HTTP-обработчик изменения имени и email.
package details

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
)

// Request — новые полное имя и email.
type Request struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

type Service interface {
	UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error)
}

type Handler struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Изменение данных аккаунта
// @Tags Account
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Новые данные"
// @Success 200 {object} response.Response{data=models.PublicUser}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Router /users/update-account [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.Handle(w, r, h.log, h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		return apierror.Unauthorized(auth.MsgAccessMissing, nil)
	}

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		return apierror.New(http.StatusBadRequest, "Invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return response.ValidationError(auth.MsgAllFieldsRequired, err)
	}

	user, err := h.svc.UpdateAccountDetails(r.Context(), userID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	response.Send(w, r, http.StatusOK, user, "Account details updated successfully")
	return nil
}
