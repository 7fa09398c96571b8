// Package current отдаёт профиль пользователя, уже проверенного JWTMiddleware.
package current

import (
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
)

type Handler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Tags Account
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.PublicUser}
// @Failure 401 {object} response.ErrorResponse
// @Router /users/current-user [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.Handle(w, r, h.log, func(w http.ResponseWriter, r *http.Request) error {
		user, ok := middlewarectx.UserFromContext(r.Context())
		if !ok {
			return apierror.Unauthorized(auth.MsgAccessMissing, nil)
		}
		response.Send(w, r, http.StatusOK, user, "Current user fetched successfully")
		return nil
	})
}
