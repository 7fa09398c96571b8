// Package logout реализует HTTP-обработчик выхода пользователя.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/http/cookie"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
)

// Service описывает бизнес-логику выхода.
type Service interface {
	Logout(ctx context.Context, userID string) error
}

// Handler обрабатывает HTTP-запросы выхода. Работает за JWTMiddleware.
type Handler struct {
	log     *slog.Logger
	svc     Service
	cookies cookie.Options
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service, cookies cookie.Options) *Handler {
	return &Handler{log: log, svc: svc, cookies: cookies}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Description Отзывает refresh-токен и очищает cookie с токенами.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Пользователь вышел"
// @Failure 401 {object} response.ErrorResponse "Нет или неверный access-токен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.Handle(w, r, h.log, h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	const op = "handlers.auth.logout"

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		return apierror.Unauthorized(auth.MsgAccessMissing, nil)
	}

	if err := h.svc.Logout(r.Context(), userID); err != nil {
		return err
	}

	h.cookies.Clear(w)
	h.log.Info("user logged out",
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
	)
	response.Send(w, r, http.StatusOK, nil, "User logged out")
	return nil
}
