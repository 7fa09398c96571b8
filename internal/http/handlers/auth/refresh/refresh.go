// Package refresh реализует HTTP-обработчик обновления пары токенов.
//
// Refresh-токен берётся из cookie refreshToken, а если её нет, из поля
// refreshToken тела запроса.
package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/http/cookie"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Request — необязательное тело запроса.
type Request struct {
	RefreshToken string `json:"refreshToken"`
}

// Service описывает бизнес-логику ротации токенов.
type Service interface {
	RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error)
}

// Handler обрабатывает HTTP-запросы обновления токенов.
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
// @Summary Обновление токенов
// @Description Меняет действующий refresh-токен на новую пару токенов.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request false "Refresh-токен, если нет cookie"
// @Success 200 {object} response.Response{data=models.TokenPair} "Токены обновлены"
// @Failure 401 {object} response.ErrorResponse "Нет, неверный или уже использованный токен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/refresh-token [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.Handle(w, r, h.log, h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	token := cookie.Read(r, cookie.RefreshTokenName)
	if token == "" {
		var req Request
		// Тело необязательно: пустой или битый JSON значит «токена нет».
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			h.log.Debug("refresh request body ignored", slog.String("error", err.Error()))
		}
		token = req.RefreshToken
	}

	pair, err := h.svc.RefreshTokens(r.Context(), token)
	if err != nil {
		return err
	}

	h.cookies.SetTokens(w, pair)
	response.Send(w, r, http.StatusOK, pair, "Access token refreshed")
	return nil
}
