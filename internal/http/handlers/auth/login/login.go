// Package login реализует HTTP-обработчик входа пользователя.
//
// Вход возможен по username или email. При успехе оба токена выставляются
// в HttpOnly cookie и дублируются в теле ответа.
package login

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/http/cookie"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
)

// Request — структура входных данных для входа.
type Request struct {
	Username string `json:"username" example:"jane"`
	Email    string `json:"email" example:"jane@example.com"`
	Password string `json:"password" example:"secret123"`
}

// Data — данные успешного ответа.
type Data struct {
	User         *models.PublicUser `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

// Service описывает бизнес-логику входа.
type Service interface {
	Login(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error)
}

// Handler обрабатывает HTTP-запросы входа.
type Handler struct {
	log     *slog.Logger
	svc     Service
	cookies cookie.Options
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service, cookies cookie.Options) *Handler {
	return &Handler{
		log:     log,
		svc:     svc,
		cookies: cookies,
	}
}

// ServeHTTP godoc
// @Summary Вход пользователя
// @Description Аутентифицирует пользователя по username или email и паролю.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} response.Response{data=Data} "Успешный вход"
// @Failure 400 {object} response.ErrorResponse "Не указан логин или пароль"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.Handle(w, r, h.log, h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		return apierror.New(http.StatusBadRequest, "Invalid request body", err)
	}

	res, err := h.svc.Login(r.Context(), auth.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	h.cookies.SetTokens(w, res.Tokens)
	log.Info("login success", slog.String("user_id", res.User.ID))
	response.Send(w, r, http.StatusOK, Data{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "User logged in successfully")
	return nil
}
