// Package middlewarectx содержит HTTP middleware сервиса: проверку access-токена,
// ограничение частоты запросов и перехват паник.
//
// JWTMiddleware берёт токен из cookie accessToken или из заголовка
// Authorization: Bearer, проверяет его и кладёт профиль пользователя в контекст.
// При ошибке отвечает 401 в едином формате ошибок.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/http/cookie"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User — ключ для публичного профиля пользователя в контексте.
const User Key = "user"

// Authenticator проверяет access-токен и возвращает владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.PublicUser, error)
}

// JWTMiddleware возвращает middleware, который пропускает только запросы
// с действующим access-токеном.
func JWTMiddleware(log *slog.Logger, auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			user, err := auth.Authenticate(r.Context(), AccessToken(r))
			if err != nil {
				apiErr := apierror.From(err)
				log.Info("request rejected", slog.Int("status", apiErr.StatusCode), slog.String("reason", apiErr.Message))
				response.Fail(w, r, apiErr)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// AccessToken достаёт access-токен: сначала из cookie, затем из заголовка Authorization.
func AccessToken(r *http.Request) string {
	if token := cookie.Read(r, cookie.AccessTokenName); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// WithUser возвращает копию ctx с профилем пользователя.
func WithUser(ctx context.Context, user *models.PublicUser) context.Context {
	return context.WithValue(ctx, User, user)
}

// UserFromContext возвращает профиль, положенный JWTMiddleware.
func UserFromContext(ctx context.Context) (*models.PublicUser, bool) {
	user, ok := ctx.Value(User).(*models.PublicUser)
	return user, ok && user != nil
}

// UserIDFromContext возвращает идентификатор пользователя из контекста.
func UserIDFromContext(ctx context.Context) (string, bool) {
	user, ok := UserFromContext(ctx)
	if !ok || user.ID == "" {
		return "", false
	}
	return user.ID, true
}
