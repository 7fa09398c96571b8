package accountservice

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/account-service/docs"
	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/http/cookie"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/account/avatar"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/account/cover"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/account/current"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/account/details"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/account/password"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/refresh"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// Service — всё, что маршрутам нужно от сервиса учётных записей.
type Service interface {
	register.Service
	login.Service
	logout.Service
	refresh.Service
	password.Service
	details.Service
	avatar.Service
	cover.Service
	middlewarectx.Authenticator
}

// RouterOptions — части конфига, от которых зависят маршруты.
type RouterOptions struct {
	HTTP      config.HTTPServer
	JWT       config.JWT
	RateLimit config.RateLimit
	Store     health.Pinger // nil отключает проверку хранилища в /healthz
}

// NewRouter регистрирует все маршруты приложения.
func NewRouter(logger *slog.Logger, svc Service, opts RouterOptions) chi.Router {
	cookies := cookie.Options{
		Secure:     opts.HTTP.CookieSecure,
		SameSite:   cookie.ParseSameSite(opts.HTTP.CookieSameSite),
		AccessTTL:  opts.JWT.AccessTTL,
		RefreshTTL: opts.JWT.RefreshTTL,
	}
	uploadDir, maxBytes := opts.HTTP.UploadDir, opts.HTTP.MaxUploadBytes
	limiter := middlewarectx.NewRateLimiter(opts.RateLimit.RPS, opts.RateLimit.Burst, 10*time.Minute)
	proxies, err := opts.RateLimit.ProxyPrefixes()
	if err != nil {
		logger.Error("invalid trusted proxies, forwarded headers ignored", sl.Err(err))
	}
	limiter.TrustProxies(proxies...)

	r := chi.NewRouter()
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middlewarectx.Recoverer(logger),
	)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(limiter.Middleware(logger))

		// Открытые конечные точки
		r.Post("/register", register.New(logger, svc, uploadDir, maxBytes).ServeHTTP)
		r.Post("/login", login.New(logger, svc, cookies).ServeHTTP)
		r.Post("/refresh-token", refresh.New(logger, svc, cookies).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(logger, svc))
			r.Post("/logout", logout.New(logger, svc, cookies).ServeHTTP)
			r.Get("/current-user", current.New(logger).ServeHTTP)
			r.Post("/change-password", password.New(logger, svc).ServeHTTP)
			r.Patch("/update-account", details.New(logger, svc).ServeHTTP)
			r.Patch("/avatar", avatar.New(logger, svc, uploadDir, maxBytes).ServeHTTP)
			r.Patch("/cover-image", cover.New(logger, svc, uploadDir, maxBytes).ServeHTTP)
		})
	})

	r.Get("/healthz", health.New(logger, opts.Store).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	r.NotFound(response.Wrap(logger, func(http.ResponseWriter, *http.Request) error {
		return apierror.NotFound("Route not found")
	}))
	return r
}
