// Package accountservice собирает сервис учётных записей: хранилище, загрузчик
// медиа, кэш профилей, публикацию событий, HTTP и gRPC серверы.
package accountservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/streadway/amqp"
	"google.golang.org/grpc"

	"github.com/magabrotheeeer/account-service/internal/cache"
	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/events"
	"github.com/magabrotheeeer/account-service/internal/grpc/server"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/media"
	"github.com/magabrotheeeer/account-service/internal/migrations"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
	"github.com/magabrotheeeer/account-service/internal/storage/mongodb"
	"github.com/magabrotheeeer/account-service/internal/storage/postgresql"
)

const shutdownTimeout = 15 * time.Second

// UserStore — хранилище пользователей, которым владеет приложение.
type UserStore interface {
	auth.UserRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type App struct {
	server     *http.Server
	grpcServer *grpc.Server
	grpcAddr   string
	logger     *slog.Logger
	closers    []func(ctx context.Context) error
}

// New подключает зависимости по конфигу. Redis и RabbitMQ необязательны:
// при пустом адресе сервис работает без кэша профилей и без событий.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	const op = "app.accountservice.New"
	a := &App{logger: logger, grpcAddr: cfg.GRPC.Address}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.closers = append(a.closers, store.Close)

	uploader, err := media.NewS3Uploader(ctx, cfg.S3, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var opts []auth.Option
	if cfg.Redis.Address != "" {
		redisCache, cacheErr := cache.InitServer(ctx, cfg.Redis)
		if cacheErr != nil {
			return nil, fmt.Errorf("%s: %w", op, cacheErr)
		}
		a.closers = append(a.closers, func(context.Context) error { return redisCache.Close() })
		opts = append(opts, auth.WithCache(redisCache))
	} else {
		logger.Warn("redis address is empty, profile cache disabled")
	}

	if cfg.RabbitMQ.URL != "" {
		publisher, pubErr := a.connectBroker(ctx, cfg.RabbitMQ)
		if pubErr != nil {
			return nil, fmt.Errorf("%s: %w", op, pubErr)
		}
		opts = append(opts, auth.WithPublisher(publisher))
	} else {
		logger.Warn("rabbitmq url is empty, events disabled")
	}

	tokens := auth.Tokens{
		Access:  jwt.NewJWTMaker(cfg.JWT.AccessSecret, cfg.JWT.AccessTTL),
		Refresh: jwt.NewJWTMaker(cfg.JWT.RefreshSecret, cfg.JWT.RefreshTTL),
	}
	authService := auth.New(logger, store, uploader, tokens, opts...)

	a.server = &http.Server{
		Addr: cfg.HTTPServer.Address,
		Handler: NewRouter(logger, authService, RouterOptions{
			HTTP:      cfg.HTTPServer,
			JWT:       cfg.JWT,
			RateLimit: cfg.RateLimit,
			Store:     store,
		}),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	a.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(server.LoggingInterceptor(logger)))
	server.Register(a.grpcServer, server.NewAuthServer(authService, logger))

	return a, nil
}

func openStore(ctx context.Context, cfg config.Storage) (UserStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgresql.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		return db, nil
	default:
		db, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

func (a *App) connectBroker(ctx context.Context, cfg config.RabbitMQ) (*events.Publisher, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.URL, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return conn.Close() })

	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.AccountQueues())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error {
		if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return err
		}
		return nil
	})
	return events.NewPublisher(ch, cfg.Exchange), nil
}

// Run запускает HTTP и gRPC серверы и блокируется до отмены ctx или ошибки.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.grpcAddr)
	if err != nil {
		return fmt.Errorf("app.accountservice.Run: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		a.logger.Info("gRPC server listening on", slog.String("address", lis.Addr().String()))
		if err := a.grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down servers gracefully")
	if err := a.server.Shutdown(timeoutCtx); err != nil {
		a.logger.Error("http shutdown failed", sl.Err(err))
	}
	a.grpcServer.GracefulStop()
	a.close(timeoutCtx)
	return runErr
}

// close освобождает ресурсы в порядке, обратном подключению.
func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error("failed to release resource", sl.Err(err))
		}
	}
	a.closers = nil
}
