// Package server реализует gRPC-сервис проверки access-токенов.
//
// Сервис auth.TokenValidator описан вручную через grpc.ServiceDesc и использует
// стандартные типы protobuf: на входе StringValue с токеном, на выходе Struct
// с полями user_id, username, email, full_name. Так другим сервисам не нужен
// сгенерированный код, чтобы проверить токен пользователя.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

const (
	// ServiceName — полное имя gRPC-сервиса.
	ServiceName = "auth.TokenValidator"
	// ValidateTokenMethod — полное имя метода для conn.Invoke.
	ValidateTokenMethod = "/" + ServiceName + "/ValidateToken"
)

// Authenticator проверяет access-токен и возвращает владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.PublicUser, error)
}

// TokenValidatorServer — серверная часть auth.TokenValidator.
type TokenValidatorServer interface {
	ValidateToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// AuthServer реализует TokenValidatorServer поверх сервиса учётных записей.
type AuthServer struct {
	auth Authenticator
	log  *slog.Logger
}

// NewAuthServer создает новый экземпляр AuthServer.
func NewAuthServer(auth Authenticator, logger *slog.Logger) *AuthServer {
	return &AuthServer{auth: auth, log: logger}
}

// ValidateToken проверяет валидность JWT и возвращает данные пользователя.
func (s *AuthServer) ValidateToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	const op = "grpc.server.ValidateToken"
	log := s.log.With(sl.Op(op))

	user, err := s.auth.Authenticate(ctx, req.GetValue())
	if err != nil {
		apiErr := apierror.From(err)
		if apiErr.StatusCode == http.StatusUnauthorized {
			log.Info("token rejected", slog.String("reason", apiErr.Message))
			return nil, status.Error(codes.Unauthenticated, apiErr.Message)
		}
		log.Error("token validation failed", sl.Err(err))
		return nil, status.Error(codes.Internal, "internal error")
	}

	return structpb.NewStruct(map[string]any{
		"user_id":   user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"full_name": user.FullName,
	})
}

// Register регистрирует srv на gRPC-сервере.
func Register(s grpc.ServiceRegistrar, srv TokenValidatorServer) {
	s.RegisterService(&serviceDesc, srv)
}

// LoggingInterceptor пишет в лог метод, код ответа и длительность вызова.
func LoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Info("grpc call",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TokenValidatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ValidateToken",
			Handler:    validateTokenHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auth/token_validator.proto",
}

func validateTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenValidatorServer).ValidateToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ValidateTokenMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenValidatorServer).ValidateToken(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
