// Package client — клиент gRPC-сервиса auth.TokenValidator для других сервисов.
package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/magabrotheeeer/account-service/internal/grpc/server"
	"github.com/magabrotheeeer/account-service/internal/models"
)

type AuthClient struct {
	conn *grpc.ClientConn
}

// NewAuthClient создаёт клиент. Соединение устанавливается лениво, при первом вызове.
func NewAuthClient(addr string, opts ...grpc.DialOption) (*AuthClient, error) {
	const op = "grpc.client.NewAuthClient"

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AuthClient{conn: conn}, nil
}

func (a *AuthClient) Close() error {
	return a.conn.Close()
}

// ValidateToken возвращает владельца токена. Ошибка сохраняет gRPC-статус сервера.
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (*models.PublicUser, error) {
	out := new(structpb.Struct)
	if err := a.conn.Invoke(ctx, server.ValidateTokenMethod, wrapperspb.String(token), out); err != nil {
		return nil, err
	}

	fields := out.GetFields()
	return &models.PublicUser{
		ID:       fields["user_id"].GetStringValue(),
		Username: fields["username"].GetStringValue(),
		Email:    fields["email"].GetStringValue(),
		FullName: fields["full_name"].GetStringValue(),
	}, nil
}
