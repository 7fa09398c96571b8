// Package events публикует доменные события сервиса аккаунтов в RabbitMQ.
package events

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Publisher отправляет события в обменник exchange.
type Publisher struct {
	ch       rabbitmq.Channel
	exchange string
}

func NewPublisher(ch rabbitmq.Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// PublishUserRegistered отправляет событие user.registered.
func (p *Publisher) PublishUserRegistered(ctx context.Context, evt models.UserRegisteredEvent) error {
	const op = "events.PublishUserRegistered"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rabbitmq.PublishMessage(p.ch, p.exchange, rabbitmq.RoutingKeyUserRegistered, evt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
