package rabbitmq

// RoutingKeyUserRegistered — ключ маршрутизации события регистрации.
const RoutingKeyUserRegistered = "user.registered"

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// AccountQueues возвращает очереди, которые сервис объявляет при старте.
func AccountQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "account.user_registered", RoutingKey: RoutingKeyUserRegistered},
	}
}
