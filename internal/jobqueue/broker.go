package jobqueue

import (
	"context"
	"fmt"

	"github.com/advault/keyword-inventory/shared/rabbitmq"
)

// RabbitBroker publishes lane dispatches through the shared RabbitMQ client.
type RabbitBroker struct {
	client      *rabbitmq.Client
	routingKeys map[Lane]string
}

func NewRabbitBroker(client *rabbitmq.Client, routingKeys map[Lane]string) *RabbitBroker {
	return &RabbitBroker{
		client:      client,
		routingKeys: routingKeys,
	}
}

func (b *RabbitBroker) Publish(ctx context.Context, lane Lane, body []byte) error {
	routingKey, ok := b.routingKeys[lane]
	if !ok {
		return fmt.Errorf("no routing key configured for lane %q", lane)
	}

	return b.client.PublishWithRetry(ctx, routingKey, body, "application/json")
}
