package broker

import (
	"context"

	"gateway/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.EventEnvelope) error
	Close() error
}

// Delivery is one consumed message together with its position.
type Delivery struct {
	Envelope  models.EventEnvelope
	Topic     string
	Partition int
	Offset    int64
}

// HandlerFunc resolves a delivery. A nil return commits the offset; an error
// leaves it uncommitted and stops the consumer.
type HandlerFunc func(ctx context.Context, d Delivery) error

type Consumer interface {
	Consume(ctx context.Context, handler HandlerFunc) error
	Topic() string
	Close() error
}

// ConsumerFactory opens a fresh consumer for topic. Consumers are single use:
// a restarted route asks for a new one.
type ConsumerFactory func(topic string) Consumer
