package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gateway/internal/broker"
	"gateway/internal/config"
	"gateway/internal/constants"
	"gateway/internal/logger"
)

// Base owns the process-wide connections shared by every component.
type Base struct {
	Config    *config.Config
	Logger    logger.Logger
	Producer  broker.Producer
	Consumers broker.ConsumerFactory
	Redis     *redis.Client
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBroker creates the shared producer and the consumer factory, creating
// topics first when broker.kafka.ensure_topics is set.
func (b *Base) InitBroker(ctx context.Context) error {
	kafkaCfg := b.Config.Broker.Kafka
	if kafkaCfg.EnsureTopics {
		specs := broker.GatewayTopics(consumedTopics(b.Config), publishedTopics(b.Config), kafkaCfg.DLQTopic, kafkaCfg.TopicPartitions)
		if err := broker.EnsureTopics(ctx, kafkaCfg.Brokers, specs, b.Logger); err != nil {
			return fmt.Errorf("failed to ensure topics: %w", err)
		}
	}

	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}

	consumers, err := broker.NewConsumerFactory(b.Config.Broker, b.Logger)
	if err != nil {
		producer.Close()
		return fmt.Errorf("failed to create consumer factory: %w", err)
	}

	b.Producer = producer
	b.Consumers = consumers
	return nil
}

// InitRedis connects only when the idempotency store is redis.
func (b *Base) InitRedis(ctx context.Context) error {
	if b.Config.Idempotency.Store != constants.IdempotencyStoreRedis {
		return nil
	}

	rc := b.Config.Database.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", rc.Host, rc.Port),
		Password: rc.Password,
		DB:       rc.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	b.Logger.Info("Redis connected successfully")
	b.Redis = rdb
	return nil
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	b.Logger.Info("Application exited successfully")
	return nil
}

func consumedTopics(cfg *config.Config) []string {
	topics := make([]string, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		topics = append(topics, r.Topic)
	}
	return topics
}

func publishedTopics(cfg *config.Config) []string {
	topics := []string{cfg.Routing.UnclassifiedTopic}
	for _, r := range cfg.Routing.Rules {
		topics = append(topics, r.Destination)
	}
	return topics
}
