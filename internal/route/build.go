package route

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gateway/internal/broker"
	"gateway/internal/config"
	"gateway/internal/constants"
	"gateway/internal/deadletter"
	"gateway/internal/idempotency"
	"gateway/internal/logger"
	"gateway/pkg/retry"
	"gateway/pkg/schema"
)

type Dependencies struct {
	Config    *config.Config
	Producer  broker.Producer
	Consumers broker.ConsumerFactory
	Redis     *redis.Client // nil unless idempotency.store is redis
	Schemas   *schema.Registry
	Logger    logger.Logger
}

// BuildRegistry assembles one consumer route per configured route. Nothing
// is started.
func BuildRegistry(deps Dependencies) (*Registry, error) {
	cfg := deps.Config
	schemas := deps.Schemas
	if schemas == nil {
		schemas = schema.NewRegistry()
	}

	policy := cfg.Broker.Kafka.Retry.Policy(retry.DefaultPolicy())
	publishPolicy := cfg.Broker.Kafka.PublishRetry.Policy(retry.PublishPolicy())

	filter := idempotency.New(cfg.Idempotency, cfg.CircuitBreaker, deps.Redis, deps.Logger)

	registry := NewRegistry()
	for _, rc := range cfg.Routes {
		if rc.SchemaFile != "" {
			if err := schemas.RegisterFile(rc.ID, rc.SchemaFile); err != nil {
				return nil, fmt.Errorf("route %s: %w", rc.ID, err)
			}
		}

		router := deadletter.NewRouter(deadletter.Config{
			RouteID:       rc.ID,
			DLQTopic:      cfg.Broker.Kafka.DLQTopic,
			Policy:        policy,
			PublishPolicy: publishPolicy,
		}, deadletter.NewHTTPDispatcher(rc, cfg.CircuitBreaker), deps.Producer, deps.Logger)

		pipeline := NewPipeline(rc.ID, filter, schemas, router, deps.Logger)

		consumerRoute := NewConsumerRoute(rc.ID, rc.Topic, deps.Consumers, pipeline.Handle, deps.Logger).
			WithRecovery(policy)
		if err := registry.Add(consumerRoute); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// AutoStartIDs lists the routes that start with the application.
func AutoStartIDs(cfg *config.Config) []string {
	var ids []string
	for _, rc := range cfg.Routes {
		if rc.StartsAutomatically() {
			ids = append(ids, rc.ID)
		}
	}
	return ids
}

// DrainBudget is how long a stopping route may need to finish the message in
// flight: every dispatch attempt and retry wait, then every dead-letter write
// and its retry waits.
func DrainBudget(cfg *config.Config) time.Duration {
	if cfg.Broker.Kafka.DrainTimeout > 0 {
		return cfg.Broker.Kafka.DrainTimeout
	}

	attemptTimeout := constants.DefaultHTTPTimeout
	for _, rc := range cfg.Routes {
		attemptTimeout = max(attemptTimeout, rc.Timeout)
	}

	policy := cfg.Broker.Kafka.Retry.Policy(retry.DefaultPolicy())
	publishPolicy := cfg.Broker.Kafka.PublishRetry.Policy(retry.PublishPolicy())

	return scheduleBudget(policy, attemptTimeout) + scheduleBudget(publishPolicy, constants.KafkaWriteTimeout)
}

func scheduleBudget(p retry.Policy, attemptTimeout time.Duration) time.Duration {
	total := time.Duration(p.MaxRetries+1) * attemptTimeout
	for n := 1; n <= p.MaxRetries; n++ {
		total += p.Delay(n)
	}
	return total
}
