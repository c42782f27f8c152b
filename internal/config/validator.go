package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gateway/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errs []error

	if err := validateServer(cfg.Server); err != nil {
		errs = append(errs, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errs = append(errs, err)
	}

	if err := validateIdempotency(cfg.Idempotency, cfg.Database.Redis); err != nil {
		errs = append(errs, err)
	}

	if err := validateRouting(cfg.Routing); err != nil {
		errs = append(errs, err)
	}

	if err := validateRoutes(cfg.Routes); err != nil {
		errs = append(errs, err)
	}

	if err := validateURL("gateway.backend_url", cfg.Gateway.BackendURL); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst <= 0) {
		return &ValidationError{
			Field:   "server.rate_limit",
			Message: "rps and burst must be positive when rate limiting is enabled",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Type != "kafka" {
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
	return validateKafka(cfg.Kafka)
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.QueueSize < 1 {
		return &ValidationError{
			Field:   "broker.kafka.queue_size",
			Message: "queue_size must be positive",
		}
	}

	if err := validateRetry("broker.kafka.retry", cfg.Retry); err != nil {
		return err
	}

	return validateRetry("broker.kafka.publish_retry", cfg.PublishRetry)
}

func validateRetry(field string, cfg RetryConfig) error {
	if cfg.MaxRetries < 0 {
		return &ValidationError{
			Field:   field + ".max_retries",
			Message: "max_retries must be non-negative",
		}
	}

	if cfg.InitialInterval < 0 {
		return &ValidationError{
			Field:   field + ".initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.MaxInterval < 0 {
		return &ValidationError{
			Field:   field + ".max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   field + ".max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier < 0 {
		return &ValidationError{
			Field:   field + ".multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateIdempotency(cfg IdempotencyConfig, redis RedisConfig) error {
	switch cfg.Store {
	case constants.IdempotencyStoreMemory:
	case constants.IdempotencyStoreRedis:
		if redis.Host == "" {
			return &ValidationError{
				Field:   "database.redis.host",
				Message: "Redis host is required when idempotency.store is redis",
			}
		}
		if redis.Port < 1 || redis.Port > 65535 {
			return &ValidationError{
				Field:   "database.redis.port",
				Message: fmt.Sprintf("port must be between 1 and 65535, got %d", redis.Port),
			}
		}
	default:
		return &ValidationError{
			Field:   "idempotency.store",
			Message: fmt.Sprintf("invalid store: %s (valid: memory, redis)", cfg.Store),
		}
	}

	if cfg.Capacity < 1 {
		return &ValidationError{
			Field:   "idempotency.capacity",
			Message: "capacity must be positive",
		}
	}

	if cfg.TTLSeconds < 0 {
		return &ValidationError{
			Field:   "idempotency.ttl_seconds",
			Message: "TTL must be non-negative",
		}
	}

	switch strings.ToLower(cfg.OnStoreError) {
	case constants.FallbackAllow, constants.FallbackDeny:
	default:
		return &ValidationError{
			Field:   "idempotency.on_store_error",
			Message: fmt.Sprintf("invalid on_store_error value: %s (valid: allow, deny)", cfg.OnStoreError),
		}
	}

	return nil
}

func validateRouting(cfg RoutingConfig) error {
	for i, rule := range cfg.Rules {
		field := fmt.Sprintf("routing.rules[%d]", i)
		if (rule.Prefix == "") == (rule.Expression == "") {
			return &ValidationError{
				Field:   field,
				Message: "exactly one of prefix or expression must be set",
			}
		}
		if rule.Destination == "" {
			return &ValidationError{
				Field:   field + ".destination",
				Message: "destination topic is required",
			}
		}
	}
	return nil
}

func validateRoutes(routes []RouteConfig) error {
	seen := make(map[string]bool, len(routes))
	for i, r := range routes {
		field := fmt.Sprintf("routes[%d]", i)
		if r.ID == "" {
			return &ValidationError{Field: field + ".id", Message: "route id is required"}
		}
		if seen[r.ID] {
			return &ValidationError{Field: field + ".id", Message: fmt.Sprintf("duplicate route id: %s", r.ID)}
		}
		seen[r.ID] = true
		if r.Topic == "" {
			return &ValidationError{Field: field + ".topic", Message: "topic is required"}
		}
		if err := validateURL(field+".target_url", r.TargetURL); err != nil {
			return err
		}
		if r.Timeout <= 0 {
			return &ValidationError{Field: field + ".timeout", Message: "timeout must be positive"}
		}
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid URL: %q", raw),
		}
	}
	return nil
}
