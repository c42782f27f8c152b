package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/constants"
	"gateway/pkg/retry"
)

func defaultPolicyForTest() retry.Policy {
	return retry.DefaultPolicy()
}

func validConfig() *Config {
	cfg := &Config{
		Broker: BrokerConfig{Kafka: KafkaConfig{Brokers: []string{"kafka:9092"}}},
	}
	applyDefaults(cfg)
	return cfg
}

func TestValidateStaticAcceptsDefaults(t *testing.T) {
	require.NoError(t, ValidateStatic(validConfig()))
}

func TestValidateStaticRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "no brokers",
			mutate: func(c *Config) { c.Broker.Kafka.Brokers = nil },
			field:  "broker.kafka.brokers",
		},
		{
			name:   "redis store without host",
			mutate: func(c *Config) { c.Idempotency.Store = constants.IdempotencyStoreRedis },
			field:  "database.redis.host",
		},
		{
			name:   "unknown store",
			mutate: func(c *Config) { c.Idempotency.Store = "etcd" },
			field:  "idempotency.store",
		},
		{
			name: "rule with prefix and expression",
			mutate: func(c *Config) {
				c.Routing.Rules = []RoutingRuleConfig{{Prefix: "a", Expression: "true", Destination: "t"}}
			},
			field: "routing.rules[0]",
		},
		{
			name: "duplicate route id",
			mutate: func(c *Config) {
				c.Routes = append(c.Routes, c.Routes[0])
			},
			field: "routes[3].id",
		},
		{
			name:   "bad target url",
			mutate: func(c *Config) { c.Routes[1].TargetURL = "not a url" },
			field:  "routes[1].target_url",
		},
		{
			name: "max interval below initial",
			mutate: func(c *Config) {
				c.Broker.Kafka.Retry = RetryConfig{InitialInterval: 10, MaxInterval: 5}
			},
			field: "broker.kafka.retry.max_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			require.Error(t, err)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}
