package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/config"
	"gateway/internal/logger"
)

func TestInitRedis_SkippedForMemoryStore(t *testing.T) {
	b := NewBase(&config.Config{Idempotency: config.IdempotencyConfig{Store: "memory"}}, logger.NopLogger())

	require.NoError(t, b.InitRedis(context.Background()))
	assert.Nil(t, b.Redis)
}

func TestInitBroker_UnknownType(t *testing.T) {
	b := NewBase(&config.Config{Broker: config.BrokerConfig{Type: "nats"}}, logger.NopLogger())

	assert.Error(t, b.InitBroker(context.Background()))
}

func TestTopics(t *testing.T) {
	cfg := &config.Config{
		Routes: []config.RouteConfig{{ID: "a", Topic: "billing.invoice-created"}},
		Routing: config.RoutingConfig{
			UnclassifiedTopic: "events.unclassified",
			Rules:             []config.RoutingRuleConfig{{Prefix: "policy.", Destination: "policies.policy-events"}},
		},
	}

	assert.Equal(t, []string{"billing.invoice-created"}, consumedTopics(cfg))
	assert.Equal(t, []string{"events.unclassified", "policies.policy-events"}, publishedTopics(cfg))
}

func TestShutdown_NothingOpen(t *testing.T) {
	b := NewBase(&config.Config{}, logger.NopLogger())
	called := false

	err := b.Shutdown(context.Background(), func(ctx context.Context) []error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}
