//go:build integration

package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"

	"gateway/internal/config"
	"gateway/internal/logger"
)

func setupRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	ctx := context.Background()

	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}

	container, err := redismodule.Run(ctx, "redis:8.4.0-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis uri: %v", err)
	}

	opt, err := redisclient.ParseURL(uri)
	if err != nil {
		t.Fatalf("failed to parse redis URL: %v", err)
	}

	client := redisclient.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		t.Fatalf("failed to ping redis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
	})
	return client
}

func TestRedisFilter_Integration(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	f := NewRedisFilter(NewRedisStore(client), config.IdempotencyConfig{
		TTLSeconds:   1,
		KeyPrefix:    "test:idempotency:",
		OnStoreError: "deny",
	}, config.CircuitBreakerConfig{}, logger.NopLogger())

	seen, err := f.SeenBefore(ctx, "policy.created-20250101120000001")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = f.SeenBefore(ctx, "policy.created-20250101120000001")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, f.Forget(ctx, "policy.created-20250101120000001"))
	seen, err = f.SeenBefore(ctx, "policy.created-20250101120000001")
	require.NoError(t, err)
	assert.False(t, seen)

	// Wait for TTL to expire
	time.Sleep(2 * time.Second)

	seen, err = f.SeenBefore(ctx, "policy.created-20250101120000001")
	require.NoError(t, err)
	assert.False(t, seen)
}
