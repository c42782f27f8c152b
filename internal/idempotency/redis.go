package idempotency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"gateway/internal/config"
	"gateway/internal/constants"
	"gateway/internal/logger"
	"gateway/pkg/circuitbreaker"
	"gateway/pkg/metrics"
)

// Store is the key-value primitive behind RedisFilter.
type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis Del failed: %w", err)
	}
	return nil
}

// RedisFilter shares seen keys across gateway instances. It is only used
// when idempotency.store is set to redis.
type RedisFilter struct {
	store   Store
	cb      *circuitbreaker.Wrapper
	prefix  string
	ttl     time.Duration
	onError string
	logger  logger.Logger
}

func NewRedisFilter(store Store, cfg config.IdempotencyConfig, cbCfg config.CircuitBreakerConfig, log logger.Logger) *RedisFilter {
	return &RedisFilter{
		store:   store,
		cb:      circuitbreaker.FromSettings("redis-idempotency", cbCfg),
		prefix:  cfg.KeyPrefix,
		ttl:     time.Duration(cfg.TTLSeconds) * time.Second,
		onError: strings.ToLower(cfg.OnStoreError),
		logger:  log,
	}
}

func (f *RedisFilter) SeenBefore(ctx context.Context, key string) (bool, error) {
	created, err := circuitbreaker.Do(ctx, f.cb, func() (bool, error) {
		return f.store.SetNX(ctx, f.prefix+key, time.Now().UnixMilli(), f.ttl)
	})
	if err != nil {
		return f.handleStoreError(ctx, key, err)
	}
	return !created, nil
}

func (f *RedisFilter) Forget(ctx context.Context, key string) error {
	_, err := circuitbreaker.Do(ctx, f.cb, func() (struct{}, error) {
		return struct{}{}, f.store.Del(ctx, f.prefix+key)
	})
	return err
}

func (f *RedisFilter) handleStoreError(ctx context.Context, key string, err error) (bool, error) {
	if f.onError == constants.FallbackAllow {
		metrics.FallbackUsageTotal.WithLabelValues("idempotency", "allow_on_error").Inc()
		f.logger.WarnwCtx(ctx, "Idempotency store error, treating key as new (fallback: allow)",
			"error", err,
		)
		return false, nil
	}

	metrics.FallbackUsageTotal.WithLabelValues("idempotency", "deny_on_error").Inc()
	return false, fmt.Errorf("idempotency check for key %s: %w", key, err)
}
