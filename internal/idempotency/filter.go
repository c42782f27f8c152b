package idempotency

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"gateway/internal/config"
	"gateway/internal/constants"
	"gateway/internal/logger"
)

// Filter suppresses repeated deliveries of the same dedup key.
//
// SeenBefore records key and returns false on first sight, true afterwards.
// It is atomic for concurrent callers: a key is reported new at most once.
// Forget drops a key so a redelivery of the same message is processed again.
type Filter interface {
	SeenBefore(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Sizer is implemented by filters that can report how many keys they hold.
type Sizer interface {
	Len() int
}

// New builds the filter shared by every consumer route. A key recorded by
// one route suppresses the same key on the others.
func New(cfg config.IdempotencyConfig, cbCfg config.CircuitBreakerConfig, client *redis.Client, log logger.Logger) Filter {
	if strings.EqualFold(cfg.Store, constants.IdempotencyStoreRedis) && client != nil {
		return NewRedisFilter(NewRedisStore(client), cfg, cbCfg, log)
	}
	return NewLRUFilter(cfg.Capacity)
}
