// internal/common/database/redis.go
package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"niche-finder/internal/common/config"
	"niche-finder/internal/common/errors"
)

// RedisClient backs the shared response cache.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis sizes the pool for poolSize concurrent cache lookups. Dialing is
// lazy; call Ping to check the server is there.
func NewRedis(cfg config.RedisConfig, poolSize int) *RedisClient {
	if poolSize < 4 {
		poolSize = 4
	}
	return &RedisClient{Client: redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	})}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return errors.NewNetworkError("redis://"+c.Client.Options().Addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
