// Package redis provides the descriptor memoization cache.  Computed
// descriptor vectors are small and deterministic per digest, so they cache
// indefinitely well; the TTL only bounds memory on the redis side.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/foldbank/foldbank/internal/config"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/pkg/errors"
)

// Client wraps a go-redis client with connection checking.
type Client struct {
	rdb    *redis.Client
	logger logging.Logger
}

// NewClient connects to the configured redis instance and verifies the
// connection with a ping.
func NewClient(cfg config.RedisConfig, logger logging.Logger) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.InvalidParam("redis addr cannot be empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "redis connection failed")
	}

	logger.Info("redis connected", logging.String("addr", cfg.Addr))
	return &Client{rdb: rdb, logger: logger.Named("redis")}, nil
}

// NewClientFromRedis wraps an existing go-redis client, for tests backed by
// miniredis.
func NewClientFromRedis(rdb *redis.Client, logger logging.Logger) *Client {
	return &Client{rdb: rdb, logger: logger.Named("redis")}
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis ping failed")
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
