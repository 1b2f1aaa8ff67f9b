// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scheme-matcher/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient holds the shared connection used for pagination sessions and
// the scheme details cache. Every key it builds lives under Prefix.
type RedisClient struct {
	Client *redis.Client
	Prefix string
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	pool := cfg.PoolSize
	if pool <= 0 {
		pool = 10
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     pool,
		MinIdleConns: pool / 2,
	})

	return &RedisClient{Client: rdb, Prefix: cfg.KeyPrefix}, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// Key joins parts under the client prefix: Key("session", "*") with prefix
// "scheme" gives "scheme:session:*".
func (c *RedisClient) Key(parts ...string) string {
	if c.Prefix == "" {
		return strings.Join(parts, ":")
	}
	return c.Prefix + ":" + strings.Join(parts, ":")
}

// CountKeys walks the keyspace with SCAN and counts keys matching pattern.
// It never blocks the server the way KEYS would.
func (c *RedisClient) CountKeys(ctx context.Context, pattern string) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := c.Client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan %q: %w", pattern, err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

// ActiveSessions counts live pagination sessions.
func (c *RedisClient) ActiveSessions(ctx context.Context) (int, error) {
	return c.CountKeys(ctx, c.Key("session", "*", "pagination"))
}
