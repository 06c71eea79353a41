package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared-cache variant, used when multiple gateway replicas
// should agree on catalog snapshots. Failures degrade to cache misses, the
// catalog path must keep working with redis down.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedis(cfg RedisConfig, log *slog.Logger) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Redis{rdb: rdb, ttl: cfg.TTL, log: log}
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.rdb.Close()
}

func (c *Redis) Get(ctx context.Context, key string, dest any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WarnContext(ctx, "redis get failed", "key", key, "err", err)
		}
		return false
	}

	return json.Unmarshal(raw, dest) == nil
}

func (c *Redis) Set(ctx context.Context, key string, val any) {
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "redis set failed", "key", key, "err", err)
	}
}

func (c *Redis) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.log.WarnContext(ctx, "redis del failed", "key", key, "err", err)
	}
}
