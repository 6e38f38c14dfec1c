package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard keeps the seen-set in Redis so restarts do not replay recent
// items. SETNX with the retention TTL makes the check-then-insert atomic
// on the server.
type RedisGuard struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// RedisConfig holds connection settings for the Redis guard.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedis(cfg RedisConfig, retention time.Duration) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "transferwire:seen:"
	}

	return &RedisGuard{
		client:    client,
		prefix:    prefix,
		retention: retention,
	}, nil
}

func (g *RedisGuard) CheckAndMark(id string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := g.client.SetNX(ctx, g.prefix+id, 1, g.retention).Result()
	if err != nil {
		// Treat Redis failure as already-seen: dropping an item is
		// recoverable, a duplicate post is not.
		return false
	}
	return ok
}

// Prune is a no-op: Redis expires entries server-side via the TTL.
func (g *RedisGuard) Prune(now time.Time) {}

func (g *RedisGuard) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	iter := g.client.Scan(ctx, 0, g.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}

// Close closes the Redis connection.
func (g *RedisGuard) Close() error {
	return g.client.Close()
}

var _ Guard = (*RedisGuard)(nil)
