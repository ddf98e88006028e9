// Package hashstore is the gateway's one concrete backing-store
// implementation: a thin wrapper over go-redis exposing the single
// read operation the broker depends on (spec §1, §6.1 — the backing
// store is "a hash-capable key/value store exposing hgetall").
package hashstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisHashStore reads hash contents from a Redis server using HGETALL.
type RedisHashStore struct {
	client *redis.Client
}

// New connects to the Redis server at addr (a redis:// URL, per spec
// §6.3's default of redis://<host>:6379).
func New(addr string) (*RedisHashStore, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("hashstore: parse addr: %w", err)
	}

	opts.PoolSize = 20
	opts.MinIdleConns = 5
	opts.MaxRetries = 3
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	return &RedisHashStore{client: redis.NewClient(opts)}, nil
}

// HGetAll returns the current field/value contents of hashName. A
// hash that does not exist reads back as an empty, non-nil map (spec
// §3: "an absent hash is modeled as the empty contents").
func (r *RedisHashStore) HGetAll(ctx context.Context, hashName string) (map[string]string, error) {
	contents, err := r.client.HGetAll(ctx, hashName).Result()
	if err != nil {
		return nil, fmt.Errorf("hashstore: hgetall %q: %w", hashName, err)
	}
	if contents == nil {
		contents = map[string]string{}
	}
	return contents, nil
}

// Ping verifies connectivity to Redis.
func (r *RedisHashStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *RedisHashStore) Close() error {
	return r.client.Close()
}
