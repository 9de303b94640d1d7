package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheTTL is how long a resolved link is reused.
const CacheTTL = 7 * 24 * time.Hour

// ErrCacheMiss is returned by a Store when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Store is a string key-value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisStore implements Store on a Redis client.
type RedisStore struct {
	client *redis.Client
}

// ConnectRedis connects to Redis at addr and verifies the connection.
func ConnectRedis(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return val, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Cached wraps a Lookup with a Store. Cache failures are logged and the
// underlying lookup is used.
type Cached struct {
	next   Lookup
	store  Store
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached creates a cached lookup. namespace separates entries of
// different lookups sharing one store.
func NewCached(next Lookup, store Store, namespace string, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		next:   next,
		store:  store,
		prefix: "moodify:media:" + namespace + ":",
		ttl:    CacheTTL,
		logger: logger,
	}
}

// Find implements Lookup.
func (c *Cached) Find(ctx context.Context, song string) (Link, error) {
	key := c.prefix + song

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var link Link
		if jerr := json.Unmarshal([]byte(raw), &link); jerr == nil {
			return link, nil
		}
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key))
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn("media cache read failed", zap.String("key", key), zap.Error(err))
	}

	link, err := c.next.Find(ctx, song)
	if err != nil {
		return Link{}, err
	}

	data, err := json.Marshal(link)
	if err != nil {
		return link, nil
	}
	if err := c.store.Set(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Warn("media cache write failed", zap.String("key", key), zap.Error(err))
	}
	return link, nil
}
