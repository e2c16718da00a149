package threads

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/entrhq/recall/pkg/types"
)

// DefaultKeyPrefix namespaces thread keys in Redis.
const DefaultKeyPrefix = "recall"

// RedisClient is the subset of the go-redis client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Close() error
}

// RedisStore keeps each thread payload under <prefix>:thread:<name> and the
// set of names under <prefix>:threads.
type RedisStore struct {
	client RedisClient
	prefix string
}

// NewRedisStore connects to the Redis server at redisURL.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, DefaultKeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client RedisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) threadKey(name string) string {
	return s.prefix + ":thread:" + name
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":threads"
}

// Save writes the thread payload and records its name.
func (s *RedisStore) Save(ctx context.Context, name string, messages []*types.Message, overwrite bool) error {
	clean, err := SanitizeName(name)
	if err != nil {
		return err
	}
	payload, err := Encode(messages)
	if err != nil {
		return err
	}

	key := s.threadKey(clean)
	if overwrite {
		if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
			return fmt.Errorf("failed to save thread: %w", err)
		}
	} else {
		ok, err := s.client.SetNX(ctx, key, payload, 0).Result()
		if err != nil {
			return fmt.Errorf("failed to save thread: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrThreadExists, clean)
		}
	}

	if err := s.client.SAdd(ctx, s.indexKey(), clean).Err(); err != nil {
		return fmt.Errorf("failed to index thread: %w", err)
	}
	return nil
}

// Load reads a saved thread.
func (s *RedisStore) Load(ctx context.Context, name string) ([]*types.Message, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.threadKey(clean)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read thread: %w", err)
	}
	return Decode(data)
}

// List returns saved thread names in lexical order.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether a thread with name has been saved.
func (s *RedisStore) Exists(ctx context.Context, name string) (bool, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, s.threadKey(clean)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check thread: %w", err)
	}
	return n > 0, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
