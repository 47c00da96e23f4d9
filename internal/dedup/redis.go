package dedup

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash that holds the seen state.
const DefaultRedisKey = "castingscout:seen"

// RedisBackend keeps the state in one Redis hash.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend wraps an existing client. An empty key uses DefaultRedisKey.
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key}
}

// DialRedis parses a redis:// URL and checks connectivity.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (b *RedisBackend) Load(ctx context.Context) (map[string]string, error) {
	entries, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", b.key, err)
	}
	if entries == nil {
		entries = map[string]string{}
	}
	return entries, nil
}

func (b *RedisBackend) Save(ctx context.Context, entries map[string]string) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, entries[k])
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, b.key)
	if len(args) > 0 {
		pipe.HSet(ctx, b.key, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replace %s: %w", b.key, err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
