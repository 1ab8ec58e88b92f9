package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemorySummaryCache keeps JSON-encoded values in process with a TTL.
type MemorySummaryCache struct {
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	mutex   sync.RWMutex
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func NewMemorySummaryCache(ttl time.Duration) *MemorySummaryCache {
	return &MemorySummaryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get decodes the cached value into dest and reports whether it was found.
func (c *MemorySummaryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mutex.RLock()
	entry, ok := c.entries[key]
	c.mutex.RUnlock()

	if !ok || c.now().After(entry.expires) {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *MemorySummaryCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = memoryEntry{data: data, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemorySummaryCache) Delete(ctx context.Context, keys ...string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

// RedisSummaryCache stores JSON-encoded values in redis with a TTL.
type RedisSummaryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisCacheConfig holds connection settings for RedisSummaryCache.
type RedisCacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisSummaryCache connects and pings redis.
func NewRedisSummaryCache(ctx context.Context, cfg RedisCacheConfig) (*RedisSummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisSummaryCacheWithClient(client, cfg.TTL), nil
}

// NewRedisSummaryCacheWithClient wraps an existing client.
func NewRedisSummaryCacheWithClient(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{client: client, prefix: "ledger:", ttl: ttl}
}

func (c *RedisSummaryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisSummaryCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.prefix + key
	}
	return c.client.Del(ctx, prefixed...).Err()
}

func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}
