package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/rajasatyajit/FeedMonitor/internal/models"
	"github.com/rajasatyajit/FeedMonitor/pkg/utils"
)

// Entry is a cached lookup outcome. A nil Location records "no result".
type Entry struct {
	Location *models.Location `json:"location"`
}

// Cache stores lookup outcomes by normalized query
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// MemoryCache keeps every entry for the life of the process
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryCache creates an unbounded in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}

// Len returns the number of cached queries
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// LRUCache evicts the least recently used entry once size is reached.
// Only used when a size is configured explicitly.
type LRUCache struct {
	entries *lru.Cache[string, Entry]
}

// NewLRUCache creates a bounded in-process cache
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCache{entries: c}, nil
}

func (c *LRUCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	e, ok := c.entries.Get(key)
	return e, ok, nil
}

func (c *LRUCache) Set(ctx context.Context, key string, entry Entry) error {
	c.entries.Add(key, entry)
	return nil
}

// RedisCache shares lookup outcomes between processes. Keys never expire.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisClient connects to redisURL and verifies the connection
func NewRedisClient(redisURL, password string, db int) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opt.Password = password
	}
	if db != 0 {
		opt.DB = db
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedisCache creates a cache storing entries under prefix
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + utils.HashString(key)
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return e, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
