// Package geocoder resolves location phrases to coordinates. Lookups are
// cached by normalized query and pass through a single process-wide rate gate.
package geocoder

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/rajasatyajit/FeedMonitor/config"
	"github.com/rajasatyajit/FeedMonitor/internal/logger"
	"github.com/rajasatyajit/FeedMonitor/internal/metrics"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
	"github.com/rajasatyajit/FeedMonitor/pkg/utils"
)

// lookupBudget bounds one shared lookup, gate wait included. The lookup runs
// detached from any single caller so that callers joining it are not cut off
// when the first one gives up.
const lookupBudget = 30 * time.Second

// Lookup performs one outbound geocoding request
type Lookup interface {
	Lookup(ctx context.Context, query string) (*models.Location, error)
}

// Client is safe for concurrent use by any number of pipelines
type Client struct {
	lookup  Lookup
	cache   Cache
	limiter *rate.Limiter
	group   singleflight.Group
}

// New creates a client. minInterval is the least time allowed between two
// outbound lookups across all callers.
func New(lookup Lookup, cache Cache, minInterval time.Duration) *Client {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Client{
		lookup:  lookup,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// NewFromConfig wires a Nominatim lookup and the configured cache backend
func NewFromConfig(cfg config.GeocodeConfig, redisCfg config.RedisConfig) (*Client, error) {
	cache, err := NewCache(cfg, redisCfg)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return New(NewNominatim(httpClient, cfg.BaseURL, cfg.UserAgent), cache, cfg.MinInterval), nil
}

// NewCache picks Redis when a URL is configured, then a bounded LRU when a
// size is configured, and otherwise an unbounded map.
func NewCache(cfg config.GeocodeConfig, redisCfg config.RedisConfig) (Cache, error) {
	switch {
	case redisCfg.URL != "":
		client, err := NewRedisClient(redisCfg.URL, redisCfg.Password, redisCfg.DB)
		if err != nil {
			return nil, err
		}
		logger.Info("Geocode cache using redis", "prefix", redisCfg.CachePrefix)
		return NewRedisCache(client, redisCfg.CachePrefix), nil
	case cfg.CacheSize > 0:
		logger.Info("Geocode cache bounded", "size", cfg.CacheSize)
		return NewLRUCache(cfg.CacheSize)
	default:
		return NewMemoryCache(), nil
	}
}

// Geocode resolves query. It returns nil when nothing was found or the
// lookup failed; failures are logged and never returned.
func (c *Client) Geocode(ctx context.Context, query string) *models.Location {
	key := utils.NormalizeKey(query)
	if key == "" {
		return nil
	}

	if entry, ok := c.cached(ctx, key); ok {
		metrics.RecordGeocode("hit")
		return copyLocation(entry.Location)
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupBudget)
		defer cancel()
		return c.resolve(sctx, key, query)
	})

	select {
	case <-ctx.Done():
		return nil
	case res := <-ch:
		if res.Err != nil {
			return nil
		}
		loc, _ := res.Val.(*models.Location)
		return copyLocation(loc)
	}
}

// resolve performs the gated lookup for key and caches its outcome
func (c *Client) resolve(ctx context.Context, key, query string) (*models.Location, error) {
	if entry, ok := c.cached(ctx, key); ok {
		metrics.RecordGeocode("hit")
		return entry.Location, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	loc, err := c.lookup.Lookup(ctx, strings.TrimSpace(query))
	if err != nil {
		metrics.RecordGeocode("error")
		logger.Warn("Geocode lookup failed", "query", query, "error", err)
		return nil, err
	}
	if loc == nil {
		metrics.RecordGeocode("empty")
	} else {
		metrics.RecordGeocode("found")
	}

	if err := c.cache.Set(ctx, key, Entry{Location: loc}); err != nil {
		logger.Warn("Geocode cache write failed", "query", query, "error", err)
	}
	return loc, nil
}

func (c *Client) cached(ctx context.Context, key string) (Entry, bool) {
	entry, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("Geocode cache read failed", "key", key, "error", err)
		return Entry{}, false
	}
	return entry, ok
}

func copyLocation(loc *models.Location) *models.Location {
	if loc == nil {
		return nil
	}
	cp := *loc
	return &cp
}
