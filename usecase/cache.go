package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/auction/repository"
)

// Source reports where a read-through view was served from.
type Source string

const (
	SourceCache Source = "cache"
	SourceDB    Source = "db"
)

// ListingKey caches the open listing page.
const ListingKey = "listing:open"

func SellerKey(id string) string { return "seller:" + id }

func UserKey(id string) string { return "user:" + id }

// Cache applies the read-through and delete-on-write policy in front of a
// CacheStore. Every failure is logged and swallowed; a nil store disables
// caching without changing any outcome.
type Cache struct {
	store  repository.CacheStore
	ttl    time.Duration
	repair RepairQueue
	logger *zap.Logger
}

func NewCache(store repository.CacheStore, ttl time.Duration, repair RepairQueue, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		store:  store,
		ttl:    ttl,
		repair: repair,
		logger: logger,
	}
}

func (c *Cache) enabled() bool {
	return c != nil && c.store != nil
}

// ReadThrough serves key from the cache when possible and otherwise calls
// load, populating the cache with the result.
func ReadThrough[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, Source, error) {
	if c.enabled() {
		raw, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			var cached T
			jsonErr := json.Unmarshal(raw, &cached)
			if jsonErr == nil {
				return cached, SourceCache, nil
			}
			c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(jsonErr))
		case !errors.Is(err, repository.ErrCacheMiss):
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, SourceDB, err
	}

	if c.enabled() {
		c.put(ctx, key, value)
	}
	return value, SourceDB, nil
}

func (c *Cache) put(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate deletes keys. A failed delete is journaled for retry so a stale
// view cannot outlive the repair processor's next drain.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	err := c.store.Delete(ctx, keys...)
	if err == nil {
		return
	}
	c.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	if c.repair == nil {
		return
	}
	if qErr := c.repair.QueueInvalidation(ctx, keys); qErr != nil {
		c.logger.Error("failed to journal cache invalidation", zap.Strings("keys", keys), zap.Error(qErr))
	}
}

// Purge deletes keys and reports the error; the repair processor uses it to
// decide whether a journaled invalidation can be dropped.
func (c *Cache) Purge(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	return c.store.Delete(ctx, keys...)
}

// Flush drops every cached view.
func (c *Cache) Flush(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.store.Flush(ctx)
}

// RepairHandler replays a journaled invalidation.
func (c *Cache) RepairHandler() RepairHandler {
	return func(ctx context.Context, payload []byte) error {
		var p InvalidationPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return c.Purge(ctx, p.Keys...)
	}
}
