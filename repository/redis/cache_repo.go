package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/auction/repository"
)

type cacheRepository struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewCacheRepository creates a Redis-backed cache store. Keys are namespaced
// under prefix so Flush only touches this service's entries.
func NewCacheRepository(client *redislib.Client, prefix string, ttl time.Duration) repository.CacheStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &cacheRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, repository.ErrCacheMiss
		}
		return nil, err
	}
	return result, nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = r.key(key)
	}
	return r.client.Del(ctx, namespaced...).Err()
}

// Flush removes every key under the prefix. Without a prefix the whole
// logical database is flushed.
func (r *cacheRepository) Flush(ctx context.Context) error {
	if r.prefix == "" {
		return r.client.FlushDB(ctx).Err()
	}

	iter := r.client.Scan(ctx, 0, r.prefix+"*", 500).Iterator()
	batch := make([]string, 0, 500)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (r *cacheRepository) key(key string) string {
	return fmt.Sprintf("%s%s", r.prefix, key)
}
