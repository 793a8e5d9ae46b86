package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "stock:"
	snapshotTTL = 1 * time.Hour
)

// Compile-time check to ensure RedisCache implements SnapshotCache
var _ SnapshotCache = (*RedisCache)(nil)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) SetSnapshot(ctx context.Context, ticker string, payload []byte) error {
	return r.client.Set(ctx, keyPrefix+ticker, payload, snapshotTTL).Err()
}

// GetSnapshots fetches the latest cached frame for a list of tickers (MGET).
// Tickers with no cached frame yet are simply absent from the result.
func (r *RedisCache) GetSnapshots(ctx context.Context, tickers []string) ([]string, error) {
	if len(tickers) == 0 {
		return nil, nil
	}

	keys := make([]string, len(tickers))
	for i, t := range tickers {
		keys[i] = keyPrefix + t
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []string
	for _, val := range results {
		if payload, ok := val.(string); ok && payload != "" {
			snapshots = append(snapshots, payload)
		}
	}
	return snapshots, nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
