package kev

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKey = "ctem:kev:catalog"

type cachedCatalog struct {
	FetchedAt time.Time `json:"fetched_at"`
	Catalog   *Catalog  `json:"catalog"`
}

// RedisCache stores the downloaded catalog in redis.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{rdb: rdb}, nil
}

func (r *RedisCache) Load(ctx context.Context) (*Catalog, time.Time, error) {
	raw, err := r.rdb.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, ErrCacheMiss
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var cc cachedCatalog
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode cached catalog: %w", err)
	}
	if cc.Catalog == nil {
		return nil, time.Time{}, ErrCacheMiss
	}
	return cc.Catalog, cc.FetchedAt, nil
}

func (r *RedisCache) Store(ctx context.Context, c *Catalog, fetchedAt time.Time, ttl time.Duration) error {
	raw, err := json.Marshal(cachedCatalog{FetchedAt: fetchedAt, Catalog: c})
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, redisKey, raw, ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.rdb.Close()
}
