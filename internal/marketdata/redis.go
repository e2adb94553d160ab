package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisTTL is how long shared bars stay in Redis.
const DefaultRedisTTL = 12 * time.Hour

// RedisCache shares fetched bars between processes, e.g. several bot replicas.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to addr and checks the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return newRedisCache(rdb), nil
}

func newRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "compinvest:bars:", ttl: DefaultRedisTTL}
}

func (r *RedisCache) get(ctx context.Context, key string) ([]Bar, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var bars []Bar
	if err := json.Unmarshal([]byte(val), &bars); err != nil {
		return nil, false, fmt.Errorf("redis value for %s: %w", key, err)
	}
	return bars, true, nil
}

func (r *RedisCache) set(ctx context.Context, key string, bars []Bar) error {
	data, err := json.Marshal(bars)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+key, string(data), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisCache) Close() error { return r.client.Close() }
