package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"trip-route-service/internal/ports"
)

// Redis backed cache for pairwise travel costs. Keys are expected to be
// consistent (mode and coordinates already canonicalized) by the caller.
// Values are stored as "meters|seconds" strings.
type RedisCostCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCostCache(client *redis.Client, ttl time.Duration) *RedisCostCache {
	return &RedisCostCache{
		client: client,
		ttl:    ttl,
		prefix: "cost:",
	}
}

func (r *RedisCostCache) GetMany(ctx context.Context, keys []string) (map[string]ports.CachedCost, error) {
	if r.client == nil {
		return nil, errors.New("cost cache: redis client is nil")
	}

	if len(keys) == 0 {
		return map[string]ports.CachedCost{}, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}

	vals, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("get cost cache: mget: %w", err)
	}

	out := make(map[string]ports.CachedCost, len(keys))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		cost, err := decodeCost(s)
		if err != nil {
			// Treat malformed values as a miss; they will be rewritten.
			continue
		}
		out[keys[i]] = cost
	}

	return out, nil
}

func (r *RedisCostCache) PutMany(ctx context.Context, entries map[string]ports.CachedCost) error {
	if r.client == nil {
		return errors.New("cost cache: redis client is nil")
	}

	if len(entries) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for k, c := range entries {
		pipe.Set(ctx, r.prefix+k, encodeCost(c), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert cost cache: pipeline exec: %w", err)
	}

	return nil
}

func encodeCost(c ports.CachedCost) string {
	return strconv.Itoa(c.DistanceMeters) + "|" + strconv.Itoa(c.DurationSeconds)
}

func decodeCost(s string) (ports.CachedCost, error) {
	meters, seconds, ok := strings.Cut(s, "|")
	if !ok {
		return ports.CachedCost{}, fmt.Errorf("malformed cost value %q", s)
	}

	m, err := strconv.Atoi(meters)
	if err != nil {
		return ports.CachedCost{}, fmt.Errorf("malformed cost meters %q: %w", s, err)
	}

	sec, err := strconv.Atoi(seconds)
	if err != nil {
		return ports.CachedCost{}, fmt.Errorf("malformed cost seconds %q: %w", s, err)
	}

	return ports.CachedCost{DistanceMeters: m, DurationSeconds: sec}, nil
}
