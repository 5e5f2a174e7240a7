// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"

	"github.com/mchmarny/craftplan/pkg/defaults"
)

// DefaultKeyPrefix namespaces keys written to a shared Redis.
const DefaultKeyPrefix = "craftplan:"

// Cache stores serialized plans by key. Implementations are safe for
// concurrent use.
type Cache interface {
	// Get returns the value for key. The bool is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key until the cache TTL expires.
	Set(ctx context.Context, key string, value []byte) error
}

// NewFromURL returns a Memory cache for an empty url and a Redis cache for
// redis:// or rediss:// urls.
func NewFromURL(url string, ttl time.Duration) (Cache, error) {
	url = strings.TrimSpace(url)
	if ttl <= 0 {
		ttl = defaults.PlanCacheTTL
	}

	switch {
	case url == "", url == "memory":
		return NewMemory(ttl, defaults.PlanCacheCleanupInterval), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return NewRedis(redis.NewClient(opts), DefaultKeyPrefix, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported cache url %q, expected memory or redis://", url)
	}
}

// Memory is an in-process cache with expiry.
type Memory struct {
	store *gocache.Cache
}

// NewMemory creates an in-process cache whose entries live for ttl. Expired
// entries are purged every cleanup interval.
func NewMemory(ttl, cleanup time.Duration) *Memory {
	return &Memory{store: gocache.New(ttl, cleanup)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.store.Get(key)
	if !ok {
		cacheMisses.WithLabelValues("memory").Inc()
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("unexpected cached type %T for key %s", v, key)
	}
	cacheHits.WithLabelValues("memory").Inc()
	return b, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.store.SetDefault(key, value)
	return nil
}

// Len returns the number of unexpired entries.
func (m *Memory) Len() int {
	return m.store.ItemCount()
}

// Redis is a cache shared between daemon replicas.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps client. Keys are stored as prefix+key.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.CacheOperationTimeout)
	defer cancel()

	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		cacheMisses.WithLabelValues("redis").Inc()
		return nil, false, nil
	}
	if err != nil {
		cacheErrors.WithLabelValues("redis", "get").Inc()
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	cacheHits.WithLabelValues("redis").Inc()
	return b, true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, defaults.CacheOperationTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("redis", "set").Inc()
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Lookup reads key from c and treats failures as misses.
func Lookup(ctx context.Context, c Cache, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil {
		slog.Warn("cache lookup failed", "key", key, "error", err)
		return nil, false
	}
	return b, ok
}

// Store writes value to c and logs failures.
func Store(ctx context.Context, c Cache, key string, value []byte) {
	if c == nil {
		return
	}
	if err := c.Set(ctx, key, value); err != nil {
		slog.Warn("cache store failed", "key", key, "error", err)
	}
}
