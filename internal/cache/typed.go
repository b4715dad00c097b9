// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// TypedCache stores JSON-encoded values of T in a Cacher.
type TypedCache[T any] struct {
	cache Cacher
	ttl   time.Duration
	group singleflight.Group
}

// NewTypedCache wraps c; ttl 0 uses the backend default.
func NewTypedCache[T any](c Cacher, ttl time.Duration) *TypedCache[T] {
	return &TypedCache[T]{cache: c, ttl: ttl}
}

// Get returns the cached value and whether it was found and decodable.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false
	}
	return value, true
}

// Set stores value under key.
func (c *TypedCache[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache value %s: %w", key, err)
	}
	return c.cache.Set(ctx, key, data, c.ttl)
}

// Delete removes key.
func (c *TypedCache[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Concurrent misses for the same key share one load. Cache write errors
// are ignored because the loaded value is still correct.
func (c *TypedCache[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		_ = c.Set(ctx, key, value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
