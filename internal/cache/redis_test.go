// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"
)

// These tests need a running Redis, e.g.
// THINKSPACE_TEST_REDIS_URL=redis://localhost:6379/15 go test ./internal/cache
func testRedis(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("THINKSPACE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("THINKSPACE_TEST_REDIS_URL not set")
	}
	c, err := NewRedisCache(context.Background(), RedisOptions{
		URL:        url,
		Prefix:     "thinkspace-test:",
		DefaultTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Clear(context.Background())
		_ = c.Close()
	})
	return c
}

func TestRedisCacheGetSet(t *testing.T) {
	c := testRedis(t)
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get(missing) = %v, want ErrCacheMiss", err)
	}
	if err := c.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "key")
	if err != nil || string(got) != "value" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestRedisCacheInvalidateContent(t *testing.T) {
	c := testRedis(t)
	ctx := context.Background()

	_ = c.Set(ctx, KeyHomeSections, []byte("x"), 0)
	_ = c.Set(ctx, "other", []byte("y"), 0)

	if err := InvalidateContent(ctx, c); err != nil {
		t.Fatalf("InvalidateContent: %v", err)
	}
	if _, err := c.Get(ctx, KeyHomeSections); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("home sections survived invalidation")
	}
	if _, err := c.Get(ctx, "other"); err != nil {
		t.Errorf("other removed: %v", err)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), RedisOptions{URL: ""}); err == nil {
		t.Error("empty URL accepted")
	}
	if _, err := NewRedisCache(context.Background(), RedisOptions{URL: "http://nope"}); err == nil {
		t.Error("non-redis URL accepted")
	}
}

func TestNewFallsBackToMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c := New(context.Background(), Config{DefaultTTL: time.Minute}, logger)
	defer func() { _ = c.Close() }()
	if _, ok := c.(*MemoryCache); !ok {
		t.Fatalf("New without Redis URL = %T, want *MemoryCache", c)
	}

	// port 1 refuses connections
	c2 := New(context.Background(), Config{RedisURL: "redis://127.0.0.1:1/0"}, logger)
	defer func() { _ = c2.Close() }()
	if _, ok := c2.(*MemoryCache); !ok {
		t.Fatalf("New with unreachable Redis = %T, want *MemoryCache", c2)
	}
}
