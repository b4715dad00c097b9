// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMemoryCacheGetSet(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get(missing) error = %v, want ErrCacheMiss", err)
	}

	if err := c.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get = %q, want %q", got, "value")
	}

	// returned slice must not alias the stored one
	got[0] = 'X'
	again, _ := c.Get(ctx, "key")
	if string(again) != "value" {
		t.Errorf("stored value mutated through Get result: %q", again)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "short", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after expiry error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheDeleteByPrefix(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	for _, k := range []string{"content:home", "content:categories", "other"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	if err := InvalidateContent(ctx, c); err != nil {
		t.Fatalf("InvalidateContent: %v", err)
	}

	if _, err := c.Get(ctx, KeyHomeSections); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("home section survived invalidation")
	}
	if _, err := c.Get(ctx, "other"); err != nil {
		t.Errorf("unrelated key removed: %v", err)
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute, MaxSize: 3})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	for i := range 3 {
		if err := c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Duration(i+1)*time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := c.Set(ctx, "k3", []byte("v"), 10*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if got := c.Stats().Items; got != 3 {
		t.Errorf("Items = %d, want 3", got)
	}
	// k0 expires first, so it is the one evicted
	if _, err := c.Get(ctx, "k0"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("k0 should have been evicted")
	}
	if _, err := c.Get(ctx, "k3"); err != nil {
		t.Errorf("k3 missing: %v", err)
	}
}

func TestMemoryCacheStats(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1234"), 0)
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")

	s := c.Stats()
	if s.Backend != "memory" {
		t.Errorf("Backend = %q", s.Backend)
	}
	if s.Hits != 2 || s.Misses != 1 || s.Sets != 1 {
		t.Errorf("Stats = %+v", s)
	}
	if s.Size != 4 {
		t.Errorf("Size = %d, want 4", s.Size)
	}
	if s.HitRate < 66 || s.HitRate > 67 {
		t.Errorf("HitRate = %v, want ~66.7", s.HitRate)
	}
}

func TestMemoryCacheClosed(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute, CleanupInterval: time.Millisecond})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	ctx := context.Background()
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after close = %v, want ErrCacheClosed", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after close = %v, want ErrCacheClosed", err)
	}
}
