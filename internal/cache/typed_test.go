// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type testStats struct {
	Users    int64 `json:"users"`
	Webinars int64 `json:"webinars"`
}

func TestTypedCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute})
	defer func() { _ = mc.Close() }()
	tc := NewTypedCache[testStats](mc, 0)
	ctx := context.Background()

	if _, ok := tc.Get(ctx, KeyDashboardStats); ok {
		t.Fatal("Get on empty cache returned ok")
	}
	if err := tc.Set(ctx, KeyDashboardStats, testStats{Users: 3, Webinars: 2}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := tc.Get(ctx, KeyDashboardStats)
	if !ok || got.Users != 3 || got.Webinars != 2 {
		t.Errorf("Get = %+v, %v", got, ok)
	}

	if err := tc.Delete(ctx, KeyDashboardStats); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := tc.Get(ctx, KeyDashboardStats); ok {
		t.Error("value survived Delete")
	}
}

func TestTypedCacheCorruptValue(t *testing.T) {
	mc := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute})
	defer func() { _ = mc.Close() }()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", []byte("{not json"), 0)
	tc := NewTypedCache[testStats](mc, 0)
	if _, ok := tc.Get(ctx, "k"); ok {
		t.Error("corrupt value decoded")
	}
}

func TestTypedCacheGetOrLoad(t *testing.T) {
	mc := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute})
	defer func() { _ = mc.Close() }()
	tc := NewTypedCache[testStats](mc, time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (testStats, error) {
		calls.Add(1)
		<-release
		return testStats{Users: 7}, nil
	}

	var wg sync.WaitGroup
	results := make([]testStats, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := tc.GetOrLoad(ctx, "stats", load)
			if err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("load called %d times, want 1", n)
	}
	for i, r := range results {
		if r.Users != 7 {
			t.Errorf("results[%d] = %+v", i, r)
		}
	}

	// cached now; load must not run again
	v, err := tc.GetOrLoad(ctx, "stats", func(context.Context) (testStats, error) {
		t.Fatal("load called on cache hit")
		return testStats{}, nil
	})
	if err != nil || v.Users != 7 {
		t.Errorf("GetOrLoad hit = %+v, %v", v, err)
	}
}

func TestTypedCacheGetOrLoadError(t *testing.T) {
	mc := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute})
	defer func() { _ = mc.Close() }()
	tc := NewTypedCache[testStats](mc, 0)
	ctx := context.Background()

	boom := errors.New("boom")
	if _, err := tc.GetOrLoad(ctx, "k", func(context.Context) (testStats, error) {
		return testStats{}, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("GetOrLoad error = %v, want boom", err)
	}
	if _, ok := tc.Get(ctx, "k"); ok {
		t.Error("failed load was cached")
	}
}
