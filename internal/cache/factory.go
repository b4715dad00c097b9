// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"time"
)

// Config selects and sizes the cache backend.
type Config struct {
	RedisURL   string
	Prefix     string
	DefaultTTL time.Duration
	MaxSize    int
}

// New returns a Redis cache when RedisURL is set and reachable, otherwise
// an in-memory cache. An unreachable Redis is logged and not fatal.
func New(ctx context.Context, cfg Config, logger *slog.Logger) Cacher {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(ctx, RedisOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			logger.Info("cache backend ready", "backend", "redis")
			return rc
		}
		logger.Warn("redis cache unavailable, using memory cache", "error", err)
	}
	return NewMemoryCache(MemoryOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: time.Minute,
	})
}
