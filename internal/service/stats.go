// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/thinkspace/internal/cache"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/version"
)

// Dashboard list sizes.
const (
	DashboardUpcomingLimit = 5
	DashboardRecentLimit   = 5
)

// DashboardStats is the dashboard home summary.
type DashboardStats struct {
	Blogs           store.BlogStats    `json:"blogs"`
	Webinars        store.WebinarStats `json:"webinars"`
	Users           store.UserStats    `json:"users"`
	PendingComments int64              `json:"pending_comments"`
	Upcoming        []store.WebinarRow `json:"upcoming"`
	RecentBlogs     []store.BlogRow    `json:"recent_blogs"`
}

// HomeSections feeds the public home page.
type HomeSections struct {
	Upcoming    []store.WebinarRow `json:"upcoming"`
	LatestBlogs []store.BlogRow    `json:"latest_blogs"`
}

// StatsService aggregates counts for the dashboard and the home page.
type StatsService struct {
	db        *sql.DB
	queries   *store.Queries
	uploads   *UploadService
	cache     cache.Cacher
	dashboard *cache.TypedCache[DashboardStats]
	home      *cache.TypedCache[HomeSections]
	dbPath    string
	build     version.Info
	started   time.Time
	logger    *slog.Logger
	now       func() time.Time
}

// StatsOptions configures a StatsService.
type StatsOptions struct {
	DBPath   string
	CacheTTL time.Duration
	Build    version.Info
}

// NewStatsService creates a StatsService. c may be nil, which disables caching.
func NewStatsService(db *sql.DB, uploads *UploadService, c cache.Cacher, opts StatsOptions, logger *slog.Logger) *StatsService {
	s := &StatsService{
		db:      db,
		queries: store.New(db),
		uploads: uploads,
		cache:   c,
		dbPath:  opts.DBPath,
		build:   opts.Build,
		started: time.Now(),
		logger:  logger,
		now:     nowUTC,
	}
	if c != nil {
		s.dashboard = cache.NewTypedCache[DashboardStats](c, opts.CacheTTL)
		s.home = cache.NewTypedCache[HomeSections](c, opts.CacheTTL)
	}
	return s
}

// Dashboard returns the dashboard summary, cached.
func (s *StatsService) Dashboard(ctx context.Context) (DashboardStats, error) {
	if s.dashboard == nil {
		return s.loadDashboard(ctx)
	}
	return s.dashboard.GetOrLoad(ctx, cache.KeyDashboardStats, s.loadDashboard)
}

func (s *StatsService) loadDashboard(ctx context.Context) (DashboardStats, error) {
	var d DashboardStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Blogs, err = s.queries.GetBlogStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Webinars, err = s.queries.GetWebinarStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Users, err = s.queries.GetUserStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.PendingComments, err = s.queries.CountPendingComments(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Upcoming, err = s.queries.ListNextUpcomingWebinars(ctx, 0, DashboardUpcomingLimit)
		return err
	})
	g.Go(func() (err error) {
		d.RecentBlogs, err = s.queries.ListRecentBlogs(ctx, DashboardRecentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, fmt.Errorf("loading dashboard stats: %w", err)
	}
	return d, nil
}

// Home returns the home page sections, cached: webinars starting in the
// next week and the latest published blogs.
func (s *StatsService) Home(ctx context.Context) (HomeSections, error) {
	if s.home == nil {
		return s.loadHome(ctx)
	}
	return s.home.GetOrLoad(ctx, cache.KeyHomeSections, s.loadHome)
}

func (s *StatsService) loadHome(ctx context.Context) (HomeSections, error) {
	var h HomeSections
	now := s.now()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		h.Upcoming, err = s.queries.ListUpcomingWebinarsBetween(ctx, store.ListUpcomingWebinarsBetweenParams{
			From:  now,
			Until: now.Add(HomeUpcomingWindow),
			Limit: HomeSectionLimit,
		})
		return err
	})
	g.Go(func() (err error) {
		h.LatestBlogs, err = s.queries.ListLatestBlogs(ctx, HomeSectionLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return HomeSections{}, fmt.Errorf("loading home sections: %w", err)
	}
	return h, nil
}

// SystemStatus is the dashboard's runtime and storage report.
type SystemStatus struct {
	Build            version.Info
	GoVersion        string
	Uptime           time.Duration
	Goroutines       int
	HeapAllocBytes   uint64
	DatabaseOK       bool
	DatabaseBytes    int64
	Uploads          UploadUsage
	Cache            cache.Stats
	CacheEnabled     bool
	WebhookDelivered map[string]int64
	OpenConnections  int
}

// SystemStatus gathers runtime, database, upload and cache figures.
// Individual failures are logged and leave their figure empty.
func (s *StatsService) SystemStatus(ctx context.Context) SystemStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	st := SystemStatus{
		Build:           s.build,
		GoVersion:       runtime.Version(),
		Uptime:          time.Since(s.started).Round(time.Second),
		Goroutines:      runtime.NumGoroutine(),
		HeapAllocBytes:  mem.HeapAlloc,
		DatabaseOK:      s.db.PingContext(ctx) == nil,
		OpenConnections: s.db.Stats().OpenConnections,
	}
	if info, err := os.Stat(s.dbPath); err == nil {
		st.DatabaseBytes = info.Size()
	}
	if s.uploads != nil {
		usage, err := s.uploads.Usage()
		if err != nil {
			s.logger.Warn("failed to measure uploads", "error", err)
		}
		st.Uploads = usage
	}
	if s.cache != nil {
		st.CacheEnabled = true
		st.Cache = s.cache.Stats()
	}
	deliveries, err := s.queries.CountWebhookDeliveriesByStatus(ctx)
	if err != nil {
		s.logger.Warn("failed to count webhook deliveries", "error", err)
	}
	st.WebhookDelivered = deliveries
	return st
}
