// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/thinkspace/internal/cache"
	"github.com/olegiv/thinkspace/internal/seo"
	"github.com/olegiv/thinkspace/internal/store"
)

// SitemapService renders sitemap.xml and robots.txt for the public site.
type SitemapService struct {
	queries    *store.Queries
	siteURL    string
	production bool
	cached     *cache.TypedCache[string]
}

// NewSitemapService creates a SitemapService. c may be nil, which disables
// caching. Outside production robots.txt turns every crawler away.
func NewSitemapService(db *sql.DB, siteURL string, production bool, c cache.Cacher, ttl time.Duration) *SitemapService {
	s := &SitemapService{
		queries:    store.New(db),
		siteURL:    siteURL,
		production: production,
	}
	if c != nil {
		s.cached = cache.NewTypedCache[string](c, ttl)
	}
	return s
}

// Sitemap returns the sitemap XML, cached until the next content write.
func (s *SitemapService) Sitemap(ctx context.Context) ([]byte, error) {
	if s.cached == nil {
		out, err := s.build(ctx)
		return []byte(out), err
	}
	out, err := s.cached.GetOrLoad(ctx, cache.KeySitemap, s.build)
	return []byte(out), err
}

func (s *SitemapService) build(ctx context.Context) (string, error) {
	blogs, err := s.queries.ListSitemapBlogs(ctx)
	if err != nil {
		return "", fmt.Errorf("listing sitemap blogs: %w", err)
	}
	webinars, err := s.queries.ListSitemapWebinars(ctx)
	if err != nil {
		return "", fmt.Errorf("listing sitemap webinars: %w", err)
	}

	b := seo.NewSitemapBuilder(s.siteURL)
	b.AddStatic()
	b.AddBlogs(sitemapEntries(blogs))
	b.AddWebinars(sitemapEntries(webinars))
	out, err := b.Build()
	if err != nil {
		return "", fmt.Errorf("rendering sitemap: %w", err)
	}
	return string(out), nil
}

func sitemapEntries(rows []store.SitemapEntry) []seo.Entry {
	entries := make([]seo.Entry, len(rows))
	for i, r := range rows {
		entries[i] = seo.Entry{Slug: r.Slug, UpdatedAt: r.UpdatedAt}
	}
	return entries
}

// Robots returns robots.txt content.
func (s *SitemapService) Robots() string {
	return seo.BuildRobots(seo.RobotsConfig{
		SiteURL:     s.siteURL,
		DisallowAll: !s.production,
	})
}
