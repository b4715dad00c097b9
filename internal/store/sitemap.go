// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// SitemapEntry is a public URL candidate for the sitemap.
type SitemapEntry struct {
	Slug      string
	UpdatedAt time.Time
}

func (q *Queries) collectSitemapEntries(ctx context.Context, query string) ([]SitemapEntry, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SitemapEntry
	for rows.Next() {
		var i SitemapEntry
		if err := rows.Scan(&i.Slug, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listSitemapBlogs = `SELECT slug, updated_at FROM blogs
WHERE status = 'published' AND is_verified = 1
ORDER BY published_at DESC, id DESC`

func (q *Queries) ListSitemapBlogs(ctx context.Context) ([]SitemapEntry, error) {
	return q.collectSitemapEntries(ctx, listSitemapBlogs)
}

const listSitemapWebinars = `SELECT slug, updated_at FROM webinars
WHERE status <> 'cancelled'
ORDER BY start_at DESC, id DESC`

func (q *Queries) ListSitemapWebinars(ctx context.Context) ([]SitemapEntry, error) {
	return q.collectSitemapEntries(ctx, listSitemapWebinars)
}
