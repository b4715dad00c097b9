// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import "context"

// Keys under PrefixContent hold public content derived from blogs,
// webinars and categories; any content write drops them all.
const (
	PrefixContent = "content:"

	KeyHomeSections     = PrefixContent + "home"
	KeyActiveCategories = PrefixContent + "categories"
	KeyDashboardStats   = PrefixContent + "dashboard_stats"
	KeySitemap          = PrefixContent + "sitemap"
)

// InvalidateContent drops every content key.
func InvalidateContent(ctx context.Context, c Cacher) error {
	if c == nil {
		return nil
	}
	return c.DeleteByPrefix(ctx, PrefixContent)
}
