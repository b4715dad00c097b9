// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/olegiv/thinkspace/internal/store"
)

// SearchLimit caps each group of dashboard search results.
const SearchLimit = 10

// SearchResults groups dashboard search matches by type.
type SearchResults struct {
	Query    string
	Users    []store.User
	Blogs    []store.BlogRow
	Webinars []store.WebinarRow
}

// Empty reports whether nothing matched.
func (r SearchResults) Empty() bool {
	return len(r.Users) == 0 && len(r.Blogs) == 0 && len(r.Webinars) == 0
}

// SearchService runs the dashboard's global search.
type SearchService struct {
	queries *store.Queries
}

// NewSearchService creates a SearchService.
func NewSearchService(db *sql.DB) *SearchService {
	return &SearchService{queries: store.New(db)}
}

// Search matches users by name, username or email, and blogs and webinars
// by title, summary text or slug. Users are only searched when
// includeUsers is set, so staff without superuser access do not see them.
func (s *SearchService) Search(ctx context.Context, query string, includeUsers bool) (SearchResults, error) {
	r := SearchResults{Query: strings.TrimSpace(query)}
	if r.Query == "" {
		return r, nil
	}
	var err error
	if includeUsers {
		r.Users, err = s.queries.ListUsers(ctx, store.ListUsersParams{
			UserFilter: store.UserFilter{Query: r.Query},
			Limit:      SearchLimit,
		})
		if err != nil {
			return r, fmt.Errorf("searching users: %w", err)
		}
	}
	if r.Blogs, err = s.queries.SearchBlogs(ctx, r.Query, SearchLimit); err != nil {
		return r, fmt.Errorf("searching blogs: %w", err)
	}
	if r.Webinars, err = s.queries.SearchWebinars(ctx, r.Query, SearchLimit); err != nil {
		return r, fmt.Errorf("searching webinars: %w", err)
	}
	return r, nil
}
