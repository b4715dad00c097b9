// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/testutil"
)

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewSearchService(env.db)
	blogs := newBlogService(env, nil)
	author := testutil.CreateUser(t, env.q, "staff@example.com", true, false)
	testutil.CreateUser(t, env.q, "sqlite.fan@example.com", false, false)

	_, err := blogs.Create(ctx, author.ID, blogForm("SQLite in Production", model.BlogStatusDraft, false), nil)
	require.NoError(t, err)
	_, err = blogs.Create(ctx, author.ID, blogForm("Postgres Notes", model.BlogStatusDraft, false), nil)
	require.NoError(t, err)
	testutil.CreateWebinar(t, env.q, "sqlite-tuning", testutil.Now().AddDate(0, 0, 1), 10, 0)

	t.Run("superuser", func(t *testing.T) {
		r, err := svc.Search(ctx, "  SQLite ", true)
		require.NoError(t, err)
		assert.Equal(t, "SQLite", r.Query)
		require.Len(t, r.Blogs, 1)
		assert.Equal(t, "SQLite in Production", r.Blogs[0].Title)
		require.Len(t, r.Webinars, 1)
		assert.Equal(t, "sqlite-tuning", r.Webinars[0].Slug)
		require.Len(t, r.Users, 1)
		assert.Equal(t, "sqlite.fan@example.com", r.Users[0].Email)
		assert.False(t, r.Empty())
	})

	t.Run("staff do not see users", func(t *testing.T) {
		r, err := svc.Search(ctx, "sqlite", false)
		require.NoError(t, err)
		assert.Empty(t, r.Users)
		assert.Len(t, r.Blogs, 1)
	})

	t.Run("blank query", func(t *testing.T) {
		r, err := svc.Search(ctx, "   ", true)
		require.NoError(t, err)
		assert.True(t, r.Empty())
	})

	t.Run("no match", func(t *testing.T) {
		r, err := svc.Search(ctx, "kubernetes", true)
		require.NoError(t, err)
		assert.True(t, r.Empty())
	})
}
