// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/thinkspace/internal/cache"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/testutil"
)

func newTaxonomyService(env *testEnv, c cache.Cacher) *TaxonomyService {
	return NewTaxonomyService(env.db, c, time.Minute, testutil.TestLogger())
}

func TestSaveCategorySlugs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newTaxonomyService(env, nil)

	first, err := svc.SaveCategory(ctx, 0, model.CategoryForm{Name: "Go Tips", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "go-tips", first.Slug)

	second, err := svc.SaveCategory(ctx, 0, model.CategoryForm{Name: "Go Tips", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "go-tips-1", second.Slug)

	// Renaming without a new slug keeps the existing one.
	renamed, err := svc.SaveCategory(ctx, first.ID, model.CategoryForm{Name: "Go Tricks", Position: 2})
	require.NoError(t, err)
	assert.Equal(t, "go-tips", renamed.Slug)
	assert.Equal(t, "Go Tricks", renamed.Name)
	assert.False(t, renamed.IsActive)

	// A requested slug owned by another category is suffixed, not rejected.
	moved, err := svc.SaveCategory(ctx, first.ID, model.CategoryForm{Name: "Go Tricks", Slug: "go-tips-1"})
	require.NoError(t, err)
	assert.Equal(t, "go-tips-1-1", moved.Slug)

	_, err = svc.SaveCategory(ctx, first.ID, model.CategoryForm{Name: "Go Tricks", Slug: "Go Tips!"})
	var verrs model.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("slug"))
}

func TestSaveCategoryValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newTaxonomyService(env, nil)

	_, err := svc.SaveCategory(context.Background(), 0, model.CategoryForm{Name: "   ", Position: -1})
	var verrs model.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("name"))
	assert.True(t, verrs.Has("position"))

	_, err = svc.SaveCategory(context.Background(), 999, model.CategoryForm{Name: "Missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveCategoriesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := cache.NewMemoryCache(cache.MemoryOptions{})
	t.Cleanup(func() { _ = c.Close() })
	svc := newTaxonomyService(env, c)

	_, err := svc.SaveCategory(ctx, 0, model.CategoryForm{Name: "Shown", IsActive: true})
	require.NoError(t, err)
	_, err = svc.SaveCategory(ctx, 0, model.CategoryForm{Name: "Hidden"})
	require.NoError(t, err)

	active, err := svc.ActiveCategories(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Shown", active[0].Name)

	// A write through the service drops the cached list.
	_, err = svc.SaveCategory(ctx, 0, model.CategoryForm{Name: "Another", IsActive: true})
	require.NoError(t, err)
	active, err = svc.ActiveCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteCategoryUncategorisesBlogs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newTaxonomyService(env, nil)
	blogs := newBlogService(env, nil)
	author := testutil.CreateUser(t, env.q, "staff@example.com", true, false)
	category := testutil.CreateCategory(t, env.q, "News", "news")

	form := blogForm("Filed", model.BlogStatusDraft, false)
	form.CategoryID = category.ID
	blog, err := blogs.Create(ctx, author.ID, form, nil)
	require.NoError(t, err)

	count, err := svc.BlogCount(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.DeleteCategory(ctx, category.ID))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, category.ID), ErrNotFound)

	row, _, err := blogs.Get(ctx, blog.ID)
	require.NoError(t, err)
	assert.False(t, row.CategoryID.Valid)
}

func TestTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newTaxonomyService(env, nil)

	tag, err := svc.SaveTag(ctx, 0, model.TagForm{Name: "SQLite"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", tag.Slug)

	_, err = svc.SaveTag(ctx, 0, model.TagForm{Name: "SQLite"})
	var verrs model.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("name"))

	renamed, err := svc.SaveTag(ctx, tag.ID, model.TagForm{Name: "SQLite 3", Slug: "sqlite3"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", renamed.Slug)

	got, err := svc.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "SQLite 3", got.Name)

	require.NoError(t, svc.DeleteTag(ctx, tag.ID))
	_, err = svc.GetTag(ctx, tag.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	tags, err := svc.Tags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}
