// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/thinkspace/internal/cache"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
)

// TaxonomyService manages blog categories and tags.
type TaxonomyService struct {
	queries    *store.Queries
	cache      cache.Cacher
	categories *cache.TypedCache[[]store.Category]
	logger     *slog.Logger
}

// NewTaxonomyService creates a TaxonomyService. c may be nil.
func NewTaxonomyService(db *sql.DB, c cache.Cacher, ttl time.Duration, logger *slog.Logger) *TaxonomyService {
	s := &TaxonomyService{queries: store.New(db), cache: c, logger: logger}
	if c != nil {
		s.categories = cache.NewTypedCache[[]store.Category](c, ttl)
	}
	return s
}

// ActiveCategories returns the categories shown on public pages.
func (s *TaxonomyService) ActiveCategories(ctx context.Context) ([]store.Category, error) {
	if s.categories == nil {
		return s.queries.ListActiveCategories(ctx)
	}
	return s.categories.GetOrLoad(ctx, cache.KeyActiveCategories, s.queries.ListActiveCategories)
}

// Categories returns every category in display order.
func (s *TaxonomyService) Categories(ctx context.Context) ([]store.Category, error) {
	return s.queries.ListCategories(ctx)
}

// GetCategory returns a category by id.
func (s *TaxonomyService) GetCategory(ctx context.Context, id int64) (store.Category, error) {
	c, err := s.queries.GetCategoryByID(ctx, id)
	return c, notFound(err)
}

// SaveCategory creates a category when id is 0, otherwise updates it.
func (s *TaxonomyService) SaveCategory(ctx context.Context, id int64, form model.CategoryForm) (store.Category, error) {
	if errs := model.Validate(form); errs != nil {
		return store.Category{}, errs
	}
	var existing store.Category
	if id != 0 {
		var err error
		if existing, err = s.queries.GetCategoryByID(ctx, id); err != nil {
			return store.Category{}, notFound(err)
		}
	}

	slug, err := resolveSlug(ctx, id, form.Slug, form.Name, existing.Slug, "category", s.queries.CategorySlugExists)
	if err != nil {
		return store.Category{}, err
	}

	now := nowUTC()
	var c store.Category
	if id == 0 {
		c, err = s.queries.CreateCategory(ctx, store.CreateCategoryParams{
			Name:        strings.TrimSpace(form.Name),
			Slug:        slug,
			Description: form.Description,
			Position:    form.Position,
			IsActive:    form.IsActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	} else {
		c, err = s.queries.UpdateCategory(ctx, store.UpdateCategoryParams{
			Name:        strings.TrimSpace(form.Name),
			Slug:        slug,
			Description: form.Description,
			Position:    form.Position,
			IsActive:    form.IsActive,
			UpdatedAt:   now,
			ID:          id,
		})
	}
	if err != nil {
		if store.IsUniqueViolation(err, "categories.slug") {
			return store.Category{}, model.ValidationErrors{"slug": "This slug is already in use"}
		}
		return store.Category{}, fmt.Errorf("saving category: %w", err)
	}
	s.invalidate(ctx)
	return c, nil
}

// DeleteCategory removes a category. Its blogs become uncategorised.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.queries.GetCategoryByID(ctx, id); err != nil {
		return notFound(err)
	}
	if err := s.queries.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

// BlogCount returns how many blogs use a category.
func (s *TaxonomyService) BlogCount(ctx context.Context, categoryID int64) (int64, error) {
	return s.queries.CountBlogsInCategory(ctx, categoryID)
}

// Tags returns every tag by name.
func (s *TaxonomyService) Tags(ctx context.Context) ([]store.Tag, error) {
	return s.queries.ListTags(ctx)
}

// GetTag returns a tag by id.
func (s *TaxonomyService) GetTag(ctx context.Context, id int64) (store.Tag, error) {
	t, err := s.queries.GetTagByID(ctx, id)
	return t, notFound(err)
}

// SaveTag creates a tag when id is 0, otherwise renames it.
func (s *TaxonomyService) SaveTag(ctx context.Context, id int64, form model.TagForm) (store.Tag, error) {
	if errs := model.Validate(form); errs != nil {
		return store.Tag{}, errs
	}
	var existing store.Tag
	if id != 0 {
		var err error
		if existing, err = s.queries.GetTagByID(ctx, id); err != nil {
			return store.Tag{}, notFound(err)
		}
	}

	slug, err := resolveSlug(ctx, id, form.Slug, form.Name, existing.Slug, "tag", s.queries.TagSlugExists)
	if err != nil {
		return store.Tag{}, err
	}

	var t store.Tag
	if id == 0 {
		t, err = s.queries.CreateTag(ctx, store.CreateTagParams{Name: strings.TrimSpace(form.Name), Slug: slug, CreatedAt: nowUTC()})
	} else {
		t, err = s.queries.UpdateTag(ctx, store.UpdateTagParams{Name: strings.TrimSpace(form.Name), Slug: slug, ID: id})
	}
	if err != nil {
		if store.IsUniqueViolation(err, "tags.name") {
			return store.Tag{}, model.ValidationErrors{"name": "A tag with this name already exists"}
		}
		return store.Tag{}, fmt.Errorf("saving tag: %w", err)
	}
	s.invalidate(ctx)
	return t, nil
}

// DeleteTag removes a tag from every blog and deletes it.
func (s *TaxonomyService) DeleteTag(ctx context.Context, id int64) error {
	if _, err := s.queries.GetTagByID(ctx, id); err != nil {
		return notFound(err)
	}
	if err := s.queries.DeleteTag(ctx, id); err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *TaxonomyService) invalidate(ctx context.Context) {
	if err := cache.InvalidateContent(ctx, s.cache); err != nil {
		s.logger.Warn("failed to invalidate content cache", "error", err)
	}
}
