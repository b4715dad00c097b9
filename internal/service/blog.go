// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/thinkspace/internal/cache"
	"github.com/olegiv/thinkspace/internal/logging"
	"github.com/olegiv/thinkspace/internal/metrics"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/util"
	"github.com/olegiv/thinkspace/internal/webhook"
)

// RelatedBlogLimit caps the related posts shown under a blog.
const RelatedBlogLimit = 3

// BlogService implements the publishing workflow.
type BlogService struct {
	db       *sql.DB
	queries  *store.Queries
	uploads  *UploadService
	renderer *ContentRenderer
	cache    cache.Cacher
	notifier webhook.Sender
	logger   *slog.Logger
}

// NewBlogService creates a BlogService. cache and notifier may be nil.
func NewBlogService(db *sql.DB, uploads *UploadService, renderer *ContentRenderer, c cache.Cacher, notifier webhook.Sender, logger *slog.Logger) *BlogService {
	return &BlogService{
		db:       db,
		queries:  store.New(db),
		uploads:  uploads,
		renderer: renderer,
		cache:    c,
		notifier: notifier,
		logger:   logger,
	}
}

// Get returns a blog by id with its tags, for the editor.
func (s *BlogService) Get(ctx context.Context, id int64) (store.BlogRow, []store.Tag, error) {
	blog, err := s.queries.GetBlogByID(ctx, id)
	if err != nil {
		return store.BlogRow{}, nil, notFound(err)
	}
	tags, err := s.queries.ListTagsForBlog(ctx, id)
	if err != nil {
		return store.BlogRow{}, nil, fmt.Errorf("listing tags: %w", err)
	}
	return blog, tags, nil
}

// Create validates form and stores a new blog written by authorID.
func (s *BlogService) Create(ctx context.Context, authorID int64, form model.BlogForm, cover *FileUpload) (store.BlogRow, error) {
	return s.save(ctx, 0, authorID, form, cover)
}

// Update validates form and rewrites blog id.
func (s *BlogService) Update(ctx context.Context, id, editorID int64, form model.BlogForm, cover *FileUpload) (store.BlogRow, error) {
	return s.save(ctx, id, editorID, form, cover)
}

func (s *BlogService) save(ctx context.Context, id, userID int64, form model.BlogForm, cover *FileUpload) (store.BlogRow, error) {
	if errs := model.Validate(form); errs != nil {
		return store.BlogRow{}, errs
	}

	var existing store.BlogRow
	if id != 0 {
		var err error
		if existing, err = s.queries.GetBlogByID(ctx, id); err != nil {
			return store.BlogRow{}, notFound(err)
		}
	}

	if !model.CanPublish(form.Status, form.IsVerified) {
		s.logger.Warn("blog saved as published without verification",
			logging.AttrCategory, model.EventCategoryBlog,
			logging.AttrUserID, userID,
			"blog_id", id,
			"title", form.Title)
		notify(ctx, s.notifier, s.logger, model.EventBlogNeedsVerification, webhook.BlogEventData{
			ID:         id,
			Title:      form.Title,
			Slug:       existing.Slug,
			Status:     form.Status,
			IsVerified: false,
			AuthorID:   userID,
		})
		return store.BlogRow{}, ErrPublishUnverified
	}

	slug, err := resolveSlug(ctx, id, form.Slug, form.Title, existing.Slug, "post", s.queries.BlogSlugExists)
	if err != nil {
		return store.BlogRow{}, err
	}

	if form.CategoryID != 0 {
		if _, err := s.queries.GetCategoryByID(ctx, form.CategoryID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.BlogRow{}, model.ValidationErrors{"category_id": "Unknown category"}
			}
			return store.BlogRow{}, fmt.Errorf("loading category: %w", err)
		}
	}

	excerpt := strings.TrimSpace(form.Excerpt)
	if excerpt == "" {
		excerpt = s.renderer.Excerpt(form.Content, ExcerptLength)
	}

	coverPath, err := s.uploads.Replace(model.UploadBlogCover, cover, existing.CoverImage, form.RemoveCover)
	if err != nil {
		return store.BlogRow{}, model.ValidationErrors{"cover_image": err.Error()}
	}

	now := nowUTC()
	var publishAt sql.NullTime
	if form.PublishAt != "" {
		t, _ := time.ParseInLocation(model.DateTimeInputLayout, form.PublishAt, time.UTC)
		publishAt = util.NullTime(t)
	}
	publishedAt := existing.PublishedAt
	if form.Status == model.BlogStatusPublished && !publishedAt.Valid {
		publishedAt = util.NullTime(now)
	}

	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		if id == 0 {
			newID, err := q.CreateBlog(ctx, store.CreateBlogParams{
				Title:           strings.TrimSpace(form.Title),
				Slug:            slug,
				AuthorID:        util.NullID(userID),
				CategoryID:      util.NullID(form.CategoryID),
				Excerpt:         excerpt,
				Content:         form.Content,
				CoverImage:      coverPath,
				Status:          form.Status,
				IsVerified:      form.IsVerified,
				AllowComments:   form.AllowComments,
				MetaTitle:       form.MetaTitle,
				MetaDescription: form.MetaDescription,
				PublishAt:       publishAt,
				PublishedAt:     publishedAt,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
			if err != nil {
				return fmt.Errorf("creating blog: %w", err)
			}
			id = newID
		} else {
			err := q.UpdateBlog(ctx, store.UpdateBlogParams{
				Title:           strings.TrimSpace(form.Title),
				Slug:            slug,
				CategoryID:      util.NullID(form.CategoryID),
				Excerpt:         excerpt,
				Content:         form.Content,
				CoverImage:      coverPath,
				Status:          form.Status,
				IsVerified:      form.IsVerified,
				AllowComments:   form.AllowComments,
				MetaTitle:       form.MetaTitle,
				MetaDescription: form.MetaDescription,
				PublishAt:       publishAt,
				PublishedAt:     publishedAt,
				UpdatedAt:       now,
				ID:              id,
			})
			if err != nil {
				return fmt.Errorf("updating blog: %w", err)
			}
		}
		return s.setTags(ctx, q, id, form.TagNames(), now)
	})
	if err != nil {
		if coverPath != existing.CoverImage {
			s.uploads.Remove(coverPath)
		}
		if store.IsUniqueViolation(err, "blogs.slug") {
			return store.BlogRow{}, model.ValidationErrors{"slug": "This slug is already in use"}
		}
		return store.BlogRow{}, err
	}

	s.invalidate(ctx)
	blog, err := s.queries.GetBlogByID(ctx, id)
	if err != nil {
		return store.BlogRow{}, fmt.Errorf("reloading blog: %w", err)
	}
	if blog.Status == model.BlogStatusPublished && existing.Status != model.BlogStatusPublished {
		s.notifyPublished(ctx, blog)
	}
	return blog, nil
}

// setTags replaces a blog's tags, creating unknown tag names.
func (s *BlogService) setTags(ctx context.Context, q *store.Queries, blogID int64, names []string, now time.Time) error {
	if err := q.ClearBlogTags(ctx, blogID); err != nil {
		return fmt.Errorf("clearing tags: %w", err)
	}
	for _, name := range names {
		tag, err := q.GetTagByName(ctx, name)
		if errors.Is(err, sql.ErrNoRows) {
			slug, serr := util.UniqueSlug(ctx, name, "tag", func(ctx context.Context, candidate string) (bool, error) {
				return q.TagSlugExists(ctx, candidate, 0)
			})
			if serr != nil {
				return serr
			}
			tag, err = q.CreateTag(ctx, store.CreateTagParams{Name: name, Slug: slug, CreatedAt: now})
		}
		if err != nil {
			return fmt.Errorf("resolving tag %q: %w", name, err)
		}
		if err := q.AddBlogTag(ctx, store.BlogTagParams{BlogID: blogID, TagID: tag.ID}); err != nil {
			return fmt.Errorf("tagging blog: %w", err)
		}
	}
	return nil
}

// Delete removes a blog and its cover image.
func (s *BlogService) Delete(ctx context.Context, id int64) error {
	blog, err := s.queries.GetBlogByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if err := s.queries.DeleteBlog(ctx, id); err != nil {
		return fmt.Errorf("deleting blog: %w", err)
	}
	s.uploads.Remove(blog.CoverImage)
	s.invalidate(ctx)
	return nil
}

// SetVerified verifies or unverifies a blog. Unverifying a published
// blog moves it back to draft.
func (s *BlogService) SetVerified(ctx context.Context, id int64, verified bool) (store.BlogRow, error) {
	blog, err := s.queries.GetBlogByID(ctx, id)
	if err != nil {
		return store.BlogRow{}, notFound(err)
	}
	status := blog.Status
	if !verified && status == model.BlogStatusPublished {
		status = model.BlogStatusDraft
	}
	if err := s.queries.SetBlogVerification(ctx, store.SetBlogVerificationParams{
		IsVerified: verified,
		Status:     status,
		UpdatedAt:  nowUTC(),
		ID:         id,
	}); err != nil {
		return store.BlogRow{}, fmt.Errorf("setting verification: %w", err)
	}
	s.invalidate(ctx)
	blog.IsVerified, blog.Status = verified, status
	return blog, nil
}

// Publish makes a verified blog public.
func (s *BlogService) Publish(ctx context.Context, id int64) (store.BlogRow, error) {
	blog, err := s.queries.GetBlogByID(ctx, id)
	if err != nil {
		return store.BlogRow{}, notFound(err)
	}
	if !blog.IsVerified {
		return store.BlogRow{}, ErrPublishUnverified
	}
	if blog.Status == model.BlogStatusPublished {
		return blog, nil
	}
	now := nowUTC()
	ok, err := s.queries.PublishBlog(ctx, store.PublishBlogParams{PublishedAt: now, UpdatedAt: now, ID: id})
	if err != nil {
		return store.BlogRow{}, fmt.Errorf("publishing blog: %w", err)
	}
	if !ok {
		return store.BlogRow{}, ErrPublishUnverified
	}
	s.invalidate(ctx)
	blog, err = s.queries.GetBlogByID(ctx, id)
	if err != nil {
		return store.BlogRow{}, fmt.Errorf("reloading blog: %w", err)
	}
	s.notifyPublished(ctx, blog)
	return blog, nil
}

// PublishDue publishes verified drafts whose publish_at has passed.
func (s *BlogService) PublishDue(ctx context.Context) (int, error) {
	now := nowUTC()
	due, err := s.queries.ListDueScheduledBlogs(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing scheduled blogs: %w", err)
	}
	published := 0
	for _, blog := range due {
		ok, err := s.queries.PublishBlog(ctx, store.PublishBlogParams{PublishedAt: now, UpdatedAt: now, ID: blog.ID})
		if err != nil {
			return published, fmt.Errorf("publishing blog %d: %w", blog.ID, err)
		}
		if !ok {
			continue
		}
		published++
		blog.Status = model.BlogStatusPublished
		s.notifyPublished(ctx, blog)
	}
	if published > 0 {
		s.invalidate(ctx)
	}
	return published, nil
}

// ListPublished returns a page of public blogs.
func (s *BlogService) ListPublished(ctx context.Context, filter store.PublicBlogFilter, page int) (Page[store.BlogRow], error) {
	filter.Query = strings.TrimSpace(filter.Query)
	number, limit, offset := limitOffset(page, PublicBlogPageSize)
	total, err := s.queries.CountPublishedBlogs(ctx, filter)
	if err != nil {
		return Page[store.BlogRow]{}, fmt.Errorf("counting blogs: %w", err)
	}
	items, err := s.queries.ListPublishedBlogs(ctx, store.ListPublishedBlogsParams{
		PublicBlogFilter: filter,
		Limit:            limit,
		Offset:           offset,
	})
	if err != nil {
		return Page[store.BlogRow]{}, fmt.Errorf("listing blogs: %w", err)
	}
	return Page[store.BlogRow]{Items: items, Number: number, PerPage: PublicBlogPageSize, Total: total}, nil
}

// AdminBlogList is the dashboard blog listing with its aggregate figures.
type AdminBlogList struct {
	Page  Page[store.BlogRow]
	Stats store.BlogStats
}

// ListAdmin returns a page of blogs for the dashboard.
func (s *BlogService) ListAdmin(ctx context.Context, filter store.AdminBlogFilter, page int) (AdminBlogList, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	number, limit, offset := limitOffset(page, AdminPageSize)
	total, err := s.queries.CountAdminBlogs(ctx, filter)
	if err != nil {
		return AdminBlogList{}, fmt.Errorf("counting blogs: %w", err)
	}
	items, err := s.queries.ListAdminBlogs(ctx, store.ListAdminBlogsParams{
		AdminBlogFilter: filter,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		return AdminBlogList{}, fmt.Errorf("listing blogs: %w", err)
	}
	stats, err := s.queries.GetBlogStats(ctx)
	if err != nil {
		return AdminBlogList{}, fmt.Errorf("loading blog stats: %w", err)
	}
	return AdminBlogList{
		Page:  Page[store.BlogRow]{Items: items, Number: number, PerPage: AdminPageSize, Total: total},
		Stats: stats,
	}, nil
}

// BlogDetail is a public blog page.
type BlogDetail struct {
	Blog    store.BlogRow
	HTML    template.HTML
	Tags    []store.Tag
	Related []store.BlogRow
}

// GetPublishedBySlug loads a public blog and counts the view.
func (s *BlogService) GetPublishedBySlug(ctx context.Context, slug string) (BlogDetail, error) {
	blog, err := s.queries.GetPublishedBlogBySlug(ctx, slug)
	if err != nil {
		return BlogDetail{}, notFound(err)
	}
	views, err := s.queries.IncrementBlogViews(ctx, blog.ID)
	if err != nil {
		return BlogDetail{}, fmt.Errorf("counting view: %w", err)
	}
	blog.Views = views
	metrics.RecordBlogView()

	html, err := s.renderer.Render(blog.Content)
	if err != nil {
		return BlogDetail{}, fmt.Errorf("rendering blog: %w", err)
	}
	tags, err := s.queries.ListTagsForBlog(ctx, blog.ID)
	if err != nil {
		return BlogDetail{}, fmt.Errorf("listing tags: %w", err)
	}
	related, err := s.Related(ctx, blog)
	if err != nil {
		return BlogDetail{}, err
	}
	return BlogDetail{Blog: blog, HTML: html, Tags: tags, Related: related}, nil
}

// PublishedID resolves the slug of a public blog without counting a view.
func (s *BlogService) PublishedID(ctx context.Context, slug string) (int64, error) {
	blog, err := s.queries.GetPublishedBlogBySlug(ctx, slug)
	if err != nil {
		return 0, notFound(err)
	}
	return blog.ID, nil
}

// Related returns up to three public blogs sharing the category or a tag.
func (s *BlogService) Related(ctx context.Context, blog store.BlogRow) ([]store.BlogRow, error) {
	related, err := s.queries.ListRelatedBlogs(ctx, store.ListRelatedBlogsParams{
		ID:         blog.ID,
		CategoryID: blog.CategoryID.Int64,
		Limit:      RelatedBlogLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing related blogs: %w", err)
	}
	return related, nil
}

// RenderContent renders stored Markdown as sanitised HTML.
func (s *BlogService) RenderContent(markdown string) (template.HTML, error) {
	return s.renderer.Render(markdown)
}

// Latest returns the newest public blogs for the home page.
func (s *BlogService) Latest(ctx context.Context, limit int) ([]store.BlogRow, error) {
	blogs, err := s.queries.ListLatestBlogs(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing latest blogs: %w", err)
	}
	return blogs, nil
}

func (s *BlogService) notifyPublished(ctx context.Context, blog store.BlogRow) {
	s.logger.Info("blog published", "blog_id", blog.ID, "slug", blog.Slug)
	notify(ctx, s.notifier, s.logger, model.EventBlogPublished, webhook.BlogEventData{
		ID:         blog.ID,
		Title:      blog.Title,
		Slug:       blog.Slug,
		Status:     blog.Status,
		IsVerified: blog.IsVerified,
		AuthorID:   blog.AuthorID.Int64,
		URL:        "/blog/" + blog.Slug,
	})
}

func (s *BlogService) invalidate(ctx context.Context) {
	if err := cache.InvalidateContent(ctx, s.cache); err != nil {
		s.logger.Warn("failed to invalidate content cache", "error", err)
	}
}
