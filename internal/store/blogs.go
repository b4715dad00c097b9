// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const blogRowSelect = `SELECT b.id, b.title, b.slug, b.author_id, b.category_id, b.excerpt, b.content, b.cover_image,
    b.status, b.is_verified, b.views, b.allow_comments, b.meta_title, b.meta_description, b.publish_at,
    b.published_at, b.created_at, b.updated_at,
    COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), u.username, ''),
    COALESCE(c.name, ''),
    COALESCE(c.slug, '')
FROM blogs b
LEFT JOIN users u ON u.id = b.author_id
LEFT JOIN categories c ON c.id = b.category_id`

func scanBlogRow(row rowScanner) (BlogRow, error) {
	var i BlogRow
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Slug,
		&i.AuthorID,
		&i.CategoryID,
		&i.Excerpt,
		&i.Content,
		&i.CoverImage,
		&i.Status,
		&i.IsVerified,
		&i.Views,
		&i.AllowComments,
		&i.MetaTitle,
		&i.MetaDescription,
		&i.PublishAt,
		&i.PublishedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.AuthorName,
		&i.CategoryName,
		&i.CategorySlug,
	)
	return i, err
}

func (q *Queries) collectBlogRows(ctx context.Context, query string, args ...any) ([]BlogRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BlogRow
	for rows.Next() {
		i, err := scanBlogRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createBlog = `INSERT INTO blogs (title, slug, author_id, category_id, excerpt, content, cover_image, status,
    is_verified, allow_comments, meta_title, meta_description, publish_at, published_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateBlogParams struct {
	Title           string
	Slug            string
	AuthorID        sql.NullInt64
	CategoryID      sql.NullInt64
	Excerpt         string
	Content         string
	CoverImage      string
	Status          string
	IsVerified      bool
	AllowComments   bool
	MetaTitle       string
	MetaDescription string
	PublishAt       sql.NullTime
	PublishedAt     sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (q *Queries) CreateBlog(ctx context.Context, arg CreateBlogParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createBlog,
		arg.Title,
		arg.Slug,
		arg.AuthorID,
		arg.CategoryID,
		arg.Excerpt,
		arg.Content,
		arg.CoverImage,
		arg.Status,
		arg.IsVerified,
		arg.AllowComments,
		arg.MetaTitle,
		arg.MetaDescription,
		arg.PublishAt,
		arg.PublishedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	).Scan(&id)
	return id, err
}

const updateBlog = `UPDATE blogs
SET title = ?, slug = ?, category_id = ?, excerpt = ?, content = ?, cover_image = ?, status = ?, is_verified = ?,
    allow_comments = ?, meta_title = ?, meta_description = ?, publish_at = ?, published_at = ?, updated_at = ?
WHERE id = ?`

type UpdateBlogParams struct {
	Title           string
	Slug            string
	CategoryID      sql.NullInt64
	Excerpt         string
	Content         string
	CoverImage      string
	Status          string
	IsVerified      bool
	AllowComments   bool
	MetaTitle       string
	MetaDescription string
	PublishAt       sql.NullTime
	PublishedAt     sql.NullTime
	UpdatedAt       time.Time
	ID              int64
}

func (q *Queries) UpdateBlog(ctx context.Context, arg UpdateBlogParams) error {
	_, err := q.db.ExecContext(ctx, updateBlog,
		arg.Title,
		arg.Slug,
		arg.CategoryID,
		arg.Excerpt,
		arg.Content,
		arg.CoverImage,
		arg.Status,
		arg.IsVerified,
		arg.AllowComments,
		arg.MetaTitle,
		arg.MetaDescription,
		arg.PublishAt,
		arg.PublishedAt,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}

const getBlogByID = blogRowSelect + ` WHERE b.id = ?`

func (q *Queries) GetBlogByID(ctx context.Context, id int64) (BlogRow, error) {
	return scanBlogRow(q.db.QueryRowContext(ctx, getBlogByID, id))
}

const getPublishedBlogBySlug = blogRowSelect + ` WHERE b.slug = ? AND b.status = 'published' AND b.is_verified = 1`

func (q *Queries) GetPublishedBlogBySlug(ctx context.Context, slug string) (BlogRow, error) {
	return scanBlogRow(q.db.QueryRowContext(ctx, getPublishedBlogBySlug, slug))
}

const blogSlugExists = `SELECT COUNT(*) FROM blogs WHERE slug = ? AND id <> ?`

func (q *Queries) BlogSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, blogSlugExists, slug, excludeID).Scan(&n)
	return n > 0, err
}

const deleteBlog = `DELETE FROM blogs WHERE id = ?`

func (q *Queries) DeleteBlog(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteBlog, id)
	return err
}

const setBlogVerification = `UPDATE blogs SET is_verified = ?, status = ?, updated_at = ? WHERE id = ?`

type SetBlogVerificationParams struct {
	IsVerified bool
	Status     string
	UpdatedAt  time.Time
	ID         int64
}

func (q *Queries) SetBlogVerification(ctx context.Context, arg SetBlogVerificationParams) error {
	_, err := q.db.ExecContext(ctx, setBlogVerification, arg.IsVerified, arg.Status, arg.UpdatedAt, arg.ID)
	return err
}

const publishBlog = `UPDATE blogs
SET status = 'published', published_at = COALESCE(published_at, ?), updated_at = ?
WHERE id = ? AND is_verified = 1`

type PublishBlogParams struct {
	PublishedAt time.Time
	UpdatedAt   time.Time
	ID          int64
}

// PublishBlog publishes a verified blog. It reports whether a row changed.
func (q *Queries) PublishBlog(ctx context.Context, arg PublishBlogParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, publishBlog, arg.PublishedAt, arg.UpdatedAt, arg.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const incrementBlogViews = `UPDATE blogs SET views = views + 1 WHERE id = ? RETURNING views`

// IncrementBlogViews bumps the view counter in a single statement and returns the new value.
func (q *Queries) IncrementBlogViews(ctx context.Context, id int64) (int64, error) {
	var views int64
	err := q.db.QueryRowContext(ctx, incrementBlogViews, id).Scan(&views)
	return views, err
}

const publicBlogFilter = `
WHERE b.status = 'published' AND b.is_verified = 1
  AND (@category = '' OR (c.slug = @category AND c.is_active = 1))
  AND (@q = ''
    OR casefold(b.title) LIKE @like ESCAPE '\'
    OR casefold(b.excerpt) LIKE @like ESCAPE '\'
    OR casefold(b.content) LIKE @like ESCAPE '\'
    OR casefold(COALESCE(c.name, '')) LIKE @like ESCAPE '\'
    OR EXISTS (
        SELECT 1 FROM blog_tags bt JOIN tags t ON t.id = bt.tag_id
        WHERE bt.blog_id = b.id AND casefold(t.name) LIKE @like ESCAPE '\'))`

// PublicBlogFilter narrows the public blog listing.
type PublicBlogFilter struct {
	CategorySlug string
	Query        string
}

func (f PublicBlogFilter) args() []any {
	return []any{
		sql.Named("category", f.CategorySlug),
		sql.Named("q", f.Query),
		sql.Named("like", likePattern(f.Query)),
	}
}

const listPublishedBlogs = blogRowSelect + publicBlogFilter + `
ORDER BY b.published_at DESC, b.id DESC
LIMIT @limit OFFSET @offset`

type ListPublishedBlogsParams struct {
	PublicBlogFilter
	Limit  int64
	Offset int64
}

func (q *Queries) ListPublishedBlogs(ctx context.Context, arg ListPublishedBlogsParams) ([]BlogRow, error) {
	args := append(arg.args(), sql.Named("limit", arg.Limit), sql.Named("offset", arg.Offset))
	return q.collectBlogRows(ctx, listPublishedBlogs, args...)
}

const countPublishedBlogs = `SELECT COUNT(*) FROM blogs b LEFT JOIN categories c ON c.id = b.category_id` + publicBlogFilter

func (q *Queries) CountPublishedBlogs(ctx context.Context, arg PublicBlogFilter) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countPublishedBlogs, arg.args()...).Scan(&n)
	return n, err
}

const adminBlogFilter = `
WHERE (@status = '' OR b.status = @status)
  AND (@category_id = 0 OR b.category_id = @category_id)
  AND (@verified = '' OR (@verified = 'yes' AND b.is_verified = 1) OR (@verified = 'no' AND b.is_verified = 0))
  AND (@q = ''
    OR casefold(b.title) LIKE @like ESCAPE '\'
    OR casefold(b.excerpt) LIKE @like ESCAPE '\'
    OR casefold(b.content) LIKE @like ESCAPE '\')`

// AdminBlogFilter narrows the dashboard blog listing.
type AdminBlogFilter struct {
	Status     string
	CategoryID int64
	Verified   string
	Query      string
}

func (f AdminBlogFilter) args() []any {
	return []any{
		sql.Named("status", f.Status),
		sql.Named("category_id", f.CategoryID),
		sql.Named("verified", f.Verified),
		sql.Named("q", f.Query),
		sql.Named("like", likePattern(f.Query)),
	}
}

const listAdminBlogs = blogRowSelect + adminBlogFilter + `
ORDER BY b.created_at DESC, b.id DESC
LIMIT @limit OFFSET @offset`

type ListAdminBlogsParams struct {
	AdminBlogFilter
	Limit  int64
	Offset int64
}

func (q *Queries) ListAdminBlogs(ctx context.Context, arg ListAdminBlogsParams) ([]BlogRow, error) {
	args := append(arg.args(), sql.Named("limit", arg.Limit), sql.Named("offset", arg.Offset))
	return q.collectBlogRows(ctx, listAdminBlogs, args...)
}

const countAdminBlogs = `SELECT COUNT(*) FROM blogs b` + adminBlogFilter

func (q *Queries) CountAdminBlogs(ctx context.Context, arg AdminBlogFilter) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAdminBlogs, arg.args()...).Scan(&n)
	return n, err
}

const getBlogStats = `SELECT
    COUNT(*),
    COALESCE(SUM(CASE WHEN status = 'published' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN is_verified = 0 THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(views), 0)
FROM blogs`

type BlogStats struct {
	Total      int64
	Published  int64
	Drafts     int64
	Unverified int64
	TotalViews int64
}

func (q *Queries) GetBlogStats(ctx context.Context) (BlogStats, error) {
	var s BlogStats
	err := q.db.QueryRowContext(ctx, getBlogStats).Scan(&s.Total, &s.Published, &s.Drafts, &s.Unverified, &s.TotalViews)
	return s, err
}

const listRelatedBlogs = blogRowSelect + `
WHERE b.status = 'published' AND b.is_verified = 1 AND b.id <> @id
  AND ((@category_id <> 0 AND b.category_id = @category_id)
    OR EXISTS (
        SELECT 1 FROM blog_tags mine JOIN blog_tags theirs ON theirs.tag_id = mine.tag_id
        WHERE mine.blog_id = @id AND theirs.blog_id = b.id))
ORDER BY b.published_at DESC, b.id DESC
LIMIT @limit`

type ListRelatedBlogsParams struct {
	ID         int64
	CategoryID int64
	Limit      int64
}

func (q *Queries) ListRelatedBlogs(ctx context.Context, arg ListRelatedBlogsParams) ([]BlogRow, error) {
	return q.collectBlogRows(ctx, listRelatedBlogs,
		sql.Named("id", arg.ID),
		sql.Named("category_id", arg.CategoryID),
		sql.Named("limit", arg.Limit),
	)
}

const listLatestBlogs = blogRowSelect + `
WHERE b.status = 'published' AND b.is_verified = 1
ORDER BY b.published_at DESC, b.id DESC
LIMIT ?`

func (q *Queries) ListLatestBlogs(ctx context.Context, limit int64) ([]BlogRow, error) {
	return q.collectBlogRows(ctx, listLatestBlogs, limit)
}

const listRecentBlogs = blogRowSelect + ` ORDER BY b.created_at DESC, b.id DESC LIMIT ?`

func (q *Queries) ListRecentBlogs(ctx context.Context, limit int64) ([]BlogRow, error) {
	return q.collectBlogRows(ctx, listRecentBlogs, limit)
}

const listDueScheduledBlogs = blogRowSelect + `
WHERE b.status = 'draft' AND b.is_verified = 1 AND b.publish_at IS NOT NULL AND b.publish_at <= ?
ORDER BY b.publish_at`

func (q *Queries) ListDueScheduledBlogs(ctx context.Context, now time.Time) ([]BlogRow, error) {
	return q.collectBlogRows(ctx, listDueScheduledBlogs, now)
}

const searchBlogs = blogRowSelect + `
WHERE casefold(b.title) LIKE ? ESCAPE '\' OR casefold(b.excerpt) LIKE ? ESCAPE '\' OR casefold(b.slug) LIKE ? ESCAPE '\'
ORDER BY b.created_at DESC
LIMIT ?`

func (q *Queries) SearchBlogs(ctx context.Context, query string, limit int64) ([]BlogRow, error) {
	like := likePattern(query)
	return q.collectBlogRows(ctx, searchBlogs, like, like, like, limit)
}

const forEachBlog = blogRowSelect + ` ORDER BY b.id`

// ForEachBlog streams every blog to fn in id order.
func (q *Queries) ForEachBlog(ctx context.Context, fn func(BlogRow) error) error {
	rows, err := q.db.QueryContext(ctx, forEachBlog)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		b, err := scanBlogRow(rows)
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return rows.Err()
}

const countBlogsByAuthor = `SELECT COUNT(*) FROM blogs WHERE author_id = ?`

func (q *Queries) CountBlogsByAuthor(ctx context.Context, authorID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countBlogsByAuthor, authorID).Scan(&n)
	return n, err
}
