// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const categoryColumns = `id, name, slug, description, position, is_active, created_at, updated_at`

func scanCategory(row rowScanner) (Category, error) {
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.Description, &i.Position, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) collectCategories(ctx context.Context, query string, args ...any) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		i, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createCategory = `INSERT INTO categories (name, slug, description, position, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	Name        string
	Slug        string
	Description string
	Position    int64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory,
		arg.Name, arg.Slug, arg.Description, arg.Position, arg.IsActive, arg.CreatedAt, arg.UpdatedAt)
	return scanCategory(row)
}

const updateCategory = `UPDATE categories
SET name = ?, slug = ?, description = ?, position = ?, is_active = ?, updated_at = ?
WHERE id = ?
RETURNING ` + categoryColumns

type UpdateCategoryParams struct {
	Name        string
	Slug        string
	Description string
	Position    int64
	IsActive    bool
	UpdatedAt   time.Time
	ID          int64
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, updateCategory,
		arg.Name, arg.Slug, arg.Description, arg.Position, arg.IsActive, arg.UpdatedAt, arg.ID)
	return scanCategory(row)
}

const getCategoryByID = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

func (q *Queries) GetCategoryByID(ctx context.Context, id int64) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategoryByID, id))
}

const getCategoryBySlug = `SELECT ` + categoryColumns + ` FROM categories WHERE slug = ?`

func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategoryBySlug, slug))
}

const categorySlugExists = `SELECT COUNT(*) FROM categories WHERE slug = ? AND id <> ?`

func (q *Queries) CategorySlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, categorySlugExists, slug, excludeID).Scan(&n)
	return n > 0, err
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories ORDER BY position, name`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	return q.collectCategories(ctx, listCategories)
}

const listActiveCategories = `SELECT ` + categoryColumns + ` FROM categories WHERE is_active = 1 ORDER BY position, name`

func (q *Queries) ListActiveCategories(ctx context.Context) ([]Category, error) {
	return q.collectCategories(ctx, listActiveCategories)
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteCategory, id)
	return err
}

const countBlogsInCategory = `SELECT COUNT(*) FROM blogs WHERE category_id = ?`

func (q *Queries) CountBlogsInCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countBlogsInCategory, categoryID).Scan(&n)
	return n, err
}

func scanTag(row rowScanner) (Tag, error) {
	var i Tag
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.CreatedAt)
	return i, err
}

func (q *Queries) collectTags(ctx context.Context, query string, args ...any) ([]Tag, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Tag
	for rows.Next() {
		i, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createTag = `INSERT INTO tags (name, slug, created_at) VALUES (?, ?, ?) RETURNING id, name, slug, created_at`

type CreateTagParams struct {
	Name      string
	Slug      string
	CreatedAt time.Time
}

func (q *Queries) CreateTag(ctx context.Context, arg CreateTagParams) (Tag, error) {
	return scanTag(q.db.QueryRowContext(ctx, createTag, arg.Name, arg.Slug, arg.CreatedAt))
}

const updateTag = `UPDATE tags SET name = ?, slug = ? WHERE id = ? RETURNING id, name, slug, created_at`

type UpdateTagParams struct {
	Name string
	Slug string
	ID   int64
}

func (q *Queries) UpdateTag(ctx context.Context, arg UpdateTagParams) (Tag, error) {
	return scanTag(q.db.QueryRowContext(ctx, updateTag, arg.Name, arg.Slug, arg.ID))
}

const getTagByID = `SELECT id, name, slug, created_at FROM tags WHERE id = ?`

func (q *Queries) GetTagByID(ctx context.Context, id int64) (Tag, error) {
	return scanTag(q.db.QueryRowContext(ctx, getTagByID, id))
}

const getTagByName = `SELECT id, name, slug, created_at FROM tags WHERE lower(name) = lower(?)`

func (q *Queries) GetTagByName(ctx context.Context, name string) (Tag, error) {
	return scanTag(q.db.QueryRowContext(ctx, getTagByName, name))
}

const tagSlugExists = `SELECT COUNT(*) FROM tags WHERE slug = ? AND id <> ?`

func (q *Queries) TagSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, tagSlugExists, slug, excludeID).Scan(&n)
	return n > 0, err
}

const listTags = `SELECT id, name, slug, created_at FROM tags ORDER BY name`

func (q *Queries) ListTags(ctx context.Context) ([]Tag, error) {
	return q.collectTags(ctx, listTags)
}

const listTagsForBlog = `SELECT t.id, t.name, t.slug, t.created_at
FROM tags t
JOIN blog_tags bt ON bt.tag_id = t.id
WHERE bt.blog_id = ?
ORDER BY t.name`

func (q *Queries) ListTagsForBlog(ctx context.Context, blogID int64) ([]Tag, error) {
	return q.collectTags(ctx, listTagsForBlog, blogID)
}

const deleteTag = `DELETE FROM tags WHERE id = ?`

func (q *Queries) DeleteTag(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteTag, id)
	return err
}

const addBlogTag = `INSERT OR IGNORE INTO blog_tags (blog_id, tag_id) VALUES (?, ?)`

type BlogTagParams struct {
	BlogID int64
	TagID  int64
}

func (q *Queries) AddBlogTag(ctx context.Context, arg BlogTagParams) error {
	_, err := q.db.ExecContext(ctx, addBlogTag, arg.BlogID, arg.TagID)
	return err
}

const clearBlogTags = `DELETE FROM blog_tags WHERE blog_id = ?`

func (q *Queries) ClearBlogTags(ctx context.Context, blogID int64) error {
	_, err := q.db.ExecContext(ctx, clearBlogTags, blogID)
	return err
}
