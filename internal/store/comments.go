// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const commentRowSelect = `SELECT cm.id, cm.blog_id, cm.user_id, cm.parent_id, cm.content, cm.is_approved,
    cm.created_at, cm.updated_at,
    COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), u.username, ''),
    COALESCE(b.title, ''),
    COALESCE(b.slug, ''),
    (SELECT COUNT(*) FROM comment_likes cl WHERE cl.comment_id = cm.id)
FROM comments cm
LEFT JOIN users u ON u.id = cm.user_id
LEFT JOIN blogs b ON b.id = cm.blog_id`

func scanCommentRow(row rowScanner) (CommentRow, error) {
	var i CommentRow
	err := row.Scan(
		&i.ID,
		&i.BlogID,
		&i.UserID,
		&i.ParentID,
		&i.Content,
		&i.IsApproved,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.AuthorName,
		&i.BlogTitle,
		&i.BlogSlug,
		&i.LikeCount,
	)
	return i, err
}

func (q *Queries) collectCommentRows(ctx context.Context, query string, args ...any) ([]CommentRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CommentRow
	for rows.Next() {
		i, err := scanCommentRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createComment = `INSERT INTO comments (blog_id, user_id, parent_id, content, is_approved, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateCommentParams struct {
	BlogID     int64
	UserID     int64
	ParentID   sql.NullInt64
	Content    string
	IsApproved bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createComment,
		arg.BlogID,
		arg.UserID,
		arg.ParentID,
		arg.Content,
		arg.IsApproved,
		arg.CreatedAt,
		arg.UpdatedAt,
	).Scan(&id)
	return id, err
}

const getComment = commentRowSelect + ` WHERE cm.id = ?`

func (q *Queries) GetComment(ctx context.Context, id int64) (CommentRow, error) {
	return scanCommentRow(q.db.QueryRowContext(ctx, getComment, id))
}

const listApprovedComments = commentRowSelect + `
WHERE cm.blog_id = ? AND cm.is_approved = 1
ORDER BY cm.created_at, cm.id`

// ListApprovedComments returns approved comments of a blog, oldest first.
// Replies are included; callers thread them by ParentID.
func (q *Queries) ListApprovedComments(ctx context.Context, blogID int64) ([]CommentRow, error) {
	return q.collectCommentRows(ctx, listApprovedComments, blogID)
}

const adminCommentFilter = `
WHERE (@approved = ''
    OR (@approved = 'yes' AND cm.is_approved = 1)
    OR (@approved = 'no' AND cm.is_approved = 0))
  AND (@blog_id = 0 OR cm.blog_id = @blog_id)
  AND (@q = '' OR casefold(cm.content) LIKE @like ESCAPE '\')`

// CommentFilter narrows the moderation queue.
type CommentFilter struct {
	Approved string
	BlogID   int64
	Query    string
}

func (f CommentFilter) args() []any {
	return []any{
		sql.Named("approved", f.Approved),
		sql.Named("blog_id", f.BlogID),
		sql.Named("q", f.Query),
		sql.Named("like", likePattern(f.Query)),
	}
}

const listComments = commentRowSelect + adminCommentFilter + `
ORDER BY cm.created_at DESC, cm.id DESC
LIMIT @limit OFFSET @offset`

type ListCommentsParams struct {
	CommentFilter
	Limit  int64
	Offset int64
}

func (q *Queries) ListComments(ctx context.Context, arg ListCommentsParams) ([]CommentRow, error) {
	args := append(arg.args(), sql.Named("limit", arg.Limit), sql.Named("offset", arg.Offset))
	return q.collectCommentRows(ctx, listComments, args...)
}

const countComments = `SELECT COUNT(*) FROM comments cm` + adminCommentFilter

func (q *Queries) CountComments(ctx context.Context, arg CommentFilter) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countComments, arg.args()...).Scan(&n)
	return n, err
}

const countPendingComments = `SELECT COUNT(*) FROM comments WHERE is_approved = 0`

func (q *Queries) CountPendingComments(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countPendingComments).Scan(&n)
	return n, err
}

const setCommentApproved = `UPDATE comments SET is_approved = ?, updated_at = ? WHERE id = ?`

type SetCommentApprovedParams struct {
	IsApproved bool
	UpdatedAt  time.Time
	ID         int64
}

func (q *Queries) SetCommentApproved(ctx context.Context, arg SetCommentApprovedParams) error {
	_, err := q.db.ExecContext(ctx, setCommentApproved, arg.IsApproved, arg.UpdatedAt, arg.ID)
	return err
}

const deleteComment = `DELETE FROM comments WHERE id = ?`

func (q *Queries) DeleteComment(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteComment, id)
	return err
}

type CommentLikeParams struct {
	CommentID int64
	UserID    int64
}

const insertCommentLike = `INSERT OR IGNORE INTO comment_likes (comment_id, user_id, created_at) VALUES (?, ?, ?)`

// InsertCommentLike records a like. It reports false when the like already existed.
func (q *Queries) InsertCommentLike(ctx context.Context, arg CommentLikeParams, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertCommentLike, arg.CommentID, arg.UserID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const deleteCommentLike = `DELETE FROM comment_likes WHERE comment_id = ? AND user_id = ?`

func (q *Queries) DeleteCommentLike(ctx context.Context, arg CommentLikeParams) error {
	_, err := q.db.ExecContext(ctx, deleteCommentLike, arg.CommentID, arg.UserID)
	return err
}

const countCommentLikes = `SELECT COUNT(*) FROM comment_likes WHERE comment_id = ?`

func (q *Queries) CountCommentLikes(ctx context.Context, commentID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCommentLikes, commentID).Scan(&n)
	return n, err
}

const listLikedCommentIDs = `SELECT cl.comment_id
FROM comment_likes cl
JOIN comments cm ON cm.id = cl.comment_id
WHERE cm.blog_id = ? AND cl.user_id = ?`

// ListLikedCommentIDs returns the ids of comments on a blog liked by a user.
func (q *Queries) ListLikedCommentIDs(ctx context.Context, blogID, userID int64) (map[int64]bool, error) {
	rows, err := q.db.QueryContext(ctx, listLikedCommentIDs, blogID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	liked := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		liked[id] = true
	}
	return liked, rows.Err()
}
