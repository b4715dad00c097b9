// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/util"
)

// Comment errors.
var (
	ErrCommentsClosed = errors.New("comments are closed for this post")
	ErrInvalidParent  = errors.New("the comment you replied to does not belong to this post")
)

// CommentService handles comments, replies and likes.
type CommentService struct {
	queries  *store.Queries
	renderer *ContentRenderer
	logger   *slog.Logger
}

// NewCommentService creates a CommentService.
func NewCommentService(db *sql.DB, renderer *ContentRenderer, logger *slog.Logger) *CommentService {
	return &CommentService{
		queries:  store.New(db),
		renderer: renderer,
		logger:   logger,
	}
}

// Commenter identifies the signed-in user adding a comment.
type Commenter struct {
	ID      int64
	IsStaff bool
}

// Add stores a comment on a public blog. Staff comments are approved at once;
// others wait for moderation. It reports whether the comment is visible.
func (s *CommentService) Add(ctx context.Context, blogID int64, author Commenter, form model.CommentForm) (bool, error) {
	if errs := model.Validate(form); errs != nil {
		return false, errs
	}
	blog, err := s.queries.GetBlogByID(ctx, blogID)
	if err != nil {
		return false, notFound(err)
	}
	if blog.Status != model.BlogStatusPublished || !blog.IsVerified {
		return false, ErrNotFound
	}
	if !blog.AllowComments {
		return false, ErrCommentsClosed
	}

	content := s.renderer.SanitizeComment(form.Content)
	if content == "" {
		return false, model.ValidationErrors{"content": "This field is required"}
	}
	if len([]rune(content)) > model.MaxCommentLength {
		return false, model.ValidationErrors{"content": fmt.Sprintf("Must be at most %d characters", model.MaxCommentLength)}
	}

	if form.ParentID != 0 {
		parent, err := s.queries.GetComment(ctx, form.ParentID)
		if err != nil || parent.BlogID != blogID {
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return false, fmt.Errorf("loading parent comment: %w", err)
			}
			return false, ErrInvalidParent
		}
	}

	now := nowUTC()
	id, err := s.queries.CreateComment(ctx, store.CreateCommentParams{
		BlogID:     blogID,
		UserID:     author.ID,
		ParentID:   util.NullID(form.ParentID),
		Content:    content,
		IsApproved: author.IsStaff,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return false, fmt.Errorf("creating comment: %w", err)
	}
	s.logger.Info("comment added", "comment_id", id, "blog_id", blogID, "approved", author.IsStaff)
	return author.IsStaff, nil
}

// ToggleLike likes or unlikes an approved comment on a public blog. It
// returns the new state and count.
func (s *CommentService) ToggleLike(ctx context.Context, blogID, commentID, userID int64) (liked bool, count int64, err error) {
	comment, err := s.queries.GetComment(ctx, commentID)
	if err != nil {
		return false, 0, notFound(err)
	}
	if !comment.IsApproved || comment.BlogID != blogID {
		return false, 0, ErrNotFound
	}
	blog, err := s.queries.GetBlogByID(ctx, blogID)
	if err != nil {
		return false, 0, notFound(err)
	}
	if blog.Status != model.BlogStatusPublished || !blog.IsVerified {
		return false, 0, ErrNotFound
	}
	arg := store.CommentLikeParams{CommentID: commentID, UserID: userID}
	liked, err = s.queries.InsertCommentLike(ctx, arg, nowUTC())
	if err != nil {
		return false, 0, fmt.Errorf("liking comment: %w", err)
	}
	if !liked {
		if err := s.queries.DeleteCommentLike(ctx, arg); err != nil {
			return false, 0, fmt.Errorf("unliking comment: %w", err)
		}
	}
	count, err = s.queries.CountCommentLikes(ctx, commentID)
	if err != nil {
		return false, 0, fmt.Errorf("counting likes: %w", err)
	}
	return liked, count, nil
}

// CommentNode is an approved comment with its approved replies.
type CommentNode struct {
	store.CommentRow
	Liked   bool
	Replies []*CommentNode
}

// ListForBlog returns the approved comments of a blog as a tree, oldest
// first. Replies to unapproved comments are dropped with their parent.
// userID marks the comments the viewer liked; 0 marks none.
func (s *CommentService) ListForBlog(ctx context.Context, blogID, userID int64) ([]*CommentNode, int, error) {
	rows, err := s.queries.ListApprovedComments(ctx, blogID)
	if err != nil {
		return nil, 0, fmt.Errorf("listing comments: %w", err)
	}
	liked := map[int64]bool{}
	if userID != 0 {
		if liked, err = s.queries.ListLikedCommentIDs(ctx, blogID, userID); err != nil {
			return nil, 0, fmt.Errorf("listing likes: %w", err)
		}
	}
	roots, count := threadComments(rows, liked)
	return roots, count, nil
}

// threadComments builds the reply tree. rows must be in creation order,
// so parents always precede their replies.
func threadComments(rows []store.CommentRow, liked map[int64]bool) ([]*CommentNode, int) {
	nodes := make(map[int64]*CommentNode, len(rows))
	var roots []*CommentNode
	count := 0
	for _, row := range rows {
		node := &CommentNode{CommentRow: row, Liked: liked[row.ID]}
		if row.ParentID.Valid {
			parent, ok := nodes[row.ParentID.Int64]
			if !ok {
				continue
			}
			parent.Replies = append(parent.Replies, node)
		} else {
			roots = append(roots, node)
		}
		nodes[row.ID] = node
		count++
	}
	return roots, count
}

// ListAdmin returns a page of comments for moderation.
func (s *CommentService) ListAdmin(ctx context.Context, filter store.CommentFilter, page int) (Page[store.CommentRow], error) {
	filter.Query = strings.TrimSpace(filter.Query)
	number, limit, offset := limitOffset(page, AdminPageSize)
	total, err := s.queries.CountComments(ctx, filter)
	if err != nil {
		return Page[store.CommentRow]{}, fmt.Errorf("counting comments: %w", err)
	}
	items, err := s.queries.ListComments(ctx, store.ListCommentsParams{CommentFilter: filter, Limit: limit, Offset: offset})
	if err != nil {
		return Page[store.CommentRow]{}, fmt.Errorf("listing comments: %w", err)
	}
	return Page[store.CommentRow]{Items: items, Number: number, PerPage: AdminPageSize, Total: total}, nil
}

// CountPending returns the number of comments awaiting moderation.
func (s *CommentService) CountPending(ctx context.Context) (int64, error) {
	return s.queries.CountPendingComments(ctx)
}

// Approve sets a comment's moderation flag.
func (s *CommentService) Approve(ctx context.Context, id int64, approved bool) error {
	if _, err := s.queries.GetComment(ctx, id); err != nil {
		return notFound(err)
	}
	if err := s.queries.SetCommentApproved(ctx, store.SetCommentApprovedParams{
		IsApproved: approved,
		UpdatedAt:  nowUTC(),
		ID:         id,
	}); err != nil {
		return fmt.Errorf("moderating comment: %w", err)
	}
	return nil
}

// Delete removes a comment and, through the schema, its replies and likes.
func (s *CommentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.queries.GetComment(ctx, id); err != nil {
		return notFound(err)
	}
	if err := s.queries.DeleteComment(ctx, id); err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	return nil
}
