// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/store"
)

// CommentsHandler handles comment moderation.
type CommentsHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	svc            Services
}

// NewCommentsHandler creates a new CommentsHandler.
func NewCommentsHandler(renderer *render.Renderer, sm *scs.SessionManager, svc Services) *CommentsHandler {
	return &CommentsHandler{
		renderer:       renderer,
		sessionManager: sm,
		svc:            svc,
	}
}

// CommentsListData holds data for the moderation queue.
type CommentsListData struct {
	Page       service.Page[store.CommentRow]
	Pagination Pagination
	Filter     store.CommentFilter
	Pending    int64
}

// List handles GET /dashboard/comments. Pending comments are shown first
// unless the query asks otherwise.
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.CommentFilter{
		Approved: q.Get("approved"),
		BlogID:   ParseQueryInt64(r, "blog"),
		Query:    q.Get("q"),
	}
	if !q.Has("approved") {
		filter.Approved = "no"
	}
	if filter.Approved != "yes" && filter.Approved != "no" {
		filter.Approved = ""
	}

	page, err := h.svc.Comments.ListAdmin(r.Context(), filter, ParsePageParam(r))
	if err != nil {
		logAndInternalError(w, "failed to list comments", "error", err)
		return
	}
	pending, err := h.svc.Comments.CountPending(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to count pending comments", "error", err)
		return
	}

	renderPage(w, r, h.renderer, templateComments, render.TemplateData{
		Title:       "Comments",
		Breadcrumbs: dashboardCrumbs("Comments"),
		Data: CommentsListData{
			Page:       page,
			Pagination: paginate(r, page),
			Filter:     filter,
			Pending:    pending,
		},
	})
}

// Approve handles POST /dashboard/comments/{id}/approve. approved=false
// hides an approved comment again.
func (h *CommentsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	back := redirectBack(r, redirectDashboardComments)
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}
	approved := r.PostForm.Get("approved") != "false"
	if err := h.svc.Comments.Approve(r.Context(), id, approved); err != nil {
		handleServiceError(w, r, h.renderer, back, "comment", err)
		return
	}

	msg := "Comment approved"
	if !approved {
		msg = "Comment hidden"
	}
	logEvent(r, h.svc.Events, model.EventCategoryBlog, msg, map[string]any{"comment_id": id})
	flashSuccess(w, r, h.renderer, back, msg)
}

// Delete handles POST /dashboard/comments/{id}/delete. Replies go with it.
func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	back := redirectBack(r, redirectDashboardComments)
	if err := h.svc.Comments.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, h.renderer, back, "comment", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryBlog, "Comment deleted", map[string]any{"comment_id": id})
	flashSuccess(w, r, h.renderer, back, "Comment deleted")
}
