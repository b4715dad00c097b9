// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/store"
)

// BlogsHandler handles blog management in the dashboard.
type BlogsHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	svc            Services
}

// NewBlogsHandler creates a new BlogsHandler.
func NewBlogsHandler(renderer *render.Renderer, sm *scs.SessionManager, svc Services) *BlogsHandler {
	return &BlogsHandler{
		renderer:       renderer,
		sessionManager: sm,
		svc:            svc,
	}
}

// BlogsListData holds data for the blogs list template.
type BlogsListData struct {
	service.AdminBlogList
	Pagination Pagination
	Filter     store.AdminBlogFilter
	Categories []store.Category
	Statuses   []string
}

// List handles GET /dashboard/blogs - displays a filtered list of blogs.
func (h *BlogsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AdminBlogFilter{
		Status:     q.Get("status"),
		CategoryID: ParseQueryInt64(r, "category"),
		Verified:   q.Get("verified"),
		Query:      q.Get("q"),
	}
	if !model.IsValidBlogStatus(filter.Status) {
		filter.Status = ""
	}
	if filter.Verified != "yes" && filter.Verified != "no" {
		filter.Verified = ""
	}

	list, err := h.svc.Blogs.ListAdmin(r.Context(), filter, ParsePageParam(r))
	if err != nil {
		logAndInternalError(w, "failed to list blogs", "error", err)
		return
	}
	categories, err := h.svc.Taxonomy.Categories(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list categories", "error", err)
		return
	}

	renderPage(w, r, h.renderer, templateBlogs, render.TemplateData{
		Title:       "Blogs",
		Breadcrumbs: dashboardCrumbs("Blogs"),
		Data: BlogsListData{
			AdminBlogList: list,
			Pagination:    paginate(r, list.Page),
			Filter:        filter,
			Categories:    categories,
			Statuses:      model.BlogStatuses(),
		},
	})
}

// BlogFormData holds data for the blog editor.
type BlogFormData struct {
	Blog       *store.BlogRow
	Categories []store.Category
	Statuses   []string
	IsEdit     bool
}

func (h *BlogsHandler) formData(w http.ResponseWriter, r *http.Request, blog *store.BlogRow) (render.TemplateData, bool) {
	categories, err := h.svc.Taxonomy.Categories(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list categories", "error", err)
		return render.TemplateData{}, false
	}
	title := "New blog"
	if blog != nil {
		title = "Edit blog"
	}
	return render.TemplateData{
		Title: title,
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Dashboard", URL: redirectDashboard},
			{Label: "Blogs", URL: redirectDashboardBlogs},
			{Label: title},
		},
		Data: BlogFormData{
			Blog:       blog,
			Categories: categories,
			Statuses:   model.BlogStatuses(),
			IsEdit:     blog != nil,
		},
	}, true
}

func blogForm(b store.BlogRow, tags []store.Tag) model.BlogForm {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	form := model.BlogForm{
		Title:           b.Title,
		Slug:            b.Slug,
		CategoryID:      b.CategoryID.Int64,
		Excerpt:         b.Excerpt,
		Content:         b.Content,
		Status:          b.Status,
		IsVerified:      b.IsVerified,
		AllowComments:   b.AllowComments,
		Tags:            strings.Join(names, ", "),
		MetaTitle:       b.MetaTitle,
		MetaDescription: b.MetaDescription,
	}
	if b.PublishAt.Valid {
		form.PublishAt = b.PublishAt.Time.Format(model.DateTimeInputLayout)
	}
	return form
}

// NewForm handles GET /dashboard/blogs/new.
func (h *BlogsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	data, ok := h.formData(w, r, nil)
	if !ok {
		return
	}
	data.Form = model.BlogForm{Status: model.BlogStatusDraft, AllowComments: true}
	renderPage(w, r, h.renderer, templateBlogForm, data)
}

// Create handles POST /dashboard/blogs.
func (h *BlogsHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, nil)
}

// EditForm handles GET /dashboard/blogs/{id}/edit.
func (h *BlogsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	blog, tags, ok := h.load(w, r)
	if !ok {
		return
	}
	data, ok := h.formData(w, r, &blog)
	if !ok {
		return
	}
	data.Form = blogForm(blog, tags)
	renderPage(w, r, h.renderer, templateBlogForm, data)
}

// Update handles POST /dashboard/blogs/{id}.
func (h *BlogsHandler) Update(w http.ResponseWriter, r *http.Request) {
	blog, _, ok := h.load(w, r)
	if !ok {
		return
	}
	h.save(w, r, &blog)
}

func (h *BlogsHandler) load(w http.ResponseWriter, r *http.Request) (store.BlogRow, []store.Tag, bool) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return store.BlogRow{}, nil, false
	}
	blog, tags, err := h.svc.Blogs.Get(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		renderNotFound(w, r, h.renderer)
		return blog, nil, false
	}
	if err != nil {
		logAndInternalError(w, "failed to load blog", "error", err, "blog_id", id)
		return blog, nil, false
	}
	return blog, tags, true
}

// save creates a blog when existing is nil and updates it otherwise.
func (h *BlogsHandler) save(w http.ResponseWriter, r *http.Request, existing *store.BlogRow) {
	back := redirectDashboardBlogs + RouteSuffixNew
	if existing != nil {
		back = fmt.Sprintf("%s/%d/edit", redirectDashboardBlogs, existing.ID)
	}

	var form model.BlogForm
	if err := decodeForm(w, r, &form); err != nil {
		handleServiceError(w, r, h.renderer, back, "blog", err)
		return
	}
	cover, err := formFile(r, "cover_image")
	if err != nil {
		flashError(w, r, h.renderer, back, "Could not read the uploaded cover image")
		return
	}
	defer cover.Close()

	user := middleware.GetUser(r)
	var blog store.BlogRow
	if existing == nil {
		blog, err = h.svc.Blogs.Create(r.Context(), user.ID, form, cover.Upload())
	} else {
		blog, err = h.svc.Blogs.Update(r.Context(), existing.ID, user.ID, form, cover.Upload())
	}
	if err != nil {
		errs, isValidation := model.AsValidationErrors(err)
		if errors.Is(err, service.ErrPublishUnverified) {
			errs, isValidation = model.ValidationErrors{"is_verified": err.Error()}, true
		}
		if !isValidation {
			handleServiceError(w, r, h.renderer, back, "blog", err)
			return
		}
		data, ok := h.formData(w, r, existing)
		if !ok {
			return
		}
		data.Form = form
		renderInvalid(w, r, h.renderer, templateBlogForm, data, errs)
		return
	}

	action := "created"
	if existing != nil {
		action = "updated"
	}
	slog.Info("blog "+action, "blog_id", blog.ID, "slug", blog.Slug, "user_id", user.ID)
	logEvent(r, h.svc.Events, model.EventCategoryBlog, "Blog "+action, map[string]any{"blog_id": blog.ID, "title": blog.Title})
	flashSuccess(w, r, h.renderer, redirectDashboardBlogs, fmt.Sprintf("Blog %q %s", blog.Title, action))
}

// Delete handles POST /dashboard/blogs/{id}/delete.
func (h *BlogsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err := h.svc.Blogs.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, h.renderer, redirectDashboardBlogs, "blog", err)
		return
	}
	slog.Info("blog deleted", "blog_id", id, "deleted_by", middleware.GetUserID(r))
	logEvent(r, h.svc.Events, model.EventCategoryBlog, "Blog deleted", map[string]any{"blog_id": id})
	flashSuccess(w, r, h.renderer, redirectDashboardBlogs, "Blog deleted")
}

// Verify handles POST /dashboard/blogs/{id}/verify. The verified field
// chooses between verifying and unverifying.
func (h *BlogsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectDashboardBlogs, "Invalid form data")
		return
	}
	verified := r.PostForm.Get("verified") != "false"
	blog, err := h.svc.Blogs.SetVerified(r.Context(), id, verified)
	if err != nil {
		handleServiceError(w, r, h.renderer, redirectDashboardBlogs, "blog", err)
		return
	}
	msg := "verified"
	if !verified {
		msg = "unverified"
	}
	logEvent(r, h.svc.Events, model.EventCategoryBlog, "Blog "+msg, map[string]any{"blog_id": id})
	flashSuccess(w, r, h.renderer, redirectBack(r, redirectDashboardBlogs), fmt.Sprintf("Blog %q %s", blog.Title, msg))
}

// Publish handles POST /dashboard/blogs/{id}/publish.
func (h *BlogsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	blog, err := h.svc.Blogs.Publish(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.renderer, redirectBack(r, redirectDashboardBlogs), "blog", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryBlog, "Blog published", map[string]any{"blog_id": id})
	flashSuccess(w, r, h.renderer, redirectBack(r, redirectDashboardBlogs), fmt.Sprintf("Blog %q published", blog.Title))
}

// redirectBack returns the local path the form was posted from, so list
// actions keep their filters. Foreign referrers fall back.
func redirectBack(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return fallback
	}
	return safeNext(ref.RequestURI(), fallback)
}
