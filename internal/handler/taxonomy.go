// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/store"
)

// TaxonomyHandler handles category and tag management.
type TaxonomyHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	svc            Services
}

// NewTaxonomyHandler creates a new TaxonomyHandler.
func NewTaxonomyHandler(renderer *render.Renderer, sm *scs.SessionManager, svc Services) *TaxonomyHandler {
	return &TaxonomyHandler{
		renderer:       renderer,
		sessionManager: sm,
		svc:            svc,
	}
}

// CategoryRow is a category with the number of blogs filed under it.
type CategoryRow struct {
	store.Category
	BlogCount int64
}

// ListCategories handles GET /dashboard/categories.
func (h *TaxonomyHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Taxonomy.Categories(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list categories", "error", err)
		return
	}
	rows := make([]CategoryRow, 0, len(categories))
	for _, c := range categories {
		n, err := h.svc.Taxonomy.BlogCount(r.Context(), c.ID)
		if err != nil {
			logAndInternalError(w, "failed to count blogs", "error", err, "category_id", c.ID)
			return
		}
		rows = append(rows, CategoryRow{Category: c, BlogCount: n})
	}
	renderPage(w, r, h.renderer, templateCategories, render.TemplateData{
		Title:       "Categories",
		Breadcrumbs: dashboardCrumbs("Categories"),
		Data:        rows,
	})
}

func categoryFormData(title string, c *store.Category) render.TemplateData {
	return render.TemplateData{
		Title: title,
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Dashboard", URL: redirectDashboard},
			{Label: "Categories", URL: redirectDashboardCategories},
			{Label: title},
		},
		Data: c,
	}
}

// NewCategoryForm handles GET /dashboard/categories/new.
func (h *TaxonomyHandler) NewCategoryForm(w http.ResponseWriter, r *http.Request) {
	data := categoryFormData("New category", nil)
	data.Form = model.CategoryForm{IsActive: true}
	renderPage(w, r, h.renderer, templateCategoryForm, data)
}

// EditCategoryForm handles GET /dashboard/categories/{id}/edit.
func (h *TaxonomyHandler) EditCategoryForm(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	c, err := h.svc.Taxonomy.GetCategory(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to load category", "error", err, "category_id", id)
		return
	}
	data := categoryFormData("Edit category", &c)
	data.Form = model.CategoryForm{
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Position:    c.Position,
		IsActive:    c.IsActive,
	}
	renderPage(w, r, h.renderer, templateCategoryForm, data)
}

// CreateCategory handles POST /dashboard/categories.
func (h *TaxonomyHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	h.saveCategory(w, r, 0)
}

// UpdateCategory handles POST /dashboard/categories/{id}.
func (h *TaxonomyHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	h.saveCategory(w, r, id)
}

func (h *TaxonomyHandler) saveCategory(w http.ResponseWriter, r *http.Request, id int64) {
	back := redirectDashboardCategories + RouteSuffixNew
	if id != 0 {
		back = fmt.Sprintf("%s/%d/edit", redirectDashboardCategories, id)
	}

	var form model.CategoryForm
	if err := decodeForm(w, r, &form); err != nil {
		handleServiceError(w, r, h.renderer, back, "category", err)
		return
	}
	c, err := h.svc.Taxonomy.SaveCategory(r.Context(), id, form)
	if err != nil {
		if errs, ok := model.AsValidationErrors(err); ok {
			title, existing := "New category", (*store.Category)(nil)
			if id != 0 {
				title, existing = "Edit category", &store.Category{ID: id}
			}
			data := categoryFormData(title, existing)
			data.Form = form
			renderInvalid(w, r, h.renderer, templateCategoryForm, data, errs)
			return
		}
		handleServiceError(w, r, h.renderer, back, "category", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryBlog, "Category saved", map[string]any{"category_id": c.ID, "name": c.Name})
	flashSuccess(w, r, h.renderer, redirectDashboardCategories, fmt.Sprintf("Category %q saved", c.Name))
}

// DeleteCategory handles POST /dashboard/categories/{id}/delete.
func (h *TaxonomyHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err := h.svc.Taxonomy.DeleteCategory(r.Context(), id); err != nil {
		handleServiceError(w, r, h.renderer, redirectDashboardCategories, "category", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryBlog, "Category deleted", map[string]any{"category_id": id})
	flashSuccess(w, r, h.renderer, redirectDashboardCategories, "Category deleted")
}

// ListTags handles GET /dashboard/tags.
func (h *TaxonomyHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Taxonomy.Tags(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list tags", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateTags, render.TemplateData{
		Title:       "Tags",
		Breadcrumbs: dashboardCrumbs("Tags"),
		Data:        tags,
		Form:        model.TagForm{},
	})
}

func tagFormData(title string, t *store.Tag) render.TemplateData {
	return render.TemplateData{
		Title: title,
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Dashboard", URL: redirectDashboard},
			{Label: "Tags", URL: redirectDashboardTags},
			{Label: title},
		},
		Data: t,
	}
}

// EditTagForm handles GET /dashboard/tags/{id}/edit.
func (h *TaxonomyHandler) EditTagForm(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	t, err := h.svc.Taxonomy.GetTag(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to load tag", "error", err, "tag_id", id)
		return
	}
	data := tagFormData("Edit tag", &t)
	data.Form = model.TagForm{Name: t.Name, Slug: t.Slug}
	renderPage(w, r, h.renderer, templateTagForm, data)
}

// CreateTag handles POST /dashboard/tags. New tags are added from the list page.
func (h *TaxonomyHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	h.saveTag(w, r, 0)
}

// UpdateTag handles POST /dashboard/tags/{id}.
func (h *TaxonomyHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	h.saveTag(w, r, id)
}

func (h *TaxonomyHandler) saveTag(w http.ResponseWriter, r *http.Request, id int64) {
	back := redirectDashboardTags
	if id != 0 {
		back = fmt.Sprintf("%s/%d/edit", redirectDashboardTags, id)
	}

	var form model.TagForm
	if err := decodeForm(w, r, &form); err != nil {
		handleServiceError(w, r, h.renderer, back, "tag", err)
		return
	}
	t, err := h.svc.Taxonomy.SaveTag(r.Context(), id, form)
	if err != nil {
		if errs, ok := model.AsValidationErrors(err); ok && id != 0 {
			data := tagFormData("Edit tag", &store.Tag{ID: id})
			data.Form = form
			renderInvalid(w, r, h.renderer, templateTagForm, data, errs)
			return
		}
		handleServiceError(w, r, h.renderer, back, "tag", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryBlog, "Tag saved", map[string]any{"tag_id": t.ID, "name": t.Name})
	flashSuccess(w, r, h.renderer, redirectDashboardTags, fmt.Sprintf("Tag %q saved", t.Name))
}

// DeleteTag handles POST /dashboard/tags/{id}/delete.
func (h *TaxonomyHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err := h.svc.Taxonomy.DeleteTag(r.Context(), id); err != nil {
		handleServiceError(w, r, h.renderer, redirectDashboardTags, "tag", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryBlog, "Tag deleted", map[string]any{"tag_id": id})
	flashSuccess(w, r, h.renderer, redirectDashboardTags, "Tag deleted")
}
