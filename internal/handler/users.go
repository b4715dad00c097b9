// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/session"
	"github.com/olegiv/thinkspace/internal/store"
)

// UsersHandler handles user and role management. Every route is
// superuser-only.
type UsersHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	svc            Services
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(renderer *render.Renderer, sm *scs.SessionManager, svc Services) *UsersHandler {
	return &UsersHandler{
		renderer:       renderer,
		sessionManager: sm,
		svc:            svc,
	}
}

func userDetailURL(id int64) string {
	return fmt.Sprintf("%s/%d/detail", redirectDashboardUsers, id)
}

// UsersListData holds data for the users list template.
type UsersListData struct {
	service.AdminUserList
	Pagination Pagination
	Filter     store.UserFilter
}

// List handles GET /dashboard/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.UserFilter{
		Role:   q.Get("role"),
		Status: q.Get("status"),
		Query:  q.Get("q"),
	}
	switch filter.Role {
	case "superuser", "staff", "regular":
	default:
		filter.Role = ""
	}
	if filter.Status != "active" && filter.Status != "inactive" {
		filter.Status = ""
	}

	list, err := h.svc.Users.ListAdmin(r.Context(), filter, ParsePageParam(r))
	if err != nil {
		logAndInternalError(w, "failed to list users", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateUsers, render.TemplateData{
		Title:       "Users",
		Breadcrumbs: dashboardCrumbs("Users"),
		Data: UsersListData{
			AdminUserList: list,
			Pagination:    paginate(r, list.Page),
			Filter:        filter,
		},
	})
}

func userFormData(u *store.User) render.TemplateData {
	title := "New user"
	if u != nil {
		title = "Edit user"
	}
	return render.TemplateData{
		Title: title,
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Dashboard", URL: redirectDashboard},
			{Label: "Users", URL: redirectDashboardUsers},
			{Label: title},
		},
		Data: u,
	}
}

// NewForm handles GET /dashboard/users/new.
func (h *UsersHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	data := userFormData(nil)
	data.Form = model.UserForm{IsActive: true}
	renderPage(w, r, h.renderer, templateUserForm, data)
}

// Create handles POST /dashboard/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	back := redirectDashboardUsers + RouteSuffixNew
	var form model.UserForm
	if err := decodeForm(w, r, &form); err != nil {
		handleServiceError(w, r, h.renderer, back, "user", err)
		return
	}
	u, err := h.svc.Users.Create(r.Context(), form)
	if err != nil {
		if errs, ok := model.AsValidationErrors(err); ok {
			form.Password = ""
			data := userFormData(nil)
			data.Form = form
			renderInvalid(w, r, h.renderer, templateUserForm, data, errs)
			return
		}
		handleServiceError(w, r, h.renderer, back, "user", err)
		return
	}
	slog.Info("user created", "user_id", u.ID, "email", u.Email, "created_by", middleware.GetUserID(r))
	logEvent(r, h.svc.Events, model.EventCategoryUser, "User created", map[string]any{"user_id": u.ID, "email": u.Email})
	flashSuccess(w, r, h.renderer, userDetailURL(u.ID), "User created")
}

func (h *UsersHandler) load(w http.ResponseWriter, r *http.Request) (store.User, bool) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return store.User{}, false
	}
	u, err := h.svc.Users.Get(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		renderNotFound(w, r, h.renderer)
		return u, false
	}
	if err != nil {
		logAndInternalError(w, "failed to load user", "error", err, "user_id", id)
		return u, false
	}
	return u, true
}

// EditForm handles GET /dashboard/users/{id}/edit.
func (h *UsersHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	u, ok := h.load(w, r)
	if !ok {
		return
	}
	data := userFormData(&u)
	data.Form = model.UserForm{
		Email:       u.Email,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.IsActive,
	}
	renderPage(w, r, h.renderer, templateUserForm, data)
}

// Update handles POST /dashboard/users/{id}. A blank password keeps the
// current one.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := h.load(w, r)
	if !ok {
		return
	}
	back := fmt.Sprintf("%s/%d/edit", redirectDashboardUsers, u.ID)
	var form model.UserForm
	if err := decodeForm(w, r, &form); err != nil {
		handleServiceError(w, r, h.renderer, back, "user", err)
		return
	}
	updated, err := h.svc.Users.Update(r.Context(), u.ID, middleware.GetUserID(r), form)
	if err != nil {
		if errs, ok := model.AsValidationErrors(err); ok {
			form.Password = ""
			data := userFormData(&u)
			data.Form = form
			renderInvalid(w, r, h.renderer, templateUserForm, data, errs)
			return
		}
		handleServiceError(w, r, h.renderer, back, "user", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryUser, "User updated", map[string]any{"user_id": updated.ID, "email": updated.Email})
	flashSuccess(w, r, h.renderer, userDetailURL(updated.ID), "User updated")
}

// UserDetailData holds data for the user detail page.
type UserDetailData struct {
	service.UserDetail
	AllRoles       []store.RoleRow
	CanImpersonate bool
}

// HasRole reports whether the user holds the role.
func (d UserDetailData) HasRole(roleID int64) bool {
	for _, r := range d.Roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}

// Detail handles GET /dashboard/users/{id}/detail.
func (h *UsersHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	detail, err := h.svc.Users.Detail(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to load user detail", "error", err, "user_id", id)
		return
	}
	roles, err := h.svc.Users.Roles(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list roles", "error", err)
		return
	}
	actor := middleware.GetUser(r)
	canImpersonate := !middleware.IsImpersonating(r) && actor.ID != id &&
		!detail.User.IsSuperuser && detail.User.IsActive

	renderPage(w, r, h.renderer, templateUserDetail, render.TemplateData{
		Title: detail.User.FullName(),
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Dashboard", URL: redirectDashboard},
			{Label: "Users", URL: redirectDashboardUsers},
			{Label: detail.User.FullName()},
		},
		Data: UserDetailData{
			UserDetail:     detail,
			AllRoles:       roles,
			CanImpersonate: canImpersonate,
		},
	})
}

// ToggleActive handles POST /dashboard/users/{id}/toggle-active.
func (h *UsersHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	back := redirectBack(r, redirectDashboardUsers)
	active, err := h.svc.Users.ToggleActive(r.Context(), id, middleware.GetUserID(r))
	if err != nil {
		handleServiceError(w, r, h.renderer, back, "user", err)
		return
	}
	msg := "User deactivated"
	if active {
		msg = "User activated"
	}
	logEvent(r, h.svc.Events, model.EventCategoryUser, msg, map[string]any{"user_id": id})
	flashSuccess(w, r, h.renderer, back, msg)
}

// Delete handles POST /dashboard/users/{id}/delete.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err := h.svc.Users.Delete(r.Context(), id, middleware.GetUserID(r)); err != nil {
		handleServiceError(w, r, h.renderer, redirectDashboardUsers, "user", err)
		return
	}
	slog.Info("user deleted", "user_id", id, "deleted_by", middleware.GetUserID(r))
	_ = h.svc.Events.LogWarning(r.Context(), model.EventCategoryUser, "User deleted", eventSource(r), map[string]any{"user_id": id})
	flashSuccess(w, r, h.renderer, redirectDashboardUsers, "User deleted")
}

// Impersonate handles POST /dashboard/users/{id}/impersonate. The session
// keeps the superuser's id so the banner can offer a way back.
func (h *UsersHandler) Impersonate(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	if middleware.IsImpersonating(r) {
		flashError(w, r, h.renderer, userDetailURL(id), "Stop the current impersonation first")
		return
	}
	actorID := middleware.GetUserID(r)
	target, err := h.svc.Users.CanImpersonate(r.Context(), actorID, id)
	if err != nil {
		handleServiceError(w, r, h.renderer, userDetailURL(id), "user", err)
		return
	}
	if err := session.StartImpersonation(r.Context(), h.sessionManager, target.ID); err != nil {
		if errors.Is(err, session.ErrAlreadyImpersonating) {
			flashError(w, r, h.renderer, userDetailURL(id), "Stop the current impersonation first")
			return
		}
		logAndInternalError(w, "failed to start impersonation", "error", err)
		return
	}

	slog.Info("impersonation started", "user_id", actorID, "impersonated_user_id", target.ID)
	_ = h.svc.Events.LogWarning(r.Context(), model.EventCategoryAuth, "Impersonation started", eventSource(r),
		map[string]any{"impersonated_user_id": target.ID, "impersonated_email": target.Email})
	flashAndRedirect(w, r, h.renderer, RouteRoot, "You are now viewing the site as "+target.FullName(), "info")
}

// Roles handles GET /dashboard/roles.
func (h *UsersHandler) Roles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.Users.Roles(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list roles", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateRoles, render.TemplateData{
		Title:       "Roles",
		Breadcrumbs: dashboardCrumbs("Roles"),
		Data:        roles,
		Form:        model.RoleForm{},
	})
}

// CreateRole handles POST /dashboard/roles. Creating an existing name is
// reported rather than treated as an error.
func (h *UsersHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var form model.RoleForm
	if err := decodeForm(w, r, &form); err != nil {
		handleServiceError(w, r, h.renderer, redirectDashboardRoles, "role", err)
		return
	}
	role, created, err := h.svc.Users.EnsureRole(r.Context(), form)
	if err != nil {
		handleServiceError(w, r, h.renderer, redirectDashboardRoles, "role", err)
		return
	}
	if !created {
		flashAndRedirect(w, r, h.renderer, redirectDashboardRoles, fmt.Sprintf("Role %q already exists", role.Name), "info")
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryUser, "Role created", map[string]any{"role_id": role.ID, "name": role.Name})
	flashSuccess(w, r, h.renderer, redirectDashboardRoles, fmt.Sprintf("Role %q created", role.Name))
}

// DeleteRole handles POST /dashboard/roles/{id}/delete.
func (h *UsersHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err := h.svc.Users.DeleteRole(r.Context(), id); err != nil {
		handleServiceError(w, r, h.renderer, redirectDashboardRoles, "role", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryUser, "Role deleted", map[string]any{"role_id": id})
	flashSuccess(w, r, h.renderer, redirectDashboardRoles, "Role deleted")
}

// AssignRole handles POST /dashboard/users/{id}/roles with a role_id field.
func (h *UsersHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, true)
}

// RemoveRole handles POST /dashboard/users/{id}/roles/remove with a role_id field.
func (h *UsersHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, false)
}

func (h *UsersHandler) changeRole(w http.ResponseWriter, r *http.Request, assign bool) {
	userID, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	back := userDetailURL(userID)
	var form struct {
		RoleID int64 `form:"role_id"`
	}
	if err := decodeForm(w, r, &form); err != nil || form.RoleID <= 0 {
		flashError(w, r, h.renderer, back, "Choose a role")
		return
	}

	msg := "Role assigned"
	if assign {
		err = h.svc.Users.AssignRole(r.Context(), userID, form.RoleID)
	} else {
		msg = "Role removed"
		err = h.svc.Users.RemoveRole(r.Context(), userID, form.RoleID)
	}
	if err != nil {
		handleServiceError(w, r, h.renderer, back, "role", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryUser, msg, map[string]any{"user_id": userID, "role_id": form.RoleID})
	flashSuccess(w, r, h.renderer, back, msg)
}

// Export handles GET /dashboard/users/export?format=.
func (h *UsersHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = service.FormatCSV
	}
	if !service.ValidExport(service.DatasetUsers, format) {
		flashError(w, r, h.renderer, redirectDashboardUsers, "Unknown export format")
		return
	}
	streamExport(w, r, h.svc, service.DatasetUsers, format, 0)
}
