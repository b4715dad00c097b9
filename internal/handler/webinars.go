// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/util"
)

// WebinarsHandler handles webinar management, registrations and resources
// in the dashboard.
type WebinarsHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	svc            Services
}

// NewWebinarsHandler creates a new WebinarsHandler.
func NewWebinarsHandler(renderer *render.Renderer, sm *scs.SessionManager, svc Services) *WebinarsHandler {
	return &WebinarsHandler{
		renderer:       renderer,
		sessionManager: sm,
		svc:            svc,
	}
}

func webinarAdminURL(id int64) string {
	return fmt.Sprintf("%s/%d", redirectDashboardWebinars, id)
}

func webinarCrumbs(w *store.WebinarRow, label string) []render.Breadcrumb {
	crumbs := []render.Breadcrumb{
		{Label: "Dashboard", URL: redirectDashboard},
		{Label: "Webinars", URL: redirectDashboardWebinars},
	}
	if w != nil {
		crumbs = append(crumbs, render.Breadcrumb{Label: w.Title, URL: webinarAdminURL(w.ID)})
	}
	return append(crumbs, render.Breadcrumb{Label: label})
}

// WebinarsListData holds data for the webinars list template.
type WebinarsListData struct {
	service.AdminWebinarList
	Pagination Pagination
	Filter     store.AdminWebinarFilter
	Statuses   []string
}

// List handles GET /dashboard/webinars.
func (h *WebinarsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.AdminWebinarFilter{
		Status: r.URL.Query().Get("status"),
		Query:  r.URL.Query().Get("q"),
	}
	if !model.IsValidWebinarStatus(filter.Status) {
		filter.Status = ""
	}
	list, err := h.svc.Webinars.ListAdmin(r.Context(), filter, ParsePageParam(r))
	if err != nil {
		logAndInternalError(w, "failed to list webinars", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateWebinars, render.TemplateData{
		Title:       "Webinars",
		Breadcrumbs: dashboardCrumbs("Webinars"),
		Data: WebinarsListData{
			AdminWebinarList: list,
			Pagination:       paginate(r, list.Page),
			Filter:           filter,
			Statuses:         model.WebinarStatuses(),
		},
	})
}

// WebinarFormData holds data for the webinar editor.
type WebinarFormData struct {
	Webinar  *store.WebinarRow
	Speakers []store.Speaker
	Statuses []string
	IsEdit   bool
}

func (h *WebinarsHandler) formData(w http.ResponseWriter, r *http.Request, webinar *store.WebinarRow) (render.TemplateData, bool) {
	speakers, err := h.svc.Speakers.Active(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list speakers", "error", err)
		return render.TemplateData{}, false
	}
	title := "New webinar"
	if webinar != nil {
		title = "Edit webinar"
	}
	return render.TemplateData{
		Title:       title,
		Breadcrumbs: webinarCrumbs(webinar, title),
		Data: WebinarFormData{
			Webinar:  webinar,
			Speakers: speakers,
			Statuses: model.WebinarStatuses(),
			IsEdit:   webinar != nil,
		},
	}, true
}

func webinarForm(wb store.WebinarRow, speakers []store.Speaker) model.WebinarForm {
	ids := make([]int64, 0, len(speakers))
	for _, s := range speakers {
		ids = append(ids, s.ID)
	}
	return model.WebinarForm{
		Title:           wb.Title,
		Slug:            wb.Slug,
		Description:     wb.Description,
		StartAt:         wb.StartAt.UTC().Format(model.DateTimeInputLayout),
		DurationMinutes: wb.DurationMinutes,
		Price:           float64(wb.PriceCents) / 100,
		Capacity:        wb.Capacity,
		Status:          wb.Status,
		IsFeatured:      wb.IsFeatured,
		MeetingURL:      wb.MeetingUrl,
		RecordingURL:    wb.RecordingUrl,
		SpeakerIDs:      ids,
	}
}

// NewForm handles GET /dashboard/webinars/new.
func (h *WebinarsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	data, ok := h.formData(w, r, nil)
	if !ok {
		return
	}
	data.Form = model.WebinarForm{DurationMinutes: 60, Capacity: 100, Status: model.WebinarStatusUpcoming}
	renderPage(w, r, h.renderer, templateWebinarForm, data)
}

// Create handles POST /dashboard/webinars.
func (h *WebinarsHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, nil)
}

// EditForm handles GET /dashboard/webinars/{id}/edit.
func (h *WebinarsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	webinar, speakers, ok := h.load(w, r)
	if !ok {
		return
	}
	data, ok := h.formData(w, r, &webinar)
	if !ok {
		return
	}
	data.Form = webinarForm(webinar, speakers)
	renderPage(w, r, h.renderer, templateWebinarForm, data)
}

// Update handles POST /dashboard/webinars/{id}.
func (h *WebinarsHandler) Update(w http.ResponseWriter, r *http.Request) {
	webinar, _, ok := h.load(w, r)
	if !ok {
		return
	}
	h.save(w, r, &webinar)
}

func (h *WebinarsHandler) load(w http.ResponseWriter, r *http.Request) (store.WebinarRow, []store.Speaker, bool) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return store.WebinarRow{}, nil, false
	}
	webinar, speakers, err := h.svc.Webinars.Get(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		renderNotFound(w, r, h.renderer)
		return webinar, nil, false
	}
	if err != nil {
		logAndInternalError(w, "failed to load webinar", "error", err, "webinar_id", id)
		return webinar, nil, false
	}
	return webinar, speakers, true
}

// save creates a webinar when existing is nil and updates it otherwise.
func (h *WebinarsHandler) save(w http.ResponseWriter, r *http.Request, existing *store.WebinarRow) {
	back := redirectDashboardWebinars + RouteSuffixNew
	if existing != nil {
		back = webinarAdminURL(existing.ID) + "/edit"
	}

	var form model.WebinarForm
	if err := decodeForm(w, r, &form); err != nil {
		handleServiceError(w, r, h.renderer, back, "webinar", err)
		return
	}
	image, err := formFile(r, "featured_image")
	if err != nil {
		flashError(w, r, h.renderer, back, "Could not read the uploaded image")
		return
	}
	defer image.Close()

	user := middleware.GetUser(r)
	var webinar store.WebinarRow
	if existing == nil {
		webinar, err = h.svc.Webinars.Create(r.Context(), user.ID, form, image.Upload())
	} else {
		webinar, err = h.svc.Webinars.Update(r.Context(), existing.ID, form, image.Upload())
	}
	if err != nil {
		errs, isValidation := model.AsValidationErrors(err)
		if errors.Is(err, service.ErrStartInPast) {
			errs, isValidation = model.ValidationErrors{"start_at": err.Error()}, true
		}
		if !isValidation {
			handleServiceError(w, r, h.renderer, back, "webinar", err)
			return
		}
		data, ok := h.formData(w, r, existing)
		if !ok {
			return
		}
		data.Form = form
		renderInvalid(w, r, h.renderer, templateWebinarForm, data, errs)
		return
	}

	action := "created"
	if existing != nil {
		action = "updated"
	}
	slog.Info("webinar "+action, "webinar_id", webinar.ID, "slug", webinar.Slug, "user_id", user.ID)
	logEvent(r, h.svc.Events, model.EventCategoryWebinar, "Webinar "+action, map[string]any{"webinar_id": webinar.ID, "title": webinar.Title})
	flashSuccess(w, r, h.renderer, webinarAdminURL(webinar.ID), fmt.Sprintf("Webinar %q %s", webinar.Title, action))
}

// WebinarAdminData holds data for the dashboard webinar page.
type WebinarAdminData struct {
	Webinar   store.WebinarRow
	Speakers  []store.Speaker
	Resources []store.WebinarResource
	Counts    store.RegistrationCounts
	Statuses  []string
}

// Detail handles GET /dashboard/webinars/{id}.
func (h *WebinarsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	webinar, speakers, ok := h.load(w, r)
	if !ok {
		return
	}
	resources, err := h.svc.Resources.List(r.Context(), webinar.ID)
	if err != nil {
		logAndInternalError(w, "failed to list resources", "error", err, "webinar_id", webinar.ID)
		return
	}
	_, counts, err := h.svc.Registrations.ListForWebinar(r.Context(), webinar.ID, "")
	if err != nil {
		logAndInternalError(w, "failed to count registrations", "error", err, "webinar_id", webinar.ID)
		return
	}
	renderPage(w, r, h.renderer, templateWebinarAdmin, render.TemplateData{
		Title:       webinar.Title,
		Breadcrumbs: webinarCrumbs(nil, webinar.Title),
		Data: WebinarAdminData{
			Webinar:   webinar,
			Speakers:  speakers,
			Resources: resources,
			Counts:    counts,
			Statuses:  model.WebinarStatuses(),
		},
	})
}

// Delete handles POST /dashboard/webinars/{id}/delete.
func (h *WebinarsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err := h.svc.Webinars.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, h.renderer, redirectDashboardWebinars, "webinar", err)
		return
	}
	slog.Info("webinar deleted", "webinar_id", id, "deleted_by", middleware.GetUserID(r))
	logEvent(r, h.svc.Events, model.EventCategoryWebinar, "Webinar deleted", map[string]any{"webinar_id": id})
	flashSuccess(w, r, h.renderer, redirectDashboardWebinars, "Webinar deleted")
}

// SetStatus handles POST /dashboard/webinars/{id}/status. The stored status
// may differ from the one chosen when the clock disagrees.
func (h *WebinarsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	back := redirectBack(r, webinarAdminURL(id))
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}
	status, err := h.svc.Webinars.SetStatus(r.Context(), id, r.PostForm.Get("status"))
	if err != nil {
		handleServiceError(w, r, h.renderer, back, "webinar", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryWebinar, "Webinar status changed", map[string]any{"webinar_id": id, "status": status})
	flashSuccess(w, r, h.renderer, back, "Webinar is now "+status)
}

// RegistrationsData holds data for a webinar's registrations page.
type RegistrationsData struct {
	Webinar       store.WebinarRow
	Registrations []store.WebinarRegistration
	Counts        store.RegistrationCounts
	Status        string
	Statuses      []string
	Formats       []string
}

// Registrations handles GET /dashboard/webinars/{id}/registrations.
func (h *WebinarsHandler) Registrations(w http.ResponseWriter, r *http.Request) {
	webinar, _, ok := h.load(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	regs, counts, err := h.svc.Registrations.ListForWebinar(r.Context(), webinar.ID, status)
	if err != nil {
		logAndInternalError(w, "failed to list registrations", "error", err, "webinar_id", webinar.ID)
		return
	}
	renderPage(w, r, h.renderer, templateRegistrations, render.TemplateData{
		Title:       "Registrations",
		Breadcrumbs: webinarCrumbs(&webinar, "Registrations"),
		Data: RegistrationsData{
			Webinar:       webinar,
			Registrations: regs,
			Counts:        counts,
			Status:        status,
			Statuses:      []string{model.RegistrationPending, model.RegistrationConfirmed, model.RegistrationCancelled},
			Formats:       []string{service.FormatCSV, service.FormatNDJSON},
		},
	})
}

// ExportRegistrations handles GET /dashboard/webinars/{id}/registrations/export.
func (h *WebinarsHandler) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	webinar, _, ok := h.load(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = service.FormatCSV
	}
	if !service.ValidExport(service.DatasetRegistrations, format) {
		flashError(w, r, h.renderer, webinarAdminURL(webinar.ID)+"/registrations", "Unknown export format")
		return
	}
	streamExport(w, r, h.svc, service.DatasetRegistrations, format, webinar.ID)
}

// registration loads the {regID} registration and checks it belongs to the
// {id} webinar.
func (h *WebinarsHandler) registration(w http.ResponseWriter, r *http.Request) (store.WebinarRegistration, bool) {
	webinarID, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return store.WebinarRegistration{}, false
	}
	regID, err := ParseURLParamInt64(r, "regID")
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return store.WebinarRegistration{}, false
	}
	reg, err := h.svc.Registrations.Get(r.Context(), regID)
	if errors.Is(err, service.ErrNotFound) || (err == nil && reg.WebinarID != webinarID) {
		renderNotFound(w, r, h.renderer)
		return store.WebinarRegistration{}, false
	}
	if err != nil {
		logAndInternalError(w, "failed to load registration", "error", err, "registration_id", regID)
		return store.WebinarRegistration{}, false
	}
	return reg, true
}

func registrationsURL(webinarID int64) string {
	return webinarAdminURL(webinarID) + "/registrations"
}

// ConfirmRegistration handles POST /dashboard/webinars/{id}/registrations/{regID}/confirm.
func (h *WebinarsHandler) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.registration(w, r)
	if !ok {
		return
	}
	back := redirectBack(r, registrationsURL(reg.WebinarID))
	confirmed, err := h.svc.Registrations.Confirm(r.Context(), reg.ID)
	if err != nil {
		handleServiceError(w, r, h.renderer, back, "registration", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryRegistration, "Registration confirmed", map[string]any{
		"registration_id": reg.ID,
		"webinar_id":      reg.WebinarID,
	})
	flashSuccess(w, r, h.renderer, back, "Confirmed registration for "+confirmed.FullName)
}

// CancelRegistration handles POST /dashboard/webinars/{id}/registrations/{regID}/cancel.
func (h *WebinarsHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.registration(w, r)
	if !ok {
		return
	}
	back := redirectBack(r, registrationsURL(reg.WebinarID))
	cancelled, err := h.svc.Registrations.Cancel(r.Context(), reg.ID)
	if err != nil {
		handleServiceError(w, r, h.renderer, back, "registration", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryRegistration, "Registration cancelled", map[string]any{
		"registration_id": reg.ID,
		"webinar_id":      reg.WebinarID,
	})
	flashSuccess(w, r, h.renderer, back, "Cancelled registration for "+cancelled.FullName)
}

// MarkAttendance handles POST /dashboard/webinars/{id}/registrations/{regID}/attendance.
// The event field is either "joined" or "left"; only the first of each is kept.
func (h *WebinarsHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.registration(w, r)
	if !ok {
		return
	}
	back := redirectBack(r, registrationsURL(reg.WebinarID))
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}

	var (
		changed bool
		err     error
	)
	event := r.PostForm.Get("event")
	switch event {
	case "joined":
		changed, err = h.svc.Registrations.MarkJoined(r.Context(), reg.ID)
	case "left":
		changed, err = h.svc.Registrations.MarkLeft(r.Context(), reg.ID)
	default:
		flashError(w, r, h.renderer, back, "Unknown attendance event")
		return
	}
	if err != nil {
		handleServiceError(w, r, h.renderer, back, "registration", err)
		return
	}
	if !changed {
		flashAndRedirect(w, r, h.renderer, back, "Attendance was already recorded", "info")
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryRegistration, "Attendance recorded", map[string]any{
		"registration_id": reg.ID,
		"event":           event,
	})
	flashSuccess(w, r, h.renderer, back, fmt.Sprintf("Marked %s as %s", reg.FullName, event))
}

// PaymentProof handles GET /dashboard/webinars/{id}/registrations/{regID}/payment-proof.
// Proofs are never served from the public uploads route.
func (h *WebinarsHandler) PaymentProof(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.registration(w, r)
	if !ok {
		return
	}
	if reg.PaymentProof == "" {
		renderNotFound(w, r, h.renderer)
		return
	}
	full, err := util.SafeJoin(h.svc.Uploads.Dir(), reg.PaymentProof)
	if err != nil {
		slog.Warn("rejected payment proof path", "registration_id", reg.ID, "error", err)
		renderNotFound(w, r, h.renderer)
		return
	}
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("Content-Disposition", `inline; filename="`+util.DisplayFilename(path.Base(reg.PaymentProof), "payment-proof")+`"`)
	http.ServeFile(w, r, full)
}

// ResourcesData holds data for a webinar's resources page.
type ResourcesData struct {
	Webinar   store.WebinarRow
	Resources []store.WebinarResource
	Types     []string
}

// Resources handles GET /dashboard/webinars/{id}/resources.
func (h *WebinarsHandler) Resources(w http.ResponseWriter, r *http.Request) {
	webinar, _, ok := h.load(w, r)
	if !ok {
		return
	}
	h.renderResources(w, r, webinar, http.StatusOK, model.ResourceForm{ResourceType: model.ResourceDocument}, nil)
}

func (h *WebinarsHandler) renderResources(w http.ResponseWriter, r *http.Request, webinar store.WebinarRow, status int, form model.ResourceForm, errs model.ValidationErrors) {
	resources, err := h.svc.Resources.List(r.Context(), webinar.ID)
	if err != nil {
		logAndInternalError(w, "failed to list resources", "error", err, "webinar_id", webinar.ID)
		return
	}
	data := render.TemplateData{
		Title:       "Resources",
		Breadcrumbs: webinarCrumbs(&webinar, "Resources"),
		Data: ResourcesData{
			Webinar:   webinar,
			Resources: resources,
			Types:     model.ResourceTypes(),
		},
		Form: form,
	}
	if status == http.StatusUnprocessableEntity {
		renderInvalid(w, r, h.renderer, templateResources, data, errs)
		return
	}
	renderStatus(w, r, h.renderer, status, templateResources, data)
}

// AddResource handles POST /dashboard/webinars/{id}/resources.
func (h *WebinarsHandler) AddResource(w http.ResponseWriter, r *http.Request) {
	webinar, _, ok := h.load(w, r)
	if !ok {
		return
	}
	back := webinarAdminURL(webinar.ID) + "/resources"

	var form model.ResourceForm
	if err := decodeForm(w, r, &form); err != nil {
		handleServiceError(w, r, h.renderer, back, "resource", err)
		return
	}
	file, err := formFile(r, "file")
	if err != nil {
		flashError(w, r, h.renderer, back, "Could not read the uploaded file")
		return
	}
	defer file.Close()
	form.HasFile = file != nil

	res, err := h.svc.Resources.Add(r.Context(), webinar.ID, form, file.Upload())
	if err != nil {
		if errs, ok := model.AsValidationErrors(err); ok {
			h.renderResources(w, r, webinar, http.StatusUnprocessableEntity, form, errs)
			return
		}
		handleServiceError(w, r, h.renderer, back, "resource", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryWebinar, "Resource added", map[string]any{
		"webinar_id":  webinar.ID,
		"resource_id": res.ID,
	})
	flashSuccess(w, r, h.renderer, back, fmt.Sprintf("Resource %q added", res.Title))
}

// DeleteResource handles POST /dashboard/webinars/{id}/resources/{resourceID}/delete.
func (h *WebinarsHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	webinarID, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	resourceID, err := ParseURLParamInt64(r, "resourceID")
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	back := webinarAdminURL(webinarID) + "/resources"
	if err := h.svc.Resources.Delete(r.Context(), webinarID, resourceID); err != nil {
		handleServiceError(w, r, h.renderer, back, "resource", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryWebinar, "Resource deleted", map[string]any{
		"webinar_id":  webinarID,
		"resource_id": resourceID,
	})
	flashSuccess(w, r, h.renderer, back, "Resource deleted")
}
