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

// SpeakersHandler handles speaker management.
type SpeakersHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	svc            Services
}

// NewSpeakersHandler creates a new SpeakersHandler.
func NewSpeakersHandler(renderer *render.Renderer, sm *scs.SessionManager, svc Services) *SpeakersHandler {
	return &SpeakersHandler{
		renderer:       renderer,
		sessionManager: sm,
		svc:            svc,
	}
}

// SpeakersListData holds data for the speakers list.
type SpeakersListData struct {
	Speakers   []store.SpeakerRow
	Query      string
	ActiveOnly bool
}

// List handles GET /dashboard/speakers.
func (h *SpeakersHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	activeOnly := r.URL.Query().Get("active") == "1"
	speakers, err := h.svc.Speakers.List(r.Context(), query, activeOnly)
	if err != nil {
		logAndInternalError(w, "failed to list speakers", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateSpeakers, render.TemplateData{
		Title:       "Speakers",
		Breadcrumbs: dashboardCrumbs("Speakers"),
		Data: SpeakersListData{
			Speakers:   speakers,
			Query:      query,
			ActiveOnly: activeOnly,
		},
	})
}

func speakerFormData(sp *store.Speaker) render.TemplateData {
	title := "New speaker"
	if sp != nil {
		title = "Edit speaker"
	}
	return render.TemplateData{
		Title: title,
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Dashboard", URL: redirectDashboard},
			{Label: "Speakers", URL: redirectDashboardSpeakers},
			{Label: title},
		},
		Data: sp,
	}
}

// NewForm handles GET /dashboard/speakers/new.
func (h *SpeakersHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	data := speakerFormData(nil)
	data.Form = model.SpeakerForm{IsActive: true}
	renderPage(w, r, h.renderer, templateSpeakerForm, data)
}

// EditForm handles GET /dashboard/speakers/{id}/edit.
func (h *SpeakersHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	sp, ok := h.load(w, r)
	if !ok {
		return
	}
	data := speakerFormData(&sp)
	data.Form = model.SpeakerForm{
		Name:     sp.Name,
		Slug:     sp.Slug,
		Title:    sp.Title,
		Bio:      sp.Bio,
		Website:  sp.Website,
		Twitter:  sp.Twitter,
		Linkedin: sp.Linkedin,
		Email:    sp.Email,
		IsActive: sp.IsActive,
	}
	renderPage(w, r, h.renderer, templateSpeakerForm, data)
}

func (h *SpeakersHandler) load(w http.ResponseWriter, r *http.Request) (store.Speaker, bool) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return store.Speaker{}, false
	}
	sp, err := h.svc.Speakers.Get(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		renderNotFound(w, r, h.renderer)
		return sp, false
	}
	if err != nil {
		logAndInternalError(w, "failed to load speaker", "error", err, "speaker_id", id)
		return sp, false
	}
	return sp, true
}

// Create handles POST /dashboard/speakers.
func (h *SpeakersHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, nil)
}

// Update handles POST /dashboard/speakers/{id}.
func (h *SpeakersHandler) Update(w http.ResponseWriter, r *http.Request) {
	sp, ok := h.load(w, r)
	if !ok {
		return
	}
	h.save(w, r, &sp)
}

func (h *SpeakersHandler) save(w http.ResponseWriter, r *http.Request, existing *store.Speaker) {
	var id int64
	back := redirectDashboardSpeakers + RouteSuffixNew
	if existing != nil {
		id = existing.ID
		back = fmt.Sprintf("%s/%d/edit", redirectDashboardSpeakers, id)
	}

	var form model.SpeakerForm
	if err := decodeForm(w, r, &form); err != nil {
		handleServiceError(w, r, h.renderer, back, "speaker", err)
		return
	}
	photo, err := formFile(r, "photo")
	if err != nil {
		flashError(w, r, h.renderer, back, "Could not read the uploaded photo")
		return
	}
	defer photo.Close()

	sp, err := h.svc.Speakers.Save(r.Context(), id, form, photo.Upload(), r.PostForm.Get("remove_photo") == "on")
	if err != nil {
		if errs, ok := model.AsValidationErrors(err); ok {
			data := speakerFormData(existing)
			data.Form = form
			renderInvalid(w, r, h.renderer, templateSpeakerForm, data, errs)
			return
		}
		handleServiceError(w, r, h.renderer, back, "speaker", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryWebinar, "Speaker saved", map[string]any{"speaker_id": sp.ID, "name": sp.Name})
	flashSuccess(w, r, h.renderer, redirectDashboardSpeakers, fmt.Sprintf("Speaker %q saved", sp.Name))
}

// Delete handles POST /dashboard/speakers/{id}/delete.
func (h *SpeakersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err := h.svc.Speakers.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, h.renderer, redirectDashboardSpeakers, "speaker", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryWebinar, "Speaker deleted", map[string]any{"speaker_id": id})
	flashSuccess(w, r, h.renderer, redirectDashboardSpeakers, "Speaker deleted")
}
