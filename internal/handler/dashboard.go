// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/store"
)

// DashboardHandler serves the dashboard home and its site-wide tools.
type DashboardHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	svc            Services
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(renderer *render.Renderer, sm *scs.SessionManager, svc Services) *DashboardHandler {
	return &DashboardHandler{
		renderer:       renderer,
		sessionManager: sm,
		svc:            svc,
	}
}

func dashboardCrumbs(label string) []render.Breadcrumb {
	return []render.Breadcrumb{
		{Label: "Dashboard", URL: redirectDashboard},
		{Label: label},
	}
}

// Index renders the dashboard home with the site totals.
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats.Dashboard(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to load dashboard stats", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateDashboard, render.TemplateData{
		Title:       "Dashboard",
		Breadcrumbs: []render.Breadcrumb{{Label: "Dashboard"}},
		Data:        stats,
	})
}

// Search handles GET /dashboard/search. Users are only searched for superusers.
func (h *DashboardHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	results, err := h.svc.Search.Search(r.Context(), r.URL.Query().Get("q"), user.IsSuperuser)
	if err != nil {
		logAndInternalError(w, "search failed", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateSearch, render.TemplateData{
		Title:       "Search",
		Breadcrumbs: dashboardCrumbs("Search"),
		Data:        results,
	})
}

// ExportData lists what the current user may export.
type ExportData struct {
	Datasets []string
	Formats  []string
}

// Export renders the export page.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	datasets := []string{service.DatasetBlogs, service.DatasetWebinars}
	if middleware.GetUser(r).IsSuperuser {
		datasets = append([]string{service.DatasetUsers}, datasets...)
	}
	renderPage(w, r, h.renderer, templateExport, render.TemplateData{
		Title:       "Export data",
		Breadcrumbs: dashboardCrumbs("Export"),
		Data: ExportData{
			Datasets: datasets,
			Formats:  []string{service.FormatCSV, service.FormatNDJSON},
		},
	})
}

// ExportDownload handles GET /dashboard/export/download?dataset=&format=.
// Registrations are exported from the webinar's registrations page.
func (h *DashboardHandler) ExportDownload(w http.ResponseWriter, r *http.Request) {
	dataset := r.URL.Query().Get("dataset")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = service.FormatCSV
	}
	if dataset == service.DatasetRegistrations || !service.ValidExport(dataset, format) {
		flashError(w, r, h.renderer, redirectDashboard+RouteExport, "Choose a dataset and a format to export")
		return
	}
	if dataset == service.DatasetUsers && !middleware.GetUser(r).IsSuperuser {
		http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
		return
	}
	streamExport(w, r, h.svc, dataset, format, 0)
}

// streamExport writes an export as an attachment. Headers are sent before
// the rows, so a failure part-way is only logged.
func streamExport(w http.ResponseWriter, r *http.Request, svc Services, dataset, format string, webinarID int64) {
	filename := service.ExportFilename(dataset, format, time.Now().UTC())
	w.Header().Set("Content-Type", service.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
	if err := svc.Export.Export(r.Context(), w, dataset, format, webinarID); err != nil {
		slog.Error("export failed", "error", err, "dataset", dataset, "format", format)
		return
	}
	logEvent(r, svc.Events, model.EventCategorySystem, "Data exported", map[string]any{
		"dataset":    dataset,
		"format":     format,
		"webinar_id": webinarID,
	})
}

// ActivityData holds data for the activity log.
type ActivityData struct {
	Page       service.Page[store.EventRow]
	Pagination Pagination
	Filter     store.EventFilter
	Levels     []string
	Categories []string
}

// Activity renders the event log, newest first.
func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	filter := store.EventFilter{
		Level:    r.URL.Query().Get("level"),
		Category: r.URL.Query().Get("category"),
	}
	page, err := h.svc.Events.List(r.Context(), filter, ParsePageParam(r))
	if err != nil {
		logAndInternalError(w, "failed to list events", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateActivity, render.TemplateData{
		Title:       "Activity",
		Breadcrumbs: dashboardCrumbs("Activity"),
		Data: ActivityData{
			Page:       page,
			Pagination: paginate(r, page),
			Filter:     filter,
			Levels:     model.EventLevels(),
			Categories: model.EventCategories(),
		},
	})
}

// SystemStatus renders runtime, storage and cache figures.
func (h *DashboardHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, templateSystemStatus, render.TemplateData{
		Title:       "System status",
		Breadcrumbs: dashboardCrumbs("System status"),
		Data:        h.svc.Stats.SystemStatus(r.Context()),
	})
}
