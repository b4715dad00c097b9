// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers for the public site, the
// account pages and the staff dashboard.
package handler

import (
	"net/http"

	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/service"
)

// Services bundles the domain services the handlers depend on.
type Services struct {
	Blogs         *service.BlogService
	Comments      *service.CommentService
	Webinars      *service.WebinarService
	Resources     *service.ResourceService
	Speakers      *service.SpeakerService
	Taxonomy      *service.TaxonomyService
	Registrations *service.RegistrationService
	Users         *service.UserService
	Events        *service.EventService
	Stats         *service.StatsService
	Search        *service.SearchService
	Export        *service.ExportService
	Uploads       *service.UploadService
	Sitemap       *service.SitemapService
}

// eventSource describes the request for an event log entry.
func eventSource(r *http.Request) service.EventSource {
	return service.EventSource{
		UserID:    middleware.GetUserID(r),
		IPAddress: middleware.ClientIP(r),
		URL:       r.URL.Path,
	}
}

// logEvent records an info event, ignoring failures the service already logged.
func logEvent(r *http.Request, events *service.EventService, category, message string, metadata map[string]any) {
	if events == nil {
		return
	}
	_ = events.LogInfo(r.Context(), category, message, eventSource(r), metadata)
}
