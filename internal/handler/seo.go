// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/thinkspace/internal/service"
)

// SEOHandler serves sitemap.xml and robots.txt.
type SEOHandler struct {
	sitemap *service.SitemapService
}

// NewSEOHandler creates an SEOHandler.
func NewSEOHandler(svc Services) *SEOHandler {
	return &SEOHandler{sitemap: svc.Sitemap}
}

// Sitemap handles GET /sitemap.xml.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	out, err := h.sitemap.Sitemap(r.Context())
	if err != nil {
		slog.Error("failed to build sitemap", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(out)
}

// Robots handles GET /robots.txt.
func (h *SEOHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write([]byte(h.sitemap.Robots()))
}
