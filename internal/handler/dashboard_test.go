// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/testutil"
)

func TestDashboardPagesRender(t *testing.T) {
	app := newTestApp(t)
	h := NewDashboardHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")
	app.publishedBlog(t, staff.ID, "Counted")
	testutil.CreateWebinar(t, app.q, "counted-talk", time.Time{}, 5, 0)
	logEventForTest(t, app, staff.ID, "Something happened")

	tests := []struct {
		name     string
		target   string
		handler  http.HandlerFunc
		wantBody string
	}{
		{"index", RouteDashboard, h.Index, "Dashboard"},
		{"export", RouteDashboard + RouteExport, h.Export, service.DatasetBlogs},
		{"activity", RouteDashboard + "/activity", h.Activity, "Something happened"},
		{"activity filtered", RouteDashboard + "/activity?level=error", h.Activity, "Activity"},
		{"system status", RouteDashboard + "/system-status", h.SystemStatus, "test"},
		{"empty search", RouteDashboard + "/search", h.Search, "Search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, _, _ := strings.Cut(tt.target, "?")
			rec := app.serve(path, tt.handler, get(tt.target), &staff)
			assertStatus(t, rec.Code, http.StatusOK)
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q", tt.wantBody)
			}
		})
	}
}

func logEventForTest(t *testing.T, app *testApp, userID int64, message string) {
	t.Helper()
	if err := app.svc.Events.LogInfo(context.Background(), model.EventCategorySystem, message, service.EventSource{UserID: userID}, nil); err != nil {
		t.Fatalf("LogInfo: %v", err)
	}
}

func TestDashboardSearchHidesUsersFromStaff(t *testing.T) {
	app := newTestApp(t)
	h := NewDashboardHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")
	admin := app.superuser(t, "admin@example.com")
	app.user(t, "gopher.fan@example.com")
	app.publishedBlog(t, staff.ID, "Gopher Tales")

	target := RouteDashboard + "/search?q=gopher"

	rec := app.serve(RouteDashboard+"/search", h.Search, get(target), &staff)
	assertStatus(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	if !strings.Contains(body, "Gopher Tales") {
		t.Error("staff search missing the blog")
	}
	if strings.Contains(body, "gopher.fan@example.com") {
		t.Error("staff search must not list users")
	}

	rec = app.serve(RouteDashboard+"/search", h.Search, get(target), &admin)
	assertStatus(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "gopher.fan@example.com") {
		t.Error("superuser search missing the user")
	}
}

func TestExportDownload(t *testing.T) {
	app := newTestApp(t)
	h := NewDashboardHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")
	admin := app.superuser(t, "admin@example.com")
	app.publishedBlog(t, staff.ID, "Exported Post")
	pattern := RouteDashboard + RouteExport + "/download"

	t.Run("blogs csv", func(t *testing.T) {
		rec := app.serve(pattern, h.ExportDownload, get(pattern+"?dataset=blogs&format=csv"), &staff)
		assertStatus(t, rec.Code, http.StatusOK)
		if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, `attachment; filename="blogs-`) {
			t.Errorf("Content-Disposition = %q", cd)
		}
		rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
		if err != nil {
			t.Fatalf("parsing csv: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("rows = %d; want header plus one blog", len(rows))
		}
		if !strings.Contains(strings.Join(rows[1], ","), "Exported Post") {
			t.Errorf("blog row = %v", rows[1])
		}
	})

	t.Run("users need a superuser", func(t *testing.T) {
		rec := app.serve(pattern, h.ExportDownload, get(pattern+"?dataset=users&format=ndjson"), &staff)
		assertStatus(t, rec.Code, http.StatusForbidden)

		rec = app.serve(pattern, h.ExportDownload, get(pattern+"?dataset=users&format=ndjson"), &admin)
		assertStatus(t, rec.Code, http.StatusOK)
		if !strings.Contains(rec.Body.String(), "admin@example.com") {
			t.Error("users export missing the admin")
		}
	})

	t.Run("unknown dataset", func(t *testing.T) {
		rec := app.serve(pattern, h.ExportDownload, get(pattern+"?dataset=passwords"), &admin)
		assertRedirect(t, rec, RouteDashboard+RouteExport)
	})

	t.Run("registrations are exported per webinar", func(t *testing.T) {
		rec := app.serve(pattern, h.ExportDownload, get(pattern+"?dataset=registrations"), &admin)
		assertRedirect(t, rec, RouteDashboard+RouteExport)
	})
}
