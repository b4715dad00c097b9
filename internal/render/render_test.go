// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": {Data: []byte(
			`{{define "base"}}<title>{{.Title}}</title>{{template "flash" .}}{{if .User}}<b>{{.User.Email}}</b>{{end}}{{template "content" .}}{{end}}`)},
		"layouts/dashboard.html": {Data: []byte(
			`{{define "base"}}<nav>dashboard</nav>{{if .Impersonating}}<i>as {{.User.Email}}</i>{{end}}{{template "content" .}}{{end}}`)},
		"partials/flash.html": {Data: []byte(
			`{{define "flash"}}{{if .Flash}}<p class="{{.FlashType}}">{{.Flash}}</p>{{end}}{{end}}`)},
		"public/home.html": {Data: []byte(
			`{{define "content"}}<h1>{{.Data}}</h1>{{with .Errors}}{{.title}}{{end}}{{end}}`)},
		"dashboard/index.html": {Data: []byte(
			`{{define "content"}}{{money 1999}} {{statusBadge "live"}}{{end}}`)},
	}
}

func TestNewParsesPages(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, name := range []string{"public/home", "dashboard/index"} {
		if !r.Has(name) {
			t.Errorf("template %s not parsed", name)
		}
	}
	if r.Has("partials/flash") {
		t.Error("partials should not be pages")
	}
}

func TestNewReportsParseErrors(t *testing.T) {
	fsys := testFS()
	fsys["public/broken.html"] = &fstest.MapFile{Data: []byte(`{{define "content"}}{{if}}{{end}}`)}
	if _, err := New(Config{TemplatesFS: fsys}); err == nil {
		t.Error("expected parse error")
	}
}

func TestRender(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	user := store.User{ID: 7, Email: "ada@example.com"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.ContextKeyUser, user))
	rr := httptest.NewRecorder()

	errs := model.ValidationErrors{}
	errs.Add("title", "Title is required")
	err = r.Render(rr, req, "public/home", TemplateData{
		Title:  "Home <1>",
		Data:   "Welcome",
		Flash:  "Saved",
		Errors: errs,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	body := rr.Body.String()
	for _, want := range []string{
		"<title>Home &lt;1&gt;</title>",
		`<p class="">Saved</p>`,
		"<b>ada@example.com</b>",
		"<h1>Welcome</h1>",
		"Title is required",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRenderStatusAndImpersonation(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUser, store.User{ID: 2, Email: "ada@example.com"})
	ctx = context.WithValue(ctx, middleware.ContextKeyImpersonator, store.User{ID: 1, Email: "root@example.com"})
	rr := httptest.NewRecorder()

	if err := r.RenderStatus(rr, req.WithContext(ctx), http.StatusTeapot, "dashboard/index", TemplateData{}); err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"<nav>dashboard</nav>", "<i>as ada@example.com</i>", "$19.99", "badge badge-live"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := r.Render(rr, req, "public/missing", TemplateData{}); err == nil {
		t.Error("expected error for unknown template")
	}
	if rr.Body.Len() != 0 {
		t.Errorf("nothing should be written, got %q", rr.Body.String())
	}
}

func TestRenderDevReparses(t *testing.T) {
	fsys := testFS()
	r, err := New(Config{TemplatesFS: fsys, IsDev: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fsys["public/about.html"] = &fstest.MapFile{Data: []byte(`{{define "content"}}about{{end}}`)}

	rr := httptest.NewRecorder()
	if err := r.Render(rr, httptest.NewRequest(http.MethodGet, "/about", nil), "public/about", TemplateData{}); err != nil {
		t.Fatalf("Render after adding a page: %v", err)
	}
}

func TestTemplateFuncs(t *testing.T) {
	funcs := templateFuncs()
	for _, name := range []string{
		"formatDate", "formatDateTime", "money", "truncate", "countryName",
		"statusBadge", "upload", "add", "sub", "seq",
	} {
		if _, ok := funcs[name]; !ok {
			t.Errorf("missing template func %q", name)
		}
	}

	date := time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)
	if got := formatDate(date); got != "Jan 15, 2026" {
		t.Errorf("formatDate = %q", got)
	}
	if got := formatDateTime(date); got != "Jan 15, 2026 2:30 PM" {
		t.Errorf("formatDateTime = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		length int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer sentence", 8, "a longer..."},
		{"héllo wörld", 5, "héllo..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.length); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.length, got, tt.want)
		}
	}
}

func TestStatusBadge(t *testing.T) {
	tests := map[string]string{
		model.BlogStatusPublished:    "badge badge-success",
		model.BlogStatusDraft:        "badge badge-warning",
		model.RegistrationPending:    "badge badge-warning",
		model.WebinarStatusCancelled: "badge badge-danger",
		model.WebinarStatusUpcoming:  "badge badge-info",
		"something-else":             "badge",
	}
	for status, want := range tests {
		if got := statusBadge(status); got != want {
			t.Errorf("statusBadge(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestUploadURL(t *testing.T) {
	tests := map[string]string{
		"":                          "",
		"blog/a.jpg":                "/uploads/blog/a.jpg",
		"/speakers/b.png":           "/uploads/speakers/b.png",
		"https://cdn.example/x.png": "https://cdn.example/x.png",
	}
	for in, want := range tests {
		if got := uploadURL(in); got != want {
			t.Errorf("uploadURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{int64(512), "512 B"},
		{int64(2048), "2.0 KiB"},
		{uint64(5 << 20), "5.0 MiB"},
		{"n/a", "n/a"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.in); got != tt.want {
			t.Errorf("humanBytes(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
