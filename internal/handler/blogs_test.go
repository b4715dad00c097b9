// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/service"
)

const (
	patternBlogs    = RouteDashboard + RouteBlogs
	patternBlogID   = patternBlogs + "/{id}"
	patternBlogEdit = patternBlogID + "/edit"
)

func TestBlogsCreate(t *testing.T) {
	app := newTestApp(t)
	h := NewBlogsHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")

	rec := app.serve(patternBlogs+RouteSuffixNew, h.NewForm, get(patternBlogs+RouteSuffixNew), &staff)
	assertStatus(t, rec.Code, http.StatusOK)

	tests := []struct {
		name       string
		values     url.Values
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing title",
			values:     url.Values{"content": {"Body"}, "status": {model.BlogStatusDraft}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "publish without verification",
			values:     url.Values{"title": {"Too Soon"}, "content": {"Body"}, "status": {model.BlogStatusPublished}},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   service.ErrPublishUnverified.Error(),
		},
		{
			name:       "draft with tags",
			values:     url.Values{"title": {"First Draft"}, "content": {"Body"}, "status": {model.BlogStatusDraft}, "tags": {"go, web"}},
			wantStatus: http.StatusSeeOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(patternBlogs, h.Create, postForm(patternBlogs, tt.values), &staff)
			assertStatus(t, rec.Code, tt.wantStatus)
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q", tt.wantBody)
			}
		})
	}

	if n := app.countRows(t, "blogs", "title = ? AND author_id = ?", "First Draft", staff.ID); n != 1 {
		t.Fatalf("created blogs = %d; want 1", n)
	}
	if n := app.countRows(t, "blog_tags", "blog_id = (SELECT id FROM blogs WHERE title = ?)", "First Draft"); n != 2 {
		t.Errorf("tags = %d; want 2", n)
	}
	if n := app.countRows(t, "blogs", "title = ?", "Too Soon"); n != 0 {
		t.Error("unverified published blog was stored")
	}
}

func TestBlogsEditAndUpdate(t *testing.T) {
	app := newTestApp(t)
	h := NewBlogsHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")
	blog := app.publishedBlog(t, staff.ID, "Original")
	target := fmt.Sprintf("%s/%d", patternBlogs, blog.ID)

	rec := app.serve(patternBlogEdit, h.EditForm, get(target+"/edit"), &staff)
	assertStatus(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `value="Original"`) {
		t.Error("edit form not populated")
	}

	rec = app.serve(patternBlogEdit, h.EditForm, get(patternBlogs+"/999/edit"), &staff)
	assertStatus(t, rec.Code, http.StatusNotFound)

	rec = app.serve(patternBlogID, h.Update, postForm(target, url.Values{
		"title":          {"Renamed"},
		"slug":           {blog.Slug},
		"content":        {"New body"},
		"status":         {model.BlogStatusPublished},
		"is_verified":    {"true"},
		"allow_comments": {"true"},
	}), &staff)
	assertRedirect(t, rec, patternBlogs)

	updated, _, err := app.svc.Blogs.Get(context.Background(), blog.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Renamed" || updated.Content != "New body" {
		t.Errorf("blog not updated: %q / %q", updated.Title, updated.Content)
	}
}

func TestBlogsVerifyPublishDelete(t *testing.T) {
	app := newTestApp(t)
	h := NewBlogsHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")
	draft, err := app.svc.Blogs.Create(context.Background(), staff.ID, model.BlogForm{
		Title:   "Needs Review",
		Content: "Body",
		Status:  model.BlogStatusDraft,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	base := fmt.Sprintf("%s/%d", patternBlogs, draft.ID)

	rec := app.serve(patternBlogID+"/publish", h.Publish, postForm(base+"/publish", nil), &staff)
	assertRedirect(t, rec, patternBlogs)
	if n := app.countRows(t, "blogs", "id = ? AND status = ?", draft.ID, model.BlogStatusDraft); n != 1 {
		t.Fatal("unverified blog was published")
	}

	req := postForm(base+"/verify", url.Values{"verified": {"true"}})
	req.Header.Set("Referer", "/dashboard/blogs?status=draft")
	rec = app.serve(patternBlogID+"/verify", h.Verify, req, &staff)
	assertRedirect(t, rec, "/dashboard/blogs?status=draft")
	if n := app.countRows(t, "blogs", "id = ? AND is_verified = 1", draft.ID); n != 1 {
		t.Fatal("blog not verified")
	}

	rec = app.serve(patternBlogID+"/publish", h.Publish, postForm(base+"/publish", nil), &staff)
	assertRedirect(t, rec, patternBlogs)
	if n := app.countRows(t, "blogs", "id = ? AND status = ? AND published_at IS NOT NULL", draft.ID, model.BlogStatusPublished); n != 1 {
		t.Fatal("blog not published")
	}

	// Unverifying takes it offline again.
	rec = app.serve(patternBlogID+"/verify", h.Verify, postForm(base+"/verify", url.Values{"verified": {"false"}}), &staff)
	assertRedirect(t, rec, patternBlogs)
	if n := app.countRows(t, "blogs", "id = ? AND status = ?", draft.ID, model.BlogStatusDraft); n != 1 {
		t.Error("unverified blog stayed published")
	}

	rec = app.serve(patternBlogID+"/delete", h.Delete, postForm(base+"/delete", nil), &staff)
	assertRedirect(t, rec, patternBlogs)
	if n := app.countRows(t, "blogs", "id = ?", draft.ID); n != 0 {
		t.Error("blog not deleted")
	}

	rec = app.serve(patternBlogID+"/delete", h.Delete, postForm(base+"/delete", nil), &staff)
	assertRedirect(t, rec, patternBlogs)
}

func TestBlogsList(t *testing.T) {
	app := newTestApp(t)
	h := NewBlogsHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")
	app.publishedBlog(t, staff.ID, "Listed Post")

	for _, target := range []string{
		patternBlogs,
		patternBlogs + "?status=published&verified=yes",
		patternBlogs + "?status=bogus&verified=maybe",
	} {
		rec := app.serve(patternBlogs, h.List, get(target), &staff)
		assertStatus(t, rec.Code, http.StatusOK)
		if !strings.Contains(rec.Body.String(), "Listed Post") {
			t.Errorf("%s: list missing the post", target)
		}
	}

	rec := app.serve(patternBlogs, h.List, get(patternBlogs+"?status=draft"), &staff)
	assertStatus(t, rec.Code, http.StatusOK)
	if strings.Contains(rec.Body.String(), "Listed Post") {
		t.Error("draft filter should hide the published post")
	}
}
