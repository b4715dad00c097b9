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
	patternDashComments  = RouteDashboard + RouteComments
	patternDashCommentID = patternDashComments + "/{id}"
)

func TestCommentsList(t *testing.T) {
	app := newTestApp(t)
	h := NewCommentsHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")
	member := app.user(t, "member@example.com")
	blog := app.publishedBlog(t, staff.ID, "Discussed")
	app.approvedComment(t, blog.ID, staff, "Staff reply already live")
	if _, err := app.svc.Comments.Add(context.Background(), blog.ID, service.Commenter{ID: member.ID}, model.CommentForm{Content: "Waiting for review"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		target   string
		want     string
		dontWant string
	}{
		{"pending by default", patternDashComments, "Waiting for review", "Staff reply already live"},
		{"approved", patternDashComments + "?approved=yes", "Staff reply already live", "Waiting for review"},
		{"all", patternDashComments + "?approved=all", "Staff reply already live", ""},
		{"search", patternDashComments + "?approved=&q=review", "Waiting for review", "Staff reply already live"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(patternDashComments, h.List, get(tt.target), &staff)
			assertStatus(t, rec.Code, http.StatusOK)
			body := rec.Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
			if tt.dontWant != "" && strings.Contains(body, tt.dontWant) {
				t.Errorf("body should not contain %q", tt.dontWant)
			}
			if !strings.Contains(body, "1 awaiting approval") {
				t.Error("pending count missing")
			}
		})
	}
}

func TestCommentsModeration(t *testing.T) {
	app := newTestApp(t)
	h := NewCommentsHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")
	blog := app.publishedBlog(t, staff.ID, "Moderated")
	id := app.approvedComment(t, blog.ID, staff, "Visible")
	base := fmt.Sprintf("%s/%d", patternDashComments, id)

	rec := app.serve(patternDashCommentID+"/approve", h.Approve, postForm(base+"/approve", url.Values{"approved": {"false"}}), &staff)
	assertRedirect(t, rec, patternDashComments)
	if n := app.countRows(t, "comments", "id = ? AND is_approved = 0", id); n != 1 {
		t.Fatal("comment not hidden")
	}

	req := postForm(base+"/approve", url.Values{"approved": {"true"}})
	req.Header.Set("Referer", "/dashboard/comments?approved=no")
	rec = app.serve(patternDashCommentID+"/approve", h.Approve, req, &staff)
	assertRedirect(t, rec, "/dashboard/comments?approved=no")
	if n := app.countRows(t, "comments", "id = ? AND is_approved = 1", id); n != 1 {
		t.Fatal("comment not approved")
	}

	rec = app.serve(patternDashCommentID+"/approve", h.Approve, postForm(patternDashComments+"/999/approve", nil), &staff)
	assertRedirect(t, rec, patternDashComments)

	reply, err := app.svc.Comments.Add(context.Background(), blog.ID, service.Commenter{ID: staff.ID, IsStaff: true},
		model.CommentForm{Content: "A reply", ParentID: id})
	if err != nil || !reply {
		t.Fatalf("adding reply: visible=%v err=%v", reply, err)
	}

	rec = app.serve(patternDashCommentID+"/delete", h.Delete, postForm(base+"/delete", nil), &staff)
	assertRedirect(t, rec, patternDashComments)
	if n := app.countRows(t, "comments", "blog_id = ?", blog.ID); n != 0 {
		t.Errorf("comments left after delete = %d; want 0", n)
	}

	rec = app.serve(patternDashCommentID+"/delete", h.Delete, postForm(patternDashComments+"/abc/delete", nil), &staff)
	assertStatus(t, rec.Code, http.StatusNotFound)
}
