// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/testutil"
)

const (
	patternBlogDetail   = RouteBlog + "/{slug}"
	patternComments     = RouteBlog + "/{slug}/comments"
	patternLike         = RouteBlog + "/{slug}/comments/{id}/like"
	patternWebinar      = RouteWebinar + "/{slug}"
	patternRegister     = RouteWebinar + "/{slug}/register"
	patternConfirmation = RouteWebinar + "/{slug}/register/confirmation/{id}"
	patternJoin         = RouteWebinar + "/{slug}/join"
)

func get(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestHomeAndAbout(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	author := app.staff(t, "author@example.com")
	app.publishedBlog(t, author.ID, "Hello Readers")
	testutil.CreateWebinar(t, app.q, "intro-to-go", time.Time{}, 10, 0)

	rec := app.serve(RouteRoot, h.Home, get(RouteRoot), nil)
	assertStatus(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	for _, want := range []string{"Hello Readers", "/webinars/intro-to-go"} {
		if !strings.Contains(body, want) {
			t.Errorf("home page missing %q", want)
		}
	}

	rec = app.serve("/about", h.About, get("/about"), nil)
	assertStatus(t, rec.Code, http.StatusOK)
}

func TestBlogListShowsOnlyPublished(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	author := app.staff(t, "author@example.com")
	app.publishedBlog(t, author.ID, "Visible Post")
	if _, err := app.svc.Blogs.Create(context.Background(), author.ID, model.BlogForm{
		Title:   "Secret Draft",
		Content: "Not yet",
		Status:  model.BlogStatusDraft,
	}, nil); err != nil {
		t.Fatal(err)
	}

	rec := app.serve(RouteBlog, h.BlogList, get(RouteBlog), nil)
	assertStatus(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	if !strings.Contains(body, "Visible Post") {
		t.Error("published post missing from the list")
	}
	if strings.Contains(body, "Secret Draft") {
		t.Error("draft post leaked into the public list")
	}

	rec = app.serve(RouteBlog, h.BlogList, get(RouteBlog+"?q=nomatch"), nil)
	assertStatus(t, rec.Code, http.StatusOK)
	if strings.Contains(rec.Body.String(), "Visible Post") {
		t.Error("search should have filtered the post out")
	}
}

func TestBlogDetail(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	author := app.staff(t, "author@example.com")
	blog := app.publishedBlog(t, author.ID, "Deep Dive")
	app.approvedComment(t, blog.ID, author, "First!")

	rec := app.serve(patternBlogDetail, h.BlogDetail, get(RouteBlog+"/"+blog.Slug), nil)
	assertStatus(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	for _, want := range []string{"Deep Dive", "First!", "/login?next="} {
		if !strings.Contains(body, want) {
			t.Errorf("blog page missing %q", want)
		}
	}
	if n := app.countRows(t, "blogs", "id = ? AND views = 1", blog.ID); n != 1 {
		t.Error("expected the view to be counted")
	}

	rec = app.serve(patternBlogDetail, h.BlogDetail, get(RouteBlog+"/no-such-post"), nil)
	assertStatus(t, rec.Code, http.StatusNotFound)
}

func TestAddComment(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	author := app.staff(t, "author@example.com")
	member := app.user(t, "member@example.com")
	blog := app.publishedBlog(t, author.ID, "Discuss")
	target := RouteBlog + "/" + blog.Slug + "/comments"
	back := RouteBlog + "/" + blog.Slug + "#comments"

	t.Run("member comment waits for moderation", func(t *testing.T) {
		rec := app.serve(patternComments, h.AddComment, postForm(target, url.Values{"content": {"Nice post"}}), &member)
		assertRedirect(t, rec, back)
		if n := app.countRows(t, "comments", "user_id = ? AND is_approved = 0", member.ID); n != 1 {
			t.Errorf("pending member comments = %d; want 1", n)
		}
	})

	t.Run("staff comment is visible", func(t *testing.T) {
		rec := app.serve(patternComments, h.AddComment, postForm(target, url.Values{"content": {"Thanks"}}), &author)
		assertRedirect(t, rec, back)
		if n := app.countRows(t, "comments", "user_id = ? AND is_approved = 1", author.ID); n != 1 {
			t.Errorf("approved staff comments = %d; want 1", n)
		}
	})

	t.Run("empty comment", func(t *testing.T) {
		rec := app.serve(patternComments, h.AddComment, postForm(target, url.Values{"content": {"   "}}), &member)
		assertRedirect(t, rec, back)
		if n := app.countRows(t, "comments", "user_id = ?", member.ID); n != 1 {
			t.Errorf("member comments = %d; want 1", n)
		}
	})

	t.Run("reply to a comment on another post", func(t *testing.T) {
		other := app.publishedBlog(t, author.ID, "Elsewhere")
		parent := app.approvedComment(t, other.ID, author, "Over here")
		rec := app.serve(patternComments, h.AddComment, postForm(target, url.Values{
			"content":   {"Misplaced"},
			"parent_id": {fmt.Sprint(parent)},
		}), &member)
		assertRedirect(t, rec, back)
		if n := app.countRows(t, "comments", "content = ?", "Misplaced"); n != 0 {
			t.Error("reply to a foreign parent was stored")
		}
	})

	t.Run("unknown post", func(t *testing.T) {
		rec := app.serve(patternComments, h.AddComment, postForm(RouteBlog+"/missing/comments", url.Values{"content": {"Hi"}}), &member)
		assertStatus(t, rec.Code, http.StatusNotFound)
	})
}

func TestLikeComment(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	author := app.staff(t, "author@example.com")
	member := app.user(t, "member@example.com")
	blog := app.publishedBlog(t, author.ID, "Likeable")
	commentID := app.approvedComment(t, blog.ID, author, "Like me")
	target := fmt.Sprintf("%s/%s/comments/%d/like", RouteBlog, blog.Slug, commentID)

	likeJSON := func(target string) (*httptest.ResponseRecorder, map[string]any) {
		req := postForm(target, nil)
		req.Header.Set("Accept", "application/json")
		rec := app.serve(patternLike, h.LikeComment, req, &member)
		var body map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		return rec, body
	}

	rec, body := likeJSON(target)
	assertStatus(t, rec.Code, http.StatusOK)
	if body["liked"] != true || body["count"] != float64(1) {
		t.Errorf("first like = %v; want liked with count 1", body)
	}

	rec, body = likeJSON(target)
	assertStatus(t, rec.Code, http.StatusOK)
	if body["liked"] != false || body["count"] != float64(0) {
		t.Errorf("second like = %v; want unliked with count 0", body)
	}

	rec, _ = likeJSON(fmt.Sprintf("%s/%s/comments/%d/like", RouteBlog, blog.Slug, commentID+100))
	assertStatus(t, rec.Code, http.StatusNotFound)

	rec, _ = likeJSON(RouteBlog + "/" + blog.Slug + "/comments/abc/like")
	assertStatus(t, rec.Code, http.StatusBadRequest)

	// The comment is only reachable through its own post.
	other := app.publishedBlog(t, author.ID, "Other Post")
	rec, _ = likeJSON(fmt.Sprintf("%s/%s/comments/%d/like", RouteBlog, other.Slug, commentID))
	assertStatus(t, rec.Code, http.StatusNotFound)
	rec, _ = likeJSON(fmt.Sprintf("%s/missing/comments/%d/like", RouteBlog, commentID))
	assertStatus(t, rec.Code, http.StatusNotFound)

	// Plain form posts go back to the post.
	rec = app.serve(patternLike, h.LikeComment, postForm(target, nil), &member)
	assertRedirect(t, rec, RouteBlog+"/"+blog.Slug+"#comments")
	if n := app.countRows(t, "comment_likes", "comment_id = ?", commentID); n != 1 {
		t.Errorf("likes = %d; want 1", n)
	}

	// Unverifying takes the post offline, and its comments with it.
	if _, err := app.svc.Blogs.SetVerified(context.Background(), blog.ID, false); err != nil {
		t.Fatal(err)
	}
	rec, _ = likeJSON(target)
	assertStatus(t, rec.Code, http.StatusNotFound)
	if n := app.countRows(t, "comment_likes", "comment_id = ?", commentID); n != 1 {
		t.Errorf("likes after unpublishing = %d; want 1", n)
	}
}

func TestWebinarListAndDetail(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	testutil.CreateWebinar(t, app.q, "upcoming-talk", time.Time{}, 10, 0)

	rec := app.serve(RouteWebinar, h.WebinarList, get(RouteWebinar), nil)
	assertStatus(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "/webinars/upcoming-talk") {
		t.Error("upcoming webinar missing from the list")
	}

	rec = app.serve(RouteWebinar, h.WebinarList, get(RouteWebinar+"?tab=past"), nil)
	assertStatus(t, rec.Code, http.StatusOK)
	if strings.Contains(rec.Body.String(), "/webinars/upcoming-talk\"") {
		t.Error("upcoming webinar listed under past")
	}

	rec = app.serve(patternWebinar, h.WebinarDetail, get(RouteWebinar+"/upcoming-talk"), nil)
	assertStatus(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "/webinars/upcoming-talk/register") {
		t.Error("expected a registration link")
	}

	rec = app.serve(patternWebinar, h.WebinarDetail, get(RouteWebinar+"/missing"), nil)
	assertStatus(t, rec.Code, http.StatusNotFound)
}

func TestRegisterForFreeWebinar(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	webinar := testutil.CreateWebinar(t, app.q, "free-talk", time.Time{}, 10, 0)
	target := RouteWebinar + "/free-talk/register"

	rec := app.serve(patternRegister, h.RegisterForm, get(target), nil)
	assertStatus(t, rec.Code, http.StatusOK)

	rec = app.serve(patternRegister, h.Register, postForm(target, url.Values{
		"full_name": {"Ada Lovelace"},
		"email":     {"ada@example.com"},
	}), nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d; want 303 (body: %.300s)", rec.Code, rec.Body.String())
	}
	location := rec.Header().Get("Location")
	prefix := target + "/confirmation/"
	if !strings.HasPrefix(location, prefix) {
		t.Fatalf("Location = %q; want prefix %q", location, prefix)
	}
	if n := app.countRows(t, "webinar_registrations", "webinar_id = ? AND email = ? AND status = ?", webinar.ID, "ada@example.com", model.RegistrationConfirmed); n != 1 {
		t.Errorf("confirmed registrations = %d; want 1", n)
	}

	t.Run("confirmation visible to the registering session", func(t *testing.T) {
		rec := app.serve(patternConfirmation, h.RegistrationConfirmation, withCookies(get(location), rec), nil)
		assertStatus(t, rec.Code, http.StatusOK)
		if !strings.Contains(rec.Body.String(), "Ada Lovelace") {
			t.Error("confirmation page missing the registrant")
		}
	})

	t.Run("confirmation hidden from strangers", func(t *testing.T) {
		stranger := app.user(t, "stranger@example.com")
		assertStatus(t, app.serve(patternConfirmation, h.RegistrationConfirmation, get(location), nil).Code, http.StatusNotFound)
		assertStatus(t, app.serve(patternConfirmation, h.RegistrationConfirmation, get(location), &stranger).Code, http.StatusNotFound)
	})

	t.Run("confirmation visible to staff", func(t *testing.T) {
		staff := app.staff(t, "staff@example.com")
		assertStatus(t, app.serve(patternConfirmation, h.RegistrationConfirmation, get(location), &staff).Code, http.StatusOK)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		rec := app.serve(patternRegister, h.Register, postForm(target, url.Values{
			"full_name": {"Ada Again"},
			"email":     {"ADA@example.com"},
		}), nil)
		assertStatus(t, rec.Code, http.StatusConflict)
	})

	t.Run("invalid form", func(t *testing.T) {
		rec := app.serve(patternRegister, h.Register, postForm(target, url.Values{
			"full_name": {""},
			"email":     {"nope"},
		}), nil)
		assertStatus(t, rec.Code, http.StatusUnprocessableEntity)
	})
}

func TestRegisterPricedWebinarNeedsProof(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	testutil.CreateWebinar(t, app.q, "paid-talk", time.Time{}, 10, 2500)

	rec := app.serve(patternRegister, h.Register, postForm(RouteWebinar+"/paid-talk/register", url.Values{
		"full_name": {"Bob"},
		"email":     {"bob@example.com"},
	}), nil)
	assertStatus(t, rec.Code, http.StatusUnprocessableEntity)
	if n := app.countRows(t, "webinar_registrations", "email = ?", "bob@example.com"); n != 0 {
		t.Error("registration stored without a payment proof")
	}
}

func TestRegisterFormClosedWebinar(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	// Ended yesterday; the stored status has not caught up yet.
	testutil.CreateWebinar(t, app.q, "old-talk", testutil.Now().Add(-48*time.Hour), 10, 0)

	rec := app.serve(patternRegister, h.RegisterForm, get(RouteWebinar+"/old-talk/register"), nil)
	assertRedirect(t, rec, RouteWebinar+"/old-talk")
}

func TestJoin(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	member := app.user(t, "member@example.com")
	outsider := app.user(t, "outsider@example.com")
	webinar := testutil.CreateWebinar(t, app.q, "live-talk", time.Time{}, 10, 0)
	target := RouteWebinar + "/live-talk/join"
	back := RouteWebinar + "/live-talk"

	rec := app.serve(patternRegister, h.Register, postForm(RouteWebinar+"/live-talk/register", url.Values{
		"full_name": {"Member"},
		"email":     {member.Email},
	}), &member)
	assertStatus(t, rec.Code, http.StatusSeeOther)

	// Not live yet.
	assertRedirect(t, app.serve(patternJoin, h.Join, get(target), &member), back)

	// Started five minutes ago; the stored status still says upcoming
	// because the refresh job has not run yet.
	if _, err := app.db.Exec(`UPDATE webinars SET start_at = ?, meeting_url = ? WHERE id = ?`,
		testutil.Now().Add(-5*time.Minute), "https://meet.example.com/live-talk", webinar.ID); err != nil {
		t.Fatal(err)
	}

	assertRedirect(t, app.serve(patternJoin, h.Join, get(target), &outsider), back)

	assertRedirect(t, app.serve(patternJoin, h.Join, get(target), &member), "https://meet.example.com/live-talk")
	if n := app.countRows(t, "webinar_registrations", "email = ? AND joined_at IS NOT NULL", member.Email); n != 1 {
		t.Error("expected the join to be recorded")
	}
}

func TestPublicNotFound(t *testing.T) {
	app := newTestApp(t)
	h := NewPublicHandler(app.renderer, app.sm, app.svc)
	rec := app.serve("/*", h.NotFound, get("/nowhere"), nil)
	assertStatus(t, rec.Code, http.StatusNotFound)
}
