// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/thinkspace/internal/auth"
	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/testutil"
	"github.com/olegiv/thinkspace/internal/version"
	"github.com/olegiv/thinkspace/web"
)

// testApp wires the handlers to a migrated database and the real templates.
// Caches, notifications and mail are disabled.
type testApp struct {
	db         *sql.DB
	q          *store.Queries
	sm         *scs.SessionManager
	renderer   *render.Renderer
	svc        Services
	uploadsDir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	sm := testSessionManager(t)
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	renderer, err := render.New(render.Config{TemplatesFS: templatesFS, SessionManager: sm})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	logger := testutil.TestLogger()
	dir := t.TempDir()
	uploads := service.NewUploadService(dir, logger)
	content := service.NewContentRenderer()

	return &testApp{
		db:         db,
		q:          store.New(db),
		sm:         sm,
		renderer:   renderer,
		uploadsDir: dir,
		svc: Services{
			Blogs:         service.NewBlogService(db, uploads, content, nil, nil, logger),
			Comments:      service.NewCommentService(db, content, logger),
			Webinars:      service.NewWebinarService(db, uploads, content, nil, logger),
			Resources:     service.NewResourceService(db, uploads, logger),
			Speakers:      service.NewSpeakerService(db, uploads, nil, logger),
			Taxonomy:      service.NewTaxonomyService(db, nil, 0, logger),
			Registrations: service.NewRegistrationService(db, uploads, nil, nil, service.RegistrationOptions{PaymentPrefix: "TS", BaseURL: "http://localhost:8080"}, logger),
			Users:         service.NewUserService(db, uploads, nil, nil, logger),
			Events:        service.NewEventService(db, logger),
			Stats:         service.NewStatsService(db, uploads, nil, service.StatsOptions{Build: version.Info{Version: "test"}}, logger),
			Search:        service.NewSearchService(db),
			Export:        service.NewExportService(db, logger),
			Uploads:       uploads,
			Sitemap:       service.NewSitemapService(db, "http://localhost:8080", true, nil, 0),
		},
	}
}

// testSessionManager creates an in-memory session manager for testing.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// serve routes req to h under pattern, with a loaded session and, when
// user is non-nil, that user signed in.
func (a *testApp) serve(pattern string, h http.HandlerFunc, req *http.Request, user *store.User) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(a.sm.LoadAndSave)
	r.Use(withUser(user))
	r.Method(req.Method, pattern, h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func withUser(user *store.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyUser, *user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// postForm builds a urlencoded POST request.
func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// postMultipart builds a multipart POST request with one file part.
func postMultipart(t *testing.T, target string, values url.Values, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, vals := range values {
		for _, v := range vals {
			if err := mw.WriteField(key, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// pngBytes returns a small encoded PNG.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 120, B: uint8(y * 8), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// withCookies copies the cookies a previous response set onto req.
func withCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func (a *testApp) user(t *testing.T, email string) store.User {
	t.Helper()
	return testutil.CreateUser(t, a.q, email, false, false)
}

func (a *testApp) staff(t *testing.T, email string) store.User {
	t.Helper()
	return testutil.CreateUser(t, a.q, email, true, false)
}

func (a *testApp) superuser(t *testing.T, email string) store.User {
	t.Helper()
	return testutil.CreateUser(t, a.q, email, true, true)
}

// userWithPassword creates an active member who can sign in with password.
func (a *testApp) userWithPassword(t *testing.T, email, password string) store.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return testutil.CreateUserWithHash(t, a.q, email, hash, false, false)
}

// publishedBlog creates a verified, published blog that accepts comments.
func (a *testApp) publishedBlog(t *testing.T, authorID int64, title string) store.BlogRow {
	t.Helper()
	blog, err := a.svc.Blogs.Create(context.Background(), authorID, model.BlogForm{
		Title:         title,
		Content:       "A post about " + title,
		Status:        model.BlogStatusPublished,
		IsVerified:    true,
		AllowComments: true,
	}, nil)
	if err != nil {
		t.Fatalf("creating blog %q: %v", title, err)
	}
	return blog
}

// approvedComment adds a staff comment, which is visible at once, and
// returns its id.
func (a *testApp) approvedComment(t *testing.T, blogID int64, author store.User, content string) int64 {
	t.Helper()
	ctx := context.Background()
	if _, err := a.svc.Comments.Add(ctx, blogID, service.Commenter{ID: author.ID, IsStaff: true}, model.CommentForm{Content: content}); err != nil {
		t.Fatalf("adding comment: %v", err)
	}
	var id int64
	if err := a.db.QueryRowContext(ctx, `SELECT MAX(id) FROM comments`).Scan(&id); err != nil {
		t.Fatalf("reading comment id: %v", err)
	}
	return id
}

// countRows counts the rows of table matching where.
func (a *testApp) countRows(t *testing.T, table, where string, args ...any) int {
	t.Helper()
	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE `+where, args...).Scan(&n); err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

// assertRedirect checks for a 303 to location.
func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d; want %d (body: %.200s)", rec.Code, http.StatusSeeOther, rec.Body.String())
		return
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Errorf("Location = %q; want %q", got, location)
	}
}
