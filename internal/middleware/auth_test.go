// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/session"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/testutil"
)

type authEnv struct {
	db *sql.DB
	q  *store.Queries
	sm *scs.SessionManager
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return &authEnv{db: db, q: store.New(db), sm: session.New(db, true)}
}

// serve runs the request through the session manager after signing in as
// userID (0 stays anonymous) and, when impersonate is set, switching to it.
func (e *authEnv) serve(t *testing.T, userID, impersonate int64, target string, h http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	wrapped := e.sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userID != 0 {
			if err := session.Login(ctx, e.sm, userID); err != nil {
				t.Fatalf("Login: %v", err)
			}
		}
		if impersonate != 0 {
			if err := session.StartImpersonation(ctx, e.sm, impersonate); err != nil {
				t.Fatalf("StartImpersonation: %v", err)
			}
		}
		h.ServeHTTP(w, r)
	}))
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)
	return rr
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthRedirectsAnonymous(t *testing.T) {
	env := newAuthEnv(t)
	rr := env.serve(t, 0, 0, "/dashboard/blogs?page=2", Auth(env.sm)(http.HandlerFunc(okHandler)))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	want := "/login?next=%2Fdashboard%2Fblogs%3Fpage%3D2"
	if got := rr.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestLoadUser(t *testing.T) {
	env := newAuthEnv(t)
	active := testutil.CreateUser(t, env.q, "ada@example.com", false, false)
	disabled := testutil.CreateUser(t, env.q, "off@example.com", false, false)
	if err := env.q.SetUserActive(context.Background(), store.SetUserActiveParams{
		ID: disabled.ID, IsActive: false, UpdatedAt: testutil.Now(),
	}); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}

	var seen *store.User
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUser(r)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("active user", func(t *testing.T) {
		seen = nil
		rr := env.serve(t, active.ID, 0, "/profile", LoadUser(env.sm, env.db)(capture))
		if rr.Code != http.StatusOK || seen == nil || seen.Email != "ada@example.com" {
			t.Errorf("status = %d, user = %+v", rr.Code, seen)
		}
	})

	t.Run("disabled user required", func(t *testing.T) {
		seen = nil
		rr := env.serve(t, disabled.ID, 0, "/profile", LoadUser(env.sm, env.db)(capture))
		if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != LoginPath {
			t.Errorf("status = %d, Location = %q", rr.Code, rr.Header().Get("Location"))
		}
	})

	t.Run("disabled user optional", func(t *testing.T) {
		seen = nil
		rr := env.serve(t, disabled.ID, 0, "/blog", OptionalLoadUser(env.sm, env.db)(capture))
		if rr.Code != http.StatusOK || seen != nil {
			t.Errorf("status = %d, user = %+v", rr.Code, seen)
		}
	})

	t.Run("missing user optional", func(t *testing.T) {
		seen = nil
		rr := env.serve(t, 4242, 0, "/blog", OptionalLoadUser(env.sm, env.db)(capture))
		if rr.Code != http.StatusOK || seen != nil {
			t.Errorf("status = %d, user = %+v", rr.Code, seen)
		}
	})
}

func TestLoadUserImpersonation(t *testing.T) {
	env := newAuthEnv(t)
	admin := testutil.CreateUser(t, env.q, "root@example.com", true, true)
	target := testutil.CreateUser(t, env.q, "ada@example.com", false, false)

	var user, impersonator *store.User
	h := LoadUser(env.sm, env.db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, impersonator = GetUser(r), GetImpersonator(r)
		w.WriteHeader(http.StatusOK)
	}))
	env.serve(t, admin.ID, target.ID, "/", h)

	if user == nil || user.ID != target.ID {
		t.Fatalf("effective user = %+v, want %d", user, target.ID)
	}
	if impersonator == nil || impersonator.ID != admin.ID {
		t.Errorf("impersonator = %+v, want %d", impersonator, admin.ID)
	}
}

func TestRequireLevel(t *testing.T) {
	env := newAuthEnv(t)
	events := service.NewEventService(env.db, testutil.TestLogger())
	regular := testutil.CreateUser(t, env.q, "ada@example.com", false, false)
	staff := testutil.CreateUser(t, env.q, "staff@example.com", true, false)
	admin := testutil.CreateUser(t, env.q, "root@example.com", true, true)

	tests := []struct {
		name     string
		userID   int64
		mw       func(*service.EventService) func(http.Handler) http.Handler
		wantCode int
	}{
		{"anonymous to staff", 0, RequireStaff, http.StatusSeeOther},
		{"regular to staff", regular.ID, RequireStaff, http.StatusForbidden},
		{"staff to staff", staff.ID, RequireStaff, http.StatusOK},
		{"superuser to staff", admin.ID, RequireStaff, http.StatusOK},
		{"staff to superuser", staff.ID, RequireSuperuser, http.StatusForbidden},
		{"superuser to superuser", admin.ID, RequireSuperuser, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := LoadUser(env.sm, env.db)(tt.mw(events)(http.HandlerFunc(okHandler)))
			rr := env.serve(t, tt.userID, 0, "/dashboard/users", h)
			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}

	page, err := events.List(context.Background(), store.EventFilter{Category: model.EventCategoryAuth}, 1)
	if err != nil {
		t.Fatalf("List events: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("access denied events = %d, want 2", page.Total)
	}
}

func TestGetUserHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetUser(req) != nil || GetUserID(req) != 0 || IsImpersonating(req) {
		t.Error("empty context should carry no user")
	}

	ctx := context.WithValue(req.Context(), ContextKeyUser, store.User{ID: 456})
	req = req.WithContext(ctx)
	if GetUserID(req) != 456 {
		t.Errorf("GetUserID() = %d, want 456", GetUserID(req))
	}
}

func TestRequestPath(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetRequestPath(r.Context())))
	})

	req := httptest.NewRequest(http.MethodGet, "/dashboard/webinars", nil)
	rr := httptest.NewRecorder()
	RequestPath(handler).ServeHTTP(rr, req)

	if body := rr.Body.String(); body != "/dashboard/webinars" {
		t.Errorf("GetRequestPath() = %q, want %q", body, "/dashboard/webinars")
	}
	if got := GetRequestPath(context.Background()); got != "" {
		t.Errorf("GetRequestPath(empty) = %q", got)
	}
}
