// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/thinkspace/internal/logging"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/session"
	"github.com/olegiv/thinkspace/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for user data.
const (
	ContextKeyUser         ContextKey = "user"
	ContextKeyImpersonator ContextKey = "impersonator"
	ContextKeyRequestPath  ContextKey = "request_path"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// Auth creates middleware that requires authentication.
// Anonymous requests are redirected to the login page with a next parameter.
func Auth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.UserID(r.Context(), sm) == 0 {
				redirectToLogin(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginPath
	if r.Method == http.MethodGet && r.URL.Path != "/" {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// LoadUser creates middleware that loads the current user into the request context.
// A session pointing at a missing or disabled account is destroyed and the
// request is sent to the login page. Use it after Auth.
func LoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	return loadUser(sm, store.New(db), true)
}

// OptionalLoadUser is LoadUser for routes where signing in is optional.
// An unusable session is ignored instead of redirected.
func OptionalLoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	return loadUser(sm, store.New(db), false)
}

func loadUser(sm *scs.SessionManager, queries *store.Queries, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := session.UserID(ctx, sm)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(ctx, userID)
			if err != nil || !user.IsActive {
				if err != nil && err != sql.ErrNoRows {
					slog.Error("failed to load session user", "user_id", userID, "error", err)
				}
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				_ = session.Logout(ctx, sm)
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}

			ctx = context.WithValue(ctx, ContextKeyUser, user)
			ctx = logging.WithUserID(ctx, user.ID)

			if origID := session.ImpersonatorID(ctx, sm); origID != 0 {
				if orig, err := queries.GetUserByID(ctx, origID); err == nil {
					ctx = context.WithValue(ctx, ContextKeyImpersonator, orig)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyUser).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// GetImpersonator returns the superuser behind an active impersonation, or nil.
func GetImpersonator(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyImpersonator).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// IsImpersonating reports whether the current request runs under an impersonation.
func IsImpersonating(r *http.Request) bool {
	return GetImpersonator(r) != nil
}

// RequestPath creates middleware that stores the request path in the context.
// This is used by the logging handler to include the URL in error logs.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}

// Access levels checked by the Require* middleware.
const (
	LevelStaff     = model.RoleStaff
	LevelSuperuser = model.RoleSuperuser
)

func hasLevel(u *store.User, level string) bool {
	switch level {
	case LevelSuperuser:
		return u.IsSuperuser
	case LevelStaff:
		return u.IsStaff || u.IsSuperuser
	}
	return false
}

// RequireStaff allows staff and superusers. Denials are recorded in the
// event log when events is not nil.
func RequireStaff(events *service.EventService) func(http.Handler) http.Handler {
	return requireLevel(LevelStaff, events)
}

// RequireSuperuser allows superusers only.
func RequireSuperuser(events *service.EventService) func(http.Handler) http.Handler {
	return requireLevel(LevelSuperuser, events)
}

func requireLevel(level string, events *service.EventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				redirectToLogin(w, r)
				return
			}
			if hasLevel(user, level) {
				next.ServeHTTP(w, r)
				return
			}

			// WARN records are mirrored into the event log, so the
			// explicit event below keeps this line at INFO.
			slog.Info("access denied",
				"status", http.StatusForbidden,
				"method", r.Method,
				"path", r.URL.Path,
				"user_id", user.ID,
				"required", level,
				"remote_addr", r.RemoteAddr,
			)
			if events != nil {
				_ = events.LogWarning(r.Context(), model.EventCategoryAuth, "Access denied: insufficient permissions",
					service.EventSource{UserID: user.ID, IPAddress: ClientIP(r), URL: r.URL.Path},
					map[string]any{"method": r.Method, "required": level})
			}
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
		})
	}
}
