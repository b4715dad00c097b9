// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the scs session manager and owns the keys
// that carry the signed-in user and impersonation state.
package session

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session keys.
const (
	KeyUserID         = "user_id"
	KeyOriginalUserID = "original_user_id"
	KeyFlash          = "flash"
	KeyFlashType      = "flash_type"
	KeyRegistrations  = "registrations"
)

// Lifetime is how long an idle-independent session lasts.
const Lifetime = 14 * 24 * time.Hour

// ErrAlreadyImpersonating is returned when an impersonation is started
// while another one is active.
var ErrAlreadyImpersonating = errors.New("an impersonation is already active")

// New creates a session manager backed by the sessions table.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)
	sm.Lifetime = Lifetime
	sm.IdleTimeout = 48 * time.Hour
	sm.Cookie.Name = "thinkspace_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	return sm
}

// Login renews the session token and records userID as signed in.
func Login(ctx context.Context, sm *scs.SessionManager, userID int64) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, KeyUserID, userID)
	return nil
}

// Logout destroys the session, ending any impersonation with it.
func Logout(ctx context.Context, sm *scs.SessionManager) error {
	return sm.Destroy(ctx)
}

// UserID returns the effective user id, or 0 when nobody is signed in.
func UserID(ctx context.Context, sm *scs.SessionManager) int64 {
	return sm.GetInt64(ctx, KeyUserID)
}

// ImpersonatorID returns the real user's id while an impersonation is active, else 0.
func ImpersonatorID(ctx context.Context, sm *scs.SessionManager) int64 {
	return sm.GetInt64(ctx, KeyOriginalUserID)
}

// StartImpersonation swaps the effective user to targetID, remembering the
// current user so StopImpersonation can restore it.
func StartImpersonation(ctx context.Context, sm *scs.SessionManager, targetID int64) error {
	if sm.Exists(ctx, KeyOriginalUserID) {
		return ErrAlreadyImpersonating
	}
	original := sm.GetInt64(ctx, KeyUserID)
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, KeyOriginalUserID, original)
	sm.Put(ctx, KeyUserID, targetID)
	return nil
}

// StopImpersonation restores the original user. It returns that user's id
// and the impersonated id; ok is false when no impersonation was active.
func StopImpersonation(ctx context.Context, sm *scs.SessionManager) (originalID, impersonatedID int64, ok bool, err error) {
	if !sm.Exists(ctx, KeyOriginalUserID) {
		return 0, 0, false, nil
	}
	originalID = sm.GetInt64(ctx, KeyOriginalUserID)
	sm.Remove(ctx, KeyOriginalUserID)
	impersonatedID = sm.GetInt64(ctx, KeyUserID)
	if err := sm.RenewToken(ctx); err != nil {
		return 0, 0, false, err
	}
	sm.Put(ctx, KeyUserID, originalID)
	return originalID, impersonatedID, true, nil
}

// SetFlash queues a one-shot message for the next rendered page.
func SetFlash(ctx context.Context, sm *scs.SessionManager, message, flashType string) {
	sm.Put(ctx, KeyFlash, message)
	sm.Put(ctx, KeyFlashType, flashType)
}

// PopFlash returns and clears the queued flash message.
func PopFlash(ctx context.Context, sm *scs.SessionManager) (message, flashType string) {
	message = sm.PopString(ctx, KeyFlash)
	flashType = sm.PopString(ctx, KeyFlashType)
	if message != "" && flashType == "" {
		flashType = "info"
	}
	return message, flashType
}

// RememberRegistration lets this session view the confirmation page of a
// registration it created, including anonymous ones.
func RememberRegistration(ctx context.Context, sm *scs.SessionManager, id int64) {
	ids, _ := sm.Get(ctx, KeyRegistrations).([]int64)
	sm.Put(ctx, KeyRegistrations, append(ids, id))
}

// OwnsRegistration reports whether RememberRegistration was called for id.
func OwnsRegistration(ctx context.Context, sm *scs.SessionManager, id int64) bool {
	ids, _ := sm.Get(ctx, KeyRegistrations).([]int64)
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
