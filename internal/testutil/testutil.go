// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for ThinkSpace packages.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/thinkspace/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// TestLogger creates a logger that discards everything below ERROR.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestDB creates a migrated database in a per-test temp dir.
// The returned cleanup closes it; the directory is removed by the test framework.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "thinkspace-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}
	return db, func() { _ = db.Close() }
}

// TestMemoryDB opens an unmigrated in-memory database on the cgo driver.
// The session store tests use it to exercise sqlite3store's own schema.
func TestMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Now returns the current UTC time truncated to seconds, as stored.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// CreateUser inserts an active user with a profile. The password hash is a
// placeholder; use auth.HashPassword where login matters.
func CreateUser(t *testing.T, q *store.Queries, email string, staff, superuser bool) store.User {
	t.Helper()
	return CreateUserWithHash(t, q, email, "placeholder", staff, superuser)
}

// CreateUserWithHash is CreateUser with a caller-supplied password hash.
func CreateUserWithHash(t *testing.T, q *store.Queries, email, hash string, staff, superuser bool) store.User {
	t.Helper()
	ctx := context.Background()
	now := Now()
	username, _, _ := strings.Cut(email, "@")
	u, err := q.CreateUser(ctx, store.CreateUserParams{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsStaff:      staff || superuser,
		IsSuperuser:  superuser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	if _, err := q.CreateProfile(ctx, store.CreateProfileParams{UserID: u.ID, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateProfile(%s): %v", email, err)
	}
	return u
}

// CreateCategory inserts an active category.
func CreateCategory(t *testing.T, q *store.Queries, name, slug string) store.Category {
	t.Helper()
	now := Now()
	c, err := q.CreateCategory(context.Background(), store.CreateCategoryParams{
		Name:      name,
		Slug:      slug,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCategory(%s): %v", slug, err)
	}
	return c
}

// CreateWebinar inserts a webinar starting at start. A zero start means one day from now.
func CreateWebinar(t *testing.T, q *store.Queries, slug string, start time.Time, capacity, priceCents int64) store.Webinar {
	t.Helper()
	now := Now()
	if start.IsZero() {
		start = now.Add(24 * time.Hour)
	}
	w, err := q.CreateWebinar(context.Background(), store.CreateWebinarParams{
		Title:           strings.ReplaceAll(slug, "-", " "),
		Slug:            slug,
		Description:     "Test webinar " + slug,
		StartAt:         start,
		DurationMinutes: 60,
		Status:          "upcoming",
		PriceCents:      priceCents,
		Capacity:        capacity,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateWebinar(%s): %v", slug, err)
	}
	return w
}
