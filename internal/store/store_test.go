// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testDB creates a migrated database in a temp dir.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "thinkspace-test.db")
	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
	return db, cleanup
}

func testSetup(t *testing.T) (*sql.DB, func(), context.Context, *Queries) {
	t.Helper()
	db, cleanup := testDB(t)
	return db, cleanup, context.Background(), New(db)
}

func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func createTestUser(t *testing.T, q *Queries, email string) User {
	t.Helper()
	now := testNow()
	u, err := q.CreateUser(context.Background(), CreateUserParams{
		Email:        email,
		Username:     email,
		PasswordHash: "hash",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

func TestMigrationVersion(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	v, err := MigrationVersion(db)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v != 4 {
		t.Errorf("version = %d, want 4", v)
	}
}

func TestCreateUser(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	now := testNow()
	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        "test@example.com",
		Username:     "tester",
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hashed-password",
		IsStaff:      true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == 0 {
		t.Error("user.ID should not be 0")
	}
	if !user.IsStaff || user.IsSuperuser {
		t.Errorf("flags = staff:%v superuser:%v, want staff only", user.IsStaff, user.IsSuperuser)
	}
	if user.FullName() != "Test User" {
		t.Errorf("FullName() = %q, want %q", user.FullName(), "Test User")
	}
	if !user.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", user.CreatedAt, now)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	createTestUser(t, q, "dup@example.com")

	now := testNow()
	_, err := q.CreateUser(ctx, CreateUserParams{
		Email:     "dup@example.com",
		Username:  "other",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !IsUniqueViolation(err, "users.email") {
		t.Fatalf("expected unique violation on users.email, got %v", err)
	}
	if IsUniqueViolation(err, "users.username") {
		t.Error("violation should not match an unrelated column")
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	_, err := q.GetUserByEmail(ctx, "nonexistent@example.com")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListUsers_Filters(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	now := testNow()
	mk := func(email string, staff, super, active bool) {
		if _, err := q.CreateUser(ctx, CreateUserParams{
			Email: email, Username: email, IsStaff: staff, IsSuperuser: super, IsActive: active,
			CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	mk("root@example.com", true, true, true)
	mk("staff@example.com", true, false, true)
	mk("reader@example.com", false, false, true)
	mk("gone@example.com", false, false, false)

	tests := []struct {
		name   string
		filter UserFilter
		want   int64
	}{
		{"all", UserFilter{}, 4},
		{"superusers", UserFilter{Role: "superuser"}, 1},
		{"staff", UserFilter{Role: "staff"}, 1},
		{"regular", UserFilter{Role: "regular"}, 2},
		{"inactive", UserFilter{Status: "inactive"}, 1},
		{"regular active", UserFilter{Role: "regular", Status: "active"}, 1},
		{"query", UserFilter{Query: "STAFF"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := q.CountUsers(ctx, tt.filter)
			if err != nil {
				t.Fatalf("CountUsers: %v", err)
			}
			if n != tt.want {
				t.Errorf("CountUsers = %d, want %d", n, tt.want)
			}
			users, err := q.ListUsers(ctx, ListUsersParams{UserFilter: tt.filter, Limit: 10})
			if err != nil {
				t.Fatalf("ListUsers: %v", err)
			}
			if int64(len(users)) != tt.want {
				t.Errorf("ListUsers returned %d, want %d", len(users), tt.want)
			}
		})
	}

	stats, err := q.GetUserStats(ctx)
	if err != nil {
		t.Fatalf("GetUserStats: %v", err)
	}
	if stats != (UserStats{Total: 4, Active: 3, Staff: 1, Superusers: 1}) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRoles(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	u := createTestUser(t, q, "member@example.com")
	role, err := q.CreateRole(ctx, CreateRoleParams{Name: "Editors", CreatedAt: testNow()})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	for range 2 {
		if err := q.AddUserRole(ctx, UserRoleParams{UserID: u.ID, RoleID: role.ID}); err != nil {
			t.Fatalf("AddUserRole: %v", err)
		}
	}

	rows, err := q.ListRolesWithCounts(ctx)
	if err != nil {
		t.Fatalf("ListRolesWithCounts: %v", err)
	}
	if len(rows) != 1 || rows[0].UserCount != 1 {
		t.Fatalf("roles = %+v, want one role with one user", rows)
	}

	if err := q.RemoveUserRole(ctx, UserRoleParams{UserID: u.ID, RoleID: role.ID}); err != nil {
		t.Fatalf("RemoveUserRole: %v", err)
	}
	userRoles, err := q.ListRolesForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListRolesForUser: %v", err)
	}
	if len(userRoles) != 0 {
		t.Errorf("user still has %d roles", len(userRoles))
	}
}

func TestDeleteUser_CascadesProfile(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	u := createTestUser(t, q, "bye@example.com")
	now := testNow()
	if _, err := q.CreateProfile(ctx, CreateProfileParams{UserID: u.ID, Country: "DE", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if err := q.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := q.GetProfileByUserID(ctx, u.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("profile should be gone, got %v", err)
	}
}

func TestInTx_Rollback(t *testing.T) {
	db, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	boom := errors.New("boom")
	err := InTx(ctx, db, func(tx *Queries) error {
		now := testNow()
		if _, err := tx.CreateTag(ctx, CreateTagParams{Name: "Go", Slug: "go", CreatedAt: now}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v, want boom", err)
	}
	tags, err := q.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("tag should have been rolled back, found %d", len(tags))
	}
}

func TestSeed_Idempotent(t *testing.T) {
	db, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	cfg := SeedConfig{AdminEmail: "Admin@Example.com", AdminPassword: "a-long-admin-password"}
	for range 2 {
		if err := Seed(ctx, db, cfg); err != nil {
			t.Fatalf("Seed: %v", err)
		}
	}

	admin, err := q.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if !admin.IsSuperuser || !admin.IsStaff || !admin.IsActive {
		t.Errorf("admin flags = %+v", admin)
	}

	roles, err := q.ListRolesWithCounts(ctx)
	if err != nil {
		t.Fatalf("ListRolesWithCounts: %v", err)
	}
	if len(roles) != len(defaultRoles) {
		t.Errorf("roles = %d, want %d", len(roles), len(defaultRoles))
	}
	cats, err := q.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != len(defaultCategories) {
		t.Errorf("categories = %d, want %d", len(cats), len(defaultCategories))
	}
}

func TestSeed_NoPasswordSkipsAdmin(t *testing.T) {
	db, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	if err := Seed(ctx, db, SeedConfig{AdminEmail: "admin@example.com"}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if _, err := q.GetUserByEmail(ctx, "admin@example.com"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("admin should not exist without a password, got %v", err)
	}
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Go", "%go%"},
		{"  Über  ", "%über%"},
		{"50%", `%50\%%`},
		{"snake_case", `%snake\_case%`},
		{`a\b`, `%a\\b%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
