// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/thinkspace/internal/auth"
)

// SeedConfig controls the initial data written by Seed.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Default groups and categories created on first start.
var (
	defaultRoles = []CreateRoleParams{
		{Name: "Editors", Description: "Write and verify blog posts"},
		{Name: "Webinar Hosts", Description: "Run webinars and manage registrations"},
	}
	defaultCategories = []CreateCategoryParams{
		{Name: "General", Slug: "general", Position: 0, IsActive: true},
		{Name: "Announcements", Slug: "announcements", Position: 1, IsActive: true},
		{Name: "Tutorials", Slug: "tutorials", Position: 2, IsActive: true},
	}
)

// Seed creates the superuser, default roles and default categories.
// It is idempotent: rows that already exist are left untouched.
func Seed(ctx context.Context, db *sql.DB, cfg SeedConfig) error {
	queries := New(db)
	now := time.Now().UTC().Truncate(time.Second)

	if err := seedAdmin(ctx, queries, cfg, now); err != nil {
		return err
	}

	for _, role := range defaultRoles {
		_, err := queries.GetRoleByName(ctx, role.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking role %q: %w", role.Name, err)
		}
		role.CreatedAt = now
		if _, err := queries.CreateRole(ctx, role); err != nil {
			return fmt.Errorf("creating role %q: %w", role.Name, err)
		}
	}

	for _, cat := range defaultCategories {
		_, err := queries.GetCategoryBySlug(ctx, cat.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking category %q: %w", cat.Slug, err)
		}
		cat.CreatedAt, cat.UpdatedAt = now, now
		if _, err := queries.CreateCategory(ctx, cat); err != nil {
			return fmt.Errorf("creating category %q: %w", cat.Slug, err)
		}
	}

	return nil
}

func seedAdmin(ctx context.Context, queries *Queries, cfg SeedConfig, now time.Time) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return nil
	}

	_, err := queries.GetUserByEmail(ctx, email)
	if err == nil {
		slog.Info("admin user already exists, skipping seed", "email", email)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}
	if cfg.AdminPassword == "" {
		slog.Warn("no admin password configured, superuser not created", "email", email)
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	username, _, _ := strings.Cut(email, "@")
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        email,
		Username:     username,
		FirstName:    "Site",
		LastName:     "Administrator",
		PasswordHash: hash,
		IsStaff:      true,
		IsSuperuser:  true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}
	if _, err := queries.CreateProfile(ctx, CreateProfileParams{UserID: user.ID, CreatedAt: now, UpdatedAt: now}); err != nil {
		return fmt.Errorf("creating admin profile: %w", err)
	}

	slog.Info("created superuser", "id", user.ID, "email", user.Email)
	return nil
}
