// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/thinkspace/internal/auth"
)

// Demo mode credentials.
const (
	DemoEditorEmail    = "editor@example.com"
	DemoEditorPassword = "demo1234demo"
)

// SeedDemo fills an empty database with sample posts, speakers and
// webinars. It does nothing when any blog already exists.
func SeedDemo(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	stats, err := queries.GetBlogStats(ctx)
	if err != nil {
		return fmt.Errorf("counting blogs: %w", err)
	}
	if stats.Total > 0 {
		slog.Info("content already exists, skipping demo seed")
		return nil
	}

	slog.Info("seeding demo content")
	now := time.Now().UTC().Truncate(time.Second)

	editorID, err := seedDemoEditor(ctx, queries, now)
	if err != nil {
		return fmt.Errorf("seeding demo editor: %w", err)
	}
	tagIDs, err := seedDemoTags(ctx, queries, now)
	if err != nil {
		return fmt.Errorf("seeding demo tags: %w", err)
	}
	if err := seedDemoBlogs(ctx, queries, editorID, tagIDs, now); err != nil {
		return fmt.Errorf("seeding demo blogs: %w", err)
	}
	if err := seedDemoWebinars(ctx, queries, editorID, now); err != nil {
		return fmt.Errorf("seeding demo webinars: %w", err)
	}

	slog.Info("demo content seeded successfully")
	return nil
}

func seedDemoEditor(ctx context.Context, queries *Queries, now time.Time) (int64, error) {
	existing, err := queries.GetUserByEmail(ctx, DemoEditorEmail)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	hash, err := auth.HashPassword(DemoEditorPassword)
	if err != nil {
		return 0, fmt.Errorf("hashing editor password: %w", err)
	}
	editor, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        DemoEditorEmail,
		Username:     "editor",
		FirstName:    "Demo",
		LastName:     "Editor",
		PasswordHash: hash,
		IsStaff:      true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return 0, fmt.Errorf("creating demo editor: %w", err)
	}
	if _, err := queries.CreateProfile(ctx, CreateProfileParams{UserID: editor.ID, CreatedAt: now, UpdatedAt: now}); err != nil {
		return 0, fmt.Errorf("creating demo editor profile: %w", err)
	}

	slog.Info("created demo editor", "email", DemoEditorEmail)
	return editor.ID, nil
}

func seedDemoTags(ctx context.Context, queries *Queries, now time.Time) (map[string]int64, error) {
	tags := []struct{ Name, Slug string }{
		{"Go", "go"},
		{"Databases", "databases"},
		{"Career", "career"},
		{"Community", "community"},
	}

	ids := make(map[string]int64)
	for _, tag := range tags {
		existing, err := queries.GetTagByName(ctx, tag.Name)
		if err == nil {
			ids[tag.Slug] = existing.ID
			continue
		}
		created, err := queries.CreateTag(ctx, CreateTagParams{Name: tag.Name, Slug: tag.Slug, CreatedAt: now})
		if err != nil {
			return nil, fmt.Errorf("creating tag %s: %w", tag.Slug, err)
		}
		ids[tag.Slug] = created.ID
	}
	return ids, nil
}

type demoBlog struct {
	Title        string
	Slug         string
	CategorySlug string
	Excerpt      string
	Content      string
	TagSlugs     []string
	Published    bool
}

func getDemoBlogs() []demoBlog {
	return []demoBlog{
		{
			Title:        "Welcome to ThinkSpace",
			Slug:         "welcome-to-thinkspace",
			CategorySlug: "announcements",
			Excerpt:      "What this site is for and how to take part.",
			Content:      "## Hello\n\nThinkSpace hosts articles and live webinars.\n\nRegister for an upcoming session or leave a comment below.",
			TagSlugs:     []string{"community"},
			Published:    true,
		},
		{
			Title:        "Getting Started with Go Services",
			Slug:         "getting-started-with-go-services",
			CategorySlug: "tutorials",
			Excerpt:      "A short tour of building an HTTP service in Go.",
			Content:      "## Routing\n\nStart with a router and a handful of handlers.\n\n## Storage\n\nKeep SQL close to the code that uses it.",
			TagSlugs:     []string{"go", "databases"},
			Published:    true,
		},
		{
			Title:        "Notes from Our First Webinar",
			Slug:         "notes-from-our-first-webinar",
			CategorySlug: "general",
			Excerpt:      "Questions from the audience and where to find the recording.",
			Content:      "Thanks to everyone who joined. The **recording** is available on the webinar page.",
			TagSlugs:     []string{"community", "career"},
			Published:    false,
		},
	}
}

func seedDemoBlogs(ctx context.Context, queries *Queries, authorID int64, tagIDs map[string]int64, now time.Time) error {
	blogs := getDemoBlogs()
	for i, b := range blogs {
		var categoryID sql.NullInt64
		if cat, err := queries.GetCategoryBySlug(ctx, b.CategorySlug); err == nil {
			categoryID = sql.NullInt64{Int64: cat.ID, Valid: true}
		}

		status := "draft"
		var publishedAt sql.NullTime
		if b.Published {
			status = "published"
			publishedAt = sql.NullTime{Time: now.Add(-time.Duration(len(blogs)-i) * 24 * time.Hour), Valid: true}
		}

		id, err := queries.CreateBlog(ctx, CreateBlogParams{
			Title:         b.Title,
			Slug:          b.Slug,
			AuthorID:      sql.NullInt64{Int64: authorID, Valid: true},
			CategoryID:    categoryID,
			Excerpt:       b.Excerpt,
			Content:       b.Content,
			Status:        status,
			IsVerified:    b.Published,
			AllowComments: true,
			PublishedAt:   publishedAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("creating blog %s: %w", b.Slug, err)
		}
		for _, slug := range b.TagSlugs {
			if tagID, ok := tagIDs[slug]; ok {
				if err := queries.AddBlogTag(ctx, BlogTagParams{BlogID: id, TagID: tagID}); err != nil {
					slog.Warn("failed to tag demo blog", "blog", b.Slug, "tag", slug, "error", err)
				}
			}
		}
	}

	slog.Info("seeded demo blogs", "count", len(blogs))
	return nil
}

func seedDemoWebinars(ctx context.Context, queries *Queries, hostID int64, now time.Time) error {
	speaker, err := queries.CreateSpeaker(ctx, CreateSpeakerParams{
		Name:      "Ada Example",
		Slug:      "ada-example",
		Title:     "Principal Engineer",
		Bio:       "Builds data-heavy web services and teaches about them.",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("creating demo speaker: %w", err)
	}

	webinars := []CreateWebinarParams{
		{
			Title:           "Designing Reliable Registration Flows",
			Slug:            "designing-reliable-registration-flows",
			Description:     "Capacity limits, payment references and confirmation emails.",
			StartAt:         now.Add(72 * time.Hour),
			DurationMinutes: 60,
			Status:          "upcoming",
			Capacity:        50,
			IsFeatured:      true,
		},
		{
			Title:           "SQL for Application Developers",
			Slug:            "sql-for-application-developers",
			Description:     "A paid deep dive into queries, indexes and transactions.",
			StartAt:         now.Add(10 * 24 * time.Hour),
			DurationMinutes: 90,
			Status:          "upcoming",
			PriceCents:      1500,
			Capacity:        25,
		},
		{
			Title:           "Community Kickoff",
			Slug:            "community-kickoff",
			Description:     "Our first live session.",
			StartAt:         now.Add(-14 * 24 * time.Hour),
			DurationMinutes: 45,
			Status:          "completed",
			Capacity:        100,
		},
	}

	for _, w := range webinars {
		w.HostID = sql.NullInt64{Int64: hostID, Valid: true}
		w.CreatedAt, w.UpdatedAt = now, now
		created, err := queries.CreateWebinar(ctx, w)
		if err != nil {
			return fmt.Errorf("creating webinar %s: %w", w.Slug, err)
		}
		if err := queries.AddWebinarSpeaker(ctx, WebinarSpeakerParams{WebinarID: created.ID, SpeakerID: speaker.ID}); err != nil {
			return fmt.Errorf("assigning speaker to %s: %w", w.Slug, err)
		}
	}

	slog.Info("seeded demo webinars", "count", len(webinars))
	return nil
}
