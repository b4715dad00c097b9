// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/thinkspace/internal/cache"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
)

// SpeakerService manages webinar speakers.
type SpeakerService struct {
	queries *store.Queries
	uploads *UploadService
	cache   cache.Cacher
	logger  *slog.Logger
}

// NewSpeakerService creates a SpeakerService. c may be nil.
func NewSpeakerService(db *sql.DB, uploads *UploadService, c cache.Cacher, logger *slog.Logger) *SpeakerService {
	return &SpeakerService{queries: store.New(db), uploads: uploads, cache: c, logger: logger}
}

// List returns speakers with their webinar counts, filtered by name or title.
func (s *SpeakerService) List(ctx context.Context, query string, activeOnly bool) ([]store.SpeakerRow, error) {
	rows, err := s.queries.ListSpeakersWithCounts(ctx, store.ListSpeakersParams{
		ActiveOnly: activeOnly,
		Query:      strings.TrimSpace(query),
	})
	if err != nil {
		return nil, fmt.Errorf("listing speakers: %w", err)
	}
	return rows, nil
}

// Active returns the speakers offered in the webinar editor.
func (s *SpeakerService) Active(ctx context.Context) ([]store.Speaker, error) {
	return s.queries.ListActiveSpeakers(ctx)
}

// Get returns a speaker by id.
func (s *SpeakerService) Get(ctx context.Context, id int64) (store.Speaker, error) {
	sp, err := s.queries.GetSpeakerByID(ctx, id)
	return sp, notFound(err)
}

// Save creates a speaker when id is 0, otherwise updates it.
func (s *SpeakerService) Save(ctx context.Context, id int64, form model.SpeakerForm, photo *FileUpload, removePhoto bool) (store.Speaker, error) {
	if errs := model.Validate(form); errs != nil {
		return store.Speaker{}, errs
	}
	var existing store.Speaker
	if id != 0 {
		var err error
		if existing, err = s.queries.GetSpeakerByID(ctx, id); err != nil {
			return store.Speaker{}, notFound(err)
		}
	}

	slug, err := resolveSlug(ctx, id, form.Slug, form.Name, existing.Slug, "speaker", s.queries.SpeakerSlugExists)
	if err != nil {
		return store.Speaker{}, err
	}
	photoPath, err := s.uploads.Replace(model.UploadSpeakerPhoto, photo, existing.Photo, removePhoto)
	if err != nil {
		return store.Speaker{}, model.ValidationErrors{"photo": err.Error()}
	}

	now := nowUTC()
	var sp store.Speaker
	if id == 0 {
		sp, err = s.queries.CreateSpeaker(ctx, store.CreateSpeakerParams{
			Name:      strings.TrimSpace(form.Name),
			Slug:      slug,
			Title:     form.Title,
			Bio:       form.Bio,
			Photo:     photoPath,
			Website:   form.Website,
			Twitter:   strings.TrimPrefix(strings.TrimSpace(form.Twitter), "@"),
			Linkedin:  form.Linkedin,
			Email:     model.NormalizeEmail(form.Email),
			IsActive:  form.IsActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
	} else {
		sp, err = s.queries.UpdateSpeaker(ctx, store.UpdateSpeakerParams{
			Name:      strings.TrimSpace(form.Name),
			Slug:      slug,
			Title:     form.Title,
			Bio:       form.Bio,
			Photo:     photoPath,
			Website:   form.Website,
			Twitter:   strings.TrimPrefix(strings.TrimSpace(form.Twitter), "@"),
			Linkedin:  form.Linkedin,
			Email:     model.NormalizeEmail(form.Email),
			IsActive:  form.IsActive,
			UpdatedAt: now,
			ID:        id,
		})
	}
	if err != nil {
		if photoPath != existing.Photo {
			s.uploads.Remove(photoPath)
		}
		if store.IsUniqueViolation(err, "speakers.slug") {
			return store.Speaker{}, model.ValidationErrors{"slug": "This slug is already in use"}
		}
		return store.Speaker{}, fmt.Errorf("saving speaker: %w", err)
	}
	s.invalidate(ctx)
	return sp, nil
}

// Delete removes a speaker from every webinar and deletes it.
func (s *SpeakerService) Delete(ctx context.Context, id int64) error {
	sp, err := s.queries.GetSpeakerByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if err := s.queries.DeleteSpeaker(ctx, id); err != nil {
		return fmt.Errorf("deleting speaker: %w", err)
	}
	s.uploads.Remove(sp.Photo)
	s.invalidate(ctx)
	return nil
}

func (s *SpeakerService) invalidate(ctx context.Context) {
	if err := cache.InvalidateContent(ctx, s.cache); err != nil {
		s.logger.Warn("failed to invalidate content cache", "error", err)
	}
}
