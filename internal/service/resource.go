// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
)

// ResourceService manages the files and links attached to a webinar.
type ResourceService struct {
	queries *store.Queries
	uploads *UploadService
	logger  *slog.Logger
}

// NewResourceService creates a ResourceService.
func NewResourceService(db *sql.DB, uploads *UploadService, logger *slog.Logger) *ResourceService {
	return &ResourceService{queries: store.New(db), uploads: uploads, logger: logger}
}

// List returns a webinar's resources in display order.
func (s *ResourceService) List(ctx context.Context, webinarID int64) ([]store.WebinarResource, error) {
	return s.queries.ListResourcesForWebinar(ctx, webinarID)
}

// Add attaches a resource to a webinar. Exactly one of file and form.URL
// must be given.
func (s *ResourceService) Add(ctx context.Context, webinarID int64, form model.ResourceForm, file *FileUpload) (store.WebinarResource, error) {
	form.HasFile = file != nil
	if err := model.ValidateResourceSource(boolPath(form.HasFile), form.URL); err != nil {
		return store.WebinarResource{}, err
	}
	if errs := model.Validate(form); errs != nil {
		return store.WebinarResource{}, errs
	}
	if _, err := s.queries.GetWebinarByID(ctx, webinarID); err != nil {
		return store.WebinarResource{}, notFound(err)
	}

	var filePath string
	if file != nil {
		var err error
		if filePath, err = s.uploads.Save(model.UploadResource, *file); err != nil {
			return store.WebinarResource{}, model.ValidationErrors{"file": err.Error()}
		}
	}
	if err := model.ValidateResourceSource(filePath, form.URL); err != nil {
		s.uploads.Remove(filePath)
		return store.WebinarResource{}, err
	}

	position, err := s.queries.NextResourcePosition(ctx, webinarID)
	if err != nil {
		s.uploads.Remove(filePath)
		return store.WebinarResource{}, fmt.Errorf("ordering resource: %w", err)
	}
	r, err := s.queries.CreateResource(ctx, store.CreateResourceParams{
		WebinarID:    webinarID,
		Title:        strings.TrimSpace(form.Title),
		Description:  form.Description,
		ResourceType: form.ResourceType,
		FilePath:     filePath,
		Url:          form.URL,
		IsPreview:    form.IsPreview,
		Position:     position,
		CreatedAt:    nowUTC(),
	})
	if err != nil {
		s.uploads.Remove(filePath)
		return store.WebinarResource{}, fmt.Errorf("creating resource: %w", err)
	}
	return r, nil
}

// Delete removes a resource of webinarID and its file.
func (s *ResourceService) Delete(ctx context.Context, webinarID, id int64) error {
	r, err := s.queries.GetResource(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if r.WebinarID != webinarID {
		return ErrNotFound
	}
	if err := s.queries.DeleteResource(ctx, id); err != nil {
		return fmt.Errorf("deleting resource: %w", err)
	}
	s.uploads.Remove(r.FilePath)
	return nil
}

// boolPath stands in for a file path when only presence matters.
func boolPath(present bool) string {
	if present {
		return "file"
	}
	return ""
}
