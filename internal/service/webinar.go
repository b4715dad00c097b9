// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/thinkspace/internal/cache"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/util"
)

// Webinar listing limits.
const (
	RelatedWebinarLimit = 3
	HomeSectionLimit    = 6
	HomeUpcomingWindow  = 7 * 24 * time.Hour
)

// ErrStartInPast is returned when a webinar is scheduled before now.
var ErrStartInPast = errors.New("the start time cannot be in the past")

// WebinarService schedules webinars and keeps their status in step with the clock.
type WebinarService struct {
	db       *sql.DB
	queries  *store.Queries
	uploads  *UploadService
	renderer *ContentRenderer
	cache    cache.Cacher
	logger   *slog.Logger
	now      func() time.Time
}

// NewWebinarService creates a WebinarService. c may be nil.
func NewWebinarService(db *sql.DB, uploads *UploadService, renderer *ContentRenderer, c cache.Cacher, logger *slog.Logger) *WebinarService {
	return &WebinarService{
		db:       db,
		queries:  store.New(db),
		uploads:  uploads,
		renderer: renderer,
		cache:    c,
		logger:   logger,
		now:      nowUTC,
	}
}

// Get returns a webinar by id with its speakers, for the editor.
func (s *WebinarService) Get(ctx context.Context, id int64) (store.WebinarRow, []store.Speaker, error) {
	w, err := s.queries.GetWebinarByID(ctx, id)
	if err != nil {
		return store.WebinarRow{}, nil, notFound(err)
	}
	speakers, err := s.queries.ListSpeakersForWebinar(ctx, id)
	if err != nil {
		return store.WebinarRow{}, nil, fmt.Errorf("listing speakers: %w", err)
	}
	return w, speakers, nil
}

// Create schedules a new webinar hosted by hostID.
func (s *WebinarService) Create(ctx context.Context, hostID int64, form model.WebinarForm, image *FileUpload) (store.WebinarRow, error) {
	return s.save(ctx, 0, hostID, form, image)
}

// Update rewrites webinar id.
func (s *WebinarService) Update(ctx context.Context, id int64, form model.WebinarForm, image *FileUpload) (store.WebinarRow, error) {
	return s.save(ctx, id, 0, form, image)
}

func (s *WebinarService) save(ctx context.Context, id, hostID int64, form model.WebinarForm, image *FileUpload) (store.WebinarRow, error) {
	if errs := model.Validate(form); errs != nil {
		return store.WebinarRow{}, errs
	}

	var existing store.WebinarRow
	if id != 0 {
		var err error
		if existing, err = s.queries.GetWebinarByID(ctx, id); err != nil {
			return store.WebinarRow{}, notFound(err)
		}
	}

	now := s.now()
	start := form.StartTime()
	errs := model.ValidationErrors{}
	if (id == 0 || !start.Equal(existing.StartAt)) && start.Before(now) {
		errs.Add("start_at", ErrStartInPast.Error())
	}
	if id != 0 && form.Capacity < existing.ConfirmedCount {
		errs.Add("capacity", fmt.Sprintf("%d registrations are already confirmed", existing.ConfirmedCount))
	}
	for _, speakerID := range form.SpeakerIDs {
		if _, err := s.queries.GetSpeakerByID(ctx, speakerID); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return store.WebinarRow{}, fmt.Errorf("loading speaker: %w", err)
			}
			errs.Add("speaker_ids", "Unknown speaker selected")
		}
	}
	if err := errs.Err(); err != nil {
		return store.WebinarRow{}, err
	}

	slug, err := resolveSlug(ctx, id, form.Slug, form.Title, existing.Slug, "webinar", s.queries.WebinarSlugExists)
	if err != nil {
		return store.WebinarRow{}, err
	}

	status := form.Status
	if status == "" {
		status = existing.Status
	}
	if status == "" {
		status = model.WebinarStatusUpcoming
	}
	status = model.ComputeWebinarStatus(status, start, form.DurationMinutes, now)

	imagePath, err := s.uploads.Replace(model.UploadWebinarImage, image, existing.FeaturedImage, form.RemoveImage)
	if err != nil {
		return store.WebinarRow{}, model.ValidationErrors{"featured_image": err.Error()}
	}

	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		if id == 0 {
			w, err := q.CreateWebinar(ctx, store.CreateWebinarParams{
				Title:           strings.TrimSpace(form.Title),
				Slug:            slug,
				Description:     form.Description,
				FeaturedImage:   imagePath,
				StartAt:         start,
				DurationMinutes: form.DurationMinutes,
				Status:          status,
				PriceCents:      form.PriceCents(),
				Capacity:        form.Capacity,
				IsFeatured:      form.IsFeatured,
				HostID:          util.NullID(hostID),
				MeetingUrl:      form.MeetingURL,
				RecordingUrl:    form.RecordingURL,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
			if err != nil {
				return fmt.Errorf("creating webinar: %w", err)
			}
			id = w.ID
		} else {
			_, err := q.UpdateWebinar(ctx, store.UpdateWebinarParams{
				Title:           strings.TrimSpace(form.Title),
				Slug:            slug,
				Description:     form.Description,
				FeaturedImage:   imagePath,
				StartAt:         start,
				DurationMinutes: form.DurationMinutes,
				Status:          status,
				PriceCents:      form.PriceCents(),
				Capacity:        form.Capacity,
				IsFeatured:      form.IsFeatured,
				MeetingUrl:      form.MeetingURL,
				RecordingUrl:    form.RecordingURL,
				UpdatedAt:       now,
				ID:              id,
			})
			if err != nil {
				return fmt.Errorf("updating webinar: %w", err)
			}
		}
		if err := q.ClearWebinarSpeakers(ctx, id); err != nil {
			return fmt.Errorf("clearing speakers: %w", err)
		}
		for _, speakerID := range form.SpeakerIDs {
			if err := q.AddWebinarSpeaker(ctx, store.WebinarSpeakerParams{WebinarID: id, SpeakerID: speakerID}); err != nil {
				return fmt.Errorf("assigning speaker: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if imagePath != existing.FeaturedImage {
			s.uploads.Remove(imagePath)
		}
		if store.IsUniqueViolation(err, "webinars.slug") {
			return store.WebinarRow{}, model.ValidationErrors{"slug": "This slug is already in use"}
		}
		return store.WebinarRow{}, err
	}

	s.invalidate(ctx)
	w, err := s.queries.GetWebinarByID(ctx, id)
	if err != nil {
		return store.WebinarRow{}, fmt.Errorf("reloading webinar: %w", err)
	}
	return w, nil
}

// Delete removes a webinar with its resources, registrations and files.
func (s *WebinarService) Delete(ctx context.Context, id int64) error {
	w, err := s.queries.GetWebinarByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	resources, err := s.queries.ListResourcesForWebinar(ctx, id)
	if err != nil {
		return fmt.Errorf("listing resources: %w", err)
	}
	var proofs []string
	err = s.queries.ForEachRegistration(ctx, id, func(r store.WebinarRegistration) error {
		if r.PaymentProof != "" {
			proofs = append(proofs, r.PaymentProof)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing registrations: %w", err)
	}

	if err := s.queries.DeleteWebinar(ctx, id); err != nil {
		return fmt.Errorf("deleting webinar: %w", err)
	}

	s.uploads.Remove(w.FeaturedImage)
	for _, r := range resources {
		s.uploads.Remove(r.FilePath)
	}
	for _, p := range proofs {
		s.uploads.Remove(p)
	}
	s.invalidate(ctx)
	return nil
}

// SetStatus applies a status chosen in the dashboard. Cancelled is kept
// as is; any other choice is recomputed from the clock.
func (s *WebinarService) SetStatus(ctx context.Context, id int64, status string) (string, error) {
	if !model.IsValidWebinarStatus(status) {
		return "", model.ValidationErrors{"status": "Unknown status"}
	}
	w, err := s.queries.GetWebinarByID(ctx, id)
	if err != nil {
		return "", notFound(err)
	}
	now := s.now()
	status = model.ComputeWebinarStatus(status, w.StartAt, w.DurationMinutes, now)
	if err := s.queries.UpdateWebinarStatus(ctx, store.UpdateWebinarStatusParams{Status: status, UpdatedAt: now, ID: id}); err != nil {
		return "", fmt.Errorf("updating status: %w", err)
	}
	s.invalidate(ctx)
	return status, nil
}

// RefreshStatuses moves upcoming and live webinars along as time passes.
// It returns how many changed.
func (s *WebinarService) RefreshStatuses(ctx context.Context) (int, error) {
	webinars, err := s.queries.ListWebinarsForStatusRefresh(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing webinars: %w", err)
	}
	now := s.now()
	changed := 0
	for _, w := range webinars {
		status := model.ComputeWebinarStatus(w.Status, w.StartAt, w.DurationMinutes, now)
		if status == w.Status {
			continue
		}
		if err := s.queries.UpdateWebinarStatus(ctx, store.UpdateWebinarStatusParams{Status: status, UpdatedAt: now, ID: w.ID}); err != nil {
			return changed, fmt.Errorf("updating webinar %d: %w", w.ID, err)
		}
		changed++
	}
	if changed > 0 {
		s.invalidate(ctx)
	}
	return changed, nil
}

// ListPublic returns a page of webinars for one public tab.
func (s *WebinarService) ListPublic(ctx context.Context, filter store.PublicWebinarFilter, page int) (Page[store.WebinarRow], error) {
	filter.Tab = model.NormalizeWebinarTab(filter.Tab)
	filter.Query = strings.TrimSpace(filter.Query)
	number, limit, offset := limitOffset(page, PublicWebinarPageSize)
	total, err := s.queries.CountPublicWebinars(ctx, filter)
	if err != nil {
		return Page[store.WebinarRow]{}, fmt.Errorf("counting webinars: %w", err)
	}
	items, err := s.queries.ListPublicWebinars(ctx, store.ListPublicWebinarsParams{
		PublicWebinarFilter: filter,
		Limit:               limit,
		Offset:              offset,
	})
	if err != nil {
		return Page[store.WebinarRow]{}, fmt.Errorf("listing webinars: %w", err)
	}
	return Page[store.WebinarRow]{Items: items, Number: number, PerPage: PublicWebinarPageSize, Total: total}, nil
}

// Viewer is the visitor looking at a webinar page.
type Viewer struct {
	Email   string
	IsStaff bool
}

// WebinarDetail is a public webinar page.
type WebinarDetail struct {
	Webinar        store.WebinarRow
	Description    template.HTML
	Speakers       []store.Speaker
	Resources      []store.WebinarResource
	SeatsRemaining int64
	Registration   *store.WebinarRegistration
	Related        []store.WebinarRow
	// ResourcesLocked is set when some resources are hidden until the
	// viewer's registration is confirmed.
	ResourcesLocked bool
}

// Detail loads a public webinar page for viewer.
func (s *WebinarService) Detail(ctx context.Context, slug string, viewer Viewer) (WebinarDetail, error) {
	w, err := s.queries.GetWebinarBySlug(ctx, slug)
	if err != nil {
		return WebinarDetail{}, notFound(err)
	}
	// The stored status trails the clock by up to one refresh run.
	w.Status = model.ComputeWebinarStatus(w.Status, w.StartAt, w.DurationMinutes, s.now())
	d := WebinarDetail{Webinar: w, SeatsRemaining: w.SeatsRemaining()}

	if d.Description, err = s.renderer.Render(w.Description); err != nil {
		return WebinarDetail{}, fmt.Errorf("rendering description: %w", err)
	}
	if d.Speakers, err = s.queries.ListSpeakersForWebinar(ctx, w.ID); err != nil {
		return WebinarDetail{}, fmt.Errorf("listing speakers: %w", err)
	}

	if email := model.NormalizeEmail(viewer.Email); email != "" {
		reg, err := s.queries.GetRegistrationByEmail(ctx, store.GetRegistrationByEmailParams{WebinarID: w.ID, Email: email})
		switch {
		case err == nil:
			d.Registration = &reg
		case !errors.Is(err, sql.ErrNoRows):
			return WebinarDetail{}, fmt.Errorf("loading registration: %w", err)
		}
	}

	resources, err := s.queries.ListResourcesForWebinar(ctx, w.ID)
	if err != nil {
		return WebinarDetail{}, fmt.Errorf("listing resources: %w", err)
	}
	full := viewer.IsStaff || d.Registration != nil && d.Registration.Status == model.RegistrationConfirmed
	for _, r := range resources {
		if full || r.IsPreview {
			d.Resources = append(d.Resources, r)
		} else {
			d.ResourcesLocked = true
		}
	}

	if d.Related, err = s.Related(ctx, w.ID); err != nil {
		return WebinarDetail{}, err
	}
	return d, nil
}

// Related returns webinars sharing a speaker, or else the next upcoming ones.
func (s *WebinarService) Related(ctx context.Context, id int64) ([]store.WebinarRow, error) {
	related, err := s.queries.ListWebinarsSharingSpeakers(ctx, id, RelatedWebinarLimit)
	if err != nil {
		return nil, fmt.Errorf("listing related webinars: %w", err)
	}
	if len(related) > 0 {
		return related, nil
	}
	related, err = s.queries.ListNextUpcomingWebinars(ctx, id, RelatedWebinarLimit)
	if err != nil {
		return nil, fmt.Errorf("listing upcoming webinars: %w", err)
	}
	return related, nil
}

// AdminWebinarList is the dashboard webinar listing with its aggregate figures.
type AdminWebinarList struct {
	Page  Page[store.WebinarRow]
	Stats store.WebinarStats
}

// ListAdmin returns a page of webinars for the dashboard.
func (s *WebinarService) ListAdmin(ctx context.Context, filter store.AdminWebinarFilter, page int) (AdminWebinarList, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	number, limit, offset := limitOffset(page, AdminPageSize)
	total, err := s.queries.CountAdminWebinars(ctx, filter)
	if err != nil {
		return AdminWebinarList{}, fmt.Errorf("counting webinars: %w", err)
	}
	items, err := s.queries.ListAdminWebinars(ctx, store.ListAdminWebinarsParams{
		AdminWebinarFilter: filter,
		Limit:              limit,
		Offset:             offset,
	})
	if err != nil {
		return AdminWebinarList{}, fmt.Errorf("listing webinars: %w", err)
	}
	stats, err := s.queries.GetWebinarStats(ctx)
	if err != nil {
		return AdminWebinarList{}, fmt.Errorf("loading webinar stats: %w", err)
	}
	return AdminWebinarList{
		Page:  Page[store.WebinarRow]{Items: items, Number: number, PerPage: AdminPageSize, Total: total},
		Stats: stats,
	}, nil
}

// UpcomingWithin returns upcoming webinars starting within d from now.
func (s *WebinarService) UpcomingWithin(ctx context.Context, d time.Duration, limit int) ([]store.WebinarRow, error) {
	now := s.now()
	items, err := s.queries.ListUpcomingWebinarsBetween(ctx, store.ListUpcomingWebinarsBetweenParams{
		From:  now,
		Until: now.Add(d),
		Limit: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing upcoming webinars: %w", err)
	}
	return items, nil
}

func (s *WebinarService) invalidate(ctx context.Context) {
	if err := cache.InvalidateContent(ctx, s.cache); err != nil {
		s.logger.Warn("failed to invalidate content cache", "error", err)
	}
}
