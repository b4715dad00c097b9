// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/olegiv/thinkspace/internal/store"
)

// Export formats.
const (
	FormatCSV    = "csv"
	FormatNDJSON = "ndjson"
)

// Export datasets.
const (
	DatasetUsers         = "users"
	DatasetBlogs         = "blogs"
	DatasetWebinars      = "webinars"
	DatasetRegistrations = "registrations"
)

// ErrUnsupportedExport is returned for an unknown dataset or format.
var ErrUnsupportedExport = errors.New("unsupported export")

// ExportService streams tables as CSV or NDJSON.
type ExportService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewExportService creates an ExportService.
func NewExportService(db *sql.DB, logger *slog.Logger) *ExportService {
	return &ExportService{queries: store.New(db), logger: logger}
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	if format == FormatNDJSON {
		return "application/x-ndjson"
	}
	return "text/csv; charset=utf-8"
}

// ExportFilename returns the attachment name for a dataset export.
func ExportFilename(dataset, format string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", dataset, now.Format("20060102"), format)
}

// ValidExport reports whether dataset and format can be exported.
func ValidExport(dataset, format string) bool {
	switch dataset {
	case DatasetUsers, DatasetBlogs, DatasetWebinars, DatasetRegistrations:
	default:
		return false
	}
	return format == FormatCSV || format == FormatNDJSON
}

// exportSink writes one record per row in the chosen format.
type exportSink struct {
	csv  *csv.Writer
	json *json.Encoder
}

func newExportSink(w io.Writer, format string, header []string) (*exportSink, error) {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return nil, err
		}
		return &exportSink{csv: cw}, nil
	case FormatNDJSON:
		return &exportSink{json: json.NewEncoder(w)}, nil
	default:
		return nil, ErrUnsupportedExport
	}
}

func (s *exportSink) write(record any, row []string) error {
	if s.csv != nil {
		return s.csv.Write(row)
	}
	return s.json.Encode(record)
}

func (s *exportSink) flush() error {
	if s.csv == nil {
		return nil
	}
	s.csv.Flush()
	return s.csv.Error()
}

// Export writes dataset to w. webinarID selects the webinar for the
// registrations dataset and is ignored otherwise.
func (s *ExportService) Export(ctx context.Context, w io.Writer, dataset, format string, webinarID int64) error {
	if !ValidExport(dataset, format) {
		return ErrUnsupportedExport
	}
	var (
		count int
		err   error
	)
	switch dataset {
	case DatasetUsers:
		count, err = s.users(ctx, w, format)
	case DatasetBlogs:
		count, err = s.blogs(ctx, w, format)
	case DatasetWebinars:
		count, err = s.webinars(ctx, w, format)
	case DatasetRegistrations:
		count, err = s.registrations(ctx, w, format, webinarID)
	}
	if err != nil {
		return fmt.Errorf("exporting %s: %w", dataset, err)
	}
	s.logger.Info("export completed", "dataset", dataset, "format", format, "count", count)
	return nil
}

func (s *ExportService) users(ctx context.Context, w io.Writer, format string) (int, error) {
	sink, err := newExportSink(w, format, []string{"id", "email", "username", "first_name", "last_name",
		"is_staff", "is_superuser", "is_active", "created_at"})
	if err != nil {
		return 0, err
	}
	count := 0
	err = s.queries.ForEachUser(ctx, func(u store.User) error {
		count++
		return sink.write(u, []string{
			strconv.FormatInt(u.ID, 10),
			u.Email,
			u.Username,
			u.FirstName,
			u.LastName,
			strconv.FormatBool(u.IsStaff),
			strconv.FormatBool(u.IsSuperuser),
			strconv.FormatBool(u.IsActive),
			u.CreatedAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return count, err
	}
	return count, sink.flush()
}

func (s *ExportService) blogs(ctx context.Context, w io.Writer, format string) (int, error) {
	sink, err := newExportSink(w, format, []string{"id", "title", "slug", "status", "is_verified", "author",
		"category", "views", "published_at", "created_at"})
	if err != nil {
		return 0, err
	}
	count := 0
	err = s.queries.ForEachBlog(ctx, func(b store.BlogRow) error {
		count++
		published := ""
		if b.PublishedAt.Valid {
			published = b.PublishedAt.Time.Format(time.RFC3339)
		}
		return sink.write(b, []string{
			strconv.FormatInt(b.ID, 10),
			b.Title,
			b.Slug,
			b.Status,
			strconv.FormatBool(b.IsVerified),
			b.AuthorName,
			b.CategoryName,
			strconv.FormatInt(b.Views, 10),
			published,
			b.CreatedAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return count, err
	}
	return count, sink.flush()
}

func (s *ExportService) webinars(ctx context.Context, w io.Writer, format string) (int, error) {
	sink, err := newExportSink(w, format, []string{"id", "title", "slug", "status", "start_at",
		"duration_minutes", "price_cents", "capacity", "confirmed"})
	if err != nil {
		return 0, err
	}
	count := 0
	err = s.queries.ForEachWebinar(ctx, func(wr store.WebinarRow) error {
		count++
		return sink.write(wr, []string{
			strconv.FormatInt(wr.ID, 10),
			wr.Title,
			wr.Slug,
			wr.Status,
			wr.StartAt.Format(time.RFC3339),
			strconv.FormatInt(wr.DurationMinutes, 10),
			strconv.FormatInt(wr.PriceCents, 10),
			strconv.FormatInt(wr.Capacity, 10),
			strconv.FormatInt(wr.ConfirmedCount, 10),
		})
	})
	if err != nil {
		return count, err
	}
	return count, sink.flush()
}

func (s *ExportService) registrations(ctx context.Context, w io.Writer, format string, webinarID int64) (int, error) {
	if _, err := s.queries.GetWebinarByID(ctx, webinarID); err != nil {
		return 0, notFound(err)
	}
	sink, err := newExportSink(w, format, []string{"id", "full_name", "email", "status", "payment_reference",
		"question", "joined_at", "left_at", "created_at"})
	if err != nil {
		return 0, err
	}
	count := 0
	err = s.queries.ForEachRegistration(ctx, webinarID, func(r store.WebinarRegistration) error {
		count++
		return sink.write(r, []string{
			strconv.FormatInt(r.ID, 10),
			r.FullName,
			r.Email,
			r.Status,
			r.PaymentReference,
			r.Question,
			formatNullTime(r.JoinedAt),
			formatNullTime(r.LeftAt),
			r.CreatedAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return count, err
	}
	return count, sink.flush()
}

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(time.RFC3339)
}
