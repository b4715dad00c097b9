// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const webinarColumns = `id, title, slug, description, featured_image, start_at, duration_minutes, status,
    price_cents, capacity, is_featured, host_id, meeting_url, recording_url, created_at, updated_at`

const webinarRowSelect = `SELECT w.id, w.title, w.slug, w.description, w.featured_image, w.start_at,
    w.duration_minutes, w.status, w.price_cents, w.capacity, w.is_featured, w.host_id, w.meeting_url,
    w.recording_url, w.created_at, w.updated_at,
    (SELECT COUNT(*) FROM webinar_registrations r WHERE r.webinar_id = w.id AND r.status = 'confirmed')
FROM webinars w`

func scanWebinar(row rowScanner) (Webinar, error) {
	var i Webinar
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Slug,
		&i.Description,
		&i.FeaturedImage,
		&i.StartAt,
		&i.DurationMinutes,
		&i.Status,
		&i.PriceCents,
		&i.Capacity,
		&i.IsFeatured,
		&i.HostID,
		&i.MeetingUrl,
		&i.RecordingUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanWebinarRow(row rowScanner) (WebinarRow, error) {
	var i WebinarRow
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Slug,
		&i.Description,
		&i.FeaturedImage,
		&i.StartAt,
		&i.DurationMinutes,
		&i.Status,
		&i.PriceCents,
		&i.Capacity,
		&i.IsFeatured,
		&i.HostID,
		&i.MeetingUrl,
		&i.RecordingUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ConfirmedCount,
	)
	return i, err
}

func (q *Queries) collectWebinarRows(ctx context.Context, query string, args ...any) ([]WebinarRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WebinarRow
	for rows.Next() {
		i, err := scanWebinarRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createWebinar = `INSERT INTO webinars (title, slug, description, featured_image, start_at, duration_minutes, status,
    price_cents, capacity, is_featured, host_id, meeting_url, recording_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + webinarColumns

type CreateWebinarParams struct {
	Title           string
	Slug            string
	Description     string
	FeaturedImage   string
	StartAt         time.Time
	DurationMinutes int64
	Status          string
	PriceCents      int64
	Capacity        int64
	IsFeatured      bool
	HostID          sql.NullInt64
	MeetingUrl      string
	RecordingUrl    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (q *Queries) CreateWebinar(ctx context.Context, arg CreateWebinarParams) (Webinar, error) {
	row := q.db.QueryRowContext(ctx, createWebinar,
		arg.Title,
		arg.Slug,
		arg.Description,
		arg.FeaturedImage,
		arg.StartAt,
		arg.DurationMinutes,
		arg.Status,
		arg.PriceCents,
		arg.Capacity,
		arg.IsFeatured,
		arg.HostID,
		arg.MeetingUrl,
		arg.RecordingUrl,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanWebinar(row)
}

const updateWebinar = `UPDATE webinars
SET title = ?, slug = ?, description = ?, featured_image = ?, start_at = ?, duration_minutes = ?, status = ?,
    price_cents = ?, capacity = ?, is_featured = ?, meeting_url = ?, recording_url = ?, updated_at = ?
WHERE id = ?
RETURNING ` + webinarColumns

type UpdateWebinarParams struct {
	Title           string
	Slug            string
	Description     string
	FeaturedImage   string
	StartAt         time.Time
	DurationMinutes int64
	Status          string
	PriceCents      int64
	Capacity        int64
	IsFeatured      bool
	MeetingUrl      string
	RecordingUrl    string
	UpdatedAt       time.Time
	ID              int64
}

func (q *Queries) UpdateWebinar(ctx context.Context, arg UpdateWebinarParams) (Webinar, error) {
	row := q.db.QueryRowContext(ctx, updateWebinar,
		arg.Title,
		arg.Slug,
		arg.Description,
		arg.FeaturedImage,
		arg.StartAt,
		arg.DurationMinutes,
		arg.Status,
		arg.PriceCents,
		arg.Capacity,
		arg.IsFeatured,
		arg.MeetingUrl,
		arg.RecordingUrl,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanWebinar(row)
}

const getWebinarByID = webinarRowSelect + ` WHERE w.id = ?`

func (q *Queries) GetWebinarByID(ctx context.Context, id int64) (WebinarRow, error) {
	return scanWebinarRow(q.db.QueryRowContext(ctx, getWebinarByID, id))
}

const getWebinarBySlug = webinarRowSelect + ` WHERE w.slug = ?`

func (q *Queries) GetWebinarBySlug(ctx context.Context, slug string) (WebinarRow, error) {
	return scanWebinarRow(q.db.QueryRowContext(ctx, getWebinarBySlug, slug))
}

const webinarSlugExists = `SELECT COUNT(*) FROM webinars WHERE slug = ? AND id <> ?`

func (q *Queries) WebinarSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, webinarSlugExists, slug, excludeID).Scan(&n)
	return n > 0, err
}

const deleteWebinar = `DELETE FROM webinars WHERE id = ?`

func (q *Queries) DeleteWebinar(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteWebinar, id)
	return err
}

const updateWebinarStatus = `UPDATE webinars SET status = ?, updated_at = ? WHERE id = ?`

type UpdateWebinarStatusParams struct {
	Status    string
	UpdatedAt time.Time
	ID        int64
}

func (q *Queries) UpdateWebinarStatus(ctx context.Context, arg UpdateWebinarStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateWebinarStatus, arg.Status, arg.UpdatedAt, arg.ID)
	return err
}

const publicWebinarFilter = `
WHERE ((@tab = 'upcoming' AND w.status = 'upcoming')
    OR (@tab = 'live' AND w.status = 'live')
    OR (@tab = 'past' AND w.status = 'completed')
    OR (@tab = 'all' AND w.status <> 'cancelled'))
  AND (@q = ''
    OR casefold(w.title) LIKE @like ESCAPE '\'
    OR casefold(w.description) LIKE @like ESCAPE '\'
    OR EXISTS (
        SELECT 1 FROM webinar_speakers ws JOIN speakers s ON s.id = ws.speaker_id
        WHERE ws.webinar_id = w.id AND casefold(s.name) LIKE @like ESCAPE '\'))`

// PublicWebinarFilter narrows the public webinar listing. Tab is one of
// upcoming, live, past or all.
type PublicWebinarFilter struct {
	Tab   string
	Query string
}

func (f PublicWebinarFilter) args() []any {
	return []any{
		sql.Named("tab", f.Tab),
		sql.Named("q", f.Query),
		sql.Named("like", likePattern(f.Query)),
	}
}

const listPublicWebinars = webinarRowSelect + publicWebinarFilter + `
ORDER BY CASE WHEN @tab IN ('upcoming', 'live') THEN w.start_at END ASC, w.start_at DESC, w.id DESC
LIMIT @limit OFFSET @offset`

type ListPublicWebinarsParams struct {
	PublicWebinarFilter
	Limit  int64
	Offset int64
}

func (q *Queries) ListPublicWebinars(ctx context.Context, arg ListPublicWebinarsParams) ([]WebinarRow, error) {
	args := append(arg.args(), sql.Named("limit", arg.Limit), sql.Named("offset", arg.Offset))
	return q.collectWebinarRows(ctx, listPublicWebinars, args...)
}

const countPublicWebinars = `SELECT COUNT(*) FROM webinars w` + publicWebinarFilter

func (q *Queries) CountPublicWebinars(ctx context.Context, arg PublicWebinarFilter) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countPublicWebinars, arg.args()...).Scan(&n)
	return n, err
}

const adminWebinarFilter = `
WHERE (@status = '' OR w.status = @status)
  AND (@q = '' OR casefold(w.title) LIKE @like ESCAPE '\' OR casefold(w.description) LIKE @like ESCAPE '\')`

// AdminWebinarFilter narrows the dashboard webinar listing.
type AdminWebinarFilter struct {
	Status string
	Query  string
}

func (f AdminWebinarFilter) args() []any {
	return []any{
		sql.Named("status", f.Status),
		sql.Named("q", f.Query),
		sql.Named("like", likePattern(f.Query)),
	}
}

const listAdminWebinars = webinarRowSelect + adminWebinarFilter + `
ORDER BY w.start_at DESC, w.id DESC
LIMIT @limit OFFSET @offset`

type ListAdminWebinarsParams struct {
	AdminWebinarFilter
	Limit  int64
	Offset int64
}

func (q *Queries) ListAdminWebinars(ctx context.Context, arg ListAdminWebinarsParams) ([]WebinarRow, error) {
	args := append(arg.args(), sql.Named("limit", arg.Limit), sql.Named("offset", arg.Offset))
	return q.collectWebinarRows(ctx, listAdminWebinars, args...)
}

const countAdminWebinars = `SELECT COUNT(*) FROM webinars w` + adminWebinarFilter

func (q *Queries) CountAdminWebinars(ctx context.Context, arg AdminWebinarFilter) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAdminWebinars, arg.args()...).Scan(&n)
	return n, err
}

const getWebinarStats = `SELECT
    COUNT(*),
    COALESCE(SUM(CASE WHEN status = 'upcoming' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'live' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0),
    (SELECT COALESCE(SUM(w.price_cents), 0)
        FROM webinar_registrations r JOIN webinars w ON w.id = r.webinar_id
        WHERE r.status = 'confirmed'),
    (SELECT COUNT(*) FROM webinar_registrations WHERE status <> 'cancelled')
FROM webinars`

type WebinarStats struct {
	Total         int64
	Upcoming      int64
	Live          int64
	Completed     int64
	Cancelled     int64
	RevenueCents  int64
	Registrations int64
}

// GetWebinarStats aggregates status counts; revenue is the sum of prices over confirmed registrations.
func (q *Queries) GetWebinarStats(ctx context.Context) (WebinarStats, error) {
	var s WebinarStats
	err := q.db.QueryRowContext(ctx, getWebinarStats).Scan(
		&s.Total,
		&s.Upcoming,
		&s.Live,
		&s.Completed,
		&s.Cancelled,
		&s.RevenueCents,
		&s.Registrations,
	)
	return s, err
}

const listUpcomingWebinarsBetween = webinarRowSelect + `
WHERE w.status = 'upcoming' AND w.start_at >= @from AND w.start_at <= @until
ORDER BY w.start_at, w.id
LIMIT @limit`

type ListUpcomingWebinarsBetweenParams struct {
	From  time.Time
	Until time.Time
	Limit int64
}

func (q *Queries) ListUpcomingWebinarsBetween(ctx context.Context, arg ListUpcomingWebinarsBetweenParams) ([]WebinarRow, error) {
	return q.collectWebinarRows(ctx, listUpcomingWebinarsBetween,
		sql.Named("from", arg.From),
		sql.Named("until", arg.Until),
		sql.Named("limit", arg.Limit),
	)
}

const listNextUpcomingWebinars = webinarRowSelect + `
WHERE w.status = 'upcoming' AND w.id <> ?
ORDER BY w.start_at, w.id
LIMIT ?`

func (q *Queries) ListNextUpcomingWebinars(ctx context.Context, excludeID, limit int64) ([]WebinarRow, error) {
	return q.collectWebinarRows(ctx, listNextUpcomingWebinars, excludeID, limit)
}

const listWebinarsSharingSpeakers = webinarRowSelect + `
WHERE w.id <> @id AND w.status <> 'cancelled'
  AND EXISTS (
    SELECT 1 FROM webinar_speakers mine JOIN webinar_speakers theirs ON theirs.speaker_id = mine.speaker_id
    WHERE mine.webinar_id = @id AND theirs.webinar_id = w.id)
ORDER BY w.start_at DESC, w.id DESC
LIMIT @limit`

func (q *Queries) ListWebinarsSharingSpeakers(ctx context.Context, id, limit int64) ([]WebinarRow, error) {
	return q.collectWebinarRows(ctx, listWebinarsSharingSpeakers, sql.Named("id", id), sql.Named("limit", limit))
}

const listWebinarsForStatusRefresh = `SELECT ` + webinarColumns + ` FROM webinars WHERE status IN ('upcoming', 'live')`

// ListWebinarsForStatusRefresh returns webinars whose status may still move with time.
func (q *Queries) ListWebinarsForStatusRefresh(ctx context.Context) ([]Webinar, error) {
	rows, err := q.db.QueryContext(ctx, listWebinarsForStatusRefresh)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Webinar
	for rows.Next() {
		i, err := scanWebinar(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const searchWebinars = webinarRowSelect + `
WHERE casefold(w.title) LIKE ? ESCAPE '\' OR casefold(w.description) LIKE ? ESCAPE '\' OR casefold(w.slug) LIKE ? ESCAPE '\'
ORDER BY w.start_at DESC
LIMIT ?`

func (q *Queries) SearchWebinars(ctx context.Context, query string, limit int64) ([]WebinarRow, error) {
	like := likePattern(query)
	return q.collectWebinarRows(ctx, searchWebinars, like, like, like, limit)
}

const forEachWebinar = webinarRowSelect + ` ORDER BY w.id`

// ForEachWebinar streams every webinar to fn in id order.
func (q *Queries) ForEachWebinar(ctx context.Context, fn func(WebinarRow) error) error {
	rows, err := q.db.QueryContext(ctx, forEachWebinar)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		w, err := scanWebinarRow(rows)
		if err != nil {
			return err
		}
		if err := fn(w); err != nil {
			return err
		}
	}
	return rows.Err()
}
