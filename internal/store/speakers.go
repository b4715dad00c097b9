// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const speakerColumns = `id, name, slug, title, bio, photo, website, twitter, linkedin, email, is_active, created_at, updated_at`

func scanSpeaker(row rowScanner) (Speaker, error) {
	var i Speaker
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.Title,
		&i.Bio,
		&i.Photo,
		&i.Website,
		&i.Twitter,
		&i.Linkedin,
		&i.Email,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) collectSpeakers(ctx context.Context, query string, args ...any) ([]Speaker, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Speaker
	for rows.Next() {
		i, err := scanSpeaker(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createSpeaker = `INSERT INTO speakers (name, slug, title, bio, photo, website, twitter, linkedin, email, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + speakerColumns

type CreateSpeakerParams struct {
	Name      string
	Slug      string
	Title     string
	Bio       string
	Photo     string
	Website   string
	Twitter   string
	Linkedin  string
	Email     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateSpeaker(ctx context.Context, arg CreateSpeakerParams) (Speaker, error) {
	row := q.db.QueryRowContext(ctx, createSpeaker,
		arg.Name,
		arg.Slug,
		arg.Title,
		arg.Bio,
		arg.Photo,
		arg.Website,
		arg.Twitter,
		arg.Linkedin,
		arg.Email,
		arg.IsActive,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanSpeaker(row)
}

const updateSpeaker = `UPDATE speakers
SET name = ?, slug = ?, title = ?, bio = ?, photo = ?, website = ?, twitter = ?, linkedin = ?, email = ?,
    is_active = ?, updated_at = ?
WHERE id = ?
RETURNING ` + speakerColumns

type UpdateSpeakerParams struct {
	Name      string
	Slug      string
	Title     string
	Bio       string
	Photo     string
	Website   string
	Twitter   string
	Linkedin  string
	Email     string
	IsActive  bool
	UpdatedAt time.Time
	ID        int64
}

func (q *Queries) UpdateSpeaker(ctx context.Context, arg UpdateSpeakerParams) (Speaker, error) {
	row := q.db.QueryRowContext(ctx, updateSpeaker,
		arg.Name,
		arg.Slug,
		arg.Title,
		arg.Bio,
		arg.Photo,
		arg.Website,
		arg.Twitter,
		arg.Linkedin,
		arg.Email,
		arg.IsActive,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanSpeaker(row)
}

const getSpeakerByID = `SELECT ` + speakerColumns + ` FROM speakers WHERE id = ?`

func (q *Queries) GetSpeakerByID(ctx context.Context, id int64) (Speaker, error) {
	return scanSpeaker(q.db.QueryRowContext(ctx, getSpeakerByID, id))
}

const speakerSlugExists = `SELECT COUNT(*) FROM speakers WHERE slug = ? AND id <> ?`

func (q *Queries) SpeakerSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, speakerSlugExists, slug, excludeID).Scan(&n)
	return n > 0, err
}

const deleteSpeaker = `DELETE FROM speakers WHERE id = ?`

func (q *Queries) DeleteSpeaker(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteSpeaker, id)
	return err
}

const listSpeakersWithCounts = `SELECT s.id, s.name, s.slug, s.title, s.bio, s.photo, s.website, s.twitter, s.linkedin,
    s.email, s.is_active, s.created_at, s.updated_at, COUNT(ws.webinar_id)
FROM speakers s
LEFT JOIN webinar_speakers ws ON ws.speaker_id = s.id
WHERE (@active_only = 0 OR s.is_active = 1)
  AND (@q = '' OR casefold(s.name) LIKE @like ESCAPE '\' OR casefold(s.title) LIKE @like ESCAPE '\')
GROUP BY s.id
ORDER BY s.name`

type ListSpeakersParams struct {
	ActiveOnly bool
	Query      string
}

func (q *Queries) ListSpeakersWithCounts(ctx context.Context, arg ListSpeakersParams) ([]SpeakerRow, error) {
	rows, err := q.db.QueryContext(ctx, listSpeakersWithCounts,
		sql.Named("active_only", arg.ActiveOnly),
		sql.Named("q", arg.Query),
		sql.Named("like", likePattern(arg.Query)),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SpeakerRow
	for rows.Next() {
		var i SpeakerRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Slug,
			&i.Title,
			&i.Bio,
			&i.Photo,
			&i.Website,
			&i.Twitter,
			&i.Linkedin,
			&i.Email,
			&i.IsActive,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.WebinarCount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listActiveSpeakers = `SELECT ` + speakerColumns + ` FROM speakers WHERE is_active = 1 ORDER BY name`

func (q *Queries) ListActiveSpeakers(ctx context.Context) ([]Speaker, error) {
	return q.collectSpeakers(ctx, listActiveSpeakers)
}

const listSpeakersForWebinar = `SELECT s.id, s.name, s.slug, s.title, s.bio, s.photo, s.website, s.twitter, s.linkedin,
    s.email, s.is_active, s.created_at, s.updated_at
FROM speakers s
JOIN webinar_speakers ws ON ws.speaker_id = s.id
WHERE ws.webinar_id = ?
ORDER BY s.name`

func (q *Queries) ListSpeakersForWebinar(ctx context.Context, webinarID int64) ([]Speaker, error) {
	return q.collectSpeakers(ctx, listSpeakersForWebinar, webinarID)
}

const addWebinarSpeaker = `INSERT OR IGNORE INTO webinar_speakers (webinar_id, speaker_id) VALUES (?, ?)`

type WebinarSpeakerParams struct {
	WebinarID int64
	SpeakerID int64
}

func (q *Queries) AddWebinarSpeaker(ctx context.Context, arg WebinarSpeakerParams) error {
	_, err := q.db.ExecContext(ctx, addWebinarSpeaker, arg.WebinarID, arg.SpeakerID)
	return err
}

const clearWebinarSpeakers = `DELETE FROM webinar_speakers WHERE webinar_id = ?`

func (q *Queries) ClearWebinarSpeakers(ctx context.Context, webinarID int64) error {
	_, err := q.db.ExecContext(ctx, clearWebinarSpeakers, webinarID)
	return err
}
