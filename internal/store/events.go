// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const createEvent = `INSERT INTO events (level, category, message, user_id, ip_address, request_url, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, user_id, ip_address, request_url, metadata, created_at`

type CreateEventParams struct {
	Level      string
	Category   string
	Message    string
	UserID     sql.NullInt64
	IpAddress  string
	RequestUrl string
	Metadata   string
	CreatedAt  time.Time
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	var i Event
	err := q.db.QueryRowContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.UserID,
		arg.IpAddress,
		arg.RequestUrl,
		arg.Metadata,
		arg.CreatedAt,
	).Scan(
		&i.ID,
		&i.Level,
		&i.Category,
		&i.Message,
		&i.UserID,
		&i.IpAddress,
		&i.RequestUrl,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const eventFilter = `
WHERE (@level = '' OR e.level = @level)
  AND (@category = '' OR e.category = @category)`

// EventFilter narrows the activity log. Empty fields match everything.
type EventFilter struct {
	Level    string
	Category string
}

func (f EventFilter) args() []any {
	return []any{
		sql.Named("level", f.Level),
		sql.Named("category", f.Category),
	}
}

const listEvents = `SELECT e.id, e.level, e.category, e.message, e.user_id, e.ip_address, e.request_url, e.metadata,
    e.created_at, COALESCE(u.email, '')
FROM events e
LEFT JOIN users u ON u.id = e.user_id` + eventFilter + `
ORDER BY e.created_at DESC, e.id DESC
LIMIT @limit OFFSET @offset`

type ListEventsParams struct {
	EventFilter
	Limit  int64
	Offset int64
}

func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]EventRow, error) {
	args := append(arg.args(), sql.Named("limit", arg.Limit), sql.Named("offset", arg.Offset))
	rows, err := q.db.QueryContext(ctx, listEvents, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EventRow
	for rows.Next() {
		var i EventRow
		if err := rows.Scan(
			&i.ID,
			&i.Level,
			&i.Category,
			&i.Message,
			&i.UserID,
			&i.IpAddress,
			&i.RequestUrl,
			&i.Metadata,
			&i.CreatedAt,
			&i.UserEmail,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countEvents = `SELECT COUNT(*) FROM events e` + eventFilter

func (q *Queries) CountEvents(ctx context.Context, arg EventFilter) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countEvents, arg.args()...).Scan(&n)
	return n, err
}

const deleteOldEvents = `DELETE FROM events WHERE created_at < ?`

func (q *Queries) DeleteOldEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOldEvents, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
