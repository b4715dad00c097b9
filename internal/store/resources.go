// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const resourceColumns = `id, webinar_id, title, description, resource_type, file_path, url, is_preview, position, created_at`

func scanResource(row rowScanner) (WebinarResource, error) {
	var i WebinarResource
	err := row.Scan(
		&i.ID,
		&i.WebinarID,
		&i.Title,
		&i.Description,
		&i.ResourceType,
		&i.FilePath,
		&i.Url,
		&i.IsPreview,
		&i.Position,
		&i.CreatedAt,
	)
	return i, err
}

const createResource = `INSERT INTO webinar_resources (webinar_id, title, description, resource_type, file_path, url,
    is_preview, position, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + resourceColumns

type CreateResourceParams struct {
	WebinarID    int64
	Title        string
	Description  string
	ResourceType string
	FilePath     string
	Url          string
	IsPreview    bool
	Position     int64
	CreatedAt    time.Time
}

func (q *Queries) CreateResource(ctx context.Context, arg CreateResourceParams) (WebinarResource, error) {
	row := q.db.QueryRowContext(ctx, createResource,
		arg.WebinarID,
		arg.Title,
		arg.Description,
		arg.ResourceType,
		arg.FilePath,
		arg.Url,
		arg.IsPreview,
		arg.Position,
		arg.CreatedAt,
	)
	return scanResource(row)
}

const getResource = `SELECT ` + resourceColumns + ` FROM webinar_resources WHERE id = ?`

func (q *Queries) GetResource(ctx context.Context, id int64) (WebinarResource, error) {
	return scanResource(q.db.QueryRowContext(ctx, getResource, id))
}

const listResourcesForWebinar = `SELECT ` + resourceColumns + ` FROM webinar_resources
WHERE webinar_id = ?
ORDER BY position, id`

func (q *Queries) ListResourcesForWebinar(ctx context.Context, webinarID int64) ([]WebinarResource, error) {
	rows, err := q.db.QueryContext(ctx, listResourcesForWebinar, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WebinarResource
	for rows.Next() {
		i, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const nextResourcePosition = `SELECT COALESCE(MAX(position), -1) + 1 FROM webinar_resources WHERE webinar_id = ?`

func (q *Queries) NextResourcePosition(ctx context.Context, webinarID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, nextResourcePosition, webinarID).Scan(&n)
	return n, err
}

const deleteResource = `DELETE FROM webinar_resources WHERE id = ?`

func (q *Queries) DeleteResource(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteResource, id)
	return err
}
