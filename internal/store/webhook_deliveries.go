// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const webhookDeliveryColumns = `id, endpoint, event, payload, status, attempts, response_code, error_message,
    next_retry_at, delivered_at, created_at, updated_at`

func scanWebhookDelivery(row rowScanner) (WebhookDelivery, error) {
	var i WebhookDelivery
	err := row.Scan(
		&i.ID,
		&i.Endpoint,
		&i.Event,
		&i.Payload,
		&i.Status,
		&i.Attempts,
		&i.ResponseCode,
		&i.ErrorMessage,
		&i.NextRetryAt,
		&i.DeliveredAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createWebhookDelivery = `INSERT INTO webhook_deliveries (endpoint, event, payload, status, created_at, updated_at)
VALUES (?, ?, ?, 'pending', ?, ?)
RETURNING ` + webhookDeliveryColumns

type CreateWebhookDeliveryParams struct {
	Endpoint  string
	Event     string
	Payload   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateWebhookDelivery(ctx context.Context, arg CreateWebhookDeliveryParams) (WebhookDelivery, error) {
	row := q.db.QueryRowContext(ctx, createWebhookDelivery, arg.Endpoint, arg.Event, arg.Payload, arg.CreatedAt, arg.UpdatedAt)
	return scanWebhookDelivery(row)
}

const getWebhookDelivery = `SELECT ` + webhookDeliveryColumns + ` FROM webhook_deliveries WHERE id = ?`

func (q *Queries) GetWebhookDelivery(ctx context.Context, id int64) (WebhookDelivery, error) {
	return scanWebhookDelivery(q.db.QueryRowContext(ctx, getWebhookDelivery, id))
}

const updateDeliverySuccess = `UPDATE webhook_deliveries
SET status = 'delivered', attempts = attempts + 1, response_code = ?, delivered_at = ?, next_retry_at = NULL,
    error_message = '', updated_at = ?
WHERE id = ?`

type UpdateDeliverySuccessParams struct {
	ResponseCode sql.NullInt64
	DeliveredAt  sql.NullTime
	UpdatedAt    time.Time
	ID           int64
}

func (q *Queries) UpdateDeliverySuccess(ctx context.Context, arg UpdateDeliverySuccessParams) error {
	_, err := q.db.ExecContext(ctx, updateDeliverySuccess, arg.ResponseCode, arg.DeliveredAt, arg.UpdatedAt, arg.ID)
	return err
}

const updateDeliveryRetry = `UPDATE webhook_deliveries
SET status = 'failed', attempts = attempts + 1, response_code = ?, error_message = ?, next_retry_at = ?, updated_at = ?
WHERE id = ?`

type UpdateDeliveryRetryParams struct {
	ResponseCode sql.NullInt64
	ErrorMessage string
	NextRetryAt  sql.NullTime
	UpdatedAt    time.Time
	ID           int64
}

func (q *Queries) UpdateDeliveryRetry(ctx context.Context, arg UpdateDeliveryRetryParams) error {
	_, err := q.db.ExecContext(ctx, updateDeliveryRetry,
		arg.ResponseCode, arg.ErrorMessage, arg.NextRetryAt, arg.UpdatedAt, arg.ID)
	return err
}

const updateDeliveryDead = `UPDATE webhook_deliveries
SET status = 'dead', attempts = attempts + 1, response_code = ?, error_message = ?, next_retry_at = NULL, updated_at = ?
WHERE id = ?`

type UpdateDeliveryDeadParams struct {
	ResponseCode sql.NullInt64
	ErrorMessage string
	UpdatedAt    time.Time
	ID           int64
}

func (q *Queries) UpdateDeliveryDead(ctx context.Context, arg UpdateDeliveryDeadParams) error {
	_, err := q.db.ExecContext(ctx, updateDeliveryDead, arg.ResponseCode, arg.ErrorMessage, arg.UpdatedAt, arg.ID)
	return err
}

const listDueWebhookDeliveries = `SELECT ` + webhookDeliveryColumns + ` FROM webhook_deliveries
WHERE status = 'failed' AND next_retry_at IS NOT NULL AND next_retry_at <= ?
ORDER BY next_retry_at
LIMIT ?`

func (q *Queries) ListDueWebhookDeliveries(ctx context.Context, now time.Time, limit int64) ([]WebhookDelivery, error) {
	rows, err := q.db.QueryContext(ctx, listDueWebhookDeliveries, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WebhookDelivery
	for rows.Next() {
		i, err := scanWebhookDelivery(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countWebhookDeliveriesByStatus = `SELECT status, COUNT(*) FROM webhook_deliveries GROUP BY status`

func (q *Queries) CountWebhookDeliveriesByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, countWebhookDeliveriesByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

const deleteOldWebhookDeliveries = `DELETE FROM webhook_deliveries WHERE status IN ('delivered', 'dead') AND updated_at < ?`

func (q *Queries) DeleteOldWebhookDeliveries(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOldWebhookDeliveries, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
