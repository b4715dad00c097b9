// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const registrationColumns = `id, webinar_id, user_id, full_name, email, status, question, payment_reference,
    payment_proof, user_agent, joined_at, left_at, created_at, updated_at`

func scanRegistration(row rowScanner) (WebinarRegistration, error) {
	var i WebinarRegistration
	err := row.Scan(
		&i.ID,
		&i.WebinarID,
		&i.UserID,
		&i.FullName,
		&i.Email,
		&i.Status,
		&i.Question,
		&i.PaymentReference,
		&i.PaymentProof,
		&i.UserAgent,
		&i.JoinedAt,
		&i.LeftAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) collectRegistrations(ctx context.Context, query string, args ...any) ([]WebinarRegistration, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WebinarRegistration
	for rows.Next() {
		i, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// The capacity guard compares confirmed registrations with the webinar's
// capacity inside the same statement that writes the row, so two concurrent
// writers cannot both take the last seat.
const capacityGuard = `(SELECT COUNT(*) FROM webinar_registrations
        WHERE webinar_id = @webinar_id AND status = 'confirmed')
    < (SELECT capacity FROM webinars WHERE id = @webinar_id)`

const createRegistrationWithinCapacity = `INSERT INTO webinar_registrations (webinar_id, user_id, full_name, email,
    status, question, payment_reference, payment_proof, user_agent, created_at, updated_at)
SELECT @webinar_id, @user_id, @full_name, @email, @status, @question, @payment_reference, @payment_proof,
    @user_agent, @created_at, @updated_at
WHERE ` + capacityGuard + `
RETURNING ` + registrationColumns

type CreateRegistrationParams struct {
	WebinarID        int64
	UserID           sql.NullInt64
	FullName         string
	Email            string
	Status           string
	Question         string
	PaymentReference string
	PaymentProof     string
	UserAgent        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateRegistrationWithinCapacity inserts a registration only while the
// webinar still has a free seat. It returns sql.ErrNoRows when it is full.
func (q *Queries) CreateRegistrationWithinCapacity(ctx context.Context, arg CreateRegistrationParams) (WebinarRegistration, error) {
	row := q.db.QueryRowContext(ctx, createRegistrationWithinCapacity,
		sql.Named("webinar_id", arg.WebinarID),
		sql.Named("user_id", arg.UserID),
		sql.Named("full_name", arg.FullName),
		sql.Named("email", arg.Email),
		sql.Named("status", arg.Status),
		sql.Named("question", arg.Question),
		sql.Named("payment_reference", arg.PaymentReference),
		sql.Named("payment_proof", arg.PaymentProof),
		sql.Named("user_agent", arg.UserAgent),
		sql.Named("created_at", arg.CreatedAt),
		sql.Named("updated_at", arg.UpdatedAt),
	)
	return scanRegistration(row)
}

const confirmRegistrationWithinCapacity = `UPDATE webinar_registrations
SET status = 'confirmed', updated_at = @updated_at
WHERE id = @id AND webinar_id = @webinar_id AND status = 'pending'
  AND ` + capacityGuard + `
RETURNING ` + registrationColumns

type ConfirmRegistrationParams struct {
	ID        int64
	WebinarID int64
	UpdatedAt time.Time
}

// ConfirmRegistrationWithinCapacity moves a pending registration to
// confirmed if a seat is free. It returns sql.ErrNoRows otherwise.
func (q *Queries) ConfirmRegistrationWithinCapacity(ctx context.Context, arg ConfirmRegistrationParams) (WebinarRegistration, error) {
	row := q.db.QueryRowContext(ctx, confirmRegistrationWithinCapacity,
		sql.Named("id", arg.ID),
		sql.Named("webinar_id", arg.WebinarID),
		sql.Named("updated_at", arg.UpdatedAt),
	)
	return scanRegistration(row)
}

const cancelRegistration = `UPDATE webinar_registrations SET status = 'cancelled', updated_at = ? WHERE id = ?
RETURNING ` + registrationColumns

func (q *Queries) CancelRegistration(ctx context.Context, id int64, now time.Time) (WebinarRegistration, error) {
	return scanRegistration(q.db.QueryRowContext(ctx, cancelRegistration, now, id))
}

const getRegistration = `SELECT ` + registrationColumns + ` FROM webinar_registrations WHERE id = ?`

func (q *Queries) GetRegistration(ctx context.Context, id int64) (WebinarRegistration, error) {
	return scanRegistration(q.db.QueryRowContext(ctx, getRegistration, id))
}

const getRegistrationByEmail = `SELECT ` + registrationColumns + ` FROM webinar_registrations
WHERE webinar_id = ? AND email = ?`

type GetRegistrationByEmailParams struct {
	WebinarID int64
	Email     string
}

func (q *Queries) GetRegistrationByEmail(ctx context.Context, arg GetRegistrationByEmailParams) (WebinarRegistration, error) {
	return scanRegistration(q.db.QueryRowContext(ctx, getRegistrationByEmail, arg.WebinarID, arg.Email))
}

const listRegistrationsForWebinar = `SELECT ` + registrationColumns + ` FROM webinar_registrations
WHERE webinar_id = @webinar_id AND (@status = '' OR status = @status)
ORDER BY created_at DESC, id DESC`

type ListRegistrationsForWebinarParams struct {
	WebinarID int64
	Status    string
}

func (q *Queries) ListRegistrationsForWebinar(ctx context.Context, arg ListRegistrationsForWebinarParams) ([]WebinarRegistration, error) {
	return q.collectRegistrations(ctx, listRegistrationsForWebinar,
		sql.Named("webinar_id", arg.WebinarID),
		sql.Named("status", arg.Status),
	)
}

const countRegistrationsByStatus = `SELECT
    COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'confirmed' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0)
FROM webinar_registrations WHERE webinar_id = ?`

type RegistrationCounts struct {
	Pending   int64
	Confirmed int64
	Cancelled int64
}

func (q *Queries) CountRegistrationsByStatus(ctx context.Context, webinarID int64) (RegistrationCounts, error) {
	var c RegistrationCounts
	err := q.db.QueryRowContext(ctx, countRegistrationsByStatus, webinarID).Scan(&c.Pending, &c.Confirmed, &c.Cancelled)
	return c, err
}

const listRegistrationsByEmail = `SELECT r.id, r.webinar_id, r.user_id, r.full_name, r.email, r.status, r.question,
    r.payment_reference, r.payment_proof, r.user_agent, r.joined_at, r.left_at, r.created_at, r.updated_at,
    w.title, w.slug, w.start_at, w.status
FROM webinar_registrations r
JOIN webinars w ON w.id = r.webinar_id
WHERE r.email = ?
ORDER BY w.start_at DESC, r.id DESC`

// ListRegistrationsByEmail returns every registration made with an email, newest webinar first.
func (q *Queries) ListRegistrationsByEmail(ctx context.Context, email string) ([]RegistrationRow, error) {
	rows, err := q.db.QueryContext(ctx, listRegistrationsByEmail, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RegistrationRow
	for rows.Next() {
		var i RegistrationRow
		if err := rows.Scan(
			&i.ID,
			&i.WebinarID,
			&i.UserID,
			&i.FullName,
			&i.Email,
			&i.Status,
			&i.Question,
			&i.PaymentReference,
			&i.PaymentProof,
			&i.UserAgent,
			&i.JoinedAt,
			&i.LeftAt,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.WebinarTitle,
			&i.WebinarSlug,
			&i.WebinarStartAt,
			&i.WebinarStatus,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const markRegistrationJoined = `UPDATE webinar_registrations SET joined_at = COALESCE(joined_at, ?), updated_at = ?
WHERE id = ? AND status = 'confirmed'`

// MarkRegistrationJoined stamps joined_at once; later calls keep the first value.
func (q *Queries) MarkRegistrationJoined(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, markRegistrationJoined, now, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const markRegistrationLeft = `UPDATE webinar_registrations SET left_at = ?, updated_at = ?
WHERE id = ? AND joined_at IS NOT NULL`

func (q *Queries) MarkRegistrationLeft(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, markRegistrationLeft, now, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const forEachRegistration = `SELECT ` + registrationColumns + ` FROM webinar_registrations
WHERE webinar_id = ?
ORDER BY id`

// ForEachRegistration streams a webinar's registrations to fn in id order.
func (q *Queries) ForEachRegistration(ctx context.Context, webinarID int64, fn func(WebinarRegistration) error) error {
	rows, err := q.db.QueryContext(ctx, forEachRegistration, webinarID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}
