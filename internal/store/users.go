// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const userColumns = `id, email, username, first_name, last_name, password_hash, is_staff, is_superuser,
	is_active, last_login_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Username,
		&i.FirstName,
		&i.LastName,
		&i.PasswordHash,
		&i.IsStaff,
		&i.IsSuperuser,
		&i.IsActive,
		&i.LastLoginAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `INSERT INTO users (email, username, first_name, last_name, password_hash, is_staff, is_superuser, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + userColumns

type CreateUserParams struct {
	Email        string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	IsStaff      bool
	IsSuperuser  bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Email,
		arg.Username,
		arg.FirstName,
		arg.LastName,
		arg.PasswordHash,
		arg.IsStaff,
		arg.IsSuperuser,
		arg.IsActive,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanUser(row)
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = lower(?)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const updateUser = `UPDATE users
SET email = ?, username = ?, first_name = ?, last_name = ?, is_staff = ?, is_superuser = ?, is_active = ?, updated_at = ?
WHERE id = ?
RETURNING ` + userColumns

type UpdateUserParams struct {
	Email       string
	Username    string
	FirstName   string
	LastName    string
	IsStaff     bool
	IsSuperuser bool
	IsActive    bool
	UpdatedAt   time.Time
	ID          int64
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, updateUser,
		arg.Email,
		arg.Username,
		arg.FirstName,
		arg.LastName,
		arg.IsStaff,
		arg.IsSuperuser,
		arg.IsActive,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanUser(row)
}

const updateUserPassword = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

const updateUserLastLogin = `UPDATE users SET last_login_at = ? WHERE id = ?`

type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx, updateUserLastLogin, arg.LastLoginAt, arg.ID)
	return err
}

const setUserActive = `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`

type SetUserActiveParams struct {
	IsActive  bool
	UpdatedAt time.Time
	ID        int64
}

func (q *Queries) SetUserActive(ctx context.Context, arg SetUserActiveParams) error {
	_, err := q.db.ExecContext(ctx, setUserActive, arg.IsActive, arg.UpdatedAt, arg.ID)
	return err
}

const deleteUser = `DELETE FROM users WHERE id = ?`

func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteUser, id)
	return err
}

const userFilter = `
WHERE (@role = ''
    OR (@role = 'superuser' AND is_superuser = 1)
    OR (@role = 'staff' AND is_staff = 1 AND is_superuser = 0)
    OR (@role = 'regular' AND is_staff = 0 AND is_superuser = 0))
  AND (@status = ''
    OR (@status = 'active' AND is_active = 1)
    OR (@status = 'inactive' AND is_active = 0))
  AND (@q = ''
    OR casefold(email) LIKE @like ESCAPE '\'
    OR casefold(username) LIKE @like ESCAPE '\'
    OR casefold(first_name) LIKE @like ESCAPE '\'
    OR casefold(last_name) LIKE @like ESCAPE '\')`

// UserFilter narrows user listings. Empty fields match everything.
type UserFilter struct {
	Role   string
	Status string
	Query  string
}

func (f UserFilter) args() []any {
	return []any{
		sql.Named("role", f.Role),
		sql.Named("status", f.Status),
		sql.Named("q", f.Query),
		sql.Named("like", likePattern(f.Query)),
	}
}

const listUsers = `SELECT ` + userColumns + ` FROM users` + userFilter + `
ORDER BY created_at DESC, id DESC
LIMIT @limit OFFSET @offset`

type ListUsersParams struct {
	UserFilter
	Limit  int64
	Offset int64
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	args := append(arg.args(), sql.Named("limit", arg.Limit), sql.Named("offset", arg.Offset))
	rows, err := q.db.QueryContext(ctx, listUsers, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countUsers = `SELECT COUNT(*) FROM users` + userFilter

func (q *Queries) CountUsers(ctx context.Context, arg UserFilter) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsers, arg.args()...).Scan(&count)
	return count, err
}

const getUserStats = `SELECT
    COUNT(*),
    COALESCE(SUM(is_active), 0),
    COALESCE(SUM(CASE WHEN is_staff = 1 AND is_superuser = 0 THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(is_superuser), 0)
FROM users`

type UserStats struct {
	Total      int64
	Active     int64
	Staff      int64
	Superusers int64
}

func (q *Queries) GetUserStats(ctx context.Context) (UserStats, error) {
	var s UserStats
	err := q.db.QueryRowContext(ctx, getUserStats).Scan(&s.Total, &s.Active, &s.Staff, &s.Superusers)
	return s, err
}

const forEachUser = `SELECT ` + userColumns + ` FROM users ORDER BY id`

// ForEachUser streams every user to fn in id order.
func (q *Queries) ForEachUser(ctx context.Context, fn func(User) error) error {
	rows, err := q.db.QueryContext(ctx, forEachUser)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return rows.Err()
}
