// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const getRoleByName = `SELECT id, name, description, created_at FROM roles WHERE name = ?`

func (q *Queries) GetRoleByName(ctx context.Context, name string) (Role, error) {
	var i Role
	err := q.db.QueryRowContext(ctx, getRoleByName, name).Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt)
	return i, err
}

const getRoleByID = `SELECT id, name, description, created_at FROM roles WHERE id = ?`

func (q *Queries) GetRoleByID(ctx context.Context, id int64) (Role, error) {
	var i Role
	err := q.db.QueryRowContext(ctx, getRoleByID, id).Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt)
	return i, err
}

const createRole = `INSERT INTO roles (name, description, created_at) VALUES (?, ?, ?)
RETURNING id, name, description, created_at`

type CreateRoleParams struct {
	Name        string
	Description string
	CreatedAt   time.Time
}

func (q *Queries) CreateRole(ctx context.Context, arg CreateRoleParams) (Role, error) {
	var i Role
	err := q.db.QueryRowContext(ctx, createRole, arg.Name, arg.Description, arg.CreatedAt).
		Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt)
	return i, err
}

const deleteRole = `DELETE FROM roles WHERE id = ?`

func (q *Queries) DeleteRole(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteRole, id)
	return err
}

const listRolesWithCounts = `SELECT r.id, r.name, r.description, r.created_at, COUNT(ur.user_id)
FROM roles r
LEFT JOIN user_roles ur ON ur.role_id = r.id
GROUP BY r.id
ORDER BY r.name`

// RoleRow is a role with the number of users holding it.
type RoleRow struct {
	Role
	UserCount int64
}

func (q *Queries) ListRolesWithCounts(ctx context.Context) ([]RoleRow, error) {
	rows, err := q.db.QueryContext(ctx, listRolesWithCounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RoleRow
	for rows.Next() {
		var i RoleRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt, &i.UserCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listRolesForUser = `SELECT r.id, r.name, r.description, r.created_at
FROM roles r
JOIN user_roles ur ON ur.role_id = r.id
WHERE ur.user_id = ?
ORDER BY r.name`

func (q *Queries) ListRolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := q.db.QueryContext(ctx, listRolesForUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Role
	for rows.Next() {
		var i Role
		if err := rows.Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const addUserRole = `INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)`

type UserRoleParams struct {
	UserID int64
	RoleID int64
}

func (q *Queries) AddUserRole(ctx context.Context, arg UserRoleParams) error {
	_, err := q.db.ExecContext(ctx, addUserRole, arg.UserID, arg.RoleID)
	return err
}

const removeUserRole = `DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`

func (q *Queries) RemoveUserRole(ctx context.Context, arg UserRoleParams) error {
	_, err := q.db.ExecContext(ctx, removeUserRole, arg.UserID, arg.RoleID)
	return err
}
