// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const profileColumns = `id, user_id, bio, avatar, country, address, date_of_birth, gender, whatsapp,
	instagram, twitter, linkedin, created_at, updated_at`

func scanProfile(row rowScanner) (Profile, error) {
	var i Profile
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Bio,
		&i.Avatar,
		&i.Country,
		&i.Address,
		&i.DateOfBirth,
		&i.Gender,
		&i.Whatsapp,
		&i.Instagram,
		&i.Twitter,
		&i.Linkedin,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createProfile = `INSERT INTO profiles (user_id, country, created_at, updated_at)
VALUES (?, ?, ?, ?)
RETURNING ` + profileColumns

type CreateProfileParams struct {
	UserID    int64
	Country   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	row := q.db.QueryRowContext(ctx, createProfile, arg.UserID, arg.Country, arg.CreatedAt, arg.UpdatedAt)
	return scanProfile(row)
}

const getProfileByUserID = `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ?`

func (q *Queries) GetProfileByUserID(ctx context.Context, userID int64) (Profile, error) {
	return scanProfile(q.db.QueryRowContext(ctx, getProfileByUserID, userID))
}

const updateProfile = `UPDATE profiles
SET bio = ?, avatar = ?, country = ?, address = ?, date_of_birth = ?, gender = ?, whatsapp = ?,
    instagram = ?, twitter = ?, linkedin = ?, updated_at = ?
WHERE user_id = ?
RETURNING ` + profileColumns

type UpdateProfileParams struct {
	Bio         string
	Avatar      string
	Country     string
	Address     string
	DateOfBirth sql.NullTime
	Gender      string
	Whatsapp    string
	Instagram   string
	Twitter     string
	Linkedin    string
	UpdatedAt   time.Time
	UserID      int64
}

func (q *Queries) UpdateProfile(ctx context.Context, arg UpdateProfileParams) (Profile, error) {
	row := q.db.QueryRowContext(ctx, updateProfile,
		arg.Bio,
		arg.Avatar,
		arg.Country,
		arg.Address,
		arg.DateOfBirth,
		arg.Gender,
		arg.Whatsapp,
		arg.Instagram,
		arg.Twitter,
		arg.Linkedin,
		arg.UpdatedAt,
		arg.UserID,
	)
	return scanProfile(row)
}
