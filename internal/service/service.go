// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the business rules of ThinkSpace: publishing,
// webinar scheduling and registration, accounts, and the dashboard
// aggregates. Handlers call services; services call the store.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/util"
	"github.com/olegiv/thinkspace/internal/webhook"
)

// Sentinel errors returned by services. Match them with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrPublishUnverified    = model.ErrPublishUnverified
	ErrResourceSource       = model.ErrResourceSource
	ErrAlreadyRegistered    = errors.New("this email is already registered for the webinar")
	ErrWebinarFull          = errors.New("the webinar is full")
	ErrPaymentProofRequired = errors.New("a payment proof is required for paid webinars")
	ErrRegistrationClosed   = errors.New("registration is closed for this webinar")
	ErrEmailTaken           = errors.New("a user with this email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInactiveAccount      = errors.New("this account is disabled")
	ErrCannotDeleteSelf     = errors.New("you cannot delete your own account")
	ErrCannotDeactivateSelf = errors.New("you cannot deactivate your own account")
	ErrCannotImpersonate    = errors.New("this user cannot be impersonated")
)

// Page sizes used by the listings.
const (
	PublicBlogPageSize    = 9
	PublicWebinarPageSize = 9
	AdminPageSize         = 10
	UserPageSize          = 15
	ActivityPageSize      = 50
)

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items   []T
	Number  int
	PerPage int
	Total   int64
}

// TotalPages returns the page count, at least 1.
func (p Page[T]) TotalPages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages() }

// limitOffset clamps page to >= 1 and returns the SQL window for it.
func limitOffset(page, perPage int) (number int, limit, offset int64) {
	if page < 1 {
		page = 1
	}
	return page, int64(perPage), int64((page - 1) * perPage)
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// notify sends a notification and logs, rather than returns, a failure.
func notify(ctx context.Context, sender webhook.Sender, logger *slog.Logger, eventType string, data any) {
	if sender == nil {
		return
	}
	if err := sender.DispatchEvent(ctx, eventType, data); err != nil {
		logger.Warn("failed to dispatch notification", "event_type", eventType, "error", err)
	}
}

// resolveSlug keeps current unless a different slug was requested, and
// derives a free one from name for new rows.
func resolveSlug(ctx context.Context, id int64, requested, name, current, fallback string,
	exists func(ctx context.Context, slug string, excludeID int64) (bool, error)) (string, error) {
	if id != 0 && (requested == "" || requested == current) {
		return current, nil
	}
	source := requested
	if source == "" {
		source = name
	}
	return util.UniqueSlug(ctx, source, fallback, func(ctx context.Context, candidate string) (bool, error) {
		return exists(ctx, candidate, id)
	})
}
